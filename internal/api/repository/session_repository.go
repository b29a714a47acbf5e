package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=session_repository.go -destination=mocks/mock_session_repository.go -package=mocks

// SessionRepository tracks a per-user session version. Tokens carry the
// version they were issued under and stop being accepted once it is rotated.
type SessionRepository interface {
	Version(ctx context.Context, userID int64) (int64, error)
	Rotate(ctx context.Context, userID int64) (int64, error)
}

type redisSessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new Redis-based SessionRepository.
func NewSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("user:%d:session_version", userID)
}

// Version returns the current session version of a user, 0 if it was
// never rotated.
func (r *redisSessionRepository) Version(ctx context.Context, userID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Version")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	v, err := r.rdb.Get(ctx, sessionKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to read session version: %w", err)
	}
	return v, nil
}

// Rotate bumps the session version of a user and returns the new value.
func (r *redisSessionRepository) Rotate(ctx context.Context, userID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Rotate")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	v, err := r.rdb.Incr(ctx, sessionKey(userID)).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to rotate session version: %w", err)
	}
	return v, nil
}
