package service

import (
	"context"
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/repository"
	"ctchen222/accounts/internal/auth"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned by Resolve when a token does not identify an
// active user under the current session version.
var ErrUnauthorized = errors.New("unauthorized")

// SessionService issues session tokens and resolves them back to users.
type SessionService interface {
	// Issue creates a token for user at the current session version.
	Issue(ctx context.Context, user *models.User) (string, error)
	// Revoke invalidates every token issued to user so far.
	Revoke(ctx context.Context, user *models.User) error
	// Resolve returns the user a token belongs to.
	Resolve(ctx context.Context, token string) (*models.User, error)
}

type sessionService struct {
	tokens   *auth.TokenIssuer
	sessions repository.SessionRepository
	users    repository.UserRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(tokens *auth.TokenIssuer, sessions repository.SessionRepository, users repository.UserRepository) SessionService {
	return &sessionService{tokens: tokens, sessions: sessions, users: users}
}

func (s *sessionService) Issue(ctx context.Context, user *models.User) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Issue")
	defer span.End()

	version, err := s.sessions.Version(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID, user.Username, version)
}

func (s *sessionService) Revoke(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "SessionService.Revoke")
	defer span.End()

	if _, err := s.sessions.Rotate(ctx, user.ID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Resolve")
	defer span.End()

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	version, err := s.sessions.Version(ctx, userID)
	if err != nil {
		return nil, err
	}
	if claims.Version != version {
		return nil, fmt.Errorf("%w: session version %d is stale", ErrUnauthorized, claims.Version)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: user %d not found or inactive", ErrUnauthorized, userID)
	}
	return user, nil
}
