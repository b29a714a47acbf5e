package auth

import (
	"context"
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/repository"
	"fmt"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("auth")

// Authenticator checks a username and password pair.
type Authenticator interface {
	// Authenticate returns the user when the credentials match and nil when
	// they don't. Inactive users are returned as well; deciding what to do
	// with them is up to the caller.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type passwordAuthenticator struct {
	users repository.UserRepository
}

// NewAuthenticator creates an Authenticator backed by the user repository.
func NewAuthenticator(users repository.UserRepository) Authenticator {
	return &passwordAuthenticator{users: users}
}

func (a *passwordAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "Authenticator.Authenticate")
	defer span.End()

	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, nil
	}
	return user, nil
}
