package auth

import (
	"context"
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/repository/mocks"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func userWithPassword(t *testing.T, username, password string, active bool) *models.User {
	t.Helper()
	u := &models.User{ID: 1, Username: username, IsActive: active}
	require.NoError(t, u.SetPassword(password))
	return u
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	alice := userWithPassword(t, "alice", "s3cretpass", true)
	inactive := userWithPassword(t, "frozen", "s3cretpass", false)

	tests := []struct {
		name     string
		username string
		password string
		stored   *models.User
		want     *models.User
	}{
		{"valid credentials", "alice", "s3cretpass", alice, alice},
		{"wrong password", "alice", "nope", alice, nil},
		{"unknown user", "bob", "s3cretpass", nil, nil},
		{"inactive user is returned", "frozen", "s3cretpass", inactive, inactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			users := mocks.NewMockUserRepository(ctrl)
			users.EXPECT().GetByUsername(gomock.Any(), tt.username).Return(tt.stored, nil)

			got, err := NewAuthenticator(users).Authenticate(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	boom := errors.New("db down")
	users.EXPECT().GetByUsername(gomock.Any(), "alice").Return(nil, boom)

	got, err := NewAuthenticator(users).Authenticate(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}
