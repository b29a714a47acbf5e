package service

import (
	"context"
	"ctchen222/accounts/internal/auth"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSessionService_IssueAndResolve(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com", "wonderland", true)
	sessions := NewSessionService(env.tokens, env.sessions, env.users)

	env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(2), nil).Times(2)

	token, err := sessions.Issue(context.Background(), alice)
	require.NoError(t, err)

	user, err := sessions.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestSessionService_ResolveStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com", "wonderland", true)
	sessions := NewSessionService(env.tokens, env.sessions, env.users)

	gomock.InOrder(
		env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(0), nil),
		env.sessions.EXPECT().Rotate(gomock.Any(), alice.ID).Return(int64(1), nil),
		env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(1), nil),
		env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(1), nil),
		env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(1), nil),
	)

	old, err := sessions.Issue(context.Background(), alice)
	require.NoError(t, err)
	require.NoError(t, sessions.Revoke(context.Background(), alice))
	fresh, err := sessions.Issue(context.Background(), alice)
	require.NoError(t, err)

	_, err = sessions.Resolve(context.Background(), old)
	assert.ErrorIs(t, err, ErrUnauthorized)

	user, err := sessions.Resolve(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
}

func TestSessionService_ResolveRejects(t *testing.T) {
	env := newTestEnv(t)
	frozen := env.createUser(t, "frozen", "frozen@example.com", "wonderland", false)
	sessions := NewSessionService(env.tokens, env.sessions, env.users)

	t.Run("garbage token", func(t *testing.T) {
		_, err := sessions.Resolve(context.Background(), "garbage")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("foreign signature", func(t *testing.T) {
		token, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue(frozen.ID, "frozen", 0)
		require.NoError(t, err)
		_, err = sessions.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("inactive user", func(t *testing.T) {
		env.sessions.EXPECT().Version(gomock.Any(), frozen.ID).Return(int64(0), nil)
		token, err := env.tokens.Issue(frozen.ID, "frozen", 0)
		require.NoError(t, err)
		_, err = sessions.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("deleted user", func(t *testing.T) {
		env.sessions.EXPECT().Version(gomock.Any(), int64(999)).Return(int64(0), nil)
		token, err := env.tokens.Issue(999, "ghost", 0)
		require.NoError(t, err)
		_, err = sessions.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestSessionService_ResolveStoreError(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com", "wonderland", true)
	sessions := NewSessionService(env.tokens, env.sessions, env.users)
	boom := errors.New("redis down")
	env.sessions.EXPECT().Version(gomock.Any(), alice.ID).Return(int64(0), boom)

	token, err := env.tokens.Issue(alice.ID, "alice", 0)
	require.NoError(t, err)

	_, err = sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestSessionService_RevokeError(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com", "wonderland", true)
	sessions := NewSessionService(env.tokens, env.sessions, env.users)
	boom := errors.New("redis down")
	env.sessions.EXPECT().Rotate(gomock.Any(), alice.ID).Return(int64(0), boom)

	assert.ErrorIs(t, sessions.Revoke(context.Background(), alice), boom)
}
