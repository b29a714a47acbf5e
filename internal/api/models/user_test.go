package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_SetAndCheckPassword(t *testing.T) {
	u := &User{Username: "alice"}
	require.NoError(t, u.SetPassword("correct horse"))

	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.True(t, u.CheckPassword("correct horse"))
	assert.False(t, u.CheckPassword("wrong horse"))
}

func TestUser_CheckPasswordWithoutHash(t *testing.T) {
	u := &User{Username: "alice"}
	assert.False(t, u.CheckPassword(""))
}

func TestProfileOf(t *testing.T) {
	u := &User{
		ID:        7,
		UUID:      "0d0c6a5e-2b8e-4d44-8f6a-0a4f5b8e5c11",
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
		Bio:       "down the rabbit hole",
	}

	p := ProfileOf(u)
	assert.Equal(t, Profile{
		UserID:    u.UUID,
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
		Bio:       "down the rabbit hole",
	}, p)
}
