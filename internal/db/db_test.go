package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitializeSchema(ctx, conn))
	require.NoError(t, InitializeSchema(ctx, conn))

	var count int
	err = conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
