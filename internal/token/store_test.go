package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "alice@example.com", "tok-abc"))

	got, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", got)
}

func TestMemoryStoreMissingIdentity(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrCredentialMissing)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "alice@example.com", "old"))
	require.NoError(t, s.Set(ctx, "alice@example.com", "new"))

	got, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}
