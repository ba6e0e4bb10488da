package securefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys")
	store, err := Open(path, "correct horse battery staple")
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "token", "abc123"))
	require.NoError(t, store.Set(ctx, "refreshToken", "def456"))

	value, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", value)

	require.NoError(t, store.Delete(ctx, "token"))
	_, ok, err = store.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)

	// deleting an absent key is a no-op
	require.NoError(t, store.Delete(ctx, "token"))
}

func TestFileIsNotPlaintext(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys")
	store, err := Open(path, "passphrase")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "token", "super-secret-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-token")
}

func TestWrongPassphraseFails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys")
	store, err := Open(path, "first")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "token", "value"))

	other, err := Open(path, "second")
	require.NoError(t, err)
	_, _, err = other.Get(ctx, "token")
	require.Error(t, err)
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open("", "pass"); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Open("keys", ""); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
}
