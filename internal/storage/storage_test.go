package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no token")

	require.NoError(t, s.Set(ctx, KeyAccessToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	v, ok, err := reopened.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, reopened.Delete(ctx, KeyAccessToken))
	require.NoError(t, reopened.Delete(ctx, KeyAccessToken), "deleting twice is fine")

	again, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok, err = again.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
	theme, _, _ := again.Get(ctx, KeyTheme)
	assert.Equal(t, "dark", theme)
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestStores_Closed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	for name, s := range map[string]Store{"file": fs, "memory": NewMemoryStore()} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())
			_, _, err := s.Get(ctx, KeyTheme)
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Set(ctx, KeyTheme, "dark"), ErrClosed)
			assert.ErrorIs(t, s.Delete(ctx, KeyTheme), ErrClosed)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, KeyAccessToken, "abc"))
	v, ok, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Delete(ctx, KeyAccessToken))
	_, ok, _ = s.Get(ctx, KeyAccessToken)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set - skipping Redis integration test")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, redisURL, "homehero-test")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set(ctx, KeyAccessToken, "redis-token"))
	v, ok, err := s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "redis-token", v)

	require.NoError(t, s.Delete(ctx, KeyAccessToken))
	_, ok, err = s.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisStoreFromClient_DefaultPrefix(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	s := NewRedisStoreFromClient(client, "")
	assert.Equal(t, "homehero:access-token", s.key(KeyAccessToken))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(context.Background(), "not a url", "x")
	assert.Error(t, err)
}
