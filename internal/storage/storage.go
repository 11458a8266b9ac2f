// Package storage is the process-wide key/value store for persisted client
// state: the backend access token, the theme preference and the identity
// provider's own credential.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/homehero/internal/config"
)

// Fixed keys. Only the session manager writes KeyAccessToken.
const (
	KeyAccessToken = "access-token"
	KeyTheme       = "theme"
	KeyIdentity    = "identity"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Store persists string values under string keys. Get reports ok=false for a
// missing key rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.StoragePrefix)
	case config.StorageFile, "":
		return NewFileStore(cfg.StateFile)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
