package domain

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// UpdateFunc receives the current raw value of a key and returns the value to
// store in its place. Returning an error aborts the update.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store is the persistent key/value client holding the application's
// collections, settings and backups. Values are raw JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all values or none of them.
	SetMany(ctx context.Context, values map[string][]byte) error
	// Update performs an atomic read-modify-write of a single key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Ping(ctx context.Context) error
	GetType() string
	Close() error
}

// GetValue decodes the value stored at key, returning def when the key is
// absent or holds JSON null.
func GetValue[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || IsNull(raw) {
		return def, nil
	}

	var v T
	if err := DecodeJSON(raw, &v); err != nil {
		return def, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func PutValue(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func IsNull(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
