// Package sessionstore persists the access and refresh tokens of the single
// signed-in session so it survives process restarts.
//
// A Store is a dumb key-value surface over two fixed keys. It holds no
// validation logic: whether a stored token is still usable is the caller's
// concern. Concrete drivers live under drivers/.
package sessionstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("sessionstore: not found")
	ErrUnknownKey = errors.New("sessionstore: unknown key")
)

// Key names one of the persisted entries.
type Key string

const (
	KeyAccessToken  Key = "access_token"
	KeyRefreshToken Key = "refresh_token"
)

// Keys lists every key a Store accepts.
var Keys = []Key{KeyAccessToken, KeyRefreshToken}

// Valid reports whether k is one of the fixed keys.
func (k Key) Valid() bool {
	return k == KeyAccessToken || k == KeyRefreshToken
}

func (k Key) String() string { return string(k) }

// Store is implemented by each driver.
type Store interface {
	// Get returns the value for key, or ErrNotFound if nothing is stored.
	Get(ctx context.Context, key Key) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value string) error

	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key Key) error

	// Close releases any underlying resources.
	Close() error
}

// CheckKey returns ErrUnknownKey if key is not one of the fixed keys.
func CheckKey(key Key) error {
	if !key.Valid() {
		return ErrUnknownKey
	}
	return nil
}

// Lookup is Get with ErrNotFound folded into an empty string.
func Lookup(ctx context.Context, s Store, key Key) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetTokens stores both tokens. If the second write fails the first is
// rolled back so no half-written session is left behind.
func SetTokens(ctx context.Context, s Store, access, refresh string) error {
	if err := s.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.Set(ctx, KeyRefreshToken, refresh); err != nil {
		_ = s.Clear(ctx, KeyAccessToken)
		return err
	}
	return nil
}

// ClearAll removes both tokens, returning the first error encountered after
// attempting every key.
func ClearAll(ctx context.Context, s Store) error {
	var errs []error
	for _, k := range Keys {
		if err := s.Clear(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
