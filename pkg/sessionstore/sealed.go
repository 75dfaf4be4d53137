package sessionstore

import (
	"context"
	"errors"
)

// Sealer encrypts values before they reach a driver. *cryptox.Sealer
// satisfies it.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

type sealedStore struct {
	inner  Store
	sealer Sealer
}

// Sealed wraps inner so tokens are encrypted at rest. A stored value that no
// longer opens (wrong key, corruption) reads as ErrNotFound, which callers
// already treat as "no session".
func Sealed(inner Store, sealer Sealer) Store {
	return &sealedStore{inner: inner, sealer: sealer}
}

func (s *sealedStore) Get(ctx context.Context, key Key) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	plain, err := s.sealer.Open(v)
	if err != nil {
		return "", errors.Join(ErrNotFound, err)
	}
	return string(plain), nil
}

func (s *sealedStore) Set(ctx context.Context, key Key, value string) error {
	if err := CheckKey(key); err != nil {
		return err
	}

	sealed, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *sealedStore) Clear(ctx context.Context, key Key) error {
	return s.inner.Clear(ctx, key)
}

func (s *sealedStore) Close() error { return s.inner.Close() }
