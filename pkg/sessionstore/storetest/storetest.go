// Package storetest holds the behaviour every sessionstore driver must share.
package storetest

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/stretchr/testify/require"
)

// Run exercises a driver. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) sessionstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, sessionstore.KeyAccessToken)
		require.ErrorIs(t, err, sessionstore.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sessionstore.KeyAccessToken, "access-1"))
		require.NoError(t, s.Set(ctx, sessionstore.KeyRefreshToken, "refresh-1"))

		v, err := s.Get(ctx, sessionstore.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "access-1", v)

		v, err = s.Get(ctx, sessionstore.KeyRefreshToken)
		require.NoError(t, err)
		require.Equal(t, "refresh-1", v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sessionstore.KeyAccessToken, "old"))
		require.NoError(t, s.Set(ctx, sessionstore.KeyAccessToken, "new"))

		v, err := s.Get(ctx, sessionstore.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "new", v)
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sessionstore.KeyRefreshToken, "refresh"))
		require.NoError(t, s.Clear(ctx, sessionstore.KeyRefreshToken))

		_, err := s.Get(ctx, sessionstore.KeyRefreshToken)
		require.ErrorIs(t, err, sessionstore.ErrNotFound)

		// Clearing twice is fine.
		require.NoError(t, s.Clear(ctx, sessionstore.KeyRefreshToken))
	})

	t.Run("clear all", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, sessionstore.SetTokens(ctx, s, "a", "r"))
		require.NoError(t, sessionstore.ClearAll(ctx, s))

		for _, k := range sessionstore.Keys {
			v, err := sessionstore.Lookup(ctx, s, k)
			require.NoError(t, err)
			require.Empty(t, v)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "user")
		require.ErrorIs(t, err, sessionstore.ErrUnknownKey)
		require.ErrorIs(t, s.Set(ctx, "user", "x"), sessionstore.ErrUnknownKey)
		require.ErrorIs(t, s.Clear(ctx, "user"), sessionstore.ErrUnknownKey)
	})
}
