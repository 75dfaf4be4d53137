package sessionstore_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/memory"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/storetest"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T, secret string) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestSealedStore(t *testing.T) {
	sealer := newSealer(t, "sealed-store-secret")
	storetest.Run(t, func(t *testing.T) sessionstore.Store {
		return sessionstore.Sealed(memory.New(), sealer)
	})
}

func TestSealedStoreEncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	s := sessionstore.Sealed(inner, newSealer(t, "at-rest"))

	require.NoError(t, s.Set(ctx, sessionstore.KeyRefreshToken, "refresh-token-value"))

	raw, err := inner.Get(ctx, sessionstore.KeyRefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, "refresh-token-value", raw)
	require.NotContains(t, raw, "refresh")
}

func TestSealedStoreUnreadableValueIsAbsent(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()

	require.NoError(t, sessionstore.Sealed(inner, newSealer(t, "old-key")).Set(ctx, sessionstore.KeyAccessToken, "a"))
	require.NoError(t, inner.Set(ctx, sessionstore.KeyRefreshToken, "plaintext-from-before-sealing"))

	s := sessionstore.Sealed(inner, newSealer(t, "new-key"))

	_, err := s.Get(ctx, sessionstore.KeyAccessToken)
	require.ErrorIs(t, err, sessionstore.ErrNotFound)

	v, err := sessionstore.Lookup(ctx, s, sessionstore.KeyRefreshToken)
	require.NoError(t, err)
	require.Empty(t, v)
}
