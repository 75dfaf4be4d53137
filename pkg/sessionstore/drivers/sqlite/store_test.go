package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/storetest"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) sessionstore.Store {
		s := openStore(t, filepath.Join(t.TempDir(), "session.db"))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s := openStore(t, path)
	require.NoError(t, sessionstore.SetTokens(ctx, s, "access", "refresh"))
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	t.Cleanup(func() { _ = reopened.Close() })

	v, err := reopened.Get(ctx, sessionstore.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "access", v)

	v, err = reopened.Get(ctx, sessionstore.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh", v)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}
