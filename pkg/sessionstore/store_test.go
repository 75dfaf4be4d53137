package sessionstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/memory"
	"github.com/stretchr/testify/require"
)

// failingStore fails Set for one key.
type failingStore struct {
	*memory.Store
	failOn sessionstore.Key
}

var errDisk = errors.New("disk full")

func (f *failingStore) Set(ctx context.Context, key sessionstore.Key, value string) error {
	if key == f.failOn {
		return errDisk
	}
	return f.Store.Set(ctx, key, value)
}

func TestSetTokensRollsBackOnPartialWrite(t *testing.T) {
	ctx := context.Background()
	s := &failingStore{Store: memory.New(), failOn: sessionstore.KeyRefreshToken}

	err := sessionstore.SetTokens(ctx, s, "access", "refresh")
	require.ErrorIs(t, err, errDisk)
	require.Zero(t, s.Len())
}

func TestKeyValid(t *testing.T) {
	require.True(t, sessionstore.KeyAccessToken.Valid())
	require.True(t, sessionstore.KeyRefreshToken.Valid())
	require.False(t, sessionstore.Key("user").Valid())
	require.ErrorIs(t, sessionstore.CheckKey("user"), sessionstore.ErrUnknownKey)
}
