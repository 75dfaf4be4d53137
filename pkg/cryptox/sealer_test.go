package cryptox_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T, secret string) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t, "test-sealing-secret-0123456789")

	sealed, err := s.Seal([]byte("eyJhbGciOi.payload.sig"))
	require.NoError(t, err)
	require.NotContains(t, sealed, "payload")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "eyJhbGciOi.payload.sig", string(opened))
}

func TestSealUsesFreshNonce(t *testing.T) {
	s := newSealer(t, "test-sealing-secret-nonce")

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	s := newSealer(t, "test-sealing-secret-tamper")

	sealed, err := s.Seal([]byte("refresh-token"))
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0xff
	_, err = s.Open(base64.RawURLEncoding.EncodeToString(raw))
	require.Error(t, err)

	_, err = s.Open("not base64 !!")
	require.Error(t, err)

	_, err = s.Open("AAAA")
	require.ErrorIs(t, err, cryptox.ErrSealedTooShort)
}

func TestOpenWithWrongSecret(t *testing.T) {
	sealed, err := newSealer(t, "secret-one").Seal([]byte("token"))
	require.NoError(t, err)

	_, err = newSealer(t, "secret-two").Open(sealed)
	require.Error(t, err)
}

func TestNewSealerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.key")
	require.NoError(t, os.WriteFile(path, []byte("file-secret"), 0o600))

	fromFile, err := cryptox.NewSealerFromFile(path)
	require.NoError(t, err)

	sealed, err := fromFile.Seal([]byte("x"))
	require.NoError(t, err)

	opened, err := newSealer(t, "file-secret").Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "x", string(opened))

	_, err = cryptox.NewSealerFromFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = cryptox.NewSealer(nil)
	require.Error(t, err)
}
