package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	for _, size := range []int{16, OpaqueTokenSize, 64} {
		token, err := NewOpaqueToken(size)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, size)

		other, err := NewOpaqueToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, other, "tokens should be unique")
	}
}

func TestNewOpaqueTokenInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := NewOpaqueToken(size)
		require.Error(t, err)
	}
}

func TestFingerprint(t *testing.T) {
	require.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	require.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
	require.Len(t, Fingerprint("abc"), 43)
}
