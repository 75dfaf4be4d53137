package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "hash should be in PHC format")
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	a, err := HashPassword("secret1")
	require.NoError(t, err)
	b, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for name, hash := range map[string]string{
		"empty":        "",
		"wrong parts":  "$argon2id$v=19$m=1,t=1,p=1$salt",
		"wrong algo":   "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"wrong ver":    "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"bad params":   "$argon2id$v=19$memory$c2FsdA$aGFzaA",
		"bad salt b64": "$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
	} {
		t.Run(name, func(t *testing.T) {
			err := VerifyPassword("secret1", hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}
