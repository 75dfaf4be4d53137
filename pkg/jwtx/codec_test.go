package jwtx_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_700_000_000, 0).UTC()

func newCodec() *jwtx.Codec {
	c := jwtx.NewCodec()
	c.Now = func() time.Time { return fixedNow }
	return c
}

func signed(t *testing.T, p jwtx.Payload) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, p).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func teacherPayload(exp time.Time) jwtx.Payload {
	return jwtx.Payload{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			IssuedAt:  jwt.NewNumericDate(fixedNow.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     "a@b.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      "teacher",
	}
}

func seg(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func TestDecodeSegmentCount(t *testing.T) {
	c := newCodec()

	for _, tok := range []string{
		"",
		"abc",
		"a.b",
		seg(`{"alg":"none"}`) + "." + seg(`{"sub":"x"}`),
		"a.b.c.d",
		seg(`{}`) + "." + seg(`{"sub":"x"}`) + ".sig.extra",
		"....",
	} {
		p, err := c.Decode(tok)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "token %q", tok)
		require.Nil(t, p)
	}
}

func TestDecodeUnparsablePayload(t *testing.T) {
	c := newCodec()
	header := seg(`{"alg":"HS256","typ":"JWT"}`)

	for name, payload := range map[string]string{
		"not base64":  "!!!not-base64!!!",
		"not json":    seg("hello world"),
		"json array":  seg(`[1,2,3]`),
		"json null":   seg(`null`),
		"json number": seg(`42`),
		"truncated":   seg(`{"sub":"x"`),
		"empty":       "",
	} {
		t.Run(name, func(t *testing.T) {
			p, err := c.Decode(header + "." + payload + ".sig")
			require.ErrorIs(t, err, jwtx.ErrMalformed)
			require.Nil(t, p)
			require.False(t, c.IsValid(header+"."+payload+".sig"))
			require.Nil(t, c.DeriveUser(header+"."+payload+".sig"))
		})
	}
}

func TestDecodeLenientClaimTypes(t *testing.T) {
	c := newCodec()
	header := seg(`{"alg":"HS256","typ":"JWT"}`)
	token := func(payload string) string { return header + "." + seg(payload) + ".sig" }

	t.Run("numeric sub", func(t *testing.T) {
		tok := token(`{"sub":42,"role":"teacher","exp":1700003600}`)
		p, err := c.Decode(tok)
		require.NoError(t, err)
		require.Equal(t, "42", p.Subject)

		u := c.DeriveUser(tok)
		require.NotNil(t, u)
		require.Equal(t, "42", u.ID)
		require.Equal(t, jwtx.RoleTeacher, u.Role)
	})

	t.Run("numeric aud", func(t *testing.T) {
		tok := token(`{"sub":"u1","role":"parent","aud":5,"exp":1700003600}`)
		p, err := c.Decode(tok)
		require.NoError(t, err)
		require.Empty(t, p.Audience)
		require.True(t, c.IsValid(tok))
	})

	t.Run("unreadable exp", func(t *testing.T) {
		tok := token(`{"sub":"u1","exp":"tomorrow"}`)
		p, err := c.Decode(tok)
		require.NoError(t, err)
		require.True(t, p.Expiry().IsZero())
		require.False(t, c.IsValid(tok))
		require.Nil(t, c.DeriveUser(tok))
	})
}

func TestDecodeIgnoresHeaderAndSignature(t *testing.T) {
	c := newCodec()
	tok := "garbage." + seg(`{"sub":"u-1","role":"parent","exp":1700000100}`) + ".also-garbage"

	p, err := c.Decode(tok)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.Subject)
	require.Equal(t, "parent", p.Role)
	require.Equal(t, int64(1700000100), p.Expiry().Unix())
}

func TestDecodeSignedToken(t *testing.T) {
	c := newCodec()
	tok := signed(t, teacherPayload(fixedNow.Add(time.Hour)))

	p, err := c.Decode(tok)
	require.NoError(t, err)
	require.Equal(t, "u-42", p.Subject)
	require.Equal(t, "a@b.com", p.Email)
	require.Equal(t, "Ada", p.FirstName)
	require.Equal(t, "Lovelace", p.LastName)
	require.Equal(t, "teacher", p.Role)
	require.Equal(t, fixedNow.Add(-time.Hour).Unix(), p.IssuedAtTime().Unix())
}

func TestIsValidBoundary(t *testing.T) {
	c := newCodec()

	t.Run("one second in the past", func(t *testing.T) {
		require.False(t, c.IsValid(signed(t, teacherPayload(fixedNow.Add(-time.Second)))))
	})

	t.Run("exactly now", func(t *testing.T) {
		require.False(t, c.IsValid(signed(t, teacherPayload(fixedNow))))
	})

	t.Run("one second in the future", func(t *testing.T) {
		require.True(t, c.IsValid(signed(t, teacherPayload(fixedNow.Add(time.Second)))))
	})

	t.Run("missing exp", func(t *testing.T) {
		tok := "h." + seg(`{"sub":"u-1","role":"admin"}`) + ".s"
		require.False(t, c.IsValid(tok))
	})
}

func TestIsValidIsNotCached(t *testing.T) {
	now := fixedNow
	c := jwtx.NewCodec()
	c.Now = func() time.Time { return now }

	tok := signed(t, teacherPayload(fixedNow.Add(time.Second)))
	require.True(t, c.IsValid(tok))

	now = now.Add(2 * time.Second)
	require.False(t, c.IsValid(tok))
	require.Nil(t, c.DeriveUser(tok))
}

func TestDeriveUser(t *testing.T) {
	c := newCodec()

	t.Run("valid token", func(t *testing.T) {
		u := c.DeriveUser(signed(t, teacherPayload(fixedNow.Add(time.Minute))))
		require.NotNil(t, u)
		require.Equal(t, "u-42", u.ID)
		require.Equal(t, "Ada Lovelace", u.Name)
		require.Equal(t, "a@b.com", u.Email)
		require.Equal(t, jwtx.RoleTeacher, u.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		require.Nil(t, c.DeriveUser(signed(t, teacherPayload(fixedNow.Add(-time.Minute)))))
	})

	t.Run("name falls back to email", func(t *testing.T) {
		p := teacherPayload(fixedNow.Add(time.Minute))
		p.FirstName, p.LastName = "", " "
		u := c.DeriveUser(signed(t, p))
		require.NotNil(t, u)
		require.Equal(t, "a@b.com", u.Name)
	})

	t.Run("role is taken verbatim", func(t *testing.T) {
		p := teacherPayload(fixedNow.Add(time.Minute))
		p.Role = "Teacher"
		u := c.DeriveUser(signed(t, p))
		require.NotNil(t, u)
		require.Equal(t, jwtx.Role("Teacher"), u.Role)
		require.False(t, u.Role.Valid())
	})

	t.Run("unknown role is carried through", func(t *testing.T) {
		p := teacherPayload(fixedNow.Add(time.Minute))
		p.Role = "janitor"
		u := c.DeriveUser(signed(t, p))
		require.NotNil(t, u)
		require.Equal(t, jwtx.Role("janitor"), u.Role)
		require.False(t, u.Role.Valid())
	})
}

func TestExpiresIn(t *testing.T) {
	c := newCodec()
	require.Equal(t, 90*time.Second, c.ExpiresIn(signed(t, teacherPayload(fixedNow.Add(90*time.Second)))))
	require.Zero(t, c.ExpiresIn(signed(t, teacherPayload(fixedNow.Add(-time.Second)))))
	require.Zero(t, c.ExpiresIn("nope"))
}

func TestRoleValid(t *testing.T) {
	for _, r := range jwtx.Roles {
		require.True(t, r.Valid())
	}
	require.Equal(t, jwtx.RoleAdmin, jwtx.ParseRole("  ADMIN "))
	require.False(t, jwtx.Role("").Valid())
}
