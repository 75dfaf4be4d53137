package jwtx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned by Decode when a token cannot be split into three
// segments or its payload is not a JSON object.
var ErrMalformed = errors.New("jwtx: malformed token")

// Codec inspects bearer tokens locally. It never verifies signatures: the
// decoded claims are a display hint and the server re-checks every call.
type Codec struct {
	// Now returns the current time. Expiry is evaluated against it on every
	// call, never cached. Defaults to time.Now.
	Now func() time.Time

	parser *jwt.Parser
}

// NewCodec returns a Codec using the wall clock.
func NewCodec() *Codec {
	return &Codec{Now: time.Now, parser: jwt.NewParser()}
}

func (c *Codec) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Codec) segmentParser() *jwt.Parser {
	if c == nil || c.parser == nil {
		return jwt.NewParser()
	}
	return c.parser
}

// Decode splits token into header, payload and signature and decodes the
// payload. Only the payload is inspected.
func (c *Codec) Decode(token string) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}

	raw, err := c.segmentParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}

	// json.Unmarshal accepts "null" into a struct without complaint.
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, ErrMalformed
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrMalformed
	}

	return &p, nil
}

// IsValid reports whether token decodes and its exp is strictly in the
// future. A token without exp is never valid.
func (c *Codec) IsValid(token string) bool {
	p, err := c.Decode(token)
	if err != nil {
		return false
	}
	return c.notExpired(p)
}

func (c *Codec) notExpired(p *Payload) bool {
	exp := p.Expiry()
	if exp.IsZero() {
		return false
	}
	return exp.After(c.now())
}

// DeriveUser returns the profile carried by a valid token, or nil if the
// token is malformed or expired.
func (c *Codec) DeriveUser(token string) *UserProfile {
	p, err := c.Decode(token)
	if err != nil || !c.notExpired(p) {
		return nil
	}
	return p.Profile()
}

// ExpiresIn returns how long token remains valid. It is zero for malformed
// or expired tokens.
func (c *Codec) ExpiresIn(token string) time.Duration {
	p, err := c.Decode(token)
	if err != nil {
		return 0
	}
	d := p.Expiry().Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}
