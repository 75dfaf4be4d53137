package jwtx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of roles the attendance register knows about.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// Roles lists every recognised role.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleParent}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole normalises user input (flags, config) into a Role. Roles read
// from tokens and API responses are taken verbatim.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Payload is the claim set carried by access tokens issued by the register
// backend. Only sub, iat and exp come from the registered claims; the rest
// are additional claims.
type Payload struct {
	jwt.RegisteredClaims

	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// UnmarshalJSON reads the claims leniently. A claim of an unexpected type
// is dropped (a numeric sub is kept as its decimal text) instead of failing
// the whole payload.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m jwt.MapClaims
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("jwtx: payload is not an object")
	}

	*p = Payload{
		Email:     claimString(m, "email"),
		FirstName: claimString(m, "first_name"),
		LastName:  claimString(m, "last_name"),
		Role:      claimString(m, "role"),
	}
	p.Subject = claimString(m, "sub")
	p.Issuer = claimString(m, "iss")
	p.ID = claimString(m, "jti")

	if exp, err := m.GetExpirationTime(); err == nil {
		p.ExpiresAt = exp
	}
	if iat, err := m.GetIssuedAt(); err == nil {
		p.IssuedAt = iat
	}
	if nbf, err := m.GetNotBefore(); err == nil {
		p.NotBefore = nbf
	}
	if aud, err := m.GetAudience(); err == nil {
		p.Audience = aud
	}
	return nil
}

func claimString(m jwt.MapClaims, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Expiry returns the exp claim, or the zero time when it is absent.
func (p *Payload) Expiry() time.Time {
	if p.ExpiresAt == nil {
		return time.Time{}
	}
	return p.ExpiresAt.Time
}

// IssuedAtTime returns the iat claim, or the zero time when it is absent.
func (p *Payload) IssuedAtTime() time.Time {
	if p.IssuedAt == nil {
		return time.Time{}
	}
	return p.IssuedAt.Time
}

// UserProfile is the display-oriented view of the signed-in user.
type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      Role   `json:"role"`
}

// NewUserProfile builds a profile, deriving the display name from the first
// and last name and falling back to the email address.
func NewUserProfile(id, email, firstName, lastName, role string) *UserProfile {
	return &UserProfile{
		ID:        id,
		Name:      DisplayName(firstName, lastName, email),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      Role(role),
	}
}

// DisplayName joins first and last name, or returns email if both are blank.
func DisplayName(firstName, lastName, email string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name == "" {
		return email
	}
	return name
}

// Profile maps the payload onto a UserProfile without checking expiry.
func (p *Payload) Profile() *UserProfile {
	return NewUserProfile(p.Subject, p.Email, p.FirstName, p.LastName, p.Role)
}
