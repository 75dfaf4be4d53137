package authtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
)

var (
	errTokenExpired = errors.New("token has expired")
	errTokenInvalid = errors.New("invalid token")
)

type accessClaims struct {
	jwt.RegisteredClaims

	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Type      string `json:"type"`
}

// IssueAccessToken mints an access token for u that expires after ttl.
// A negative ttl yields an already expired token.
func (s *Server) IssueAccessToken(u *User, ttl time.Duration) string {
	now := s.now()
	jti := uuid.NewString()

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Type:      "access",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic("authtest: sign token: " + err.Error())
	}

	s.mu.Lock()
	s.issued[jti] = struct{}{}
	s.mu.Unlock()
	return token
}

// IssueRefreshToken mints an opaque refresh token for u.
func (s *Server) IssueRefreshToken(u *User) string {
	token, err := cryptox.NewOpaqueToken(cryptox.OpaqueTokenSize)
	if err != nil {
		panic("authtest: refresh token: " + err.Error())
	}

	s.mu.Lock()
	s.refreshTokens[cryptox.Fingerprint(token)] = refreshGrant{
		userID:    u.ID,
		expiresAt: s.now().Add(s.refreshTTL),
	}
	s.mu.Unlock()
	return token
}

// verifyAccessToken validates signature, expiry and revocation.
func (s *Server) verifyAccessToken(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errTokenExpired
	}
	if err != nil || claims.Type != "access" {
		return nil, errTokenInvalid
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, errTokenExpired
	}

	return claims, nil
}

func (s *Server) redeemRefreshToken(raw string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.refreshTokens[cryptox.Fingerprint(raw)]
	if !ok {
		return nil, errTokenInvalid
	}
	if !s.now().Before(grant.expiresAt) {
		return nil, errTokenExpired
	}

	for _, u := range s.users {
		if u.ID == grant.userID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", grant.userID)
}

func (s *Server) userByID(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}
