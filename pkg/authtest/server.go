// Package authtest runs an in-process register backend that speaks the
// same auth wire contract as the real one: enveloped JSON responses, HS256
// access tokens and opaque refresh tokens. Tests use its knobs to expire
// tokens, break refresh and count calls per endpoint.
package authtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
)

// Endpoint names accepted by Server.Calls.
const (
	EndpointLogin          = "login"
	EndpointRefresh        = "refresh"
	EndpointLogout         = "logout"
	EndpointProfile        = "profile"
	EndpointChangePassword = "change-password"
	EndpointStudents       = "students"
	EndpointAdminStats     = "admin-stats"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// User is a backend account.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      string
	SchoolID  string

	passwordHash string
}

type refreshGrant struct {
	userID    string
	expiresAt time.Time
}

// Server is an httptest.Server backed by an in-memory user table.
type Server struct {
	*httptest.Server

	secret     []byte
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu            sync.Mutex
	users         map[string]*User // by email
	refreshTokens map[string]refreshGrant
	issued        map[string]struct{} // access token jti
	revoked       map[string]struct{}
	calls         map[string]int
	authHeaders   map[string][]string

	failRefresh  bool
	rejectAlways bool
	refreshDelay time.Duration
}

type Option func(*Server)

// WithClock overrides the server clock used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) { s.accessTTL = ttl }
}

// NewServer starts a backend and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	secret, err := cryptox.NewOpaqueToken(cryptox.OpaqueTokenSize)
	if err != nil {
		t.Fatalf("authtest: generate secret: %v", err)
	}

	s := &Server{
		secret:        []byte(secret),
		now:           time.Now,
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		users:         make(map[string]*User),
		refreshTokens: make(map[string]refreshGrant),
		issued:        make(map[string]struct{}),
		revoked:       make(map[string]struct{}),
		calls:         make(map[string]int),
		authHeaders:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.With(s.counter(EndpointLogin)).Post("/auth/login", s.handleLogin)
		r.With(s.counter(EndpointRefresh)).Post("/auth/refresh", s.handleRefresh)

		r.With(s.counter(EndpointLogout), s.authenticate).Post("/auth/logout", s.handleLogout)
		r.With(s.counter(EndpointProfile), s.authenticate).Get("/auth/profile", s.handleGetProfile)
		r.With(s.counter(EndpointProfile), s.authenticate).Put("/auth/profile", s.handleUpdateProfile)
		r.With(s.counter(EndpointChangePassword), s.authenticate).Post("/auth/change-password", s.handleChangePassword)
		r.With(s.counter(EndpointStudents), s.authenticate).Get("/students", s.handleListStudents)
		r.With(s.counter(EndpointStudents), s.authenticate).Post("/students", s.handleCreateStudent)
		r.With(s.counter(EndpointAdminStats), s.authenticate, s.requireRole("admin")).Get("/admin/stats", s.handleAdminStats)
	})

	return r
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddUser creates an account. The password is stored as an argon2id hash.
func (s *Server) AddUser(email, password, firstName, lastName, role string) *User {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		panic("authtest: hash password: " + err.Error())
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		SchoolID:     "school-1",
		passwordHash: hash,
	}

	s.mu.Lock()
	s.users[u.Email] = u
	s.mu.Unlock()
	return u
}

// Calls returns how many requests reached endpoint, including rejected ones.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// AuthHeaders returns the Authorization headers seen by endpoint, in order.
func (s *Server) AuthHeaders(endpoint string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders[endpoint]...)
}

// ExpireAccessTokens makes every access token issued so far answer 401
// "Token has expired". Tokens issued afterwards are unaffected.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti := range s.issued {
		s.revoked[jti] = struct{}{}
	}
}

// FailRefresh makes /auth/refresh answer 401 while set.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// RejectAlways makes every protected endpoint answer 401, even for freshly
// refreshed tokens.
func (s *Server) RejectAlways(reject bool) {
	s.mu.Lock()
	s.rejectAlways = reject
	s.mu.Unlock()
}

// DelayRefresh holds each refresh response for d.
func (s *Server) DelayRefresh(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// counter records the call and its Authorization header before any
// authentication runs, so rejected requests are counted too.
func (s *Server) counter(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls[endpoint]++
			s.authHeaders[endpoint] = append(s.authHeaders[endpoint], r.Header.Get("Authorization"))
			s.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}
