package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
)

const tracerName = "github.com/aussiebroadwan/rollcall/pkg/authsdk"

// Observer is notified after every state or profile change.
type Observer func(State, *jwtx.UserProfile)

// Controller owns the session: the tokens in its Store, the cached user
// profile and the authentication state. It is the only writer of all three.
type Controller struct {
	client  *Client
	store   sessionstore.Store
	codec   *jwtx.Codec
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	mu        sync.RWMutex
	state     State
	user      *jwtx.UserProfile
	gen       uint64 // bumped whenever a session starts or ends
	observers []Observer

	// writeMu serializes writes to the store and the default header.
	writeMu sync.Mutex

	refreshes singleflight.Group
}

type ControllerOption func(*Controller)

// WithCodec replaces the token codec, typically to pin its clock in tests.
func WithCodec(codec *jwtx.Codec) ControllerOption {
	return func(c *Controller) { c.codec = codec }
}

// WithControllerLogger overrides the client's logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ControllerOption {
	return func(c *Controller) { c.tracer = t }
}

// NewController creates a controller in StateAuthenticating and registers
// it as the client's Refresher. Call Restore to settle the state.
func NewController(client *Client, store sessionstore.Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		client:  client,
		store:   store,
		codec:   jwtx.NewCodec(),
		logger:  client.logger,
		metrics: client.metrics,
		tracer:  otel.Tracer(tracerName),
		state:   StateAuthenticating,
	}
	for _, opt := range opts {
		opt(c)
	}

	client.SetRefresher(c)
	return c
}

// OnStateChange registers fn. Observers run synchronously, outside the
// controller's lock, in registration order.
func (c *Controller) OnStateChange(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Authenticated reports whether the state is StateAuthenticated.
func (c *Controller) Authenticated() bool {
	return c.State() == StateAuthenticated
}

// User returns a copy of the signed-in user's profile, or nil.
func (c *Controller) User() *jwtx.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// AccessToken returns the stored access token, or "".
func (c *Controller) AccessToken(ctx context.Context) (string, error) {
	return sessionstore.Lookup(ctx, c.store, sessionstore.KeyAccessToken)
}

// begin starts a new session generation and moves to state. Any operation
// holding an older generation can no longer change the session.
func (c *Controller) begin(state State) uint64 {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	notify := c.setLocked(state, nil)
	c.mu.Unlock()

	notify()
	return gen
}

// commit moves to state with user if gen is still current.
func (c *Controller) commit(gen uint64, state State, user *jwtx.UserProfile) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	notify := c.setLocked(state, user)
	c.mu.Unlock()

	notify()
	return true
}

func (c *Controller) setLocked(state State, user *jwtx.UserProfile) func() {
	prev, prevUser := c.state, c.user
	c.state = state
	c.user = user

	if prev == state && prevUser == nil && user == nil {
		return func() {}
	}
	if prev != state {
		c.logger.Info("session state changed", "from", prev.String(), "to", state.String())
	}

	observers := append([]Observer(nil), c.observers...)
	var snapshot *jwtx.UserProfile
	if user != nil {
		u := *user
		snapshot = &u
	}
	return func() {
		for _, fn := range observers {
			fn(state, snapshot)
		}
	}
}

func (c *Controller) current(gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen == gen
}

// write runs fn under writeMu if gen is still current. It reports whether
// fn ran.
func (c *Controller) write(gen uint64, fn func() error) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.current(gen) {
		return false, nil
	}
	return true, fn()
}

// clear wipes the store and the default header and moves to
// StateUnauthenticated, provided gen is still current.
func (c *Controller) clear(ctx context.Context, gen uint64) error {
	var clearErr error
	ran, _ := c.write(gen, func() error {
		clearErr = sessionstore.ClearAll(ctx, c.store)
		c.client.SetAccessToken("")
		return nil
	})
	if !ran {
		return nil
	}

	c.commit(gen, StateUnauthenticated, nil)
	if clearErr != nil {
		return fmt.Errorf("failed to clear session store: %w", clearErr)
	}
	return nil
}

// Restore loads the persisted session. The controller ends up
// StateAuthenticated only if the stored access token is still valid and a
// refresh token is present; otherwise the store is cleared so no partial
// session survives.
func (c *Controller) Restore(ctx context.Context) error {
	gen := c.begin(StateAuthenticating)

	access, err := sessionstore.Lookup(ctx, c.store, sessionstore.KeyAccessToken)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to read access token: %w", err), c.clear(ctx, gen))
	}
	refresh, err := sessionstore.Lookup(ctx, c.store, sessionstore.KeyRefreshToken)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to read refresh token: %w", err), c.clear(ctx, gen))
	}

	user := c.codec.DeriveUser(access)
	if user == nil || refresh == "" {
		c.logger.Info("no usable stored session",
			"has_access", access != "",
			"has_refresh", refresh != "",
		)
		return c.clear(ctx, gen)
	}

	_, _ = c.write(gen, func() error {
		c.client.SetAccessToken(access)
		return nil
	})
	c.commit(gen, StateAuthenticated, user)
	return nil
}

// Login signs in with email and password. It never returns an error
// directly: failures are described by the Result.
func (c *Controller) Login(ctx context.Context, email, password string) Result {
	gen := c.begin(StateAuthenticating)
	c.client.SetAccessToken("")

	resp, err := c.client.Login(ctx, LoginRequest{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	})
	if err == nil && (resp.AccessToken == "" || resp.RefreshToken == "") {
		err = errors.New("login response is missing tokens")
	}
	if err != nil {
		c.metrics.logins.WithLabelValues(resultFailure).Inc()
		c.logger.Info("login failed", "error", err)
		_ = c.clear(ctx, gen)
		return failed(err, "Login failed")
	}

	// The login response is authoritative; the token is only a fallback
	// for backends that omit the user.
	user := resp.User.Profile()
	if resp.User.ID == "" {
		if derived := c.codec.DeriveUser(resp.AccessToken); derived != nil {
			user = derived
		}
	}

	ran, err := c.write(gen, func() error {
		if err := sessionstore.SetTokens(ctx, c.store, resp.AccessToken, resp.RefreshToken); err != nil {
			return err
		}
		c.client.SetAccessToken(resp.AccessToken)
		return nil
	})
	if err != nil {
		c.metrics.logins.WithLabelValues(resultFailure).Inc()
		c.logger.Error("failed to persist session", "error", err)
		_ = c.clear(ctx, gen)
		return failed(err, "Unable to save your session")
	}
	if !ran || !c.commit(gen, StateAuthenticated, user) {
		c.metrics.logins.WithLabelValues(resultFailure).Inc()
		return failed(ErrSessionEnded, "Login was cancelled")
	}

	c.metrics.logins.WithLabelValues(resultSuccess).Inc()
	return succeeded("Login successful")
}

// Logout ends the session. The backend is told on a best-effort basis; the
// local session is cleared regardless. Safe to call when already signed out.
func (c *Controller) Logout(ctx context.Context) error {
	hadToken := c.client.authorization() != ""
	gen := c.begin(StateUnauthenticated)

	if hadToken {
		if err := c.client.Logout(ctx); err != nil {
			c.logger.Debug("server logout failed", "error", err)
		}
	}

	return c.clear(ctx, gen)
}

// RefreshAccessToken obtains a new access token with the stored refresh
// token. Concurrent callers share one backend call. Any failure, a network
// error included, clears the session and the returned error wraps
// ErrRefreshExhausted.
func (c *Controller) RefreshAccessToken(ctx context.Context) (string, error) {
	c.metrics.refreshRequests.Inc()

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	// The shared call must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(shared, c.client.Timeout())
		defer cancel()
		return c.refresh(rctx, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Controller) refresh(ctx context.Context, gen uint64) (token string, err error) {
	ctx, span := c.tracer.Start(ctx, "authsdk.refresh", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	refreshToken, err := sessionstore.Lookup(ctx, c.store, sessionstore.KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		span.SetAttributes(attribute.Bool("rollcall.refresh_token_present", false))
		_ = c.clear(ctx, gen)
		return "", fmt.Errorf("%w: %w", ErrRefreshExhausted, ErrNoRefreshToken)
	}

	resp, err := c.client.Refresh(ctx, refreshToken)
	if err == nil && resp.AccessToken == "" {
		err = errors.New("refresh response is missing access_token")
	}
	if err != nil {
		c.metrics.refreshes.WithLabelValues(resultFailure).Inc()
		if c.current(gen) {
			c.metrics.forcedLogouts.Inc()
			c.logger.Warn("refresh failed, ending session", "error", err)
		}
		if cerr := c.clear(ctx, gen); cerr != nil {
			c.logger.Error("failed to clear session", "error", cerr)
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshExhausted, err)
	}

	ran, err := c.write(gen, func() error {
		if err := c.store.Set(ctx, sessionstore.KeyAccessToken, resp.AccessToken); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		c.client.SetAccessToken(resp.AccessToken)
		return nil
	})
	if !ran {
		c.metrics.refreshes.WithLabelValues(resultSuperseded).Inc()
		return "", fmt.Errorf("%w: %w", ErrRefreshExhausted, ErrSessionEnded)
	}
	if err != nil {
		c.metrics.refreshes.WithLabelValues(resultFailure).Inc()
		return "", err
	}

	c.metrics.refreshes.WithLabelValues(resultSuccess).Inc()
	c.logger.Debug("access token refreshed", "duration_ms", time.Since(start).Milliseconds())
	return resp.AccessToken, nil
}

// FetchProfile reloads the user from GET /auth/profile and caches it.
func (c *Controller) FetchProfile(ctx context.Context) (*jwtx.UserProfile, error) {
	gen, ok := c.authenticatedGen()
	if !ok {
		return nil, ErrSessionEnded
	}

	resp, err := c.client.Profile(ctx)
	if err != nil {
		return nil, err
	}

	user := resp.User.Profile()
	c.commit(gen, StateAuthenticated, user)
	return user, nil
}

// UpdateProfile changes the user's display fields. Tokens and state are
// untouched.
func (c *Controller) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	gen, ok := c.authenticatedGen()
	if !ok {
		return failed(ErrSessionEnded, MsgSessionExpired)
	}

	resp, err := c.client.UpdateProfile(ctx, update)
	if err != nil {
		return failed(err, "Profile update failed")
	}

	c.commit(gen, StateAuthenticated, resp.User.Profile())
	return succeeded(messageOr(resp.Message, "Profile updated successfully"))
}

// ChangePassword changes the user's password. Tokens and state are
// untouched.
func (c *Controller) ChangePassword(ctx context.Context, current, next string) Result {
	if _, ok := c.authenticatedGen(); !ok {
		return failed(ErrSessionEnded, MsgSessionExpired)
	}

	msg, err := c.client.ChangePassword(ctx, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return failed(err, "Password change failed")
	}
	return succeeded(messageOr(msg, "Password changed successfully"))
}

func (c *Controller) authenticatedGen() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, c.state == StateAuthenticated
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
