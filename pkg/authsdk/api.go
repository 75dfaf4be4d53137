package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// Login calls POST /auth/login. It never sends the current access token and
// a 401 is returned as is.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if _, err := c.do(withoutAuth(ctx), http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh calls POST /auth/refresh authenticated by refreshToken.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	req, err := c.newRequest(WithoutRefresh(ctx), http.MethodPost, "/auth/refresh", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(httpx.AuthorizationHeader, httpx.Bearer(refreshToken))

	var resp RefreshResponse
	if _, err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout calls POST /auth/logout so the backend can revoke the access token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(WithoutRefresh(ctx), http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// Profile calls GET /auth/profile.
func (c *Client) Profile(ctx context.Context) (*ProfileResponse, error) {
	var resp ProfileResponse
	msg, err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &resp)
	if err != nil {
		return nil, err
	}
	resp.Message = msg
	return &resp, nil
}

// UpdateProfile calls PUT /auth/profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*ProfileResponse, error) {
	var resp ProfileResponse
	msg, err := c.do(ctx, http.MethodPut, "/auth/profile", update, &resp)
	if err != nil {
		return nil, err
	}
	resp.Message = msg
	return &resp, nil
}

// ChangePassword calls POST /auth/change-password and returns the server's
// message.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error) {
	return c.do(ctx, http.MethodPost, "/auth/change-password", req, nil)
}

// Do sends a JSON request to path and decodes the (possibly enveloped)
// response data into out. in and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.do(ctx, method, path, in, out)
	return err
}
