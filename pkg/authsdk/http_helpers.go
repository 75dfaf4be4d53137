package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// newRequest builds a request carrying the default headers, except
// Authorization, which the Transport attaches at send time.
func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	for key, values := range c.headers {
		if key == httpx.AuthorizationHeader {
			continue
		}
		req.Header[key] = slices.Clone(values)
	}
	c.mu.RUnlock()

	if in == nil {
		req.Header.Del("Content-Type")
	}

	return req, nil
}

// send executes req and decodes the response into out. It returns the
// envelope message, if any.
func (c *Client) send(req *http.Request, out any) (string, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &NetworkError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	return decodeJSON(resp, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (string, error) {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return "", err
	}
	return c.send(req, out)
}

// decodeJSON decodes a JSON response into target, unwrapping the
// {success, message, data} envelope when present. Non-2xx responses and
// envelopes with success=false become an *APIError.
func decodeJSON(resp *http.Response, target any) (string, error) {
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseErrorResponse(resp, bodyBytes)
	}

	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return "", nil
	}

	env, enveloped := httpx.ParseEnvelope(bodyBytes)
	if enveloped && !env.Success && hasFalseSuccess(bodyBytes) {
		return "", &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}

	if target != nil {
		if err := json.Unmarshal(httpx.Payload(bodyBytes), target); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return env.Message, nil
}

// hasFalseSuccess distinguishes an explicit "success": false from an
// envelope that only carries data.
func hasFalseSuccess(body []byte) bool {
	var head struct {
		Success *bool `json:"success"`
	}
	return json.Unmarshal(body, &head) == nil && head.Success != nil && !*head.Success
}
