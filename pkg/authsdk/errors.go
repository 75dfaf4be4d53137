package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoRefreshToken is returned by a refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("authsdk: no refresh token")

	// ErrRefreshExhausted marks a refresh that failed. The session has been
	// cleared by the time it is returned.
	ErrRefreshExhausted = errors.New("authsdk: refresh exhausted")

	// ErrSessionEnded is returned when the session was logged out (or
	// replaced) while an operation was in flight.
	ErrSessionEnded = errors.New("authsdk: session ended")
)

// User-facing messages for conditions the backend does not describe.
const (
	MsgNetwork        = "Unable to reach the server. Please check your connection."
	MsgTimeout        = "The request timed out. Please try again."
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgServer         = "Something went wrong on the server. Please try again later."
)

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	// KindClient is any 4xx other than 401 and 403.
	KindClient ErrorKind = iota
	// KindAuthRejected is a 401 or 403 on a credentialed call.
	KindAuthRejected
	// KindServer is any 5xx.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthRejected:
		return "auth_rejected"
	case KindServer:
		return "server_error"
	default:
		return "client_error"
	}
}

// APIError is a non-2xx response from the register API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.UserMessage())
}

// Kind classifies the error by status code.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return KindAuthRejected
	case e.StatusCode >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// UserMessage prefers the detailed validation errors over the generic
// envelope message ("Validation failed").
func (e *APIError) UserMessage() string {
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	return e.Message
}

// IsAuthRejected reports whether err is a 401 or 403 from the API.
func IsAuthRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind() == KindAuthRejected
}

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// Result is what the controller hands back to the UI layer. It never
// carries a panic or an unhandled error: failures are described by Message.
type Result struct {
	Success bool
	Message string
	Err     error
}

func succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

func failed(err error, fallback string) Result {
	return Result{Message: MessageFor(err, fallback), Err: err}
}

// MessageFor turns err into a message fit for display, using fallback when
// nothing better is known.
func MessageFor(err error, fallback string) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrRefreshExhausted) || errors.Is(err, ErrNoRefreshToken) {
		return MsgSessionExpired
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return MsgTimeout
		}
		return MsgNetwork
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.UserMessage(); msg != "" {
			return msg
		}
		if apiErr.Kind() == KindServer {
			return MsgServer
		}
	}

	return fallback
}

// parseErrorResponse builds an APIError from a non-2xx response body. The
// body is usually the register's error envelope; anything else falls back
// to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env struct {
		Message   string   `json:"message"`
		Errors    []string `json:"errors"`
		ErrorCode string   `json:"error_code"`
		Error     string   `json:"error"`
		ErrorDesc string   `json:"error_description"`
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Message = env.Message
		apiErr.Errors = env.Errors
		apiErr.Code = env.ErrorCode

		// RFC 6749 style bodies from proxies in front of the API.
		if apiErr.Message == "" && env.ErrorDesc != "" {
			apiErr.Message = env.ErrorDesc
		}
		if apiErr.Code == "" {
			apiErr.Code = env.Error
		}
	}

	return apiErr
}
