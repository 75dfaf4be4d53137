package httpx

import (
	"net/http"
	"strings"
)

const (
	AuthorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Bearer formats token as an Authorization header value.
func Bearer(token string) string {
	return bearerPrefix + token
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
// It returns "" when the header is missing or uses another scheme.
func BearerToken(h http.Header) string {
	authz := h.Get(AuthorizationHeader)
	if len(authz) < len(bearerPrefix) || !strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(bearerPrefix):])
}

// WriteBearerError writes an RFC 6750 invalid_token challenge with the
// register's JSON error envelope.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, desc)
}
