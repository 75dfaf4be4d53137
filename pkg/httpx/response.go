package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Envelope is the response wrapper used by the register backend:
//
//	{"success": true, "message": "Login successful", "data": {...}}
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
}

// ParseEnvelope decodes body as an Envelope. ok is false when body is not
// JSON or carries neither a success flag nor data, in which case the caller
// should treat the body as unwrapped.
func ParseEnvelope(body []byte) (env Envelope, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Envelope{}, false
	}

	_, hasSuccess := fields["success"]
	_, hasData := fields["data"]
	if !hasSuccess && !hasData {
		return Envelope{}, false
	}

	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}

// Payload returns the data section if body is enveloped, otherwise body.
func Payload(body []byte) []byte {
	env, ok := ParseEnvelope(body)
	if !ok {
		return body
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return []byte("{}")
	}
	return env.Data
}

// WriteJSON writes v as JSON with the given status code and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w http.ResponseWriter, code int, message string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	WriteJSON(w, code, Envelope{Success: true, Message: message, Data: raw})
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, code int, message string, errs ...string) {
	WriteJSON(w, code, Envelope{Success: false, Message: message, Errors: errs})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Token responses must never be cached.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
