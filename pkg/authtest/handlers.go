package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// Messages returned by the backend, verbatim.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgTokenExpired       = "Token has expired"
	MsgTokenInvalid       = "Invalid token"
	MsgTokenRequired      = "Authorization token is required"
	MsgForbidden          = "Access forbidden"
	MsgValidationFailed   = "Validation failed"
	MsgWrongPassword      = "Current password is incorrect"
	MsgWeakPassword       = "New password must be at least 8 characters with letters and numbers"
)

type claimsKey struct{}

type wireUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	SchoolID  string `json:"school_id,omitempty"`
}

func toWire(u *User) wireUser {
	return wireUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		SchoolID:  u.SchoolID,
	}
}

func tokenMessage(err error) string {
	if errors.Is(err, errTokenExpired) {
		return MsgTokenExpired
	}
	return MsgTokenInvalid
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := httpx.BearerToken(r.Header)
		if raw == "" {
			httpx.WriteError(w, http.StatusUnauthorized, MsgTokenRequired)
			return
		}

		s.mu.Lock()
		reject := s.rejectAlways
		s.mu.Unlock()
		if reject {
			httpx.WriteBearerError(w, MsgTokenExpired)
			return
		}

		claims, err := s.verifyAccessToken(raw)
		if err != nil {
			httpx.WriteBearerError(w, tokenMessage(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(claimsKey{}).(*accessClaims)
			if claims.Role != role {
				httpx.WriteError(w, http.StatusForbidden, MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentClaims(r *http.Request) *accessClaims {
	return r.Context().Value(claimsKey{}).(*accessClaims)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, "Email and password are required")
		return
	}
	if !strings.Contains(email, "@") {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, "Invalid email format")
		return
	}

	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || cryptox.VerifyPassword(req.Password, u.passwordHash) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Login successful", map[string]any{
		"access_token":  s.IssueAccessToken(u, s.accessTTL),
		"refresh_token": s.IssueRefreshToken(u),
		"user":          toWire(u),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail, delay := s.failRefresh, s.refreshDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	raw := httpx.BearerToken(r.Header)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, MsgTokenRequired)
		return
	}
	if fail {
		httpx.WriteBearerError(w, MsgTokenExpired)
		return
	}

	u, err := s.redeemRefreshToken(raw)
	if err != nil {
		httpx.WriteBearerError(w, tokenMessage(err))
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", map[string]string{
		"access_token": s.IssueAccessToken(u, s.accessTTL),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	s.mu.Lock()
	s.revoked[claims.ID] = struct{}{}
	s.mu.Unlock()

	httpx.WriteSuccess(w, http.StatusOK, "Successfully logged out", map[string]any{})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u := s.userByID(currentClaims(r).Subject)
	if u == nil {
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully", map[string]any{
		"user": toWire(u),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}

	u := s.userByID(currentClaims(r).Subject)
	if u == nil {
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	if v, ok := req["first_name"]; ok {
		u.FirstName = strings.TrimSpace(v)
		updated = true
	}
	if v, ok := req["last_name"]; ok {
		u.LastName = strings.TrimSpace(v)
		updated = true
	}
	if v, ok := req["email"]; ok {
		email := strings.ToLower(strings.TrimSpace(v))
		if !strings.Contains(email, "@") {
			httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, "Invalid email format")
			return
		}
		if other, taken := s.users[email]; taken && other.ID != u.ID {
			httpx.WriteError(w, http.StatusConflict, "Email already taken")
			return
		}
		delete(s.users, u.Email)
		u.Email = email
		s.users[email] = u
		updated = true
	}
	if !updated {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, "No valid fields to update")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "Profile updated successfully", map[string]any{
		"user": toWire(u),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, "Current and new passwords are required")
		return
	}
	if !strongPassword(req.NewPassword) {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, MsgWeakPassword)
		return
	}

	u := s.userByID(currentClaims(r).Subject)
	if u == nil {
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if cryptox.VerifyPassword(req.CurrentPassword, u.passwordHash) != nil {
		httpx.WriteError(w, http.StatusBadRequest, MsgValidationFailed, MsgWrongPassword)
		return
	}

	hash, err := cryptox.HashPassword(req.NewPassword)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	s.mu.Lock()
	u.passwordHash = hash
	s.mu.Unlock()

	httpx.WriteSuccess(w, http.StatusOK, "Password changed successfully", map[string]any{})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	httpx.WriteSuccess(w, http.StatusOK, "Students retrieved successfully", []map[string]string{
		{"id": "s-1", "name": "Ada Lovelace"},
		{"id": "s-2", "name": "Alan Turing"},
	})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Student created successfully", body)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteSuccess(w, http.StatusOK, "Stats retrieved successfully", map[string]int{"students": 2})
}

// strongPassword mirrors the backend rule: at least 8 characters with both
// letters and digits.
func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
