package authsdk

import (
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// User is the account representation returned by the auth endpoints.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	SchoolID  string `json:"school_id,omitempty"`
}

// Profile maps the wire user onto the display profile.
func (u User) Profile() *jwtx.UserProfile {
	return jwtx.NewUserProfile(u.ID, u.Email, u.FirstName, u.LastName, u.Role)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// RefreshResponse is the data of a successful refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// ProfileResponse is the data of GET and PUT /auth/profile.
type ProfileResponse struct {
	User User `json:"user"`

	// Message is the server's envelope message, if any.
	Message string `json:"-"`
}

// ProfileUpdate carries the fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
