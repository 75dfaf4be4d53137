// Package guard decides which screens a signed-in user may reach.
//
// Decisions are a UX convenience built on locally decoded claims. The
// backend re-authorises every call, so nothing here is a security boundary.
package guard

import "github.com/aussiebroadwan/rollcall/pkg/jwtx"

// LoginPath is where unauthenticated users and unknown roles are sent.
const LoginPath = "/login"

var homePaths = map[jwtx.Role]string{
	jwtx.RoleAdmin:   "/admin",
	jwtx.RoleTeacher: "/teacher",
	jwtx.RoleParent:  "/parent",
}

// HomePath returns the dashboard path for role, or LoginPath if the role is
// not recognised.
func HomePath(role jwtx.Role) string {
	if p, ok := homePaths[role]; ok {
		return p
	}
	return LoginPath
}

// RoleSet is a set of roles allowed to reach a route. An empty set means any
// authenticated user.
type RoleSet map[jwtx.Role]struct{}

// Roles builds a RoleSet.
func Roles(roles ...jwtx.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r jwtx.Role) bool {
	_, ok := s[r]
	return ok
}

// Decision is the outcome of Decide: either Allow, or a Redirect target.
type Decision struct {
	Allow    bool
	Redirect string
}

// Allowed is the Decision for a permitted route.
var Allowed = Decision{Allow: true}

// RedirectTo returns a Decision that sends the user to path.
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// Decide maps the current user and the route's required roles to a Decision.
func Decide(required RoleSet, user *jwtx.UserProfile) Decision {
	if user == nil {
		return RedirectTo(LoginPath)
	}

	if len(required) == 0 || required.Has(user.Role) {
		return Allowed
	}

	return RedirectTo(HomePath(user.Role))
}
