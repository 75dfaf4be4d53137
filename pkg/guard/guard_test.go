package guard_test

import (
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/guard"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func user(role jwtx.Role) *jwtx.UserProfile {
	return &jwtx.UserProfile{ID: "u-1", Name: "Test", Email: "t@example.com", Role: role}
}

func TestDecideUnauthenticated(t *testing.T) {
	for _, required := range []guard.RoleSet{
		nil,
		guard.Roles(),
		guard.Roles(jwtx.RoleAdmin),
		guard.Roles(jwtx.RoleTeacher, jwtx.RoleParent),
	} {
		require.Equal(t, guard.RedirectTo(guard.LoginPath), guard.Decide(required, nil))
	}
}

func TestDecideAnyAuthenticated(t *testing.T) {
	for _, r := range append(jwtx.Roles, "janitor") {
		require.Equal(t, guard.Allowed, guard.Decide(guard.Roles(), user(r)))
	}
}

func TestDecideRoleMembership(t *testing.T) {
	t.Run("teacher on teacher route", func(t *testing.T) {
		require.True(t, guard.Decide(guard.Roles(jwtx.RoleTeacher), user(jwtx.RoleTeacher)).Allow)
	})

	t.Run("teacher on admin route goes home", func(t *testing.T) {
		d := guard.Decide(guard.Roles(jwtx.RoleAdmin), user(jwtx.RoleTeacher))
		require.False(t, d.Allow)
		require.Equal(t, "/teacher", d.Redirect)
	})

	t.Run("parent on shared route", func(t *testing.T) {
		require.True(t, guard.Decide(guard.Roles(jwtx.RoleTeacher, jwtx.RoleParent), user(jwtx.RoleParent)).Allow)
	})

	t.Run("admin on parent route goes home", func(t *testing.T) {
		require.Equal(t, guard.RedirectTo("/admin"), guard.Decide(guard.Roles(jwtx.RoleParent), user(jwtx.RoleAdmin)))
	})

	t.Run("unknown role has no dashboard", func(t *testing.T) {
		require.Equal(t, guard.RedirectTo(guard.LoginPath), guard.Decide(guard.Roles(jwtx.RoleAdmin), user("janitor")))
	})
}

func TestHomePath(t *testing.T) {
	require.Equal(t, "/admin", guard.HomePath(jwtx.RoleAdmin))
	require.Equal(t, "/teacher", guard.HomePath(jwtx.RoleTeacher))
	require.Equal(t, "/parent", guard.HomePath(jwtx.RoleParent))
	require.Equal(t, guard.LoginPath, guard.HomePath(""))
}

func TestDecisionString(t *testing.T) {
	require.Equal(t, "allow", guard.Allowed.String())
	require.Equal(t, "redirect /login", guard.RedirectTo("/login").String())
}
