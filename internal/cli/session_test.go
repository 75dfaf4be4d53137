package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/rollcall/pkg/authtest"
)

type harness struct {
	t      *testing.T
	srv    *authtest.Server
	config string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("ROLLCALL_CONFIG", "")

	srv := authtest.NewServer(t)
	srv.AddUser("a@b.com", "secret1", "Ada", "Byron", "teacher")

	dir := t.TempDir()
	config := filepath.Join(dir, "rollcall.yaml")
	yaml := fmt.Sprintf("api_url: %q\nstore: sqlite\ndatabase_file: %q\n", srv.APIURL(), filepath.Join(dir, "session.db"))
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o600))

	return &harness{t: t, srv: srv, config: config}
}

// run executes one CLI invocation, as a separate process would.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))

	err := cmd.Execute()
	h.stderr = errOut.String()
	return out.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, err := h.run("", "login", "-e", "a@b.com", "-p", "secret1")
	require.NoError(h.t, err)
}

func TestLoginStatusLogout(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "unauthenticated\n", out)

	out, err = h.run("", "login", "--email", " A@B.com ", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "authenticated as Ada Byron <a@b.com> (teacher)\n", out)

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, h.srv.Calls(authtest.EndpointLogout))

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "unauthenticated\n", out)
}

func TestLoginPasswordFromStdin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("secret1\n", "login", "-e", "a@b.com")
	require.NoError(t, err)

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated as Ada Byron")
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "login", "-e", "a@b.com", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Invalid email or password")
}

func TestGuard(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "guard", "--roles", "teacher")
	require.Error(t, err)
	assert.Equal(t, "redirect /login\n", out)

	h.login()

	out, err = h.run("", "guard", "--roles", "teacher,parent")
	require.NoError(t, err)
	assert.Equal(t, "allow\n", out)

	out, err = h.run("", "guard")
	require.NoError(t, err)
	assert.Equal(t, "allow\n", out)

	out, err = h.run("", "guard", "--roles", "admin")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "redirect /teacher\n", out)
}

func TestRequestHealsExpiredToken(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.srv.ExpireAccessTokens()

	out, err := h.run("", "--format", "json", "request", "get", "/students")
	require.NoError(t, err)
	assert.Equal(t, 1, h.srv.Calls(authtest.EndpointRefresh))
	assert.Equal(t, 2, h.srv.Calls(authtest.EndpointStudents))

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 2)

	// The refreshed token was persisted for the next run.
	_, err = h.run("", "request", "GET", "/students")
	require.NoError(t, err)
	assert.Equal(t, 1, h.srv.Calls(authtest.EndpointRefresh))
}

func TestMetricsFlag(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.srv.ExpireAccessTokens()

	out, err := h.run("", "request", "GET", "/students", "--metrics")
	require.NoError(t, err)
	assert.NotContains(t, out, "rollcall_auth_")
	assert.Contains(t, h.stderr, "# TYPE rollcall_auth_retries_total counter")
	assert.Contains(t, h.stderr, "rollcall_auth_retries_total 1")
	assert.Contains(t, h.stderr, `rollcall_auth_refreshes_total{result="success"} 1`)

	_, err = h.run("", "status")
	require.NoError(t, err)
	assert.NotContains(t, h.stderr, "rollcall_auth_")
}

func TestRequestWithBody(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "request", "POST", "/students", "--data", `{"first_name":"Sam"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"first_name": "Sam"`)

	_, err = h.run("", "request", "POST", "/students", "--data", `{not json`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRequestForbidden(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "request", "GET", "/admin/stats")
	require.Error(t, err)
	assert.Contains(t, out, "Access forbidden")
	assert.Equal(t, 0, h.srv.Calls(authtest.EndpointRefresh))
}

func TestRefreshCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "refresh")
	require.Error(t, err)
	assert.Contains(t, out, "Your session has expired")

	h.login()
	out, err = h.run("", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Access token refreshed")

	h.srv.FailRefresh(true)
	_, err = h.run("", "refresh")
	require.Error(t, err)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "unauthenticated\n", out)
}

func TestProfileCommands(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Byron")

	_, err = h.run("", "profile", "update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = h.run("", "--format", "json", "profile", "update", "--first-name", "Grace")
	require.NoError(t, err)

	var resp struct {
		Message string `json:"message"`
		Data    struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Profile updated successfully", resp.Message)
	assert.Equal(t, "Grace Byron", resp.Data.Name)
}

func TestPasswordCommand(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "password", "--current", "wrong", "--new", "newpass123")
	require.Error(t, err)
	assert.Contains(t, out, "Current password is incorrect")

	out, err = h.run("secret1\nshort\n", "password")
	require.Error(t, err)
	assert.Contains(t, out, "New password must be at least 8 characters")

	out, err = h.run("secret1\nnewpass123\n", "password")
	require.NoError(t, err)
	assert.Contains(t, out, "Password changed successfully")

	_, err = h.run("", "logout")
	require.NoError(t, err)
	_, err = h.run("", "login", "-e", "a@b.com", "-p", "newpass123")
	require.NoError(t, err)
}
