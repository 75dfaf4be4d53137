/*
Package authsdk is the session core of the rollcall attendance register
client.

# Overview

A Client talks to the register API. Every request it sends passes through a
Transport registered once at construction, which attaches the current access
token and heals expired-token failures with a single refresh-and-retry.

A Controller owns the authentication state machine and is the only writer of
the session: it logs in, logs out, restores a persisted session at start-up
and refreshes the access token on behalf of the Transport.

	store, _ := sqlite.Open("rollcall.db")
	client := authsdk.NewClient("http://localhost:5000/api")
	ctrl := authsdk.NewController(client, store)

	if err := ctrl.Restore(ctx); err != nil {
		log.Printf("restore: %v", err)
	}

	if res := ctrl.Login(ctx, "a@b.com", "secret1"); !res.Success {
		fmt.Println(res.Message)
	}

	var students []Student
	err := client.Do(ctx, http.MethodGet, "/students", nil, &students)

# States

A Controller starts in StateAuthenticating and settles in StateAuthenticated
or StateUnauthenticated once Restore returns. Login moves through
StateAuthenticating again. Logout, and any refresh the backend rejects,
return the session to StateUnauthenticated with both tokens cleared.

# Refresh

Concurrent 401s share one in-flight refresh. A request is retried at most
once: a second 401 on the retried request is returned to the caller as is.
Requests answered 403, requests that time out and requests whose body cannot
be replayed are never retried.

# Trust

Claims decoded locally are a display hint only. The client never verifies
token signatures; the backend re-checks every call.
*/
package authsdk
