/*
Package authsdk provides a client SDK for interacting with the TaskList session service.

# Overview

The authsdk package implements a Go client for the TaskList authentication
service. It provides both unauthenticated operations (via SDKClient) and
authenticated operations (via Session) with automatic token refresh.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: Provides unauthenticated operations and creates authenticated sessions
  - Session: Provides authenticated operations with automatic token refresh

Create an SDKClient to interact with public endpoints and authenticate:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Register a new account
	user, err := client.Register(ctx, "Alice", "alice@example.com", "password")

	// Authenticate to create a session
	session, err := client.Login(ctx, "alice@example.com", "password")

Use a Session for authenticated operations. Sessions automatically handle token
expiration and refresh:

	// Get the current user
	me, err := session.GetMe(ctx)

	// Update profile fields
	me, err = session.UpdateMe(ctx, authsdk.UpdateUserRequest{Name: &newName})

	// Revoke the refresh token when done
	err = session.Logout(ctx)

# Client Type

The SDK always identifies itself as a mobile client (X-Client-Type: mobile),
so refresh tokens travel in the response body rather than in cookies. Browser
applications should use the cookie flow directly instead of this package.

# Automatic Token Refresh

Sessions automatically refresh access tokens when they expire. All Session
methods call getValidToken() internally, which:

 1. Checks if the access token is still valid (with 30-second buffer)
 2. If expired, uses the refresh token to obtain a new access token
 3. Updates the session with the rotated token pair

Refresh tokens rotate on every use: the previous token is invalidated the
moment a refresh succeeds, so a session must never be copied by value.

# Error Handling

Failed requests return *APIError carrying the HTTP status, machine-readable
code, and a description:

	session, err := client.Login(ctx, email, password)
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// Bad email or password
		}
	}

# Thread Safety

Sessions are safe for concurrent use. All Session methods use read/write locks
to protect access to tokens. Multiple goroutines can share a single Session
and make authenticated requests concurrently.
*/
package authsdk
