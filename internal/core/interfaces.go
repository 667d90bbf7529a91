package core

import (
	"context"

	"zeusbolt/internal/types"
)

// Authenticator decouples the HTTP layer from the identity provider, allowing
// for easy mocking in tests. The production implementation resolves tokens
// against the hosted auth service.
type Authenticator interface {
	// ResolveToken validates a bearer token and returns the Actor it belongs
	// to.
	//
	// Distinct error codes:
	//   - ErrCodeAuthTokenInvalid if the token is malformed, unknown, or revoked.
	//   - ErrCodeAuthTokenExpired if the token exists but has expired.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
