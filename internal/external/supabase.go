package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zeusbolt/internal/types"
)

// SupabaseAuthConfig holds the configuration for creating a SupabaseAuthClient.
type SupabaseAuthConfig struct {
	// ProjectURL is the Supabase project base URL, e.g. https://xyz.supabase.co.
	ProjectURL string
	// ServiceKey is the project API key sent as the apikey header.
	ServiceKey string
	Logger     *slog.Logger
}

// SupabaseAuthClient resolves bearer tokens against the hosted Supabase Auth
// service. It implements the core Authenticator contract: every request's
// token is validated upstream, so revocation takes effect immediately.
type SupabaseAuthClient struct {
	base       *BaseClient
	projectURL string
	serviceKey string
	logger     *slog.Logger
}

// NewSupabaseAuthClient creates a new SupabaseAuthClient.
func NewSupabaseAuthClient(httpClient *http.Client, cfg SupabaseAuthConfig) *SupabaseAuthClient {
	base := NewBaseClient(
		httpClient,
		"supabase-auth",
		RetryPolicy{
			MaxRetries: 1,
			MinWait:    200 * time.Millisecond,
			MaxWait:    2 * time.Second,
		},
		"ZeusBolt/1.0",
	)
	return NewSupabaseAuthClientWithBase(base, cfg)
}

// NewSupabaseAuthClientWithBase creates a SupabaseAuthClient with a
// pre-configured BaseClient, for tests.
func NewSupabaseAuthClientWithBase(base *BaseClient, cfg SupabaseAuthConfig) *SupabaseAuthClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseAuthClient{
		base:       base,
		projectURL: strings.TrimSuffix(cfg.ProjectURL, "/"),
		serviceKey: cfg.ServiceKey,
		logger:     logger,
	}
}

// supabaseUser is the subset of the auth user record the backend needs.
type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Aud   string `json:"aud"`
}

// supabaseAuthError is the error body returned by the auth endpoint.
type supabaseAuthError struct {
	Message   string `json:"msg"`
	ErrorCode string `json:"error_code"`
}

// ResolveToken validates the bearer token against GET /auth/v1/user and
// returns the Actor it identifies.
//
// Error mapping:
//   - 401/403 with an expiry error code -> auth_token_expired
//   - any other 401/403 -> auth_token_invalid
//   - transport failures and 5xx -> upstream_auth_unavailable, so callers can
//     distinguish "provider down" from "bad token"
func (c *SupabaseAuthClient) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.projectURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build auth request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.base.Do(req)
	if err != nil {
		var appErr *types.AppError
		if e, ok := err.(*types.AppError); ok {
			appErr = e
		}
		if appErr != nil && strings.HasPrefix(string(appErr.Code), "upstream_") {
			return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "identity provider unavailable", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user supabaseUser
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "failed to decode auth user response", err)
		}
		if user.ID == "" {
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "auth user record has no id", nil)
		}
		return &types.Actor{
			ID:    user.ID,
			Type:  types.ActorTypeUser,
			Email: user.Email,
		}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		var authErr supabaseAuthError
		_ = json.NewDecoder(resp.Body).Decode(&authErr)
		if isExpiredTokenError(authErr) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "token has expired", nil)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token rejected by identity provider", nil)

	default:
		return nil, types.NewAppError(
			types.ErrCodeUpstreamAuth,
			fmt.Sprintf("identity provider returned unexpected status %d", resp.StatusCode),
			nil,
		)
	}
}

// isExpiredTokenError reports whether the auth error indicates an expired
// (rather than malformed or revoked) token.
func isExpiredTokenError(e supabaseAuthError) bool {
	if e.ErrorCode == "bad_jwt" && strings.Contains(strings.ToLower(e.Message), "expired") {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "expired")
}
