package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeusbolt/internal/types"
)

func newTestAuthClient(srvURL string) *SupabaseAuthClient {
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"supabase-test",
		RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond},
		"ZeusBolt-Test/1.0",
		WithSleepFunc(func(time.Duration) {}),
	)
	return NewSupabaseAuthClientWithBase(base, SupabaseAuthConfig{
		ProjectURL: srvURL,
		ServiceKey: "service_key_abc",
	})
}

func TestSupabaseAuth_ResolveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer jwt_abc", r.Header.Get("Authorization"))
		assert.Equal(t, "service_key_abc", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","email":"u1@example.com","aud":"authenticated"}`))
	}))
	defer srv.Close()

	c := newTestAuthClient(srv.URL)
	actor, err := c.ResolveToken(context.Background(), "jwt_abc")
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, types.ActorTypeUser, actor.Type)
	assert.Equal(t, "u1@example.com", actor.Email)
}

func TestSupabaseAuth_ExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"JWT expired","error_code":"bad_jwt"}`))
	}))
	defer srv.Close()

	c := newTestAuthClient(srv.URL)
	actor, err := c.ResolveToken(context.Background(), "jwt_old")
	require.Error(t, err)
	assert.Nil(t, actor)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthTokenExpired, appErr.Code)
}

func TestSupabaseAuth_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"invalid JWT signature","error_code":"bad_jwt"}`))
	}))
	defer srv.Close()

	c := newTestAuthClient(srv.URL)
	_, err := c.ResolveToken(context.Background(), "jwt_forged")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}

func TestSupabaseAuth_ProviderDownIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestAuthClient(srv.URL)
	_, err := c.ResolveToken(context.Background(), "jwt_abc")
	require.Error(t, err)

	// A down identity provider must not be reported as a bad token.
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamAuth, appErr.Code)
}

func TestSupabaseAuth_UserWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"u1@example.com"}`))
	}))
	defer srv.Close()

	c := newTestAuthClient(srv.URL)
	_, err := c.ResolveToken(context.Background(), "jwt_abc")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
}
