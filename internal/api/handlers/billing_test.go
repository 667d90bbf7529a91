package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeusbolt/internal/types"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

// mockBillingService implements external.BillingService for testing.
type mockBillingService struct {
	checkoutURL   string
	sessionID     string
	checkoutErr   error
	portalURL     string
	portalErr     error
	checkoutCalls []string // user ids
	portalCalls   []string // customer ids
}

func (m *mockBillingService) CreateCheckoutSession(ctx context.Context, userID string) (string, string, error) {
	m.checkoutCalls = append(m.checkoutCalls, userID)
	return m.checkoutURL, m.sessionID, m.checkoutErr
}

func (m *mockBillingService) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	m.portalCalls = append(m.portalCalls, customerID)
	return m.portalURL, m.portalErr
}

// mockSubscriptionReader implements SubscriptionReader for testing.
type mockSubscriptionReader struct {
	sub *types.Subscription
	err error
}

func (m *mockSubscriptionReader) GetByUserID(ctx context.Context, userID string) (*types.Subscription, error) {
	return m.sub, m.err
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newAuthedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := types.WithActor(req.Context(), types.Actor{ID: "u1", Type: types.ActorTypeUser})
	return req.WithContext(ctx)
}

func proSubscription() *types.Subscription {
	return &types.Subscription{
		UserID:               "u1",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		Plan:                 types.PlanPro,
		Status:               types.SubStatusActive,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// Checkout Session Tests
// ---------------------------------------------------------------------------

func TestBilling_CreateCheckoutSession(t *testing.T) {
	svc := &mockBillingService{
		checkoutURL: "https://checkout.stripe.com/c/pay/cs_1",
		sessionID:   "cs_1",
	}
	h := NewBillingHandler(svc, &mockSubscriptionReader{}, nil)

	rec := httptest.NewRecorder()
	h.CreateCheckoutSession(rec, newAuthedRequest(http.MethodPost, "/v1/billing/checkout-session"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"u1"}, svc.checkoutCalls)

	var resp struct {
		Data checkoutSessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp.Data.CheckoutURL)
	assert.Equal(t, "cs_1", resp.Data.SessionID)
}

func TestBilling_CreateCheckoutSession_Unauthenticated(t *testing.T) {
	svc := &mockBillingService{}
	h := NewBillingHandler(svc, &mockSubscriptionReader{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/checkout-session", nil)
	h.CreateCheckoutSession(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.checkoutCalls)
}

func TestBilling_CreateCheckoutSession_UpstreamError(t *testing.T) {
	svc := &mockBillingService{
		checkoutErr: types.NewAppError(types.ErrCodeUpstreamStripe, "provider unavailable", nil),
	}
	h := NewBillingHandler(svc, &mockSubscriptionReader{}, nil)

	rec := httptest.NewRecorder()
	h.CreateCheckoutSession(rec, newAuthedRequest(http.MethodPost, "/v1/billing/checkout-session"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamStripe), decodeErrorCode(t, rec.Body.Bytes()))
}

// ---------------------------------------------------------------------------
// Portal Session Tests
// ---------------------------------------------------------------------------

func TestBilling_CreatePortalSession(t *testing.T) {
	svc := &mockBillingService{portalURL: "https://billing.stripe.com/p/session/bps_1"}
	h := NewBillingHandler(svc, &mockSubscriptionReader{sub: proSubscription()}, nil)

	rec := httptest.NewRecorder()
	h.CreatePortalSession(rec, newAuthedRequest(http.MethodPost, "/v1/billing/portal-session"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"cus_1"}, svc.portalCalls)
}

func TestBilling_CreatePortalSession_NoBillingAccount(t *testing.T) {
	tests := []struct {
		name string
		sub  *types.Subscription
	}{
		{"no subscription row", nil},
		{"row without customer id", &types.Subscription{UserID: "u1", Plan: types.PlanFree, Status: types.SubStatusInactive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBillingService{}
			h := NewBillingHandler(svc, &mockSubscriptionReader{sub: tt.sub}, nil)

			rec := httptest.NewRecorder()
			h.CreatePortalSession(rec, newAuthedRequest(http.MethodPost, "/v1/billing/portal-session"))

			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, string(types.ErrCodeBillingNoAccount), decodeErrorCode(t, rec.Body.Bytes()))
			assert.Empty(t, svc.portalCalls, "no provider call without a local customer id")
		})
	}
}

// ---------------------------------------------------------------------------
// Subscription Status Tests
// ---------------------------------------------------------------------------

func TestBilling_GetSubscription_Entitled(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{}, &mockSubscriptionReader{sub: proSubscription()}, nil)

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, newAuthedRequest(http.MethodGet, "/v1/billing/subscription"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data subscriptionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.PlanPro, resp.Data.Plan)
	assert.Equal(t, types.SubStatusActive, resp.Data.Status)
	assert.True(t, resp.Data.Entitled)
}

func TestBilling_GetSubscription_ProPastDueNotEntitled(t *testing.T) {
	sub := proSubscription()
	sub.Status = types.SubStatusPastDue
	h := NewBillingHandler(&mockBillingService{}, &mockSubscriptionReader{sub: sub}, nil)

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, newAuthedRequest(http.MethodGet, "/v1/billing/subscription"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data subscriptionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.PlanPro, resp.Data.Plan)
	assert.False(t, resp.Data.Entitled, "status gates plan")
}

func TestBilling_GetSubscription_NoRowIsFreeTier(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{}, &mockSubscriptionReader{}, nil)

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, newAuthedRequest(http.MethodGet, "/v1/billing/subscription"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data subscriptionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.PlanFree, resp.Data.Plan)
	assert.Equal(t, types.SubStatusInactive, resp.Data.Status)
	assert.False(t, resp.Data.Entitled)
}
