package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zeusbolt/internal/core"
	"zeusbolt/internal/external"
	"zeusbolt/internal/types"
)

// SubscriptionReader reads the locally persisted billing state for a user.
// Satisfied by *db.SubscriptionRepo. A nil subscription with a nil error means
// the user has no billing record yet.
type SubscriptionReader interface {
	GetByUserID(ctx context.Context, userID string) (*types.Subscription, error)
}

// BillingHandler handles checkout and portal session issuing plus the
// subscription status read. All routes require an authenticated actor.
type BillingHandler struct {
	billing       external.BillingService
	subscriptions SubscriptionReader
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler with the provided
// dependencies.
func NewBillingHandler(billing external.BillingService, subscriptions SubscriptionReader, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		billing:       billing,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes mounts the billing endpoints on the given router.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/checkout-session", h.CreateCheckoutSession)
		r.Post("/portal-session", h.CreatePortalSession)
		r.Get("/subscription", h.GetSubscription)
	})
}

// checkoutSessionResponse is the response body for POST /billing/checkout-session.
type checkoutSessionResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// CreateCheckoutSession starts a hosted checkout for the authenticated user.
// The user id rides along as the session's client reference and metadata so
// the completion webhook can attribute the purchase.
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	checkoutURL, sessionID, err := h.billing.CreateCheckoutSession(r.Context(), actor.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create checkout session",
			"error", err,
			"user_id", actor.ID,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "checkout session created",
		"user_id", actor.ID,
		"session_id", sessionID,
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: checkoutSessionResponse{
		CheckoutURL: checkoutURL,
		SessionID:   sessionID,
	}})
}

// portalSessionResponse is the response body for POST /billing/portal-session.
type portalSessionResponse struct {
	PortalURL string `json:"portal_url"`
}

// CreatePortalSession opens the provider's self-serve billing portal for the
// authenticated user. The provider customer id is resolved from the local
// subscription row; users who never completed a checkout have no customer and
// get a conflict error without any provider call.
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	sub, err := h.subscriptions.GetByUserID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if sub == nil || sub.StripeCustomerID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeBillingNoAccount,
			"no billing account exists for this user",
			nil,
		))
		return
	}

	portalURL, err := h.billing.CreatePortalSession(r.Context(), sub.StripeCustomerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create portal session",
			"error", err,
			"user_id", actor.ID,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: portalSessionResponse{PortalURL: portalURL}})
}

// subscriptionResponse is the response body for GET /billing/subscription.
type subscriptionResponse struct {
	Plan     types.PlanTier           `json:"plan"`
	Status   types.SubscriptionStatus `json:"status"`
	Entitled bool                     `json:"entitled"`
}

// GetSubscription reports the user's current plan, status, and entitlement
// from a fresh store read. Users without a billing record are free tier.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	sub, err := h.subscriptions.GetByUserID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := subscriptionResponse{
		Plan:     types.PlanFree,
		Status:   types.SubStatusInactive,
		Entitled: false,
	}
	if sub != nil {
		resp.Plan = sub.Plan
		resp.Status = sub.Status
		resp.Entitled = sub.Entitled()
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
