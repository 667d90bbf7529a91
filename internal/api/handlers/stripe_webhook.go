// Package handlers contains the HTTP handler implementations for the ZeusBolt
// API.
//
// This file implements the payment provider webhook endpoint. The handler is
// NOT behind auth middleware -- it is called directly by Stripe. Security is
// provided by verifying the Stripe-Signature header over the raw body.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zeusbolt/internal/billing"
	"zeusbolt/internal/core"
	"zeusbolt/internal/external"
	"zeusbolt/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of a webhook payload (64 KB).
// Provider payloads are typically small; this limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// IntentNormalizer maps a verified payload onto a reconciliation intent.
// Satisfied by *billing.Normalizer.
type IntentNormalizer interface {
	Normalize(payload []byte) (billing.Intent, error)
}

// IntentApplier applies a reconciliation intent to the subscription store.
// Satisfied by *billing.Reconciler.
type IntentApplier interface {
	Apply(ctx context.Context, intent billing.Intent) error
}

// StripeWebhookHandler handles asynchronous billing events from the payment
// provider. It is unauthenticated but verifies the provider signature before
// doing anything else.
type StripeWebhookHandler struct {
	verifier   external.WebhookVerifier
	normalizer IntentNormalizer
	reconciler IntentApplier
	secret     string
	logger     *slog.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler with the
// provided dependencies.
func NewStripeWebhookHandler(
	verifier external.WebhookVerifier,
	normalizer IntentNormalizer,
	reconciler IntentApplier,
	secret string,
	logger *slog.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier:   verifier,
		normalizer: normalizer,
		reconciler: reconciler,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. This is separate from
// BillingHandler.RegisterRoutes because the webhook route is public (no auth
// middleware).
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.Handle)
}

// Handle processes one webhook delivery:
//
//  1. Reads the raw body (64 KB cap) and the Stripe-Signature header.
//  2. Verifies the signature; failure is a hard 400 with no state touched.
//  3. Normalizes the payload into an intent.
//  4. Applies the intent through the reconciler.
//
// Status code contract:
//   - 400: invalid signature or malformed payload (redelivery cannot help).
//   - 200: applied, or benign no-op (unknown event type, missing correlation,
//     status update racing ahead of its activation).
//   - 500: store write failed; the provider redelivers and the idempotent
//     reconciler converges on retry.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookPayloadMalformed,
			"failed to read request body",
			err,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(r.Context(), "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureInvalid,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureInvalid,
			"webhook signature verification failed",
			err,
		))
		return
	}

	intent, err := h.normalizer.Normalize(payload)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrMalformedPayload):
			h.logger.WarnContext(r.Context(), "webhook payload malformed",
				"error", err,
			)
			core.Error(w, r, types.NewAppError(
				types.ErrCodeWebhookPayloadMalformed,
				"webhook payload is not a valid event",
				err,
			))
			return

		case errors.Is(err, billing.ErrUnrecognizedEvent):
			h.logger.InfoContext(r.Context(), "ignoring unhandled webhook event type",
				"error", err,
			)
			w.WriteHeader(http.StatusOK)
			return

		case errors.Is(err, billing.ErrMissingCorrelation):
			// A checkout we cannot attribute is unrecoverable by redelivery;
			// acknowledge it and leave the trail in the error log.
			h.logger.ErrorContext(r.Context(), "checkout event without user correlation dropped",
				"error", err,
			)
			w.WriteHeader(http.StatusOK)
			return

		default:
			h.logger.ErrorContext(r.Context(), "webhook normalization failed",
				"error", err,
			)
			core.Error(w, r, err)
			return
		}
	}

	if err := h.reconciler.Apply(r.Context(), intent); err != nil {
		// A failed write must surface as 5xx so the provider redelivers.
		h.logger.ErrorContext(r.Context(), "webhook reconciliation failed",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to apply billing event",
			err,
		))
		return
	}

	w.WriteHeader(http.StatusOK)
}
