package external

import (
	"context"

	"zeusbolt/internal/types"
)

// ---------------------------------------------------------------------------
// Billing Integration (Stripe)
// ---------------------------------------------------------------------------

// BillingService abstracts the payment provider's synchronous session APIs.
// Implementations translate between domain types and vendor-specific calls.
type BillingService interface {
	// CreateCheckoutSession generates a hosted checkout URL for the user to
	// start a Pro subscription. The userID is attached as client_reference_id
	// and as metadata so the completion webhook can be correlated back.
	CreateCheckoutSession(ctx context.Context, userID string) (checkoutURL string, sessionID string, err error)

	// CreatePortalSession generates a billing portal URL for self-serve
	// subscription management. The caller supplies the provider customer id
	// from the local subscription row.
	CreatePortalSession(ctx context.Context, customerID string) (portalURL string, err error)
}

// WebhookVerifier abstracts webhook signature checking.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature
	// header and signing secret. Returns nil on success, an error on failure.
	Verify(payload []byte, header string, secret string) error
}

// ---------------------------------------------------------------------------
// Blueprint Generation (OpenAI)
// ---------------------------------------------------------------------------

// BlueprintGenerator abstracts the AI provider that turns a project idea into
// a structured product blueprint.
type BlueprintGenerator interface {
	// GenerateBlueprint produces a blueprint for the given project content.
	GenerateBlueprint(ctx context.Context, content string) (*types.Blueprint, error)
}
