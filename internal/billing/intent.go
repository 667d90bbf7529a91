// Package billing implements the subscription synchronization engine: the
// Event Normalizer, which maps provider webhook payloads onto a small set of
// internal intents, and the Reconciler, which applies those intents to the
// persisted subscription state with idempotent, order-tolerant semantics.
package billing

import "zeusbolt/internal/types"

// Intent is a normalized internal description of "what changed" in the
// provider's billing state, decoupled from the webhook wire shape.
// Exactly one intent (or none) is produced per delivered event.
type Intent interface {
	isIntent()
}

// ActivateSubscription records that a user completed checkout and is now on
// the Pro plan. It carries both external identifiers so the subscription row
// can be created or refreshed in a single upsert.
type ActivateSubscription struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
}

// UpdateSubscriptionStatus records a provider-side lifecycle transition
// (active, past_due, unpaid, ...) for an existing subscription. It carries
// only the status; the plan is never touched by this intent.
type UpdateSubscriptionStatus struct {
	SubscriptionID string
	Status         types.SubscriptionStatus
}

// DeactivateSubscription records that the provider deleted/canceled the
// subscription; the user reverts to the free tier.
type DeactivateSubscription struct {
	SubscriptionID string
}

func (ActivateSubscription) isIntent()     {}
func (UpdateSubscriptionStatus) isIntent() {}
func (DeactivateSubscription) isIntent()   {}
