package billing

import (
	"context"
	"fmt"
	"log/slog"

	"zeusbolt/internal/types"
)

// SubscriptionStore is the persistence port the Reconciler writes through.
// The db package provides the production implementation.
type SubscriptionStore interface {
	// Activate creates or refreshes the subscription row for userID in a
	// single atomic write. Re-activation of an existing row must converge on
	// the same state (safe under webhook redelivery).
	Activate(ctx context.Context, userID, customerID, subscriptionID string) error

	// UpdateStatus sets the status of the row keyed by the provider
	// subscription id. Returns false when no such row exists.
	UpdateStatus(ctx context.Context, subscriptionID string, status types.SubscriptionStatus) (bool, error)

	// Deactivate reverts the row keyed by the provider subscription id to the
	// free tier. Returns false when no such row exists.
	Deactivate(ctx context.Context, subscriptionID string) (bool, error)
}

// Reconciler applies normalized intents to the subscription store. It is the
// sole writer of subscription state.
//
// Delivery semantics: applying the same intent twice converges on the same
// row state, and status updates that arrive before their activation (the
// provider does not guarantee ordering) are dropped as benign misses rather
// than failing the delivery.
type Reconciler struct {
	store  SubscriptionStore
	logger *slog.Logger
}

// NewReconciler creates a Reconciler over the given store.
func NewReconciler(store SubscriptionStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Apply executes one intent against the store. A returned error means the
// write failed and the delivery should be retried by the provider; a nil
// return means local state is consistent with the intent (including the
// race-miss case where there is nothing to update yet).
func (r *Reconciler) Apply(ctx context.Context, intent Intent) error {
	switch in := intent.(type) {
	case ActivateSubscription:
		return r.applyActivate(ctx, in)
	case UpdateSubscriptionStatus:
		return r.applyUpdateStatus(ctx, in)
	case DeactivateSubscription:
		return r.applyDeactivate(ctx, in)
	default:
		return fmt.Errorf("unsupported intent type %T", intent)
	}
}

func (r *Reconciler) applyActivate(ctx context.Context, in ActivateSubscription) error {
	if err := r.store.Activate(ctx, in.UserID, in.CustomerID, in.SubscriptionID); err != nil {
		return fmt.Errorf("activate subscription for user %s: %w", in.UserID, err)
	}
	r.logger.InfoContext(ctx, "subscription activated",
		"user_id", in.UserID,
		"subscription_id", in.SubscriptionID,
	)
	return nil
}

func (r *Reconciler) applyUpdateStatus(ctx context.Context, in UpdateSubscriptionStatus) error {
	matched, err := r.store.UpdateStatus(ctx, in.SubscriptionID, in.Status)
	if err != nil {
		return fmt.Errorf("update status for subscription %s: %w", in.SubscriptionID, err)
	}
	if !matched {
		// The update raced ahead of its activation, or targets a subscription
		// that was never activated locally. Nothing to converge on yet.
		r.logger.InfoContext(ctx, "status update for unknown subscription dropped",
			"subscription_id", in.SubscriptionID,
			"status", in.Status,
		)
		return nil
	}
	r.logger.InfoContext(ctx, "subscription status updated",
		"subscription_id", in.SubscriptionID,
		"status", in.Status,
	)
	return nil
}

func (r *Reconciler) applyDeactivate(ctx context.Context, in DeactivateSubscription) error {
	matched, err := r.store.Deactivate(ctx, in.SubscriptionID)
	if err != nil {
		return fmt.Errorf("deactivate subscription %s: %w", in.SubscriptionID, err)
	}
	if !matched {
		r.logger.InfoContext(ctx, "deactivation for unknown subscription dropped",
			"subscription_id", in.SubscriptionID,
		)
		return nil
	}
	r.logger.InfoContext(ctx, "subscription deactivated",
		"subscription_id", in.SubscriptionID,
	)
	return nil
}
