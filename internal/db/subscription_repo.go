package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"zeusbolt/internal/types"
)

// SubscriptionRepo manages the locally persisted billing state, one row per
// user. It backs the reconciliation engine's SubscriptionStore port and the
// entitlement reads on the API path.
//
// Key invariants:
//   - Activate is a single upsert keyed on user_id, so redelivered checkout
//     events converge on the same row.
//   - stripe_customer_id is never overwritten once set (COALESCE keeps the
//     existing value when the incoming one is empty).
//   - Status writes are keyed on stripe_subscription_id; zero rows affected
//     is reported to the caller, not treated as an error.
type SubscriptionRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given
// database connection (pool or transaction).
func NewSubscriptionRepo(db DBTX, logger *slog.Logger) *SubscriptionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRepo{db: db, logger: logger}
}

// Activate creates or refreshes the subscription row for userID as pro/active.
// The upsert keys on user_id; NULLIF/COALESCE keeps an existing customer id
// when the incoming one is empty, so a redelivered event without the customer
// field cannot erase it.
func (r *SubscriptionRepo) Activate(ctx context.Context, userID, customerID, subscriptionID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO subscriptions (user_id, stripe_customer_id, stripe_subscription_id, plan, status, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET stripe_customer_id     = COALESCE(NULLIF($2, ''), subscriptions.stripe_customer_id),
		     stripe_subscription_id = COALESCE(NULLIF($3, ''), subscriptions.stripe_subscription_id),
		     plan                   = $4,
		     status                 = $5,
		     updated_at             = NOW()`,
		userID,
		customerID,
		subscriptionID,
		types.PlanPro,
		types.SubStatusActive,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to activate subscription", err)
	}
	return nil
}

// UpdateStatus sets the status of the row keyed by the provider subscription
// id. Returns false when no row matches.
func (r *SubscriptionRepo) UpdateStatus(ctx context.Context, subscriptionID string, status types.SubscriptionStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions
		 SET status = $1,
		     updated_at = NOW()
		 WHERE stripe_subscription_id = $2`,
		status,
		subscriptionID,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to update subscription status", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Deactivate reverts the row keyed by the provider subscription id to the
// free tier with status inactive. Returns false when no row matches.
func (r *SubscriptionRepo) Deactivate(ctx context.Context, subscriptionID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions
		 SET plan = $1,
		     status = $2,
		     updated_at = NOW()
		 WHERE stripe_subscription_id = $3`,
		types.PlanFree,
		types.SubStatusInactive,
		subscriptionID,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate subscription", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByUserID returns the subscription row for the user, or nil if the user
// has no row (never checked out). Entitlement checks always read fresh state
// through this method.
func (r *SubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*types.Subscription, error) {
	var (
		sub            types.Subscription
		customerID     *string
		subscriptionID *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT user_id, stripe_customer_id, stripe_subscription_id, plan, status, created_at, updated_at
		 FROM subscriptions
		 WHERE user_id = $1`,
		userID,
	).Scan(&sub.UserID, &customerID, &subscriptionID, &sub.Plan, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load subscription", err)
	}

	if customerID != nil {
		sub.StripeCustomerID = *customerID
	}
	if subscriptionID != nil {
		sub.StripeSubscriptionID = *subscriptionID
	}
	return &sub, nil
}
