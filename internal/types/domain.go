// Package types defines the domain model shared across the ZeusBolt backend:
// subscription state, projects, blueprints, the error taxonomy, and the
// request-scoped context helpers.
package types

import "time"

// PlanTier enumerates the billing plans a user can hold.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// SubscriptionStatus mirrors the payment provider's subscription lifecycle.
// Inactive is the local terminal state written on deactivation; the remaining
// values are carried through from provider subscription events verbatim.
type SubscriptionStatus string

const (
	SubStatusActive     SubscriptionStatus = "active"
	SubStatusPastDue    SubscriptionStatus = "past_due"
	SubStatusCanceled   SubscriptionStatus = "canceled"
	SubStatusInactive   SubscriptionStatus = "inactive"
	SubStatusTrialing   SubscriptionStatus = "trialing"
	SubStatusUnpaid     SubscriptionStatus = "unpaid"
	SubStatusIncomplete SubscriptionStatus = "incomplete"
)

// MetadataUserIDKey is the canonical checkout-session metadata key that carries
// the internal user id through the payment provider and back on the webhook.
// It is the single correlation contract between the Session Issuer (writer)
// and the Event Normalizer (reader); no aliases are read.
const MetadataUserIDKey = "user_id"

// Subscription is the locally persisted billing state for one user.
// There is at most one row per user; the Reconciler is its only writer.
type Subscription struct {
	UserID               string             `json:"user_id"`
	StripeCustomerID     string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	Plan                 PlanTier           `json:"plan"`
	Status               SubscriptionStatus `json:"status"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// Entitled reports whether the subscription grants Pro features.
// Status gates plan: a "pro" row that is past_due, canceled, or otherwise not
// active is treated as free tier.
func (s *Subscription) Entitled() bool {
	if s == nil {
		return false
	}
	return s.Plan == PlanPro && s.Status == SubStatusActive
}

// RefinementSteps is the number of guided refinement slots on a project.
const RefinementSteps = 6

// Project is a user's app idea plus its refinement progress.
type Project struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"-"`
	Content    string                  `json:"content"`
	Audience   string                  `json:"audience,omitempty"`
	Refinement [RefinementSteps]string `json:"-"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// Blueprint is the structured output of AI blueprint generation.
type Blueprint struct {
	Overview   string   `json:"overview"`
	Pages      []string `json:"pages"`
	DataModels []string `json:"dataModels"`
	NextSteps  string   `json:"nextSteps"`
}
