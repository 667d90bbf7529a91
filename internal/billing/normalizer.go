package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"zeusbolt/internal/types"
)

// Provider event types the normalizer recognizes. Every other event type is
// acknowledged and dropped.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Normalization outcomes that are not intents. Callers distinguish these from
// hard failures: a malformed payload is a client error the provider must not
// redeliver, while unrecognized or uncorrelatable events are acknowledged
// no-ops.
var (
	// ErrMalformedPayload indicates the verified payload is not a parseable
	// event envelope.
	ErrMalformedPayload = errors.New("webhook payload is not a valid event")

	// ErrUnrecognizedEvent indicates the event type carries no subscription
	// state the engine tracks.
	ErrUnrecognizedEvent = errors.New("unrecognized event type")

	// ErrMissingCorrelation indicates a checkout completion that cannot be
	// attributed to a user (no client_reference_id and no metadata key).
	ErrMissingCorrelation = errors.New("checkout event carries no user correlation")
)

// Normalizer maps verified provider webhook payloads onto Intents.
// It parses a minimal projection of the event envelope rather than the full
// provider event type, so routing stays decoupled from the SDK's wire structs.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger falls back to slog.Default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize parses a verified webhook payload and produces the Intent it
// implies, or an error classifying why no intent exists:
//
//   - ErrMalformedPayload: envelope or data object does not parse.
//   - ErrUnrecognizedEvent: event type is not one the engine tracks.
//   - ErrMissingCorrelation: checkout completion with no user attribution.
//
// Normalize never touches storage; it is a pure payload-to-intent mapping.
func (n *Normalizer) Normalize(payload []byte) (Intent, error) {
	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return n.normalizeCheckout(&event)
	case EventSubscriptionUpdated:
		return n.normalizeSubscriptionUpdate(&event)
	case EventSubscriptionDeleted:
		return n.normalizeSubscriptionDelete(&event)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedEvent, event.Type)
	}
}

func (n *Normalizer) normalizeCheckout(event *providerEvent) (Intent, error) {
	var session checkoutSessionObj
	if err := event.unmarshalObject(&session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// client_reference_id is set by the Session Issuer; the metadata key is
	// the fallback for sessions created before client_reference_id was wired.
	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata[types.MetadataUserIDKey]
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: event %s", ErrMissingCorrelation, event.ID)
	}

	n.logger.Info("normalized checkout completion",
		"event_id", event.ID,
		"user_id", userID,
	)

	return ActivateSubscription{
		UserID:         userID,
		CustomerID:     session.Customer,
		SubscriptionID: session.Subscription,
	}, nil
}

func (n *Normalizer) normalizeSubscriptionUpdate(event *providerEvent) (Intent, error) {
	var sub subscriptionObj
	if err := event.unmarshalObject(&sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: subscription update without subscription id", ErrMalformedPayload)
	}

	status := mapSubscriptionStatus(sub.Status)
	n.logger.Info("normalized subscription update",
		"event_id", event.ID,
		"subscription_id", sub.ID,
		"status", status,
	)

	return UpdateSubscriptionStatus{
		SubscriptionID: sub.ID,
		Status:         status,
	}, nil
}

func (n *Normalizer) normalizeSubscriptionDelete(event *providerEvent) (Intent, error) {
	var sub subscriptionObj
	if err := event.unmarshalObject(&sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: subscription delete without subscription id", ErrMalformedPayload)
	}

	n.logger.Info("normalized subscription deletion",
		"event_id", event.ID,
		"subscription_id", sub.ID,
	)

	return DeactivateSubscription{SubscriptionID: sub.ID}, nil
}

// mapSubscriptionStatus maps the provider's status strings onto the local
// enum. Unknown statuses are carried through verbatim so new provider states
// degrade to "not active" rather than being dropped.
func mapSubscriptionStatus(s string) types.SubscriptionStatus {
	switch s {
	case "active":
		return types.SubStatusActive
	case "trialing":
		return types.SubStatusTrialing
	case "past_due":
		return types.SubStatusPastDue
	case "canceled":
		return types.SubStatusCanceled
	case "unpaid":
		return types.SubStatusUnpaid
	case "incomplete", "incomplete_expired":
		return types.SubStatusIncomplete
	default:
		return types.SubscriptionStatus(s)
	}
}

// ---------------------------------------------------------------------------
// Minimal event wire shapes
// ---------------------------------------------------------------------------

// providerEvent is a minimal projection of the provider's event envelope,
// just enough to route and extract correlation fields.
type providerEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

type providerEventData struct {
	Object json.RawMessage `json:"object"`
}

// unmarshalObject decodes the event's data.object into dst.
func (e *providerEvent) unmarshalObject(dst any) error {
	if len(e.Data) == 0 {
		return errors.New("event has no data")
	}
	var data providerEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return err
	}
	if len(data.Object) == 0 {
		return errors.New("event data has no object")
	}
	return json.Unmarshal(data.Object, dst)
}

// checkoutSessionObj carries the fields read from a checkout.session.completed
// data object.
type checkoutSessionObj struct {
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

// subscriptionObj carries the fields read from a customer.subscription.*
// data object.
type subscriptionObj struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
}
