package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentProvider defines the minimal interface for payment provider
// integrations. One implementation per backend, selected once at
// construction time, keeps the service and the reconciler provider-agnostic.
//
// Authorize and Cancel are the only calls on any code path that may block
// for meaningful latency; callers bound them with a deadline. A failed or
// timed-out Authorize must have no side effects in this system: the service
// only persists after authorization succeeds.
type PaymentProvider interface {
	// Authorize charges (or sets up the recurring charge for) a plan before
	// any subscription record exists.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)

	// Cancel requests provider-side cancellation of a subscription.
	Cancel(ctx context.Context, externalSubscriptionID string) error

	// ParseWebhook validates the event signature and normalizes the payload.
	// Must reject spoofed payloads.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*ProviderEvent, error)
}

// AuthorizeRequest describes the charge to authorize.
type AuthorizeRequest struct {
	PriceID         string // provider's price identifier, equals the plan ID
	UserID          uuid.UUID
	PaymentMethodID string
	Email           string // optional billing email
	Amount          decimal.Decimal
	Currency        string
}

// AuthorizeResult carries the provider identifiers created by a successful
// authorization.
type AuthorizeResult struct {
	ExternalSubscriptionID string
	ExternalCustomerID     string
	AuthorizedAt           time.Time
}

// ProviderEventType is the normalized type of an inbound provider event.
type ProviderEventType string

const (
	ProviderPaymentSucceeded     ProviderEventType = "payment_succeeded"
	ProviderPaymentFailed        ProviderEventType = "payment_failed"
	ProviderSubscriptionCanceled ProviderEventType = "subscription_canceled"
)

// ProviderEvent is a normalized payment-provider webhook event, keyed by the
// provider's subscription identifier.
type ProviderEvent struct {
	Type                   ProviderEventType
	ProviderEvent          string // original provider event name
	ExternalSubscriptionID string
	OccurredAt             time.Time
	Attempt                int // provider's payment retry attempt, 1-based
	Amount                 decimal.Decimal
	Currency               string
	Raw                    map[string]any
}
