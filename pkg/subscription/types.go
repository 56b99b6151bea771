package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/subkit/pkg/usage"
)

// EventType identifies a lifecycle event emitted after a persisted transition.
type EventType string

const (
	EventSubscribed       EventType = "subscription.created"
	EventCanceled         EventType = "subscription.canceled"
	EventUpgraded         EventType = "subscription.upgraded"
	EventRenewed          EventType = "subscription.renewed"
	EventExpired          EventType = "subscription.expired"
	EventPaymentApplied   EventType = "subscription.payment_applied"
	EventPaymentPastDue   EventType = "subscription.past_due"
	EventPaymentExhausted EventType = "subscription.unpaid"
)

// Event describes a persisted lifecycle transition. Events are emitted after
// the optimistic-concurrency write succeeds, so handlers observe only
// durable state changes.
type Event struct {
	Type           EventType
	SubscriptionID uuid.UUID
	UserID         uuid.UUID
	PlanID         string
	Status         Status
	OccurredAt     time.Time
}

// EventHandler receives lifecycle events. Handlers run synchronously on the
// mutating call path; anything slow (email, audit, analytics) should hand
// off to its own queue.
type EventHandler func(ctx context.Context, event Event)

// SubscribeOptions carries the optional inputs of a subscribe call.
type SubscribeOptions struct {
	UseFreeTrial    bool
	PaymentMethodID string // provider payment method for paid non-trial plans
	Email           string // billing email passed through to the provider
}

// UserStatus summarizes a user's current standing for the HTTP layer.
type UserStatus struct {
	HasActive    bool
	Subscription *Subscription // nil when the user holds no active or trialing subscription
}

// UpgradeResult is returned by Upgrade: the updated record plus the prorated
// charge (positive) or credit (negative) for the plan change.
type UpgradeResult struct {
	Subscription    *Subscription
	ProrationAmount decimal.Decimal
}

// UsageReport is returned by ReportUsage. Violations is non-empty when the
// recorded usage has reached plan limits; the usage is recorded regardless
// and the caller decides whether to throttle.
type UsageReport struct {
	Subscription *Subscription
	Usage        usage.Usage
	Violations   []usage.Violation
}
