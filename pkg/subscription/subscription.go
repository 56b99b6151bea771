package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/subkit/pkg/usage"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusTrial    Status = "trial"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusUnpaid   Status = "unpaid"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// PaymentMethod identifies how a subscription is paid for.
type PaymentMethod string

const (
	PaymentMethodNone     PaymentMethod = "none"     // free plans and unpaid trials
	PaymentMethodProvider PaymentMethod = "provider" // charged through the payment provider
	PaymentMethodManual   PaymentMethod = "manual"   // invoiced outside the system
)

// PaymentRef links a subscription to the payment provider's records.
// LastPaymentAt and LastFailedAt double as the reconciler's idempotency
// ledger: a provider event at or before the recorded timestamp for its side
// has already been applied.
type PaymentRef struct {
	ExternalSubscriptionID string
	ExternalCustomerID     string
	LastPaymentAt          *time.Time
	LastFailedAt           *time.Time
	NextPaymentAt          *time.Time
	Amount                 decimal.Decimal
	Currency               string
}

// Subscription represents a user's subscription to a plan.
// A user holds at most one subscription in trial or active status at a time;
// terminal records (canceled, expired) are retained for history.
type Subscription struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	PlanID         string
	Status         Status
	StartDate      time.Time
	EndDate        time.Time // always set, >= StartDate
	TrialStartDate *time.Time
	TrialEndDate   *time.Time // equals EndDate while status is trial
	IsTrialUsed    bool       // sticky per user, never resets to false
	PaymentMethod  PaymentMethod
	PaymentRef     PaymentRef
	Usage          usage.Usage
	CanceledAt     *time.Time
	CancelReason   string
	Version        int64 // incremented by the store on every persisted mutation
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrial
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// IsOperable reports whether ordinary client operations may act on the
// subscription. Only trial and active qualify.
func (s *Subscription) IsOperable() bool {
	return s.Status == StatusTrial || s.Status == StatusActive
}

// IsDue reports whether the subscription's paid period has run out.
func (s *Subscription) IsDue(now time.Time) bool {
	return !s.EndDate.After(now)
}

// InGracePeriod reports whether an expired subscription can still be renewed
// without a fresh subscribe.
func (s *Subscription) InGracePeriod(now time.Time, grace time.Duration) bool {
	return !now.After(s.EndDate.Add(grace))
}

// TrialDaysRemainingAt returns the number of days remaining in the trial at
// a given time. Returns 0 if not in trial or the trial has ended.
func (s *Subscription) TrialDaysRemainingAt(now time.Time) int {
	if !s.IsTrialing() || s.TrialEndDate == nil {
		return 0
	}

	remaining := s.TrialEndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}

	// Round up partial days to be user-friendly
	days := remaining.Hours() / 24
	return int(days + 0.5)
}
