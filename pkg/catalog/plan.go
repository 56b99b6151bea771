package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	IntervalMonth   BillingInterval = "month"
	IntervalYear    BillingInterval = "year"
	IntervalOneTime BillingInterval = "one-time" // single charge, never renews or prorates
)

const (
	// Unlimited indicates no limit for a dimension (-1 chosen for SQL compatibility).
	Unlimited int64 = -1
)

// Limits holds the per-dimension usage caps for a plan.
// Each field is a non-negative count or Unlimited.
type Limits struct {
	MaxUsers     int64
	MaxStorageMB int64
	MaxAPICalls  int64
}

// Plan describes a priceable offering. Immutable per version: the catalog
// never mutates a plan after loading it.
// The ID field should match the payment provider's price ID for paid plans
// to enable direct mapping during authorization and webhook processing.
type Plan struct {
	ID        string
	Name      string // unique across the catalog
	Price     decimal.Decimal
	Currency  string // ISO 4217 currency code
	Interval  BillingInterval
	TrialDays int // 0 disables trial
	Limits    Limits
	IsFree    bool
}

// DaysInPeriod returns the nominal billing period length in days.
// Panics on one-time plans because they have no recurring period; callers
// must branch on IsOneTime before asking for a period length.
func (p Plan) DaysInPeriod() int {
	switch p.Interval {
	case IntervalMonth:
		return 30
	case IntervalYear:
		return 365
	default:
		panic("catalog: plan " + p.ID + " has no billing period")
	}
}

// IsOneTime reports whether the plan charges once and never renews.
func (p Plan) IsOneTime() bool {
	return p.Interval == IntervalOneTime
}

// HasTrial reports whether the plan offers a free trial. Free plans never
// do: there is nothing to trial.
func (p Plan) HasTrial() bool {
	return p.TrialDays > 0 && !p.IsFree
}

// TrialEndsAt calculates when the trial period ends.
// Returns startedAt unchanged if no trial is available.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if !p.HasTrial() {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// NextPeriodEnd advances from the given period anchor by exactly one billing
// interval. Anchoring to the previous period end rather than the wall clock
// keeps renewal dates from drifting on late renewals.
func (p Plan) NextPeriodEnd(anchor time.Time) time.Time {
	switch p.Interval {
	case IntervalMonth:
		return anchor.AddDate(0, 1, 0)
	case IntervalYear:
		return anchor.AddDate(1, 0, 0)
	default:
		panic("catalog: plan " + p.ID + " has no billing period")
	}
}

// validate checks a single plan for internal consistency.
func (p Plan) validate() error {
	switch {
	case p.ID == "":
		return joinConfigErr("plan has empty ID")
	case p.Name == "":
		return joinConfigErr("plan " + p.ID + " has empty name")
	case p.Price.IsNegative():
		return joinConfigErr("plan " + p.ID + " has negative price")
	case p.IsFree && !p.Price.IsZero():
		return joinConfigErr("plan " + p.ID + " is marked free but has non-zero price")
	case p.TrialDays < 0:
		return joinConfigErr("plan " + p.ID + " has negative trial days")
	case !validLimit(p.Limits.MaxUsers) || !validLimit(p.Limits.MaxStorageMB) || !validLimit(p.Limits.MaxAPICalls):
		return joinConfigErr("plan " + p.ID + " has invalid limits")
	case p.Interval != IntervalMonth && p.Interval != IntervalYear && p.Interval != IntervalOneTime:
		return joinConfigErr("plan " + p.ID + " has unknown interval " + string(p.Interval))
	}
	return nil
}

func validLimit(v int64) bool {
	return v >= 0 || v == Unlimited
}
