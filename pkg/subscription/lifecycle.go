package subscription

import (
	"time"

	"github.com/dmitrymomot/subkit/pkg/catalog"
	"github.com/dmitrymomot/subkit/pkg/statemachine"
	"github.com/dmitrymomot/subkit/pkg/usage"
)

// Chart events. Client operations, webhook reconciliation and the expiry
// sweeper all fire these against the same chart, so status semantics are
// defined exactly once.
const (
	opCancel           statemachine.Event = "cancel"
	opUpgrade          statemachine.Event = "upgrade"
	opRenew            statemachine.Event = "renew"
	opExpire           statemachine.Event = "expire"
	opPaymentSucceeded statemachine.Event = "payment_succeeded"
	opPaymentFailed    statemachine.Event = "payment_failed"
	opProviderCanceled statemachine.Event = "provider_canceled"
)

// expiryCheck is the guard data for the expire event.
type expiryCheck struct {
	endDate time.Time
	now     time.Time
}

// failureCheck is the guard data for payment_failed branching.
type failureCheck struct {
	attempt int
	limit   int
}

func isDue(data any) bool {
	c, ok := data.(expiryCheck)
	return ok && !c.endDate.After(c.now)
}

func retriesExhausted(data any) bool {
	c, ok := data.(failureCheck)
	return ok && c.attempt >= c.limit
}

// lifecycleChart declares every legal status move. Guard-based branching on
// payment_failed picks unpaid over past_due once the provider's retry count
// is exhausted; registration order expresses that priority.
var lifecycleChart = statemachine.MustNewChart(
	statemachine.WithTransitions([]statemachine.TransitionDef{
		{From: "trial", To: "canceled", Event: opCancel},
		{From: "active", To: "canceled", Event: opCancel},
		{From: "past_due", To: "canceled", Event: opCancel},

		{From: "trial", To: "trial", Event: opUpgrade},
		{From: "active", To: "active", Event: opUpgrade},

		{From: "active", To: "active", Event: opRenew},
		{From: "past_due", To: "active", Event: opRenew},
		{From: "expired", To: "active", Event: opRenew},

		{From: "active", To: "expired", Event: opExpire, Guards: []statemachine.Guard{isDue}},

		{From: "active", To: "active", Event: opPaymentSucceeded},
		{From: "past_due", To: "active", Event: opPaymentSucceeded},

		{From: "active", To: "unpaid", Event: opPaymentFailed, Guards: []statemachine.Guard{retriesExhausted}},
		{From: "active", To: "past_due", Event: opPaymentFailed},
		{From: "past_due", To: "unpaid", Event: opPaymentFailed, Guards: []statemachine.Guard{retriesExhausted}},
		{From: "past_due", To: "past_due", Event: opPaymentFailed},

		{From: "trial", To: "canceled", Event: opProviderCanceled},
		{From: "active", To: "canceled", Event: opProviderCanceled},
		{From: "past_due", To: "canceled", Event: opProviderCanceled},
		{From: "unpaid", To: "canceled", Event: opProviderCanceled},
	}),
)

func newEvent(t EventType, sub Subscription, now time.Time) Event {
	return Event{
		Type:           t,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		OccurredAt:     now,
	}
}

// transitionCancel marks a subscription canceled on the user's behalf.
func transitionCancel(sub Subscription, reason string, now time.Time) (Subscription, Event, error) {
	if sub.Status == StatusCanceled {
		return sub, Event{}, ErrAlreadyCanceled
	}

	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opCancel, nil)
	if err != nil {
		return sub, Event{}, ErrInvalidState
	}

	at := now
	sub.Status = Status(next)
	sub.CanceledAt = &at
	sub.CancelReason = reason
	sub.UpdatedAt = now
	return sub, newEvent(EventCanceled, sub, now), nil
}

// transitionUpgrade switches the subscription to a new plan mid-cycle.
// Usage counters deliberately survive an upgrade; only renewal resets them.
// The new billing period starts now, which is why daysRemaining against the
// old period is what the caller prorates.
func transitionUpgrade(sub Subscription, newPlan catalog.Plan, now time.Time) (Subscription, Event, error) {
	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opUpgrade, nil)
	if err != nil {
		return sub, Event{}, ErrInvalidState
	}

	sub.Status = Status(next)
	sub.PlanID = newPlan.ID
	sub.EndDate = newPlan.NextPeriodEnd(now)
	if sub.Status == StatusTrial {
		// Invariant: trial end tracks the period end while trialing.
		end := sub.EndDate
		sub.TrialEndDate = &end
	}
	sub.UpdatedAt = now
	return sub, newEvent(EventUpgraded, sub, now), nil
}

// transitionRenew extends the subscription by exactly one plan interval,
// anchored to the previous period end so late renewals do not drift, and
// resets usage counters for the fresh period.
func transitionRenew(sub Subscription, plan catalog.Plan, now time.Time, grace time.Duration) (Subscription, Event, error) {
	if plan.IsOneTime() {
		return sub, Event{}, ErrInvalidOnOneTimePlan
	}

	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opRenew, nil)
	if err != nil {
		return sub, Event{}, ErrInvalidState
	}

	if sub.Status == StatusExpired && !sub.InGracePeriod(now, grace) {
		return sub, Event{}, ErrGraceExpired
	}

	newEnd := plan.NextPeriodEnd(sub.EndDate)
	sub.Status = Status(next)
	sub.EndDate = newEnd
	sub.Usage = usage.Reset()
	sub.PaymentRef.NextPaymentAt = &newEnd
	sub.UpdatedAt = now
	return sub, newEvent(EventRenewed, sub, now), nil
}

// transitionExpire drives a due subscription to expired. Not due, already
// expired, or otherwise ineligible is a no-op, reported through ok, so the
// sweeper can run concurrently with itself and with the reconciler.
func transitionExpire(sub Subscription, now time.Time) (Subscription, Event, bool) {
	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opExpire, expiryCheck{endDate: sub.EndDate, now: now})
	if err != nil {
		return sub, Event{}, false
	}

	sub.Status = Status(next)
	sub.UpdatedAt = now
	return sub, newEvent(EventExpired, sub, now), true
}

// transitionPaymentSucceeded applies a successful provider payment.
// Ineligible states (trial, canceled, expired, unpaid) are skipped, reported
// through ok: provider events may describe subscriptions this system no
// longer considers payable.
func transitionPaymentSucceeded(sub Subscription, occurredAt, now time.Time) (Subscription, Event, bool) {
	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opPaymentSucceeded, nil)
	if err != nil {
		return sub, Event{}, false
	}

	paidAt := occurredAt
	nextAt := sub.EndDate
	sub.Status = Status(next)
	sub.PaymentRef.LastPaymentAt = &paidAt
	sub.PaymentRef.NextPaymentAt = &nextAt
	sub.UpdatedAt = now
	return sub, newEvent(EventPaymentApplied, sub, now), true
}

// transitionPaymentFailed applies a failed provider payment, demoting active
// to past_due and, once the provider's retry count is exhausted, to unpaid.
func transitionPaymentFailed(sub Subscription, occurredAt time.Time, attempt, retryLimit int, now time.Time) (Subscription, Event, bool) {
	check := failureCheck{attempt: attempt, limit: retryLimit}
	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opPaymentFailed, check)
	if err != nil {
		return sub, Event{}, false
	}

	failedAt := occurredAt
	sub.Status = Status(next)
	sub.PaymentRef.LastFailedAt = &failedAt
	sub.UpdatedAt = now

	eventType := EventPaymentPastDue
	if sub.Status == StatusUnpaid {
		eventType = EventPaymentExhausted
	}
	return sub, newEvent(eventType, sub, now), true
}

// transitionProviderCanceled applies a provider-side cancellation.
func transitionProviderCanceled(sub Subscription, occurredAt, now time.Time) (Subscription, Event, bool) {
	if sub.Status == StatusCanceled {
		return sub, Event{}, false
	}

	next, err := lifecycleChart.Next(statemachine.State(sub.Status), opProviderCanceled, nil)
	if err != nil {
		return sub, Event{}, false
	}

	at := occurredAt
	sub.Status = Status(next)
	sub.CanceledAt = &at
	sub.CancelReason = "canceled by payment provider"
	sub.UpdatedAt = now
	return sub, newEvent(EventCanceled, sub, now), true
}
