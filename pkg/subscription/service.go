package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subkit/pkg/catalog"
	"github.com/dmitrymomot/subkit/pkg/proration"
	"github.com/dmitrymomot/subkit/pkg/usage"
)

// Service defines the public interface for subscription lifecycle management.
//
// Subscribe through ReportUsage are consumed by the HTTP layer,
// HandleProviderEvent/HandleWebhook by the webhook receiver, and
// SweepExpired by the scheduler. All of them funnel through the same
// transition functions, so there is a single authority over subscription
// state.
type Service interface {
	Subscribe(ctx context.Context, userID uuid.UUID, planID string, opts SubscribeOptions) (*Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*Subscription, error)
	Upgrade(ctx context.Context, id uuid.UUID, newPlanID string) (*UpgradeResult, error)
	Renew(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ReportUsage(ctx context.Context, id uuid.UUID, delta usage.Delta) (*UsageReport, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (*UserStatus, error)

	// HandleProviderEvent applies an already-parsed provider event.
	HandleProviderEvent(ctx context.Context, event *ProviderEvent) error
	// HandleWebhook verifies and parses a raw webhook payload, then applies it.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// SweepExpired drives every active subscription whose period has run out
	// to expired and returns how many records were transitioned.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	catalog  *catalog.Catalog
	provider PaymentProvider
	store    Store
	cfg      Config
	log      *slog.Logger
	onEvent  EventHandler
	now      func() time.Time
}

// NewService creates a new Service with the given dependencies.
// Panics if required parameters (cat, provider, store) are nil to fail fast
// during initialization. Use ServiceOption functions to configure optional
// settings like the grace period or an event handler.
func NewService(cat *catalog.Catalog, provider PaymentProvider, store Store, opts ...ServiceOption) Service {
	if cat == nil {
		panic("subscription: catalog is required")
	}
	if provider == nil {
		panic("subscription: PaymentProvider is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}

	s := &service{
		catalog:  cat,
		provider: provider,
		store:    store,
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subscribe creates the user's subscription to a plan.
//
// Free plans activate immediately without touching the payment provider.
// A requested free trial activates without charging but consumes the user's
// one lifetime trial. The paid path authorizes the charge first and persists
// only on success, so a provider timeout can never leave a partial record.
func (s *service) Subscribe(ctx context.Context, userID uuid.UUID, planID string, opts SubscribeOptions) (*Subscription, error) {
	plan, err := s.catalog.GetPlan(planID)
	if err != nil {
		return nil, err
	}

	// Early duplicate check gives a clean error without provider side
	// effects; the store re-checks atomically at Create to close the race.
	if _, err := s.store.FindActiveByUser(ctx, userID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.now()
	sub := Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        plan.ID,
		StartDate:     now,
		PaymentMethod: PaymentMethodNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch {
	case plan.IsFree:
		sub.Status = StatusActive
		sub.EndDate = periodEnd(plan, now)

	case opts.UseFreeTrial:
		if !plan.HasTrial() {
			return nil, ErrTrialNotAvailable
		}
		used, err := s.store.TrialUsed(ctx, userID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrTrialAlreadyUsed
		}

		start := now
		trialEnd := plan.TrialEndsAt(now)
		sub.Status = StatusTrial
		sub.TrialStartDate = &start
		sub.TrialEndDate = &trialEnd
		sub.EndDate = trialEnd
		sub.IsTrialUsed = true
		if opts.PaymentMethodID != "" {
			sub.PaymentMethod = PaymentMethodProvider
		}

	default:
		res, err := s.authorize(ctx, AuthorizeRequest{
			PriceID:         plan.ID,
			UserID:          userID,
			PaymentMethodID: opts.PaymentMethodID,
			Email:           opts.Email,
			Amount:          plan.Price,
			Currency:        plan.Currency,
		})
		if err != nil {
			return nil, errors.Join(ErrPaymentAuthorizationFailed, err)
		}

		paidAt := res.AuthorizedAt
		if paidAt.IsZero() {
			paidAt = now
		}
		end := periodEnd(plan, now)
		sub.Status = StatusActive
		sub.EndDate = end
		sub.PaymentMethod = PaymentMethodProvider
		sub.PaymentRef = PaymentRef{
			ExternalSubscriptionID: res.ExternalSubscriptionID,
			ExternalCustomerID:     res.ExternalCustomerID,
			LastPaymentAt:          &paidAt,
			NextPaymentAt:          &end,
			Amount:                 plan.Price,
			Currency:               plan.Currency,
		}
	}

	if err := s.store.Create(ctx, &sub); err != nil {
		return nil, err
	}

	s.emit(ctx, newEvent(EventSubscribed, sub, now))
	return &sub, nil
}

// Cancel marks the subscription canceled and requests provider-side
// cancellation when one is linked. The provider call happens after the local
// state is durable: if it fails, the provider's own cancellation webhook
// will reconcile eventually, so the failure is logged rather than surfaced.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Subscription, error) {
	updated, _, err := s.mutate(ctx, id, func(cur Subscription) (Subscription, *Event, error) {
		next, ev, err := transitionCancel(cur, reason, s.now())
		if err != nil {
			return cur, nil, err
		}
		return next, &ev, nil
	})
	if err != nil {
		return nil, err
	}

	if extID := updated.PaymentRef.ExternalSubscriptionID; extID != "" {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.AuthorizeTimeout)
		defer cancel()
		if err := s.provider.Cancel(cctx, extID); err != nil {
			s.log.WarnContext(ctx, "provider-side cancellation failed",
				slog.String("subscription_id", id.String()),
				slog.String("external_id", extID),
				slog.Any("error", err))
		}
	}

	return updated, nil
}

// Upgrade moves the subscription to a new plan mid-cycle and returns the
// prorated charge or credit. Usage counters are not reset. A positive
// proration on a provider-paid subscription is authorized before anything
// is persisted.
func (s *service) Upgrade(ctx context.Context, id uuid.UUID, newPlanID string) (*UpgradeResult, error) {
	newPlan, err := s.catalog.GetPlan(newPlanID)
	if err != nil {
		return nil, err
	}
	if newPlan.IsOneTime() {
		return nil, ErrInvalidOnOneTimePlan
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOperable() {
		return nil, ErrInvalidState
	}

	oldPlan, err := s.catalog.GetPlan(current.PlanID)
	if err != nil {
		return nil, err
	}
	if oldPlan.IsOneTime() {
		return nil, ErrInvalidOnOneTimePlan
	}

	now := s.now()
	amount := proration.Prorate(oldPlan, newPlan, daysRemaining(current.EndDate, now))

	// Authorize the prorated charge before persisting the plan change. The
	// charge is computed from the record read above; if a concurrent writer
	// changes the plan before our write lands, the operation is aborted with
	// ErrConflict rather than re-charged.
	if amount.IsPositive() && current.PaymentMethod == PaymentMethodProvider {
		if _, err := s.authorize(ctx, AuthorizeRequest{
			PriceID:  newPlan.ID,
			UserID:   current.UserID,
			Email:    "",
			Amount:   amount,
			Currency: newPlan.Currency,
		}); err != nil {
			return nil, errors.Join(ErrPaymentAuthorizationFailed, err)
		}
	}

	originalPlanID := current.PlanID
	updated, _, err := s.mutate(ctx, id, func(cur Subscription) (Subscription, *Event, error) {
		if cur.PlanID != originalPlanID {
			return cur, nil, ErrConflict
		}
		next, ev, err := transitionUpgrade(cur, newPlan, s.now())
		if err != nil {
			return cur, nil, err
		}
		return next, &ev, nil
	})
	if err != nil {
		return nil, err
	}

	return &UpgradeResult{Subscription: updated, ProrationAmount: amount}, nil
}

// Renew extends the subscription by one plan interval anchored to the
// previous period end, resets usage counters and reactivates past_due or
// recently expired subscriptions. Outside the grace window renewal fails
// with ErrGraceExpired and the caller must subscribe anew. Renewal also
// fails with ErrAlreadySubscribed when the user has subscribed afresh since
// this record expired; the newer subscription wins.
func (s *service) Renew(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	updated, _, err := s.mutate(ctx, id, func(cur Subscription) (Subscription, *Event, error) {
		plan, err := s.catalog.GetPlan(cur.PlanID)
		if err != nil {
			return cur, nil, err
		}
		next, ev, err := transitionRenew(cur, plan, s.now(), s.cfg.GracePeriod)
		if err != nil {
			return cur, nil, err
		}
		return next, &ev, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReportUsage records a consumption delta and evaluates the updated counters
// against plan limits. Usage is recorded even when limits are hit; the
// returned violations let the caller decide whether to throttle.
func (s *service) ReportUsage(ctx context.Context, id uuid.UUID, delta usage.Delta) (*UsageReport, error) {
	var violations []usage.Violation
	updated, _, err := s.mutate(ctx, id, func(cur Subscription) (Subscription, *Event, error) {
		if !cur.IsOperable() {
			return cur, nil, ErrInvalidState
		}

		plan, err := s.catalog.GetPlan(cur.PlanID)
		if err != nil {
			return cur, nil, err
		}

		updatedUsage, err := cur.Usage.Add(delta)
		if err != nil {
			return cur, nil, err
		}

		cur.Usage = updatedUsage
		cur.UpdatedAt = s.now()
		violations = usage.CheckLimits(updatedUsage, plan.Limits)
		return cur, nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &UsageReport{
		Subscription: updated,
		Usage:        updated.Usage,
		Violations:   violations,
	}, nil
}

// GetStatus reports whether the user currently holds a trial or active
// subscription. A user without one is not an error.
func (s *service) GetStatus(ctx context.Context, userID uuid.UUID) (*UserStatus, error) {
	sub, err := s.store.FindActiveByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &UserStatus{HasActive: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &UserStatus{HasActive: true, Subscription: sub}, nil
}

// SweepExpired expires every active subscription whose period has run out.
// Safe to run concurrently with itself and with webhook reconciliation: an
// already-expired record is a no-op, and persistent version conflicts are
// left for the next sweep rather than surfaced.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range due {
		_, changed, err := s.mutate(ctx, candidate.ID, func(cur Subscription) (Subscription, *Event, error) {
			next, ev, ok := transitionExpire(cur, now)
			if !ok {
				return cur, nil, errNoop
			}
			return next, &ev, nil
		})
		switch {
		case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
			s.log.DebugContext(ctx, "expiry sweep skipped contested record",
				slog.String("subscription_id", candidate.ID.String()))
			continue
		case err != nil:
			return expired, err
		case changed:
			expired++
		}
	}
	return expired, nil
}

// errNoop signals a transition that decided nothing needs to change.
// Translated into a successful no-op by mutate, never surfaced to callers.
var errNoop = errors.New("no-op")

// mutate runs the read-compute-write cycle with bounded optimistic-concurrency
// retries. fn must be pure: it is re-invoked with a fresh read after every
// version conflict. A nil event persists silently; errNoop skips the write
// entirely. Returns the persisted (or unchanged) record and whether a write
// happened.
func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(Subscription) (Subscription, *Event, error)) (*Subscription, bool, error) {
	retries := s.cfg.MaxWriteRetries
	if retries < 1 {
		retries = 1
	}

	for range retries {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}

		next, event, err := fn(*current)
		if errors.Is(err, errNoop) {
			return current, false, nil
		}
		if err != nil {
			return nil, false, err
		}

		if err := s.store.Update(ctx, &next, current.Version); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				continue
			}
			return nil, false, err
		}

		if event != nil {
			s.emit(ctx, *event)
		}
		return &next, true, nil
	}

	return nil, false, ErrConflict
}

// authorize bounds the blocking provider call with the configured deadline.
// The surrounding context still applies, so a caller-supplied deadline can
// only tighten it.
func (s *service) authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	actx, cancel := context.WithTimeout(ctx, s.cfg.AuthorizeTimeout)
	defer cancel()
	return s.provider.Authorize(actx, req)
}

func (s *service) emit(ctx context.Context, event Event) {
	if s.onEvent != nil {
		s.onEvent(ctx, event)
	}
}

// periodEnd computes the first period end for a fresh subscription.
// One-time purchases never renew; their end date is pushed far enough out
// that the expiry sweeper will not touch them.
func periodEnd(plan catalog.Plan, start time.Time) time.Time {
	if plan.IsOneTime() {
		return start.AddDate(100, 0, 0)
	}
	return plan.NextPeriodEnd(start)
}

// daysRemaining counts whole days between now and the period end, never
// negative.
func daysRemaining(endDate, now time.Time) int {
	if !endDate.After(now) {
		return 0
	}
	return int(endDate.Sub(now).Hours() / 24)
}

