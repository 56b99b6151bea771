package subscription

import (
	"context"
	"errors"
	"log/slog"
)

// HandleWebhook verifies and parses a raw provider payload, then reconciles
// it. The webhook receiver owns transport concerns; this is the first point
// where the payload is trusted.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	return s.HandleProviderEvent(ctx, event)
}

// HandleProviderEvent translates an inbound payment-provider event into a
// state transition, idempotently: replaying a delivered event leaves the
// record byte-for-byte unchanged.
//
// Events for subscription IDs this system does not know are logged and
// dropped, not errors: providers emit events for subscriptions created
// outside this system (sandbox tests, other products on the same account).
func (s *service) HandleProviderEvent(ctx context.Context, event *ProviderEvent) error {
	if event == nil || event.ExternalSubscriptionID == "" {
		return nil
	}

	sub, err := s.store.FindByExternalID(ctx, event.ExternalSubscriptionID)
	if errors.Is(err, ErrNotFound) {
		s.log.InfoContext(ctx, "dropping provider event for unknown subscription",
			slog.String("external_id", event.ExternalSubscriptionID),
			slog.String("event_type", string(event.Type)))
		return nil
	}
	if err != nil {
		return err
	}

	_, _, err = s.mutate(ctx, sub.ID, func(cur Subscription) (Subscription, *Event, error) {
		switch event.Type {
		case ProviderPaymentSucceeded:
			// Idempotency ledger: a payment at or before the one already
			// recorded has been applied.
			if last := cur.PaymentRef.LastPaymentAt; last != nil && !event.OccurredAt.After(*last) {
				return cur, nil, errNoop
			}
			next, ev, ok := transitionPaymentSucceeded(cur, event.OccurredAt, s.now())
			if !ok {
				return cur, nil, errNoop
			}
			return next, &ev, nil

		case ProviderPaymentFailed:
			if last := cur.PaymentRef.LastPaymentAt; last != nil && !event.OccurredAt.After(*last) {
				return cur, nil, errNoop
			}
			// Failures keep their own ledger so a redelivered failure does
			// not bump the version and re-emit its event.
			if last := cur.PaymentRef.LastFailedAt; last != nil && !event.OccurredAt.After(*last) {
				return cur, nil, errNoop
			}
			next, ev, ok := transitionPaymentFailed(cur, event.OccurredAt, event.Attempt, s.cfg.PaymentRetryLimit, s.now())
			if !ok {
				return cur, nil, errNoop
			}
			return next, &ev, nil

		case ProviderSubscriptionCanceled:
			next, ev, ok := transitionProviderCanceled(cur, event.OccurredAt, s.now())
			if !ok {
				return cur, nil, errNoop
			}
			return next, &ev, nil

		default:
			s.log.DebugContext(ctx, "ignoring unhandled provider event",
				slog.String("event_type", string(event.Type)))
			return cur, nil, errNoop
		}
	})
	return err
}
