package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines subscription persistence with optimistic concurrency.
//
// Implementations must enforce two invariants that cannot live in the
// service layer without races:
//
//   - Create rejects a second active/trialing subscription for the same user
//     atomically (ErrAlreadySubscribed).
//   - Update compares expectedVersion against the stored record and rejects
//     stale writes (ErrVersionMismatch); on success the persisted version is
//     expectedVersion+1. An update that makes a record operable while
//     another record holds the user's slot is rejected with
//     ErrAlreadySubscribed, so reactivating paths (grace-period renew,
//     provider payment events) cannot give a user two operable
//     subscriptions.
type Store interface {
	// Get retrieves a subscription by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindActiveByUser returns the user's subscription currently in trial or
	// active status, or ErrNotFound.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// FindByExternalID resolves a record by the payment provider's
	// subscription identifier, or ErrNotFound.
	FindByExternalID(ctx context.Context, externalID string) (*Subscription, error)

	// Create persists a new subscription. Fails with ErrAlreadySubscribed if
	// the user already holds a trial or active subscription.
	Create(ctx context.Context, sub *Subscription) error

	// Update persists a mutated record if the stored version still equals
	// expectedVersion, bumping the version by one. Fails with
	// ErrVersionMismatch on a lost update, ErrNotFound if the record is
	// gone, ErrAlreadySubscribed if reactivation would break the
	// one-operable-per-user invariant.
	Update(ctx context.Context, sub *Subscription, expectedVersion int64) error

	// ListDue returns active subscriptions whose EndDate is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*Subscription, error)

	// TrialUsed reports whether the user has ever consumed a free trial,
	// across all retained historical records.
	TrialUsed(ctx context.Context, userID uuid.UUID) (bool, error)
}
