package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/subscription"
)

func newStoredSubscription(userID uuid.UUID) *subscription.Subscription {
	return &subscription.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    "basic",
		Status:    subscription.StatusActive,
		StartDate: testEpoch,
		EndDate:   testEpoch.AddDate(0, 1, 0),
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round-trips a record", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := newStoredSubscription(uuid.New())

		require.NoError(t, store.Create(ctx, sub))
		assert.Equal(t, int64(1), sub.Version)

		got, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub, got)
	})

	t.Run("missing record returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("one operable subscription per user", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		userID := uuid.New()

		require.NoError(t, store.Create(ctx, newStoredSubscription(userID)))
		err := store.Create(ctx, newStoredSubscription(userID))
		assert.ErrorIs(t, err, subscription.ErrAlreadySubscribed)
	})

	t.Run("terminal record does not block a new subscription", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		userID := uuid.New()

		first := newStoredSubscription(userID)
		require.NoError(t, store.Create(ctx, first))

		first.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, first, 1))

		assert.NoError(t, store.Create(ctx, newStoredSubscription(userID)))
	})
}

func TestMemoryStore_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("bumps the version on success", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, sub))

		sub.PlanID = "pro"
		require.NoError(t, store.Update(ctx, sub, 1))
		assert.Equal(t, int64(2), sub.Version)

		got, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "pro", got.PlanID)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, sub))

		fresh := *sub
		require.NoError(t, store.Update(ctx, &fresh, 1))

		stale := *sub
		err := store.Update(ctx, &stale, 1)
		assert.ErrorIs(t, err, subscription.ErrVersionMismatch)
	})

	t.Run("reactivation cannot steal an occupied user slot", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		userID := uuid.New()

		first := newStoredSubscription(userID)
		require.NoError(t, store.Create(ctx, first))

		first.Status = subscription.StatusExpired
		require.NoError(t, store.Update(ctx, first, 1))

		second := newStoredSubscription(userID)
		require.NoError(t, store.Create(ctx, second))

		first.Status = subscription.StatusActive
		err := store.Update(ctx, first, 2)
		assert.ErrorIs(t, err, subscription.ErrAlreadySubscribed)

		// The newer record keeps the slot and the old one is untouched.
		got, err := store.FindActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		old, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, old.Status)
		assert.Equal(t, int64(2), old.Version)
	})

	t.Run("rejects a deleted record", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := newStoredSubscription(uuid.New())
		err := store.Update(ctx, sub, 1)
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}

func TestMemoryStore_Lookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("finds the user's operable subscription", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		userID := uuid.New()
		sub := newStoredSubscription(userID)
		require.NoError(t, store.Create(ctx, sub))

		got, err := store.FindActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)

		sub.Status = subscription.StatusExpired
		require.NoError(t, store.Update(ctx, sub, 1))

		_, err = store.FindActiveByUser(ctx, userID)
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("external ID survives terminal states", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		sub := newStoredSubscription(uuid.New())
		sub.PaymentRef.ExternalSubscriptionID = "sub_ext_store"
		require.NoError(t, store.Create(ctx, sub))

		sub.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, sub, 1))

		got, err := store.FindByExternalID(ctx, "sub_ext_store")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("trial flag is sticky", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()
		userID := uuid.New()
		sub := newStoredSubscription(userID)
		sub.Status = subscription.StatusTrial
		sub.IsTrialUsed = true
		require.NoError(t, store.Create(ctx, sub))

		sub.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, sub, 1))

		used, err := store.TrialUsed(ctx, userID)
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("lists only due active records", func(t *testing.T) {
		t.Parallel()

		store := subscription.NewMemoryStore()

		due := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, due))

		fresh := newStoredSubscription(uuid.New())
		fresh.EndDate = testEpoch.AddDate(0, 2, 0)
		require.NoError(t, store.Create(ctx, fresh))

		canceled := newStoredSubscription(uuid.New())
		canceled.Status = subscription.StatusCanceled
		require.NoError(t, store.Create(ctx, canceled))

		listed, err := store.ListDue(ctx, due.EndDate.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, due.ID, listed[0].ID)
	})
}
