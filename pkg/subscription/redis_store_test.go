package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisconn "github.com/dmitrymomot/subkit/pkg/redis"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

func newRedisStore(t *testing.T) *subscription.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisconn.Connect(context.Background(), redisconn.Config{
		ConnectionURL:  "redis://" + mr.Addr(),
		RetryAttempts:  1,
		RetryInterval:  time.Millisecond,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return subscription.NewRedisStore(client)
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round-trips a record", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		sub := newStoredSubscription(uuid.New())
		sub.PaymentRef.ExternalSubscriptionID = "sub_ext_redis"

		require.NoError(t, store.Create(ctx, sub))
		assert.Equal(t, int64(1), sub.Version)

		got, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, sub.UserID, got.UserID)
		assert.Equal(t, subscription.StatusActive, got.Status)
		assert.Equal(t, "sub_ext_redis", got.PaymentRef.ExternalSubscriptionID)
		assert.True(t, sub.EndDate.Equal(got.EndDate))
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("missing record returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("one operable subscription per user", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		userID := uuid.New()

		require.NoError(t, store.Create(ctx, newStoredSubscription(userID)))
		err := store.Create(ctx, newStoredSubscription(userID))
		assert.ErrorIs(t, err, subscription.ErrAlreadySubscribed)
	})

	t.Run("failed record write does not lock the user out", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := redisconn.Connect(context.Background(), redisconn.Config{
			ConnectionURL:  "redis://" + mr.Addr(),
			RetryAttempts:  1,
			RetryInterval:  time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		store := subscription.NewRedisStore(client)

		userID := uuid.New()
		poisoned := newStoredSubscription(userID)
		// A clashing string where the record hash belongs makes the write fail.
		require.NoError(t, mr.Set("subscription:rec:"+poisoned.ID.String(), "clash"))

		require.Error(t, store.Create(ctx, poisoned))

		// The failed create must not have claimed the user slot.
		assert.NoError(t, store.Create(ctx, newStoredSubscription(userID)))
	})
}

func TestRedisStore_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("swaps only on a matching version", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		sub := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, sub))

		fresh := *sub
		fresh.PlanID = "pro"
		require.NoError(t, store.Update(ctx, &fresh, 1))
		assert.Equal(t, int64(2), fresh.Version)

		stale := *sub
		stale.PlanID = "lifetime"
		err := store.Update(ctx, &stale, 1)
		assert.ErrorIs(t, err, subscription.ErrVersionMismatch)

		got, err := store.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "pro", got.PlanID)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("missing record returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		err := store.Update(ctx, newStoredSubscription(uuid.New()), 1)
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("reactivation cannot steal an occupied user slot", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
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

		got, err := store.FindActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		old, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, old.Status)
		assert.Equal(t, int64(2), old.Version)
	})

	t.Run("terminal update frees the user slot", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		userID := uuid.New()
		sub := newStoredSubscription(userID)
		require.NoError(t, store.Create(ctx, sub))

		sub.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, sub, 1))

		_, err := store.FindActiveByUser(ctx, userID)
		assert.ErrorIs(t, err, subscription.ErrNotFound)

		assert.NoError(t, store.Create(ctx, newStoredSubscription(userID)))
	})
}

func TestRedisStore_Lookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("resolves by external ID after cancellation", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		sub := newStoredSubscription(uuid.New())
		sub.PaymentRef.ExternalSubscriptionID = "sub_ext_keep"
		require.NoError(t, store.Create(ctx, sub))

		sub.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, sub, 1))

		got, err := store.FindByExternalID(ctx, "sub_ext_keep")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("trial flag is sticky", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		userID := uuid.New()

		used, err := store.TrialUsed(ctx, userID)
		require.NoError(t, err)
		assert.False(t, used)

		sub := newStoredSubscription(userID)
		sub.Status = subscription.StatusTrial
		sub.IsTrialUsed = true
		require.NoError(t, store.Create(ctx, sub))

		sub.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, sub, 1))

		used, err = store.TrialUsed(ctx, userID)
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("lists only due active records", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)

		due := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, due))

		fresh := newStoredSubscription(uuid.New())
		fresh.EndDate = testEpoch.AddDate(0, 2, 0)
		require.NoError(t, store.Create(ctx, fresh))

		canceled := newStoredSubscription(uuid.New())
		require.NoError(t, store.Create(ctx, canceled))
		canceled.Status = subscription.StatusCanceled
		require.NoError(t, store.Update(ctx, canceled, 1))

		listed, err := store.ListDue(ctx, due.EndDate.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, due.ID, listed[0].ID)
	})
}

func TestRedisStore_WorksWithService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newRedisStore(t)
	svc := subscription.NewService(newTestCatalog(t), new(mockProvider), store,
		subscription.WithClock(func() time.Time { return testEpoch }))

	userID := uuid.New()
	sub, err := svc.Subscribe(ctx, userID, "free", subscription.SubscribeOptions{})
	require.NoError(t, err)

	renewed, err := svc.Renew(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.EndDate.AddDate(0, 1, 0).Unix(), renewed.EndDate.Unix())

	canceled, err := svc.Cancel(ctx, sub.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, canceled.Status)

	status, err := svc.GetStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.HasActive)
}

func TestNewRedisStore_RequiresClient(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		subscription.NewRedisStore(nil)
	})
}
