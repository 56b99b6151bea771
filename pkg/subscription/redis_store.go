package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store implementation. The version check and
// the one-operable-per-user gate run inside Lua scripts so record swaps and
// user-slot ownership are atomic; the remaining secondary indexes (external
// ID, trial flag, due set) are refreshed right after a successful swap and
// may trail it briefly, which readers tolerate by re-checking the record
// they resolve.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// createScript checks the one-operable-per-user gate and writes the record
// in one atomic step, claiming the user slot only after the record write
// succeeded so a failed write cannot strand a dangling user-index key.
// Returns 1 on success, 0 when the user already holds a subscription.
// KEYS: record, user index. ARGV: data, version, record ID, operable flag.
var createScript = redis.NewScript(`
if ARGV[4] == '1' and redis.call('EXISTS', KEYS[2]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'version', ARGV[2])
if ARGV[4] == '1' then
	redis.call('SET', KEYS[2], ARGV[3])
end
return 1
`)

// casScript swaps the record only if the stored version matches, and moves
// the user slot in the same atomic step: an update that makes the record
// operable must own the slot or find it free, anything else would let a
// grace-period renew or a payment reactivation create a second operable
// subscription for the user. Returns 1 on success, 0 on version mismatch,
// -1 when the record is gone, -2 when another record owns the user slot.
// KEYS: record, user index.
// ARGV: expected version, data, new version, record ID, operable flag.
var casScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], 'version')
if not v then return -1 end
if v ~= ARGV[1] then return 0 end
local owner = redis.call('GET', KEYS[2])
if ARGV[5] == '1' then
	if owner and owner ~= ARGV[4] then return -2 end
	redis.call('SET', KEYS[2], ARGV[4])
elseif owner == ARGV[4] then
	redis.call('DEL', KEYS[2])
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'version', ARGV[3])
return 1
`)

// NewRedisStore creates a Store backed by the given Redis client.
// Panics if client is nil to fail fast during initialization.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("subscription: redis client is required")
	}
	return &RedisStore{client: client, prefix: "subscription"}
}

func (s *RedisStore) recordKey(id uuid.UUID) string {
	return s.prefix + ":rec:" + id.String()
}

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return s.prefix + ":user:" + userID.String()
}

func (s *RedisStore) externalKey(externalID string) string {
	return s.prefix + ":ext:" + externalID
}

func (s *RedisStore) trialKey(userID uuid.UUID) string {
	return s.prefix + ":trial:" + userID.String()
}

func (s *RedisStore) dueKey() string {
	return s.prefix + ":due"
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	return s.load(ctx, s.recordKey(id))
}

func (s *RedisStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	id, err := s.resolve(ctx, s.userKey(userID))
	if err != nil {
		return nil, err
	}

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// The index may trail a just-terminated subscription.
	if !sub.IsOperable() {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (s *RedisStore) FindByExternalID(ctx context.Context, externalID string) (*Subscription, error) {
	id, err := s.resolve(ctx, s.externalKey(externalID))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Create(ctx context.Context, sub *Subscription) error {
	stored := *sub
	stored.Version = 1

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{s.recordKey(stored.ID), s.userKey(stored.UserID)},
		data,
		strconv.FormatInt(stored.Version, 10),
		stored.ID.String(),
		operableFlag(stored),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}
	if res == 0 {
		return ErrAlreadySubscribed
	}

	pipe := s.client.TxPipeline()
	s.writeIndexes(ctx, pipe, stored)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write subscription indexes: %w", err)
	}

	sub.Version = stored.Version
	return nil
}

func (s *RedisStore) Update(ctx context.Context, sub *Subscription, expectedVersion int64) error {
	stored := *sub
	stored.Version = expectedVersion + 1

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	res, err := casScript.Run(ctx, s.client,
		[]string{s.recordKey(stored.ID), s.userKey(stored.UserID)},
		strconv.FormatInt(expectedVersion, 10),
		data,
		strconv.FormatInt(stored.Version, 10),
		stored.ID.String(),
		operableFlag(stored),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to swap subscription record: %w", err)
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrVersionMismatch
	case -2:
		return ErrAlreadySubscribed
	}

	pipe := s.client.TxPipeline()
	s.writeIndexes(ctx, pipe, stored)
	if stored.Status != StatusActive {
		pipe.ZRem(ctx, s.dueKey(), stored.ID.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh subscription indexes: %w", err)
	}

	sub.Version = stored.Version
	return nil
}

func (s *RedisStore) ListDue(ctx context.Context, now time.Time) ([]*Subscription, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.dueKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due subscriptions: %w", err)
	}

	var due []*Subscription
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		sub, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// Re-check against the record: the due set may trail updates.
		if sub.Status == StatusActive && sub.IsDue(now) {
			due = append(due, sub)
		}
	}
	return due, nil
}

func (s *RedisStore) TrialUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := s.client.Exists(ctx, s.trialKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check trial flag: %w", err)
	}
	return res > 0, nil
}

func (s *RedisStore) load(ctx context.Context, key string) (*Subscription, error) {
	vals, err := s.client.HMGet(ctx, key, "data", "version").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, ErrNotFound
	}

	var sub Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	if v, ok := vals[1].(string); ok {
		if version, err := strconv.ParseInt(v, 10, 64); err == nil {
			sub.Version = version
		}
	}
	return &sub, nil
}

func (s *RedisStore) resolve(ctx context.Context, indexKey string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve subscription index: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

// operableFlag encodes whether the record may hold the user slot, for the
// Lua scripts.
func operableFlag(sub Subscription) string {
	if sub.IsOperable() {
		return "1"
	}
	return "0"
}

// writeIndexes registers the shared secondary indexes for a record.
// External-ID and trial entries are sticky: provider events may arrive for
// terminal records, and a consumed trial never comes back.
func (s *RedisStore) writeIndexes(ctx context.Context, pipe redis.Pipeliner, sub Subscription) {
	if sub.PaymentRef.ExternalSubscriptionID != "" {
		pipe.Set(ctx, s.externalKey(sub.PaymentRef.ExternalSubscriptionID), sub.ID.String(), 0)
	}
	if sub.IsTrialUsed {
		pipe.Set(ctx, s.trialKey(sub.UserID), "1", 0)
	}
	if sub.Status == StatusActive {
		pipe.ZAdd(ctx, s.dueKey(), redis.Z{Score: float64(sub.EndDate.Unix()), Member: sub.ID.String()})
	}
}
