package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation for tests and
// single-process deployments. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]Subscription
	byUser     map[uuid.UUID]uuid.UUID // users with a trial/active subscription
	byExternal map[string]uuid.UUID
	trialUsed  map[uuid.UUID]bool // sticky, survives record state changes
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[uuid.UUID]Subscription),
		byUser:     make(map[uuid.UUID]uuid.UUID),
		byExternal: make(map[string]uuid.UUID),
		trialUsed:  make(map[uuid.UUID]bool),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (s *MemoryStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	sub := s.records[id]
	return &sub, nil
}

func (s *MemoryStore) FindByExternalID(ctx context.Context, externalID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byExternal[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	sub := s.records[id]
	return &sub, nil
}

func (s *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One trial/active subscription per user, enforced under the same lock
	// that inserts the record so concurrent subscribes cannot both pass.
	if _, exists := s.byUser[sub.UserID]; exists {
		return ErrAlreadySubscribed
	}

	stored := *sub
	stored.Version = 1
	s.records[stored.ID] = stored
	s.index(stored)

	sub.Version = stored.Version
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, sub *Subscription, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[sub.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionMismatch
	}

	stored := *sub
	stored.Version = expectedVersion + 1

	// A reactivating update (grace-period renew, payment_succeeded on a
	// demoted record) must re-claim the user slot; if another record has
	// taken it since, letting the write through would leave the user with
	// two operable subscriptions.
	if stored.IsOperable() {
		if owner, taken := s.byUser[stored.UserID]; taken && owner != stored.ID {
			return ErrAlreadySubscribed
		}
	}
	s.records[stored.ID] = stored
	s.unindex(current)
	s.index(stored)

	sub.Version = stored.Version
	return nil
}

func (s *MemoryStore) ListDue(ctx context.Context, now time.Time) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*Subscription
	for _, sub := range s.records {
		if sub.Status == StatusActive && sub.IsDue(now) {
			subCopy := sub
			due = append(due, &subCopy)
		}
	}
	return due, nil
}

func (s *MemoryStore) TrialUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trialUsed[userID], nil
}

// index registers the record in the secondary indexes. Caller holds the lock.
func (s *MemoryStore) index(sub Subscription) {
	if sub.IsOperable() {
		s.byUser[sub.UserID] = sub.ID
	}
	if sub.PaymentRef.ExternalSubscriptionID != "" {
		s.byExternal[sub.PaymentRef.ExternalSubscriptionID] = sub.ID
	}
	if sub.IsTrialUsed {
		s.trialUsed[sub.UserID] = true
	}
}

// unindex removes stale index entries before re-indexing an updated record.
// The external-ID and trial-used entries are deliberately retained: provider
// events may arrive for terminal records, and the trial flag is sticky.
func (s *MemoryStore) unindex(sub Subscription) {
	if id, ok := s.byUser[sub.UserID]; ok && id == sub.ID {
		delete(s.byUser, sub.UserID)
	}
}
