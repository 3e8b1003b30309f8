// Package storetest provides an in-memory store.Store/store.Tx fake
// used to drive the reconciler's algorithmic and property-based tests
// without a real database, per SPEC_FULL.md's test-tooling section.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

// FakeStore is a single-writer in-memory store.Store. It enforces the
// same (email, phone, linkedId) uniqueness the real schema does, so an
// insert that would conflict there fails with UniqueConflict here too.
type FakeStore struct {
	mu       sync.Mutex
	rows     map[int64]*domain.Contact
	nextID   int64
	nextTime time.Time
}

// New builds an empty FakeStore. Rows get synthetic, strictly
// increasing CreatedAt timestamps starting at base so seniority
// ordering is deterministic in tests.
func New(base time.Time) *FakeStore {
	return &FakeStore{rows: make(map[int64]*domain.Contact), nextID: 1, nextTime: base}
}

func (s *FakeStore) Ping(ctx context.Context) error { return nil }
func (s *FakeStore) Close() error                   { return nil }

func (s *FakeStore) Begin(ctx context.Context, maxWait time.Duration) (store.Tx, error) {
	s.mu.Lock()
	return &fakeTx{store: s}, nil
}

// fakeTx holds FakeStore.mu for its lifetime, modeling serializable
// isolation as "one attempt at a time" — sufficient for the
// single-threaded tests that use this fake.
type fakeTx struct {
	store  *FakeStore
	closed bool
}

func (t *fakeTx) Commit() error {
	t.close()
	return nil
}

func (t *fakeTx) Rollback() error {
	t.close()
	return nil
}

func (t *fakeTx) close() {
	if !t.closed {
		t.closed = true
		t.store.mu.Unlock()
	}
}

func (t *fakeTx) FindLiveMatching(ctx context.Context, email, phone *string) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range t.store.live() {
		if (email != nil && c.Email != nil && *c.Email == *email) ||
			(phone != nil && c.Phone != nil && *c.Phone == *phone) {
			out = append(out, clone(c))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (t *fakeTx) FindLiveByIDs(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []*domain.Contact
	for _, c := range t.store.live() {
		if set[c.ID] {
			out = append(out, clone(c))
		}
	}
	sortByCreatedAtThenID(out)
	return out, nil
}

func (t *fakeTx) FindLiveGroup(ctx context.Context, primaryID int64) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range t.store.live() {
		if c.ID == primaryID || (c.LinkedID != nil && *c.LinkedID == primaryID) {
			out = append(out, clone(c))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (t *fakeTx) InsertContact(ctx context.Context, email, phone *string, linkedID *int64, precedence domain.Precedence) (*domain.Contact, error) {
	// Like the real unique index, a NULL in any column never conflicts.
	for _, c := range t.store.live() {
		if email != nil && phone != nil && linkedID != nil &&
			sameOptString(c.Email, email) && sameOptString(c.Phone, phone) && sameOptInt64(c.LinkedID, linkedID) {
			return nil, domain.NewError(domain.KindUniqueConflict, "duplicate (email, phone, linkedId)", nil)
		}
	}

	now := t.store.tick()
	c := &domain.Contact{
		ID: t.store.nextID, Email: email, Phone: phone, LinkedID: linkedID,
		Precedence: precedence, CreatedAt: now, UpdatedAt: now,
	}
	t.store.nextID++
	t.store.rows[c.ID] = c
	return clone(c), nil
}

func (t *fakeTx) Demote(ctx context.Context, id int64, linkedID int64) error {
	c, ok := t.store.rows[id]
	if !ok || c.DeletedAt != nil {
		return domain.NewError(domain.KindInvariantBroken, "demote target is not a live row", nil)
	}
	c.Precedence = domain.PrecedenceSecondary
	c.LinkedID = &linkedID
	c.UpdatedAt = t.store.tick()
	return nil
}

func (t *fakeTx) RelinkChildren(ctx context.Context, fromLinkedID, toLinkedID int64) (int64, error) {
	var n int64
	for _, c := range t.store.live() {
		if c.LinkedID != nil && *c.LinkedID == fromLinkedID {
			c.LinkedID = &toLinkedID
			c.UpdatedAt = t.store.tick()
			n++
		}
	}
	return n, nil
}

func (s *FakeStore) live() []*domain.Contact {
	out := make([]*domain.Contact, 0, len(s.rows))
	for _, c := range s.rows {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out
}

func (s *FakeStore) tick() time.Time {
	t := s.nextTime
	s.nextTime = s.nextTime.Add(time.Millisecond)
	return t
}

// Rows exposes a stable snapshot for assertions, sorted by id.
func (s *FakeStore) Rows() []*domain.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Contact, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, clone(c))
	}
	sortByID(out)
	return out
}

func clone(c *domain.Contact) *domain.Contact {
	cp := *c
	return &cp
}

func sameOptString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameOptInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
