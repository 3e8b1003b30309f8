// Package store is the core's narrow south-bound interface onto a
// transactional relational store, per spec.md §6.1.
package store

import (
	"context"
	"time"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

// Store opens transactions and provides a liveness probe. It holds no
// per-reconciliation state; the reconciler constructs one Tx per
// attempt.
type Store interface {
	// Begin starts a serializable transaction. maxWait bounds how long
	// Begin itself may block acquiring a connection/starting the
	// transaction; exceeding it surfaces domain.KindTimeout.
	Begin(ctx context.Context, maxWait time.Duration) (Tx, error)

	// Ping is the liveness probe of spec.md §6.1, used by health
	// checks — never called by the reconciler itself.
	Ping(ctx context.Context) error

	Close() error
}

// Tx is one transactional attempt's view of the store, per the
// operation table in spec.md §6.1.
type Tx interface {
	// FindLiveMatching returns live contacts matching email OR phone,
	// ordered by createdAt ASC. A nil field drops that disjunct.
	FindLiveMatching(ctx context.Context, email, phone *string) ([]*domain.Contact, error)

	// FindLiveByIDs batch-fetches live contacts by id, ordered by
	// createdAt ASC then id ASC.
	FindLiveByIDs(ctx context.Context, ids []int64) ([]*domain.Contact, error)

	// FindLiveGroup returns the primary plus all its live secondaries,
	// ordered by createdAt ASC.
	FindLiveGroup(ctx context.Context, primaryID int64) ([]*domain.Contact, error)

	// InsertContact inserts a new row. May fail with
	// domain.KindUniqueConflict on the (email, phone, linkedId) index.
	InsertContact(ctx context.Context, email, phone *string, linkedID *int64, precedence domain.Precedence) (*domain.Contact, error)

	// Demote flips a primary into a secondary of linkedID. Rejects
	// (domain.KindInvariantBroken) if id is not a live row.
	Demote(ctx context.Context, id int64, linkedID int64) error

	// RelinkChildren bulk-updates every live secondary whose linkedId
	// is fromLinkedID to point at toLinkedID instead, returning the
	// number of rows touched.
	RelinkChildren(ctx context.Context, fromLinkedID, toLinkedID int64) (int64, error)

	Commit() error
	Rollback() error
}
