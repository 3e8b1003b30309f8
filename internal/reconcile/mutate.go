package reconcile

import (
	"context"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

// mutator is the only writer, per spec.md §4.4 — a thin wrapper over
// store.Tx that names the three operations the reconciler issues and
// is the single place UniqueConflict is allowed to surface from.
type mutator struct {
	tx store.Tx
}

func (m *mutator) createPrimary(ctx context.Context, email, phone *string) (*domain.Contact, error) {
	return m.tx.InsertContact(ctx, email, phone, nil, domain.PrecedencePrimary)
}

func (m *mutator) attachSecondary(ctx context.Context, survivorID int64, email, phone *string) (*domain.Contact, error) {
	return m.tx.InsertContact(ctx, email, phone, &survivorID, domain.PrecedenceSecondary)
}

func (m *mutator) demoteAndRelink(ctx context.Context, loserID, survivorID int64) error {
	if err := m.tx.Demote(ctx, loserID, survivorID); err != nil {
		return err
	}
	_, err := m.tx.RelinkChildren(ctx, loserID, survivorID)
	return err
}
