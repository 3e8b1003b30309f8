package reconcile

import (
	"context"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

// planMerge implements spec.md §4.3: primaries is already sorted by
// (createdAt ASC, id ASC); primaries[0] is the survivor and every other
// entry is demoted to a secondary of the survivor, with its former
// children re-parented onto the survivor too. Losers are processed in
// ascending createdAt order, which the spec notes does not affect the
// final state since re-parenting is idempotent.
func planMerge(ctx context.Context, m *mutator, primaries []*domain.Contact) error {
	if len(primaries) < 2 {
		return nil
	}
	survivor := primaries[0]
	for _, loser := range primaries[1:] {
		if err := m.demoteAndRelink(ctx, loser.ID, survivor.ID); err != nil {
			return err
		}
	}
	return nil
}
