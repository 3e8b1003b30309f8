package reconcile

import (
	"context"
	"sort"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

// match fetches the live contacts matching (email, phone) disjunctively
// (spec.md §4.2) and returns them ordered by createdAt ASC, as the
// store contract already guarantees.
func match(ctx context.Context, tx store.Tx, req domain.Request) ([]*domain.Contact, error) {
	return tx.FindLiveMatching(ctx, req.Email, req.Phone)
}

// resolveRoots collects the distinct primary ids reached by matches (a
// primary contributes its own id; a secondary contributes its
// LinkedID), fetches those primaries, and returns them sorted by
// (createdAt ASC, id ASC) per spec.md §4.1 step 2. The first is the
// survivor; the rest are losers.
func resolveRoots(ctx context.Context, tx store.Tx, matches []*domain.Contact) ([]*domain.Contact, error) {
	seen := make(map[int64]bool)
	var rootIDs []int64

	for _, c := range matches {
		var rootID int64
		switch {
		case c.IsPrimary():
			rootID = c.ID
		case c.LinkedID != nil:
			rootID = *c.LinkedID
		default:
			return nil, domain.NewError(domain.KindInvariantBroken,
				"secondary contact has no linkedId", nil)
		}
		if !seen[rootID] {
			seen[rootID] = true
			rootIDs = append(rootIDs, rootID)
		}
	}

	primaries, err := tx.FindLiveByIDs(ctx, rootIDs)
	if err != nil {
		return nil, err
	}
	if len(primaries) != len(rootIDs) {
		return nil, domain.NewError(domain.KindInvariantBroken,
			"a matched contact's linkedId does not reference a live row", nil)
	}
	for _, p := range primaries {
		if !p.IsPrimary() {
			return nil, domain.NewError(domain.KindInvariantBroken,
				"resolved root is not a primary", nil)
		}
	}

	sort.Slice(primaries, func(i, j int) bool {
		if !primaries[i].CreatedAt.Equal(primaries[j].CreatedAt) {
			return primaries[i].CreatedAt.Before(primaries[j].CreatedAt)
		}
		return primaries[i].ID < primaries[j].ID
	})

	return primaries, nil
}
