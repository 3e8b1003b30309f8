package reconcile

import (
	"sort"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

// buildResponse implements spec.md §4.5's strict ordering and dedup
// rules: group is the survivor plus its live secondaries, in any order
// — this function sorts secondaries by (createdAt ASC, id ASC) itself
// so callers don't have to guarantee ordering.
func buildResponse(survivorID int64, group []*domain.Contact) *domain.ConsolidatedContact {
	var survivor *domain.Contact
	secondaries := make([]*domain.Contact, 0, len(group))
	for _, c := range group {
		if c.ID == survivorID {
			survivor = c
			continue
		}
		secondaries = append(secondaries, c)
	}

	sort.Slice(secondaries, func(i, j int) bool {
		if !secondaries[i].CreatedAt.Equal(secondaries[j].CreatedAt) {
			return secondaries[i].CreatedAt.Before(secondaries[j].CreatedAt)
		}
		return secondaries[i].ID < secondaries[j].ID
	})

	resp := &domain.ConsolidatedContact{
		PrimaryContactID:    survivorID,
		Emails:              []string{},
		PhoneNumbers:        []string{},
		SecondaryContactIDs: make([]int64, 0, len(secondaries)),
	}

	emailSeen := make(map[string]bool)
	phoneSeen := make(map[string]bool)

	addEmail := func(e *string) {
		if e == nil || emailSeen[*e] {
			return
		}
		emailSeen[*e] = true
		resp.Emails = append(resp.Emails, *e)
	}
	addPhone := func(p *string) {
		if p == nil || phoneSeen[*p] {
			return
		}
		phoneSeen[*p] = true
		resp.PhoneNumbers = append(resp.PhoneNumbers, *p)
	}

	if survivor != nil {
		addEmail(survivor.Email)
		addPhone(survivor.Phone)
	}

	for _, s := range secondaries {
		addEmail(s.Email)
		addPhone(s.Phone)
		resp.SecondaryContactIDs = append(resp.SecondaryContactIDs, s.ID)
	}

	return resp
}
