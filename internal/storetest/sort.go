package storetest

import (
	"sort"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

func sortByCreatedAt(cs []*domain.Contact) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.Before(cs[j].CreatedAt) })
}

func sortByCreatedAtThenID(cs []*domain.Contact) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

func sortByID(cs []*domain.Contact) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
