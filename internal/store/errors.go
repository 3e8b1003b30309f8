package store

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

// pgUniqueViolation and pgSerializationFailure are the Postgres SQLSTATE
// codes the adapter watches for (spec.md §9 Open Question 1 documents
// which NULL semantics the unique index gets: Postgres's default
// "NULLS DISTINCT", i.e. the permissive interpretation).
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

// classify maps a raw driver error into the typed domain error
// vocabulary of spec.md §7.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, op+" exceeded its deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewError(domain.KindStoreUnavailable, op+" canceled", err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return domain.NewError(domain.KindUniqueConflict, op+" violated content uniqueness", err)
		case pgSerializationFailure:
			return domain.NewError(domain.KindSerialization, op+" conflicted with a concurrent transaction", err)
		}
		return domain.NewError(domain.KindStoreUnavailable, op+" failed", err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint:
			return domain.NewError(domain.KindUniqueConflict, op+" violated content uniqueness", err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return domain.NewError(domain.KindSerialization, op+" conflicted with a concurrent transaction", err)
		}
		return domain.NewError(domain.KindStoreUnavailable, op+" failed", err)
	}

	return domain.NewError(domain.KindStoreUnavailable, op+" failed", err)
}
