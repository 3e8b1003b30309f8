// Package reconcile implements the reconciliation core of spec.md §4:
// the orchestrator plus its four collaborating stages (match resolver,
// merge planner, mutator, response builder) over a narrow store.Tx.
package reconcile

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/logging"
	"github.com/bitespeed/identity-reconciler/internal/store"
)

// Reconciler is the orchestrator of spec.md §4.1: it runs a single
// transactional attempt, sequences the five stages, and decides the
// outcome, retrying once on a retryable error per spec.md §5/§7.
type Reconciler struct {
	store     store.Store
	maxWait   time.Duration
	txTimeout time.Duration
	log       logging.Logger
}

// New builds a Reconciler bound to s, bounding each attempt's
// transaction-acquire time by maxWait and total runtime by txTimeout,
// per spec.md §5.
func New(s store.Store, maxWait, txTimeout time.Duration, log logging.Logger) *Reconciler {
	return &Reconciler{store: s, maxWait: maxWait, txTimeout: txTimeout, log: log}
}

// Reconcile runs spec.md §4.1's stage sequence for req inside a single
// serializable transaction, retrying once from a fresh snapshot on a
// UniqueConflict or Serialization error.
func (r *Reconciler) Reconcile(ctx context.Context, req domain.Request) (*domain.ConsolidatedContact, error) {
	if req.Email == nil && req.Phone == nil {
		return nil, domain.NewError(domain.KindInvalidPrecondition, "email or phone is required", nil)
	}

	var result *domain.ConsolidatedContact

	err := retry.Do(
		func() error {
			res, err := r.attempt(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(2),
		retry.RetryIf(domain.Retryable),
		retry.LastErrorOnly(true),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			if r.log != nil {
				r.log.WithField("attempt", n+1).Warn("retrying reconciliation: " + err.Error())
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attempt runs stages 1-5 of spec.md §4.1 inside one fresh transaction.
func (r *Reconciler) attempt(ctx context.Context, req domain.Request) (*domain.ConsolidatedContact, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	tx, err := r.store.Begin(attemptCtx, r.maxWait)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := run(attemptCtx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return result, nil
}

// run is the pure stage sequence of spec.md §4.1, given an open
// transaction. It is split out from attempt so it never has to reason
// about commit/rollback itself.
func run(ctx context.Context, tx store.Tx, req domain.Request) (*domain.ConsolidatedContact, error) {
	m := &mutator{tx: tx}

	matches, err := match(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	// Step 1: no match -> create a new primary and respond immediately.
	if len(matches) == 0 {
		primary, err := m.createPrimary(ctx, req.Email, req.Phone)
		if err != nil {
			return nil, err
		}
		return buildResponse(primary.ID, []*domain.Contact{primary}), nil
	}

	// Step 2: resolve the distinct primaries the matches reach.
	primaries, err := resolveRoots(ctx, tx, matches)
	if err != nil {
		return nil, err
	}
	survivor := primaries[0]

	// Step 3: merge any losers into the survivor.
	if err := planMerge(ctx, m, primaries); err != nil {
		return nil, err
	}

	// Step 4: re-read the full group and attach if the request carries
	// information not already present in it.
	group, err := tx.FindLiveGroup(ctx, survivor.ID)
	if err != nil {
		return nil, err
	}
	if hasNewInformation(group, req) {
		if _, err := m.attachSecondary(ctx, survivor.ID, req.Email, req.Phone); err != nil {
			return nil, err
		}
		group, err = tx.FindLiveGroup(ctx, survivor.ID)
		if err != nil {
			return nil, err
		}
	}

	// Step 5: respond.
	return buildResponse(survivor.ID, group), nil
}

// hasNewInformation reports whether req's email or phone is not already
// represented anywhere in group, per spec.md §4.1's attach edge cases:
// a request whose fields are both already known anywhere in the group
// — even paired differently across rows — carries no new information.
func hasNewInformation(group []*domain.Contact, req domain.Request) bool {
	emailSeen := make(map[string]bool)
	phoneSeen := make(map[string]bool)
	for _, c := range group {
		if c.Email != nil {
			emailSeen[*c.Email] = true
		}
		if c.Phone != nil {
			phoneSeen[*c.Phone] = true
		}
	}
	if req.Email != nil && !emailSeen[*req.Email] {
		return true
	}
	if req.Phone != nil && !phoneSeen[*req.Phone] {
		return true
	}
	return false
}
