package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/reconcile"
	"github.com/bitespeed/identity-reconciler/internal/storetest"
)

func sp(s string) *string { return &s }

func newReconciler() (*reconcile.Reconciler, *storetest.FakeStore) {
	fs := storetest.New(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return reconcile.New(fs, 5*time.Second, 10*time.Second, nil), fs
}

// Scenario 1: new customer.
func TestNewCustomer(t *testing.T) {
	r, _ := newReconciler()

	resp, err := r.Reconcile(context.Background(), domain.Request{
		Email: sp("doc@hv.edu"), Phone: sp("555-0100"),
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, resp.PrimaryContactID)
	assert.Equal(t, []string{"doc@hv.edu"}, resp.Emails)
	assert.Equal(t, []string{"555-0100"}, resp.PhoneNumbers)
	assert.Empty(t, resp.SecondaryContactIDs)
}

// Scenario 2: attach new email to known phone.
func TestAttachNewEmailToKnownPhone(t *testing.T) {
	r, _ := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("doc@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)

	resp, err := r.Reconcile(ctx, domain.Request{Email: sp("marty@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)

	assert.EqualValues(t, 1, resp.PrimaryContactID)
	assert.Equal(t, []string{"doc@hv.edu", "marty@hv.edu"}, resp.Emails)
	assert.Equal(t, []string{"555-0100"}, resp.PhoneNumbers)
	assert.Equal(t, []int64{2}, resp.SecondaryContactIDs)
}

// Scenario 3: idempotent replay — P4/P5.
func TestIdempotentReplay(t *testing.T) {
	r, fs := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("doc@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)
	first, err := r.Reconcile(ctx, domain.Request{Email: sp("marty@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)

	rowsBefore := fs.Rows()
	second, err := r.Reconcile(ctx, domain.Request{Email: sp("marty@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, rowsBefore, fs.Rows())
}

// Scenario 4: merge two primaries.
func TestMergeTwoPrimaries(t *testing.T) {
	r, fs := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("george@hv.edu"), Phone: sp("919191")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("biff@hv.edu"), Phone: sp("717171")})
	require.NoError(t, err)

	resp, err := r.Reconcile(ctx, domain.Request{Email: sp("george@hv.edu"), Phone: sp("717171")})
	require.NoError(t, err)

	assert.EqualValues(t, 1, resp.PrimaryContactID)
	assert.ElementsMatch(t, []string{"george@hv.edu", "biff@hv.edu"}, resp.Emails)
	assert.ElementsMatch(t, []string{"919191", "717171"}, resp.PhoneNumbers)
	assert.Contains(t, resp.SecondaryContactIDs, int64(2))

	livePrimaries := 0
	for _, c := range fs.Rows() {
		if c.IsPrimary() {
			livePrimaries++
		}
	}
	assert.Equal(t, 1, livePrimaries)
}

// Scenario 5: triangular cascade.
func TestTriangularCascade(t *testing.T) {
	r, fs := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("a"), Phone: sp("111")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("b"), Phone: sp("222")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("c"), Phone: sp("333")})
	require.NoError(t, err)

	_, err = r.Reconcile(ctx, domain.Request{Email: sp("a"), Phone: sp("222")})
	require.NoError(t, err)

	final, err := r.Reconcile(ctx, domain.Request{Email: sp("c"), Phone: sp("111")})
	require.NoError(t, err)

	assert.EqualValues(t, 1, final.PrimaryContactID)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, final.Emails)
	assert.ElementsMatch(t, []string{"111", "222", "333"}, final.PhoneNumbers)
	assert.Len(t, final.SecondaryContactIDs, 2)

	livePrimaries := 0
	for _, c := range fs.Rows() {
		if c.IsPrimary() {
			livePrimaries++
		}
	}
	assert.Equal(t, 1, livePrimaries)
}

// Scenario 6: phone-only query after mixed population.
func TestPhoneOnlyQuery(t *testing.T) {
	r, _ := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("primary@t"), Phone: sp("100")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("secondary@t"), Phone: sp("100")})
	require.NoError(t, err)

	resp, err := r.Reconcile(ctx, domain.Request{Phone: sp("100")})
	require.NoError(t, err)

	assert.Equal(t, []string{"primary@t", "secondary@t"}, resp.Emails)
	assert.Equal(t, []string{"100"}, resp.PhoneNumbers)
	assert.Equal(t, []int64{2}, resp.SecondaryContactIDs)
}

// P1/P3: depth-one and seniority hold after a merge.
func TestInvariantsAfterMerge(t *testing.T) {
	r, fs := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("x1"), Phone: sp("1")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("x2"), Phone: sp("2")})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("x1"), Phone: sp("2")})
	require.NoError(t, err)

	byID := make(map[int64]*domain.Contact)
	for _, c := range fs.Rows() {
		byID[c.ID] = c
	}

	for _, c := range byID {
		if c.Precedence == domain.PrecedenceSecondary {
			parent, ok := byID[*c.LinkedID]
			require.True(t, ok)
			assert.True(t, parent.IsPrimary(), "secondary must point directly at a primary (depth-one)")
			assert.False(t, parent.CreatedAt.After(c.CreatedAt), "primary must not be senior-violating")
		}
	}
}

// InvalidPrecondition: both fields absent.
func TestBothAbsentIsInvalidPrecondition(t *testing.T) {
	r, _ := newReconciler()
	_, err := r.Reconcile(context.Background(), domain.Request{})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidPrecondition, domain.KindOf(err))
}

// Exact duplicate of a single-row store is a no-op (P5).
func TestExactDuplicateIsNoOp(t *testing.T) {
	r, fs := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, domain.Request{Email: sp("doc@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)

	before := fs.Rows()
	_, err = r.Reconcile(ctx, domain.Request{Email: sp("doc@hv.edu"), Phone: sp("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, before, fs.Rows())
}
