package reconcile_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

func rec(id string, status model.Status) model.Circular {
	return model.Circular{ID: id, Title: "circular " + id, Status: status, Category: model.CategoryEducation}
}

func ids(records []model.Circular) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestMerge_PrecedenceOnDuplicateID(t *testing.T) {
	t.Run("should keep pending copy over approved and rejected", func(t *testing.T) {
		// given
		pending := reconcile.Succeeded([]model.Circular{rec("X", model.StatusPending)})
		approved := reconcile.Succeeded([]model.Circular{rec("X", model.StatusApproved), rec("A", model.StatusApproved)})
		rejected := reconcile.Succeeded([]model.Circular{rec("X", model.StatusRejected)})

		// when
		merged := reconcile.Merge(pending, approved, rejected)

		// then
		require.Equal(t, []string{"X", "A"}, ids(merged))
		require.Equal(t, model.StatusPending, merged[0].Status)
	})

	t.Run("should keep approved copy when pending set lacks the id", func(t *testing.T) {
		approved := reconcile.Succeeded([]model.Circular{rec("X", model.StatusApproved)})
		rejected := reconcile.Succeeded([]model.Circular{rec("X", model.StatusRejected)})

		merged := reconcile.Merge(reconcile.Succeeded(nil), approved, rejected)

		require.Len(t, merged, 1)
		require.Equal(t, model.StatusApproved, merged[0].Status)
	})

	t.Run("should fall through to rejected copy", func(t *testing.T) {
		rejected := reconcile.Succeeded([]model.Circular{rec("X", model.StatusRejected)})

		merged := reconcile.Merge(reconcile.Failed(), reconcile.Failed(), rejected)

		require.Len(t, merged, 1)
		require.Equal(t, model.StatusRejected, merged[0].Status)
	})
}

func TestMerge_FailedSetIsEmpty(t *testing.T) {
	// given
	pending := reconcile.ResultSet{Records: []model.Circular{rec("P", model.StatusPending)}, OK: false}
	approved := reconcile.Succeeded([]model.Circular{rec("A", "")})

	// when
	merged, buckets := reconcile.Reconcile(pending, approved, reconcile.Failed())

	// then
	require.Equal(t, []string{"A"}, ids(merged))
	require.Empty(t, buckets.Pending)
	require.Equal(t, []string{"A"}, ids(buckets.Approved))
}

func TestMerge_PendingSetDefaultsStatus(t *testing.T) {
	merged := reconcile.Merge(reconcile.Succeeded([]model.Circular{rec("P", "")}), reconcile.Failed(), reconcile.Failed())
	require.Equal(t, model.StatusPending, merged[0].Status)
}

func TestMerge_PendingSetKeepsDecidedStatus(t *testing.T) {
	// given submissions of one user, one of them already rejected
	mine := reconcile.Succeeded([]model.Circular{rec("S1", model.StatusRejected), rec("S2", "")})

	// when
	buckets := reconcile.Partition(reconcile.Merge(mine, reconcile.Failed(), reconcile.Failed()))

	// then
	require.Equal(t, []string{"S1"}, ids(buckets.Rejected))
	require.Equal(t, []string{"S2"}, ids(buckets.Pending))
}

func TestPartition_LegacyStatusLandsInApproved(t *testing.T) {
	// given
	records := []model.Circular{
		rec("1", model.StatusPending),
		rec("2", ""),
		rec("3", model.StatusRejected),
		rec("4", model.StatusApproved),
	}

	// when
	b := reconcile.Partition(records)

	// then
	require.Equal(t, []string{"1"}, ids(b.Pending))
	require.Equal(t, []string{"2", "4"}, ids(b.Approved))
	require.Equal(t, []string{"3"}, ids(b.Rejected))
}

func TestReconcile_RandomisedInputs(t *testing.T) {
	statuses := []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected, ""}
	pool := make([]string, 12)
	for i := range pool {
		pool[i] = uuid.NewString()
	}
	rnd := rand.New(rand.NewSource(42))
	randomSet := func() reconcile.ResultSet {
		n := rnd.Intn(len(pool))
		out := make([]model.Circular, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, rec(pool[rnd.Intn(len(pool))], statuses[rnd.Intn(len(statuses))]))
		}
		return reconcile.ResultSet{Records: out, OK: rnd.Intn(5) > 0}
	}

	for i := 0; i < 500; i++ {
		t.Run(fmt.Sprintf("round %d", i), func(t *testing.T) {
			pending, approved, rejected := randomSet(), randomSet(), randomSet()

			merged, b := reconcile.Reconcile(pending, approved, rejected)

			// no identifier twice
			seen := map[string]bool{}
			for _, r := range merged {
				require.False(t, seen[r.ID], "duplicate id %s", r.ID)
				seen[r.ID] = true
			}
			// buckets are exhaustive and disjoint
			require.Equal(t, len(merged), b.Len())
			inBucket := map[string]int{}
			for _, set := range [][]model.Circular{b.Pending, b.Approved, b.Rejected} {
				for _, r := range set {
					inBucket[r.ID]++
				}
			}
			for id := range seen {
				require.Equal(t, 1, inBucket[id])
			}
			// first-seen precedence
			for _, r := range merged {
				require.Equal(t, firstSeen(r.ID, pending, approved, rejected), r.Status)
			}
		})
	}
}

func firstSeen(id string, sets ...reconcile.ResultSet) model.Status {
	for i, set := range sets {
		if !set.OK {
			continue
		}
		for _, r := range set.Records {
			if r.ID != id {
				continue
			}
			if i == 0 && r.Status == "" {
				return model.StatusPending
			}
			return r.Status
		}
	}
	return "missing"
}

func TestFilter(t *testing.T) {
	records := []model.Circular{
		{ID: "1", Title: "Holiday Notice", Category: model.CategoryEducation},
		{ID: "2", Title: "Fire drill", Description: "annual HOLIDAY schedule", Category: model.CategoryFireDepartment},
		{ID: "3", Title: "Road closure", Category: model.CategoryTransport},
	}

	require.Equal(t, []string{"1", "2"}, ids(reconcile.Filter(records, "", "holiday")))
	require.Equal(t, []string{"2"}, ids(reconcile.Filter(records, model.CategoryFireDepartment, "  ")))
	require.Empty(t, reconcile.Filter(records, model.CategoryRevenue, ""))

	counts := reconcile.CountByCategory(records)
	require.Equal(t, 1, counts[model.CategoryTransport])
	require.Equal(t, 0, counts[model.CategoryRevenue])
}

func TestWithout(t *testing.T) {
	records := []model.Circular{rec("a", ""), rec("b", ""), rec("c", "")}
	require.Equal(t, []string{"a", "c"}, ids(reconcile.Without(records, "b")))
	require.Len(t, records, 3)
}
