// Package reconcile merges the status-filtered result sets returned by the
// backend into one deduplicated list and splits it into display buckets.
// Every function here is pure: results in, results out.
package reconcile

import (
	"strings"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// ResultSet is the outcome of one listing request. A set with OK=false is
// treated as empty.
type ResultSet struct {
	Records []model.Circular
	OK      bool
}

// Succeeded wraps records from a successful fetch.
func Succeeded(records []model.Circular) ResultSet {
	return ResultSet{Records: records, OK: true}
}

// Failed is the empty stand-in for a fetch that errored.
func Failed() ResultSet {
	return ResultSet{}
}

// Buckets are the three disjoint display groups.
type Buckets struct {
	Pending  []model.Circular
	Approved []model.Circular
	Rejected []model.Circular
}

// Len returns the total number of records across buckets.
func (b Buckets) Len() int {
	return len(b.Pending) + len(b.Approved) + len(b.Rejected)
}

// Merge concatenates pending, approved and rejected results in that order,
// keeping only the first copy of each identifier. Records from the pending
// set that carry no status are marked pending.
func Merge(pending, approved, rejected ResultSet) []model.Circular {
	total := len(pending.Records) + len(approved.Records) + len(rejected.Records)
	merged := make([]model.Circular, 0, total)
	seen := make(map[string]struct{}, total)
	appendSet := func(set ResultSet, defaultStatus model.Status) {
		if !set.OK {
			return
		}
		for _, rec := range set.Records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			if rec.Status == "" {
				rec.Status = defaultStatus
			}
			merged = append(merged, rec)
		}
	}
	// A status the pending set does carry is kept rather than forced to
	// pending: the user dashboard passes its own submissions in this slot and
	// those may already be approved or rejected.
	appendSet(pending, model.StatusPending)
	// Approved and rejected sets keep a missing status as is; Partition
	// routes it to the approved bucket.
	appendSet(approved, "")
	appendSet(rejected, "")
	return merged
}

// Partition splits records by status, preserving order within each bucket.
func Partition(records []model.Circular) Buckets {
	var b Buckets
	for _, rec := range records {
		switch rec.Bucket() {
		case model.StatusPending:
			b.Pending = append(b.Pending, rec)
		case model.StatusRejected:
			b.Rejected = append(b.Rejected, rec)
		default:
			b.Approved = append(b.Approved, rec)
		}
	}
	return b
}

// Reconcile merges the three result sets and partitions the outcome.
func Reconcile(pending, approved, rejected ResultSet) ([]model.Circular, Buckets) {
	merged := Merge(pending, approved, rejected)
	return merged, Partition(merged)
}

// Filter narrows records to a category (empty = all) and a case-insensitive
// query matched against title and description (blank = all).
func Filter(records []model.Circular, category model.Category, query string) []model.Circular {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Circular, 0, len(records))
	for _, rec := range records {
		if category != "" && rec.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(rec.Title), query) &&
			!strings.Contains(strings.ToLower(rec.Description), query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// CountByCategory tallies records per category. Every known category is
// present in the result, even with a zero count.
func CountByCategory(records []model.Circular) map[model.Category]int {
	counts := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = 0
	}
	for _, rec := range records {
		counts[rec.Category]++
	}
	return counts
}

// Without returns records minus the one with the given id.
func Without(records []model.Circular, id string) []model.Circular {
	out := make([]model.Circular, 0, len(records))
	for _, rec := range records {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	return out
}
