// Package release models registry version records and implements the
// candidate filtering and successor selection used during a rollback.
package release

import (
	"sort"
	"strings"

	"github.com/bookverse/apptrust-rollback/internal/semver"
)

// Status is a registry release status. Only StatusTrusted and
// StatusReleased make a record eligible for rollback or promotion.
type Status string

const (
	StatusTrusted  Status = "TRUSTED_RELEASE"
	StatusReleased Status = "RELEASED"
)

// ParseStatus normalizes a raw registry status value.
func ParseStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

// Eligible reports whether the status permits rollback and successor
// consideration.
func (s Status) Eligible() bool {
	return s == StatusTrusted || s == StatusReleased
}

// Tags and backup property keys on registry version records.
const (
	TagLatest     = "latest"
	TagQuarantine = "quarantine"

	// Backup properties hold the tag value immediately before it was
	// overwritten. Each run overwrites them; only the most recent
	// prior value is recoverable.
	PropBackupBeforeLatest     = "original_tag_before_latest"
	PropBackupBeforeQuarantine = "original_tag_before_quarantine"
)

// Record is one row of a registry version listing. Records are
// transient: every invocation rebuilds them from a fresh listing.
type Record struct {
	Version string
	Tag     string
	Status  Status
}

// Eligible filters a raw listing down to rollback candidates and
// orders them by descending version precedence. Records whose version
// string does not parse are kept, after all parseable ones, in their
// input order: the view never drops a record, only reorders.
func Eligible(records []Record) []Record {
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		// Status matching is case-insensitive regardless of how the
		// record was produced.
		if ParseStatus(string(r.Status)).Eligible() {
			filtered = append(filtered, r)
		}
	}

	versions := make([]string, len(filtered))
	for i, r := range filtered {
		versions[i] = r.Version
	}
	rank := make(map[string]int)
	for i, v := range semver.SortDescending(versions) {
		if _, seen := rank[v]; !seen {
			rank[v] = i
		}
	}

	ordered := make([]Record, 0, len(filtered))
	for _, r := range filtered {
		if _, ok := rank[r.Version]; ok {
			ordered = append(ordered, r)
		}
	}
	// Stable: input order breaks ties between duplicate rows of the
	// same version.
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Version] < rank[ordered[j].Version]
	})
	for _, r := range filtered {
		if _, ok := rank[r.Version]; !ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

// PickSuccessor selects the record that should inherit the "latest"
// tag once exclude is rolled back. The input must already be in
// eligible order (see Eligible). Quarantined records never win. The
// registry can return several rows for one version; within the best
// remaining version the first TRUSTED_RELEASE row wins, otherwise the
// first row. ok=false means no successor exists, which is a normal
// outcome, not an error.
func PickSuccessor(ordered []Record, exclude string) (Record, bool) {
	groups := make(map[string][]Record)
	var order []string
	for _, r := range ordered {
		if r.Version == exclude || r.Tag == TagQuarantine {
			continue
		}
		if _, seen := groups[r.Version]; !seen {
			order = append(order, r.Version)
		}
		groups[r.Version] = append(groups[r.Version], r)
	}
	if len(order) == 0 {
		return Record{}, false
	}
	best := groups[order[0]]
	for _, r := range best {
		if ParseStatus(string(r.Status)) == StatusTrusted {
			return r, true
		}
	}
	return best[0], true
}
