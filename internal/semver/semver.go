// Package semver parses semantic version strings and defines the
// SemVer 2.0 precedence order used when ranking rollback candidates.
package semver

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// versionPattern follows SemVer 2.0: an optional leading "v", three
// numeric segments without superfluous leading zeros, an optional
// prerelease, and optional build metadata (captured but discarded).
var versionPattern = regexp.MustCompile(
	`^\s*v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(?:-((?:0|[1-9]\d*|[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
		`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?\s*$`,
)

// Version is an immutable parsed semantic version. Construct it only
// through Parse; build metadata never participates in comparison.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease []string
	Original   string
}

// Parse parses a version string. Invalid input yields ok=false; Parse
// never panics and never returns a partially built Version.
func Parse(s string) (Version, bool) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, false
	}
	// A core segment beyond int range is rejected, not clamped.
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, false
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Version{}, false
	}
	patch, err := strconv.Atoi(m[3])
	if err != nil {
		return Version{}, false
	}
	var prerelease []string
	if m[4] != "" {
		prerelease = strings.Split(m[4], ".")
	}
	return Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: prerelease,
		Original:   s,
	}, true
}

// String returns the verbatim input the version was parsed from.
func (v Version) String() string {
	return v.Original
}

// Less reports whether v has lower precedence than other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}

// Compare returns -1, 0 or 1 ordering a against b by SemVer 2.0
// precedence. The numeric core compares first; a release outranks any
// prerelease of the same core; prerelease identifiers compare
// pairwise (numeric before alphanumeric, numerics numerically,
// otherwise lexically), with the shorter sequence losing ties.
func Compare(a, b Version) int {
	if a.Major != b.Major {
		return sign(a.Major - b.Major)
	}
	if a.Minor != b.Minor {
		return sign(a.Minor - b.Minor)
	}
	if a.Patch != b.Patch {
		return sign(a.Patch - b.Patch)
	}
	if len(a.Prerelease) == 0 && len(b.Prerelease) > 0 {
		return 1
	}
	if len(a.Prerelease) > 0 && len(b.Prerelease) == 0 {
		return -1
	}
	for i := 0; i < len(a.Prerelease) && i < len(b.Prerelease); i++ {
		if c := compareIdentifiers(a.Prerelease[i], b.Prerelease[i]); c != 0 {
			return c
		}
	}
	return sign(len(a.Prerelease) - len(b.Prerelease))
}

// compareIdentifiers compares two prerelease identifiers. Identifiers
// consisting only of digits compare numerically and always rank below
// alphanumeric ones. Numeric identifiers never carry leading zeros
// (the grammar rejects them), so digit-string length then lexical
// order gives the numeric comparison without an integer conversion.
func compareIdentifiers(a, b string) int {
	aNum := allDigits(a)
	bNum := allDigits(b)
	switch {
	case aNum && bNum:
		if len(a) != len(b) {
			return sign(len(a) - len(b))
		}
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// SortDescending orders version strings from highest to lowest
// precedence. Strings that do not parse are dropped from the result;
// callers that must not lose records have to order records themselves.
func SortDescending(versions []string) []string {
	parsed := make([]Version, 0, len(versions))
	for _, s := range versions {
		if v, ok := Parse(s); ok {
			parsed = append(parsed, v)
		}
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return Compare(parsed[i], parsed[j]) > 0
	})
	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Original
	}
	return out
}
