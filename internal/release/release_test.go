package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusTrusted, ParseStatus("trusted_release"))
	assert.Equal(t, StatusReleased, ParseStatus(" Released "))
	assert.True(t, StatusTrusted.Eligible())
	assert.True(t, StatusReleased.Eligible())
	assert.False(t, ParseStatus("PENDING").Eligible())
	assert.False(t, Status("").Eligible())
}

func TestEligibleFiltersStatuses(t *testing.T) {
	got := Eligible([]Record{
		{Version: "1.0.0", Status: StatusTrusted},
		{Version: "1.1.0", Status: "PENDING"},
		{Version: "1.2.0", Status: "released"},
		{Version: "1.3.0", Status: "DELETED"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "1.2.0", got[0].Version)
	assert.Equal(t, "1.0.0", got[1].Version)
}

func TestEligibleOrdersDescending(t *testing.T) {
	got := Eligible([]Record{
		{Version: "1.0.0", Status: StatusReleased},
		{Version: "2.1.0", Status: StatusTrusted},
		{Version: "2.0.0", Status: StatusReleased},
	})
	versions := []string{got[0].Version, got[1].Version, got[2].Version}
	assert.Equal(t, []string{"2.1.0", "2.0.0", "1.0.0"}, versions)
}

// TestEligibleKeepsUnparseable: the view must never lose a record.
// Rows whose version does not parse trail the parseable ones in input
// order.
func TestEligibleKeepsUnparseable(t *testing.T) {
	got := Eligible([]Record{
		{Version: "hotfix-build", Status: StatusReleased},
		{Version: "1.0.0", Status: StatusTrusted},
		{Version: "snapshot", Status: StatusTrusted},
		{Version: "2.0.0", Status: StatusReleased},
	})
	require.Len(t, got, 4)
	assert.Equal(t, "2.0.0", got[0].Version)
	assert.Equal(t, "1.0.0", got[1].Version)
	assert.Equal(t, "hotfix-build", got[2].Version)
	assert.Equal(t, "snapshot", got[3].Version)
}

func TestEligibleKeepsDuplicateRowsInInputOrder(t *testing.T) {
	got := Eligible([]Record{
		{Version: "1.9.0", Tag: "", Status: StatusReleased},
		{Version: "2.0.0", Tag: TagLatest, Status: StatusTrusted},
		{Version: "1.9.0", Tag: TagQuarantine, Status: StatusTrusted},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "2.0.0", got[0].Version)
	assert.Equal(t, "", got[1].Tag)
	assert.Equal(t, TagQuarantine, got[2].Tag)
}

func TestPickSuccessorSkipsQuarantinedDuplicate(t *testing.T) {
	ordered := []Record{
		{Version: "2.0.0", Tag: TagLatest, Status: StatusTrusted},
		{Version: "1.9.0", Tag: "", Status: StatusReleased},
		{Version: "1.9.0", Tag: TagQuarantine, Status: StatusTrusted},
	}
	got, ok := PickSuccessor(ordered, "2.0.0")
	require.True(t, ok)
	assert.Equal(t, "1.9.0", got.Version)
	assert.Equal(t, "", got.Tag)
	assert.Equal(t, StatusReleased, got.Status)
}

func TestPickSuccessorPrefersTrustedRow(t *testing.T) {
	ordered := []Record{
		{Version: "1.9.0", Tag: "", Status: StatusReleased},
		{Version: "1.9.0", Tag: "", Status: StatusTrusted},
	}
	got, ok := PickSuccessor(ordered, "2.0.0")
	require.True(t, ok)
	assert.Equal(t, StatusTrusted, got.Status)
}

func TestPickSuccessorFirstRowWhenNoTrusted(t *testing.T) {
	ordered := []Record{
		{Version: "1.9.0", Tag: "candidate", Status: StatusReleased},
		{Version: "1.9.0", Tag: "", Status: StatusReleased},
	}
	got, ok := PickSuccessor(ordered, "2.0.0")
	require.True(t, ok)
	assert.Equal(t, "candidate", got.Tag)
}

func TestPickSuccessorExcludesTarget(t *testing.T) {
	ordered := []Record{
		{Version: "2.0.0", Tag: TagLatest, Status: StatusTrusted},
		{Version: "2.0.0", Tag: "", Status: StatusReleased},
	}
	_, ok := PickSuccessor(ordered, "2.0.0")
	assert.False(t, ok)
}

func TestPickSuccessorNoneWhenAllQuarantined(t *testing.T) {
	ordered := []Record{
		{Version: "1.9.0", Tag: TagQuarantine, Status: StatusTrusted},
		{Version: "1.8.0", Tag: TagQuarantine, Status: StatusReleased},
	}
	_, ok := PickSuccessor(ordered, "2.0.0")
	assert.False(t, ok)
}

func TestPickSuccessorEmptyInput(t *testing.T) {
	_, ok := PickSuccessor(nil, "1.0.0")
	assert.False(t, ok)
}
