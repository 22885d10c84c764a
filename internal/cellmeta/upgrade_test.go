package cellmeta

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpgradeLiftsVersionZeroToCurrent(t *testing.T) {
	raw := map[string]any{
		"grade_id": "ex1",
		"grade":    true,
		"points":   "",
	}

	upgraded, err := Upgrade(raw)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, DeclaredVersion(upgraded))
	require.Equal(t, float64(0), upgraded["points"], "blank points should default to zero")
	require.Equal(t, true, upgraded["locked"], "graded non-solution cells were implicitly protected")
	require.Equal(t, false, upgraded["task"])

	// The input map must not be touched.
	require.Equal(t, "", raw["points"])
	_, hasLocked := raw["locked"]
	require.False(t, hasLocked)
}

func TestUpgradeGeneratesIDForFlaggedCellsOnly(t *testing.T) {
	flagged, err := Upgrade(map[string]any{"solution": true})
	require.NoError(t, err)
	id, _ := flagged["grade_id"].(string)
	require.True(t, strings.HasPrefix(id, "cell-"), "flagged cell should get a generated id, got %q", id)

	plain, err := Upgrade(map[string]any{})
	require.NoError(t, err)
	_, hasID := plain["grade_id"]
	require.False(t, hasID, "plain cells never get ids")
}

func TestUpgradeDefaultsNegativePoints(t *testing.T) {
	upgraded, err := Upgrade(map[string]any{"grade_id": "ex1", "grade": true, "points": -3.5})
	require.NoError(t, err)
	require.Equal(t, float64(0), upgraded["points"])
}

func TestUpgradeKeepsExplicitLockedFlag(t *testing.T) {
	raw := map[string]any{
		"schema_version": 1,
		"grade_id":       "ex1",
		"grade":          true,
		"points":         2.0,
		"locked":         false,
	}

	upgraded, err := Upgrade(raw)
	require.NoError(t, err)
	require.Equal(t, false, upgraded["locked"], "an explicit locked flag must survive the v1 to v2 step")
	require.Equal(t, CurrentVersion, DeclaredVersion(upgraded))
}

func TestUpgradeIsIdempotent(t *testing.T) {
	once, err := Upgrade(map[string]any{"grade_id": "ex1", "grade": true, "points": 2.0})
	require.NoError(t, err)

	twice, err := Upgrade(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestUpgradeRejectsFutureVersions(t *testing.T) {
	_, err := Upgrade(map[string]any{"schema_version": CurrentVersion + 1})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSchemaTooNew)

	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, CurrentVersion+1, verr.Found)
	require.Equal(t, CurrentVersion, verr.Current)
}

func TestMalformedVersionMarkersAreRejected(t *testing.T) {
	cases := []struct {
		name   string
		marker any
	}{
		{"negative number", float64(-1)},
		{"fractional number", float64(2.9)},
		{"fractional string", "2.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := map[string]any{"schema_version": tc.marker, "grade_id": "ex1"}

			var verr *ValidationError
			_, err := Upgrade(raw)
			require.ErrorAs(t, err, &verr, "Upgrade must not guess at a malformed marker")

			_, _, err = Decode(raw)
			require.ErrorAs(t, err, &verr)

			require.Error(t, ValidateRaw(raw))
			require.Equal(t, 0, DeclaredVersion(raw))
		})
	}
}

func TestUpgradeThenDecodeRoundTrip(t *testing.T) {
	upgraded, err := Upgrade(map[string]any{
		"grade_id": "q1",
		"grade":    true,
		"solution": true,
		"points":   4,
	})
	require.NoError(t, err)

	meta, stripped, err := Decode(upgraded)
	require.NoError(t, err)
	require.Empty(t, stripped)
	require.Equal(t, "q1", meta.ID)
	require.Equal(t, KindGradedSolution, meta.Kind())
	require.Equal(t, 4.0, meta.Points)
	require.Equal(t, CurrentVersion, meta.SchemaVersion)
}

func TestDecodeRejectsStaleVersions(t *testing.T) {
	_, _, err := Decode(map[string]any{"schema_version": 1, "grade_id": "ex1"})
	require.ErrorIs(t, err, ErrSchemaTooOld)

	_, _, err = Decode(map[string]any{"grade_id": "ex1"})
	require.ErrorIs(t, err, ErrSchemaTooOld, "missing marker counts as version zero")
}

func TestDecodeStripsUnknownFieldsSorted(t *testing.T) {
	raw := map[string]any{
		"schema_version": CurrentVersion,
		"grade_id":       "ex1",
		"grade":          true,
		"points":         1.5,
		"zebra":          "x",
		"alpha":          42,
	}

	meta, stripped, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zebra"}, stripped)
	require.Equal(t, "ex1", meta.ID)
	require.Equal(t, 1.5, meta.Points)
}

func TestKindOfDerivation(t *testing.T) {
	cases := []struct {
		name     string
		grade    bool
		solution bool
		locked   bool
		task     bool
		want     CellKind
	}{
		{"plain", false, false, false, false, KindPlain},
		{"graded", true, false, true, false, KindGraded},
		{"solution", false, true, false, false, KindSolution},
		{"graded solution", true, true, false, false, KindGradedSolution},
		{"locked", false, false, true, false, KindLocked},
		{"task wins over everything", false, false, true, true, KindTask},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, KindOf(tc.grade, tc.solution, tc.locked, tc.task))
		})
	}
}

func TestParseKindRejectsUnknownValues(t *testing.T) {
	_, err := ParseKind("bogus")
	require.Error(t, err)

	kind, err := ParseKind("graded_solution")
	require.NoError(t, err)
	require.Equal(t, KindGradedSolution, kind)
}

func TestVersionErrorUnwrapsBothDirections(t *testing.T) {
	old := &VersionError{Found: 1, Current: CurrentVersion}
	require.True(t, errors.Is(old, ErrSchemaTooOld))
	require.False(t, errors.Is(old, ErrSchemaTooNew))

	future := &VersionError{Found: CurrentVersion + 2, Current: CurrentVersion}
	require.True(t, errors.Is(future, ErrSchemaTooNew))
}
