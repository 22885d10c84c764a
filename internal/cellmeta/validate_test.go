package cellmeta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRawAcceptsCurrentSchema(t *testing.T) {
	raw := map[string]any{
		"schema_version": CurrentVersion,
		"grade_id":       "ex1",
		"grade":          true,
		"solution":       false,
		"locked":         true,
		"task":           false,
		"points":         2,
	}
	require.NoError(t, ValidateRaw(raw))
}

func TestValidateRawRejectsNegativePoints(t *testing.T) {
	raw := map[string]any{
		"schema_version": CurrentVersion,
		"grade_id":       "ex1",
		"grade":          true,
		"solution":       false,
		"locked":         true,
		"task":           false,
		"points":         -1,
	}

	err := ValidateRaw(raw)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Problems)
}

func TestValidateRawRejectsWrongType(t *testing.T) {
	raw := map[string]any{
		"schema_version": CurrentVersion,
		"grade_id":       "ex1",
		"grade":          "yes",
		"solution":       false,
		"locked":         true,
		"task":           false,
	}
	require.Error(t, ValidateRaw(raw))
}

func TestValidateRawPassesVersionZeroThrough(t *testing.T) {
	// Pre-schema documents are gated by Decode, not by the validator.
	require.NoError(t, ValidateRaw(map[string]any{"grade": true}))
}

func TestValidateSemanticRules(t *testing.T) {
	cases := []struct {
		name     string
		meta     Metadata
		cellType CellType
		problems int
	}{
		{
			name:     "clean graded code cell",
			meta:     Metadata{ID: "ex1", Grade: true, Locked: true, Points: 2},
			cellType: CellTypeCode,
			problems: 0,
		},
		{
			name:     "flagged cell without id",
			meta:     Metadata{Grade: true, Locked: true},
			cellType: CellTypeCode,
			problems: 1,
		},
		{
			name:     "negative points",
			meta:     Metadata{ID: "ex1", Grade: true, Locked: true, Points: -1},
			cellType: CellTypeCode,
			problems: 1,
		},
		{
			name:     "task must be locked markdown",
			meta:     Metadata{ID: "t1", Task: true, Points: 4},
			cellType: CellTypeCode,
			problems: 2,
		},
		{
			name:     "task cannot double as graded",
			meta:     Metadata{ID: "t1", Task: true, Grade: true, Locked: true, Points: 4},
			cellType: CellTypeMarkdown,
			problems: 1,
		},
		{
			name:     "markdown answer graded without solution",
			meta:     Metadata{ID: "q1", Grade: true, Points: 1},
			cellType: CellTypeMarkdown,
			problems: 1,
		},
		{
			name:     "locked solution cell",
			meta:     Metadata{ID: "q1", Solution: true, Locked: true},
			cellType: CellTypeCode,
			problems: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problems := Validate(tc.meta, tc.cellType)
			require.Len(t, problems, tc.problems, "problems: %v", problems)
		})
	}
}

func TestScanValidatorCollectsDuplicateIDs(t *testing.T) {
	scan := NewScanValidator()
	scan.Check("cell-1", Metadata{ID: "ex1", Grade: true, Locked: true, Points: 1}, CellTypeCode)
	scan.Check("cell-2", Metadata{ID: "ex1", Grade: true, Locked: true, Points: 1}, CellTypeCode)

	err := scan.Finish()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	require.Contains(t, verr.Problems[0], `id "ex1" already used by cell cell-1`)
}

func TestScanValidatorCollectsDuplicateNames(t *testing.T) {
	scan := NewScanValidator()
	scan.Check("ans", Metadata{ID: "ex1", Grade: true, Locked: true, Points: 1}, CellTypeCode)
	scan.Check("ans", Metadata{ID: "ex2", Grade: true, Locked: true, Points: 1}, CellTypeCode)

	err := scan.Finish()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	require.Contains(t, verr.Problems[0], `name "ans" appears more than once`)
}

func TestScanValidatorIgnoresPlainCells(t *testing.T) {
	scan := NewScanValidator()
	scan.Check("cell-1", Metadata{}, CellTypeCode)
	scan.Check("cell-2", Metadata{}, CellTypeCode)
	require.NoError(t, scan.Finish())
}

func TestScanValidatorReportsEveryProblemAtOnce(t *testing.T) {
	scan := NewScanValidator()
	scan.Check("cell-1", Metadata{Grade: true, Locked: true, Points: -2}, CellTypeCode)
	scan.Check("cell-2", Metadata{ID: "q1", Solution: true, Locked: true}, CellTypeCode)

	err := scan.Finish()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 3)
}
