package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

func TestFullCreditStrategy(t *testing.T) {
	cell := models.GradeCell{MaxScore: 4}
	require.Equal(t, 4.0, FullCreditStrategy{}.Score(cell, ExecutedCell{}))
}

func TestAssertionRatioStrategy(t *testing.T) {
	cell := models.GradeCell{MaxScore: 4}

	require.Equal(t, 3.0, AssertionRatioStrategy{}.Score(cell, ExecutedCell{PassedChecks: 3, TotalChecks: 4}))
	require.Equal(t, 0.0, AssertionRatioStrategy{}.Score(cell, ExecutedCell{PassedChecks: 0, TotalChecks: 4}))
	require.Equal(t, 4.0, AssertionRatioStrategy{}.Score(cell, ExecutedCell{}), "uncounted cells fall back to full credit")
}

func TestLinearHourlyPenaltyChargesStartedHours(t *testing.T) {
	policy := LinearHourlyPenalty{RatePerHour: 0.1}

	require.Equal(t, 0.0, policy.Deduction(0, 10, 10))
	require.Equal(t, 1.0, policy.Deduction(3600, 10, 10))
	require.Equal(t, 1.0, policy.Deduction(60, 10, 10), "a started hour counts in full")
	require.Equal(t, 2.0, policy.Deduction(5400, 10, 10))
	require.Equal(t, 0.0, LinearHourlyPenalty{}.Deduction(3600, 10, 10), "a zero rate disables the policy")
}

func TestApplyLatePenaltyClampsToScoreBounds(t *testing.T) {
	deduction, final := applyLatePenalty(LinearHourlyPenalty{RatePerHour: 0.5}, 3*3600, 10, 10)
	require.Equal(t, 10.0, deduction, "the deduction never exceeds the raw score")
	require.Equal(t, 0.0, final, "the final score never goes negative")

	deduction, final = applyLatePenalty(nil, 3600, 8, 10)
	require.Zero(t, deduction, "no policy means no penalty")
	require.Equal(t, 8.0, final)

	deduction, final = applyLatePenalty(NoLatePenalty{}, 3600, 8, 10)
	require.Zero(t, deduction)
	require.Equal(t, 8.0, final)
}
