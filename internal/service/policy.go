package service

import (
	"math"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// PartialCreditStrategy decides how many points a clean-running test cell
// earns. The exact formula is course policy, so it is pluggable; whatever a
// strategy returns is clamped to [0, max_score] by the engine.
type PartialCreditStrategy interface {
	Score(cell models.GradeCell, executed ExecutedCell) float64
}

// FullCreditStrategy awards the full cap when the cell ran without error.
// This is the default.
type FullCreditStrategy struct{}

// Score implements PartialCreditStrategy.
func (FullCreditStrategy) Score(cell models.GradeCell, _ ExecutedCell) float64 {
	return cell.MaxScore
}

// AssertionRatioStrategy awards credit proportional to the assertions that
// passed, when the executor was able to count them. Cells without check
// counts fall back to full credit.
type AssertionRatioStrategy struct{}

// Score implements PartialCreditStrategy.
func (AssertionRatioStrategy) Score(cell models.GradeCell, executed ExecutedCell) float64 {
	if executed.TotalChecks <= 0 {
		return cell.MaxScore
	}
	return cell.MaxScore * float64(executed.PassedChecks) / float64(executed.TotalChecks)
}

// LatePenaltyPolicy derives a deduction from how far past the due date a
// submission arrived. Implementations must be monotonic in secondsLate; the
// engine clamps the deduction to [0, rawScore] so the aggregate never goes
// negative and the penalty never raises a score.
type LatePenaltyPolicy interface {
	Deduction(secondsLate int64, rawScore, maxScore float64) float64
}

// NoLatePenalty ignores lateness. This is the default.
type NoLatePenalty struct{}

// Deduction implements LatePenaltyPolicy.
func (NoLatePenalty) Deduction(int64, float64, float64) float64 { return 0 }

// LinearHourlyPenalty deducts a fixed fraction of the assignment cap per
// started hour of lateness.
type LinearHourlyPenalty struct {
	RatePerHour float64
}

// Deduction implements LatePenaltyPolicy.
func (p LinearHourlyPenalty) Deduction(secondsLate int64, _, maxScore float64) float64 {
	if secondsLate <= 0 || p.RatePerHour <= 0 {
		return 0
	}
	hours := math.Ceil(float64(secondsLate) / 3600)
	return p.RatePerHour * hours * maxScore
}

// applyLatePenalty clamps a policy's deduction per the score-bounds
// invariant and returns the deduction actually applied with the final
// score.
func applyLatePenalty(policy LatePenaltyPolicy, secondsLate int64, rawScore, maxScore float64) (deduction, final float64) {
	if policy == nil {
		policy = NoLatePenalty{}
	}
	deduction = policy.Deduction(secondsLate, rawScore, maxScore)
	if deduction < 0 {
		deduction = 0
	}
	if deduction > rawScore {
		deduction = rawScore
	}
	return deduction, rawScore - deduction
}
