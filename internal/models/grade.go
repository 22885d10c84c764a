package models

import "time"

// Grade holds the score of one grade cell within one submitted notebook.
// AutoScore is written by the autograder, ManualScore by a human; the manual
// value always wins. MaxScore is frozen from the grade cell at skeleton
// creation so later template edits cannot silently reinterpret old grades.
type Grade struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	GradeCellID         uint      `gorm:"not null;uniqueIndex:idx_grades_cell_notebook" json:"grade_cell_id"`
	SubmittedNotebookID uint      `gorm:"not null;uniqueIndex:idx_grades_cell_notebook" json:"submitted_notebook_id"`
	MaxScore            float64   `gorm:"not null" json:"max_score"`
	AutoScore           *float64  `json:"auto_score"`
	ManualScore         *float64  `json:"manual_score"`
	ExtraCredit         *float64  `json:"extra_credit"`
	NeedsManualGrade    bool      `gorm:"not null;default:false" json:"needs_manual_grade"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	GradeCell         GradeCell         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grade_cell"`
	SubmittedNotebook SubmittedNotebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Score returns the effective score: manual override when present,
// otherwise the automatic score, clamped to [0, MaxScore]. Ungraded cells
// score zero.
func (g Grade) Score() float64 {
	var score float64
	switch {
	case g.ManualScore != nil:
		score = *g.ManualScore
	case g.AutoScore != nil:
		score = *g.AutoScore
	default:
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > g.MaxScore {
		return g.MaxScore
	}
	return score
}

// ScoreWithExtraCredit adds any extra credit on top of the clamped score.
// Extra credit intentionally escapes the MaxScore cap.
func (g Grade) ScoreWithExtraCredit() float64 {
	score := g.Score()
	if g.ExtraCredit != nil && *g.ExtraCredit > 0 {
		score += *g.ExtraCredit
	}
	return score
}

// IsScored reports whether any score, automatic or manual, has been
// recorded.
func (g Grade) IsScored() bool {
	return g.AutoScore != nil || g.ManualScore != nil
}
