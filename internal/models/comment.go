package models

import "time"

// Comment carries grader feedback for one answer cell within one submitted
// notebook. Exactly one of SolutionCellID (solution and graded-solution
// cells) or SourceCellID (task cells) is set. NoResponse marks answers left
// as the released stub; ContentChanged marks tampered protected content.
type Comment struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	SolutionCellID      *uint     `gorm:"uniqueIndex:idx_comments_solution_notebook" json:"solution_cell_id"`
	SourceCellID        *uint     `gorm:"uniqueIndex:idx_comments_source_notebook" json:"source_cell_id"`
	SubmittedNotebookID uint      `gorm:"not null;uniqueIndex:idx_comments_solution_notebook;uniqueIndex:idx_comments_source_notebook" json:"submitted_notebook_id"`
	Text                *string   `gorm:"type:text" json:"text"`
	NoResponse          bool      `gorm:"not null;default:false" json:"no_response"`
	ContentChanged      bool      `gorm:"not null;default:false" json:"content_changed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	SolutionCell      *SolutionCell     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"solution_cell,omitempty"`
	SourceCell        *SourceCell       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"source_cell,omitempty"`
	SubmittedNotebook SubmittedNotebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasResponse reports whether the student supplied an answer at all.
func (c Comment) HasResponse() bool {
	return !c.NoResponse
}
