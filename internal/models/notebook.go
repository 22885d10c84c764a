package models

import "time"

// Notebook is one template document inside an assignment. The (name,
// assignment) pair is the natural key; cells hang off it.
type Notebook struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null;uniqueIndex:idx_notebooks_name_assignment" json:"name"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_notebooks_name_assignment" json:"assignment_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Assignment    Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	GradeCells    []GradeCell    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grade_cells,omitempty"`
	SolutionCells []SolutionCell `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"solution_cells,omitempty"`
	SourceCells   []SourceCell   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"source_cells,omitempty"`
}

// MaxScore sums the caps of the notebook's grade cells. Only meaningful when
// GradeCells is loaded.
func (n Notebook) MaxScore() float64 {
	var total float64
	for _, cell := range n.GradeCells {
		total += cell.MaxScore
	}
	return total
}
