package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
)

// GradeCell defines one scored unit within a notebook template.
type GradeCell struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null;uniqueIndex:idx_grade_cells_name_notebook" json:"name"`
	NotebookID uint      `gorm:"not null;uniqueIndex:idx_grade_cells_name_notebook" json:"notebook_id"`
	CellKind   string    `gorm:"size:32;not null" json:"cell_kind"`
	CellType   string    `gorm:"size:16;not null" json:"cell_type"`
	MaxScore   float64   `gorm:"not null" json:"max_score"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Notebook Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Kind returns the typed cell kind.
func (c GradeCell) Kind() cellmeta.CellKind {
	kind, err := cellmeta.ParseKind(c.CellKind)
	if err != nil {
		return cellmeta.KindPlain
	}
	return kind
}

// AutoScored reports whether the cell's score comes from execution alone.
// Graded-solution and task cells always need a human.
func (c GradeCell) AutoScored() bool {
	return c.Kind() == cellmeta.KindGraded
}

// SolutionCell marks a cell that collects a free-form student answer.
// A cell may be both a grade cell and a solution cell (a manually graded
// answer); the two rows then share a name.
type SolutionCell struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null;uniqueIndex:idx_solution_cells_name_notebook" json:"name"`
	NotebookID uint      `gorm:"not null;uniqueIndex:idx_solution_cells_name_notebook" json:"notebook_id"`
	CellKind   string    `gorm:"size:32;not null" json:"cell_kind"`
	CellType   string    `gorm:"size:16;not null" json:"cell_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Notebook Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SourceCell is the master copy of a cell as generated from the template:
// raw content, kind, locked flag and the frozen checksum used to detect
// tampering in submissions. The full metadata map is kept alongside for
// regeneration.
type SourceCell struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"size:255;not null;uniqueIndex:idx_source_cells_name_notebook" json:"name"`
	NotebookID uint              `gorm:"not null;uniqueIndex:idx_source_cells_name_notebook" json:"notebook_id"`
	CellKind   string            `gorm:"size:32;not null" json:"cell_kind"`
	CellType   string            `gorm:"size:16;not null" json:"cell_type"`
	Content    string            `gorm:"type:text" json:"content"`
	Checksum   string            `gorm:"size:128;not null" json:"checksum"`
	Locked     bool              `gorm:"not null;default:false" json:"locked"`
	Meta       datatypes.JSONMap `gorm:"type:json" json:"meta"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	Notebook Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Kind returns the typed cell kind.
func (c SourceCell) Kind() cellmeta.CellKind {
	kind, err := cellmeta.ParseKind(c.CellKind)
	if err != nil {
		return cellmeta.KindPlain
	}
	return kind
}

// Protected reports whether a submission is forbidden from editing this
// cell's content.
func (c SourceCell) Protected() bool {
	if c.Locked {
		return true
	}
	k := c.Kind()
	return k == cellmeta.KindGraded || k == cellmeta.KindLocked || k == cellmeta.KindTask
}
