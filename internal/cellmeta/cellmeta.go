// Package cellmeta validates and migrates the per-cell grading metadata
// embedded in notebook documents. The metadata travels with the document
// across instructor and student workspaces, so every version ever written
// must remain readable here.
package cellmeta

import (
	"fmt"
)

// CurrentVersion is the schema version this engine reads and writes.
const CurrentVersion = 3

// CellType distinguishes executable cells from prose cells.
type CellType string

const (
	CellTypeCode     CellType = "code"
	CellTypeMarkdown CellType = "markdown"
)

// CellKind is the closed set of roles a cell can play in an assignment.
type CellKind string

const (
	// KindPlain marks a cell that carries no grading metadata.
	KindPlain CellKind = "plain"
	// KindGraded is an objective test cell: locked content, auto-scored,
	// no student answer inside it.
	KindGraded CellKind = "graded"
	// KindSolution is a free-form answer cell, not itself scored.
	KindSolution CellKind = "solution"
	// KindGradedSolution is a manually scored answer cell.
	KindGradedSolution CellKind = "graded_solution"
	// KindLocked is protected non-graded content such as setup code.
	KindLocked CellKind = "locked"
	// KindTask is a markdown, locked grading unit spanning sub-parts.
	KindTask CellKind = "task"
)

// Metadata is the decoded grading metadata of a single cell at
// CurrentVersion.
type Metadata struct {
	ID            string
	Grade         bool
	Solution      bool
	Locked        bool
	Task          bool
	Points        float64
	SchemaVersion int
	Checksum      string
}

// Kind derives the cell kind from the legacy boolean flags. The flags stay
// the on-disk representation; the kind is what the rest of the system
// reasons about.
func (m Metadata) Kind() CellKind {
	return KindOf(m.Grade, m.Solution, m.Locked, m.Task)
}

// IsGradable reports whether the cell produces a Grade row.
func (m Metadata) IsGradable() bool {
	k := m.Kind()
	return k == KindGraded || k == KindGradedSolution || k == KindTask
}

// IsSolution reports whether the cell collects a student answer.
func (m Metadata) IsSolution() bool {
	k := m.Kind()
	return k == KindSolution || k == KindGradedSolution
}

// IsProtected reports whether edits to the cell must be detected via
// checksum comparison.
func (m Metadata) IsProtected() bool {
	k := m.Kind()
	return k == KindGraded || k == KindLocked || k == KindTask
}

// KindOf maps the four boolean flags onto a CellKind.
func KindOf(grade, solution, locked, task bool) CellKind {
	switch {
	case task:
		return KindTask
	case grade && solution:
		return KindGradedSolution
	case grade:
		return KindGraded
	case solution:
		return KindSolution
	case locked:
		return KindLocked
	default:
		return KindPlain
	}
}

// ParseKind converts a stored string back into a CellKind.
func ParseKind(s string) (CellKind, error) {
	switch CellKind(s) {
	case KindPlain, KindGraded, KindSolution, KindGradedSolution, KindLocked, KindTask:
		return CellKind(s), nil
	}
	return "", fmt.Errorf("unknown cell kind %q", s)
}
