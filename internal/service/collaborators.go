package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
)

// This file defines the narrow interfaces to the out-of-process
// collaborators: the document scanner and the kernel-backed executor. The
// core never parses notebook files or runs student code itself.

// ScannedCell is one cell as reported by a TemplateScanner, in document
// order.
type ScannedCell struct {
	Name     string
	CellType cellmeta.CellType
	Content  string
	Meta     cellmeta.Metadata
	// Raw is the full metadata map as found in the document, used for
	// schema validation and for the snapshot stored on the source cell.
	Raw map[string]any
}

// TemplateScanner reads a notebook document and yields its cells together
// with their grading metadata, already upgraded to the current schema
// version.
type TemplateScanner interface {
	Scan(ctx context.Context, document io.Reader) ([]ScannedCell, error)
}

// ErrExecutionTimeout is returned by executors when the kernel had to be
// interrupted. The autograder treats it as a failed run, not a fatal error.
var ErrExecutionTimeout = errors.New("notebook execution timed out")

// OutputKind classifies a cell output for scoring purposes.
type OutputKind string

const (
	OutputStream OutputKind = "stream"
	OutputResult OutputKind = "result"
	OutputError  OutputKind = "error"
)

// CellOutput is one output attached to an executed cell.
type CellOutput struct {
	Kind OutputKind
	Text string
}

// TimeoutOutput is the synthetic error output an executor substitutes when
// it interrupts a cell, so the cell scores as failed instead of hanging the
// batch.
func TimeoutOutput() CellOutput {
	return CellOutput{Kind: OutputError, Text: "execution timed out"}
}

// ExecutedCell is one cell of a submitted notebook after execution.
// PassedChecks/TotalChecks are filled in by executors that can count the
// individual assertions inside a test cell; zero TotalChecks means the
// executor could not tell and scoring falls back to all-or-nothing.
type ExecutedCell struct {
	Name         string
	CellType     cellmeta.CellType
	Content      string
	Outputs      []CellOutput
	PassedChecks int
	TotalChecks  int
}

// HasError reports whether execution of the cell produced an error output.
func (c ExecutedCell) HasError() bool {
	for _, out := range c.Outputs {
		if out.Kind == OutputError {
			return true
		}
	}
	return false
}

// ExecutedNotebook is a submitted notebook document after execution, ready
// for scoring.
type ExecutedNotebook struct {
	Name  string
	Cells []ExecutedCell
}

// CellByName returns the named cell and whether it exists.
func (n ExecutedNotebook) CellByName(name string) (ExecutedCell, bool) {
	for _, cell := range n.Cells {
		if cell.Name == name {
			return cell, true
		}
	}
	return ExecutedCell{}, false
}

// Executor runs a submitted notebook in an external kernel and returns it
// annotated with per-cell outputs. Implementations must respect the timeout
// by interrupting the kernel and substituting TimeoutOutput on the cell
// that was running, or by returning ErrExecutionTimeout when nothing useful
// survived.
type Executor interface {
	Execute(ctx context.Context, document io.Reader, timeout time.Duration) (ExecutedNotebook, error)
}
