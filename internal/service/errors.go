package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStudentNotFound indicates the student id is unknown.
var ErrStudentNotFound = errors.New("student not found")

// ErrAssignmentNotFound indicates the assignment name is unknown.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrNotebookNotFound indicates the notebook is not part of the assignment.
var ErrNotebookNotFound = errors.New("notebook not found")

// ErrSubmissionNotFound indicates no submission exists for the
// (student, assignment) pair.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrCellNotFound indicates the named cell is not defined in the notebook.
var ErrCellNotFound = errors.New("cell not found")

// ErrConflict is the sentinel matched by every ConflictError.
var ErrConflict = errors.New("conflict")

// ErrChecksumMismatch is the sentinel matched by every
// ChecksumMismatchError.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ConflictError reports a mutation that was refused because it would orphan
// dependent rows. The operation can be re-issued with force to cascade.
type ConflictError struct {
	Entity          string
	Name            string
	DependentGrades int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot remove %s %q: %d dependent grade(s) exist; re-run with force to cascade the deletion", e.Entity, e.Name, e.DependentGrades)
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// ChecksumMismatchError reports protected cells whose stored checksum no
// longer matches a fresh recomputation over their content.
type ChecksumMismatchError struct {
	Notebook string
	Cells    []string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("notebook %q: protected content of cell(s) %s does not match the recorded checksum", e.Notebook, strings.Join(e.Cells, ", "))
}

// Unwrap lets errors.Is(err, ErrChecksumMismatch) match.
func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }
