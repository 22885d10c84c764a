package models

import "time"

// Submission records one student's hand-in for one assignment. There is at
// most one per (student, assignment) pair; re-grading updates it in place.
type Submission struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	StudentID        uint       `gorm:"not null;uniqueIndex:idx_submissions_student_assignment" json:"student_id"`
	AssignmentID     uint       `gorm:"not null;uniqueIndex:idx_submissions_student_assignment" json:"assignment_id"`
	Timestamp        *time.Time `json:"timestamp"`
	TotalSecondsLate int64      `gorm:"not null;default:0" json:"total_seconds_late"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Student    Student             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Assignment Assignment          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Notebooks  []SubmittedNotebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"notebooks,omitempty"`
}

// IsLate reports whether the submission arrived past the due date.
func (s Submission) IsLate() bool {
	return s.TotalSecondsLate > 0
}

// SubmittedNotebook ties one template notebook to one submission and carries
// the flags derived during grading.
type SubmittedNotebook struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubmissionID     uint      `gorm:"not null;uniqueIndex:idx_submitted_notebooks_submission_notebook" json:"submission_id"`
	NotebookID       uint      `gorm:"not null;uniqueIndex:idx_submitted_notebooks_submission_notebook" json:"notebook_id"`
	NeedsManualGrade bool      `gorm:"not null;default:false" json:"needs_manual_grade"`
	FailedTests      bool      `gorm:"not null;default:false" json:"failed_tests"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Submission Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Notebook   Notebook   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"notebook"`
	Grades     []Grade    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grades,omitempty"`
	Comments   []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"comments,omitempty"`
}
