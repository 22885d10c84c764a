package dto

import "time"

// NotebookScoreResponse aggregates one submitted notebook for reporting.
type NotebookScoreResponse struct {
	Notebook         string            `json:"notebook"`
	Score            float64           `json:"score"`
	MaxScore         float64           `json:"max_score"`
	NeedsManualGrade bool              `json:"needs_manual_grade"`
	FailedTests      bool              `json:"failed_tests"`
	Grades           []GradeResponse   `json:"grades"`
	Comments         []CommentResponse `json:"comments"`
}

// AssignmentScoreResponse aggregates a student's whole submission, with the
// late penalty applied at this level only. RawScore is the sum of effective
// cell scores before the penalty; FinalScore is never negative and never
// exceeds RawScore.
type AssignmentScoreResponse struct {
	Assignment       string                  `json:"assignment"`
	StudentID        string                  `json:"student_id"`
	Timestamp        *time.Time              `json:"timestamp"`
	TotalSecondsLate int64                   `json:"total_seconds_late"`
	RawScore         float64                 `json:"raw_score"`
	LatePenalty      float64                 `json:"late_penalty"`
	FinalScore       float64                 `json:"final_score"`
	MaxScore         float64                 `json:"max_score"`
	NeedsManualGrade bool                    `json:"needs_manual_grade"`
	Notebooks        []NotebookScoreResponse `json:"notebooks"`
}

// StudentReportResponse summarises every submission one student has made.
type StudentReportResponse struct {
	Student     StudentResponse           `json:"student"`
	Assignments []AssignmentScoreResponse `json:"assignments"`
}
