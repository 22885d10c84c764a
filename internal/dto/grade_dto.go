package dto

import (
	"github.com/edulabs-io/gradebook-api/internal/models"
)

// GradeResponse is the per-cell score view used by reporting and manual
// grading front ends.
type GradeResponse struct {
	CellName         string   `json:"cell_name"`
	CellKind         string   `json:"cell_kind"`
	MaxScore         float64  `json:"max_score"`
	AutoScore        *float64 `json:"auto_score"`
	ManualScore      *float64 `json:"manual_score"`
	ExtraCredit      *float64 `json:"extra_credit"`
	Score            float64  `json:"score"`
	NeedsManualGrade bool     `json:"needs_manual_grade"`
}

// NewGradeResponse converts a grade with its preloaded cell into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		CellName:         model.GradeCell.Name,
		CellKind:         model.GradeCell.CellKind,
		MaxScore:         model.MaxScore,
		AutoScore:        model.AutoScore,
		ManualScore:      model.ManualScore,
		ExtraCredit:      model.ExtraCredit,
		Score:            model.Score(),
		NeedsManualGrade: model.NeedsManualGrade,
	}
}

// NewGradeResponseSlice converts a slice of models into DTOs.
func NewGradeResponseSlice(grades []models.Grade) []GradeResponse {
	responses := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewGradeResponse(grade))
	}

	return responses
}

// CommentResponse is the per-answer feedback view. NoResponse means the
// submitted cell was unchanged from the released stub.
type CommentResponse struct {
	CellName       string  `json:"cell_name"`
	Text           *string `json:"text"`
	ContentChanged bool    `json:"content_changed"`
	NoResponse     bool    `json:"no_response"`
}

// NewCommentResponse converts a comment with its preloaded cell into a DTO.
func NewCommentResponse(model models.Comment) CommentResponse {
	name := ""
	switch {
	case model.SolutionCell != nil:
		name = model.SolutionCell.Name
	case model.SourceCell != nil:
		name = model.SourceCell.Name
	}
	return CommentResponse{
		CellName:       name,
		Text:           model.Text,
		ContentChanged: model.ContentChanged,
		NoResponse:     !model.HasResponse(),
	}
}

// NewCommentResponseSlice converts a slice of models into DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	responses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, NewCommentResponse(comment))
	}

	return responses
}
