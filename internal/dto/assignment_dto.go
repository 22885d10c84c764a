package dto

import (
	"time"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// AssignmentUpsertRequest describes the payload for creating or updating an
// assignment by name. A nil DueDate clears any lateness tracking.
type AssignmentUpsertRequest struct {
	Name    string     `json:"name" validate:"required,min=1"`
	DueDate *time.Time `json:"duedate"`
}

// AssignmentResponse is the serialized representation handed to reporting
// layers.
type AssignmentResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	DueDate   *time.Time `json:"duedate"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        model.ID,
		Name:      model.Name,
		DueDate:   model.DueDate,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
