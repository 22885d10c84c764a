package dto

import (
	"time"

	"github.com/edulabs-io/gradebook-api/internal/models"
)

// StudentUpsertRequest describes the payload for creating or updating a
// student by institutional id.
type StudentUpsertRequest struct {
	StudentID string  `json:"student_id" validate:"required,min=1"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

// StudentResponse is the serialized representation handed to reporting
// layers.
type StudentResponse struct {
	ID        uint      `json:"id"`
	StudentID string    `json:"student_id"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
