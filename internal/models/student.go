package models

import (
	"strings"
	"time"
)

// Student represents a learner enrolled in the course. StudentID is the
// institutional identifier and the natural key; the name and email fields
// are optional because rosters are often imported before they are complete.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID string    `gorm:"size:128;uniqueIndex;not null" json:"student_id"`
	FirstName *string   `gorm:"size:128" json:"first_name"`
	LastName  *string   `gorm:"size:128" json:"last_name"`
	Email     *string   `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns a readable name, falling back to the identifier when
// the roster has no names yet.
func (s Student) DisplayName() string {
	var parts []string
	if s.FirstName != nil && *s.FirstName != "" {
		parts = append(parts, *s.FirstName)
	}
	if s.LastName != nil && *s.LastName != "" {
		parts = append(parts, *s.LastName)
	}
	if len(parts) == 0 {
		return s.StudentID
	}
	return strings.Join(parts, " ")
}
