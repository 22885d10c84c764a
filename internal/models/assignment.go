package models

import "time"

// Assignment is a distributable unit of coursework made up of one or more
// notebooks. Name is the natural key. DueDate is optional; assignments
// without one never accrue lateness.
type Assignment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	DueDate   *time.Time `json:"duedate"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Notebooks []Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"notebooks,omitempty"`
}

// SecondsLate returns how far past the due date the given timestamp is,
// never negative, and zero when either side is missing.
func (a Assignment) SecondsLate(submitted *time.Time) int64 {
	if a.DueDate == nil || submitted == nil {
		return 0
	}
	late := int64(submitted.Sub(*a.DueDate) / time.Second)
	if late < 0 {
		return 0
	}
	return late
}
