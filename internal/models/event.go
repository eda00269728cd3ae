package models

import (
	"time"

	"stontr/internal/temporal"
)

// Event is a tracked renewal, deadline or reminder. Every event belongs to
// a category; the recurrence fields are always persisted but only drive
// scheduling when IsRecurring is set.
type Event struct {
	Base
	Title              string        `gorm:"not null" json:"title"`
	CategoryID         string        `gorm:"type:uuid;not null" json:"category_id"`
	NextOccurrence     time.Time     `gorm:"not null" json:"next_occurrence"`
	IsRecurring        bool          `gorm:"not null;default:false" json:"is_recurring"`
	RecurrenceInterval int           `gorm:"not null;default:1" json:"recurrence_interval"`
	RecurrenceUnit     temporal.Unit `gorm:"not null;default:years" json:"recurrence_unit"`
	Notes              *string       `json:"notes,omitempty"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
}
