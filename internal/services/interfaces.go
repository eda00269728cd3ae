package services

import (
	"time"

	"stontr/internal/models"
	"stontr/internal/pagination"
	"stontr/internal/temporal"
)

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name, color string) (*models.Category, error)
	GetCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(categoryID string) (*models.Category, error)
	DeleteCategory(categoryID string) error
}

// EventServicer defines the contract for event-related business logic.
type EventServicer interface {
	CreateEvent(title, categoryID string, nextOccurrence time.Time, isRecurring bool, recurrenceInterval int, recurrenceUnit temporal.Unit, notes *string) (*models.Event, error)
	GetEvents(page pagination.PageRequest, categoryName string) (*pagination.PageResponse[models.Event], error)
	GetEventByID(eventID string) (*models.Event, error)
	UpdateEvent(eventID, title, categoryID string, nextOccurrence time.Time, isRecurring bool, recurrenceInterval int, recurrenceUnit temporal.Unit, notes *string) (*models.Event, error)
	UpdateEventNotes(eventID string, notes *string) (*models.Event, error)
	CompleteEvent(eventID string) (*models.Event, bool, error)
	DeleteEvent(eventID string) error
}

// ImportOutcome aggregates the result of one CSV import batch. Every parsed
// row is counted in exactly one of the two buckets.
type ImportOutcome struct {
	ImportedCount int    `json:"imported_count"`
	FailedCount   int    `json:"failed_count"`
	Message       string `json:"message"`
}

// ImportServicer defines the contract for bulk CSV import.
type ImportServicer interface {
	Reconcile(data []byte) (*ImportOutcome, error)
}

// ExportServicer defines the contract for bulk CSV export.
type ExportServicer interface {
	ExportCSV() ([]byte, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
