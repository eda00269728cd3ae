package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stontr/internal/models"
	"stontr/internal/temporal"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCategory creates a category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	return CreateTestCategoryWithName(t, db, fmt.Sprintf("category%d", nextID()))
}

// CreateTestCategoryWithName creates a category with the given name.
func CreateTestCategoryWithName(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:  name,
		Color: "#4CAF50",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestEvent creates a recurring yearly event due one year from now.
func CreateTestEvent(t *testing.T, db *gorm.DB, categoryID string) *models.Event {
	t.Helper()
	return CreateTestEventAt(t, db, categoryID, time.Now().AddDate(1, 0, 0))
}

// CreateTestEventAt creates a recurring yearly event with the given due date.
func CreateTestEventAt(t *testing.T, db *gorm.DB, categoryID string, nextOccurrence time.Time) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:              fmt.Sprintf("Test Event %d", nextID()),
		CategoryID:         categoryID,
		NextOccurrence:     nextOccurrence,
		IsRecurring:        true,
		RecurrenceInterval: 1,
		RecurrenceUnit:     temporal.UnitYears,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// CreateTestOneTimeEvent creates a non-recurring event with the given due date.
func CreateTestOneTimeEvent(t *testing.T, db *gorm.DB, categoryID string, nextOccurrence time.Time) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:              fmt.Sprintf("Test One-Time Event %d", nextID()),
		CategoryID:         categoryID,
		NextOccurrence:     nextOccurrence,
		IsRecurring:        false,
		RecurrenceInterval: 1,
		RecurrenceUnit:     temporal.UnitYears,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}
