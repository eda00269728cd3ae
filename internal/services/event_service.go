package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "stontr/internal/errors"
	"stontr/internal/logger"
	"stontr/internal/models"
	"stontr/internal/pagination"
	"stontr/internal/temporal"
)

// eventService handles event-related business logic.
type eventService struct {
	db *gorm.DB
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB) EventServicer {
	return &eventService{db: db}
}

func normalizeRecurrence(interval int, unit temporal.Unit) (int, temporal.Unit, error) {
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return 0, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Recurrence interval must be at least 1")
	}
	if unit == "" {
		unit = temporal.UnitYears
	}
	if !unit.Valid() {
		return 0, "", apperrors.ErrInvalidRecurrenceUnit
	}
	return interval, unit, nil
}

// CreateEvent creates an event tied to an existing category.
func (s *eventService) CreateEvent(title, categoryID string, nextOccurrence time.Time, isRecurring bool, recurrenceInterval int, recurrenceUnit temporal.Unit, notes *string) (*models.Event, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Event title is required")
	}
	if nextOccurrence.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Next occurrence date is required")
	}
	interval, unit, err := normalizeRecurrence(recurrenceInterval, recurrenceUnit)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		logger.Get().Errorw("Failed to get category for event", "categoryID", categoryID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	event := &models.Event{
		Title:              title,
		CategoryID:         category.ID,
		NextOccurrence:     nextOccurrence,
		IsRecurring:        isRecurring,
		RecurrenceInterval: interval,
		RecurrenceUnit:     unit,
		Notes:              notes,
	}
	if err := s.db.Create(event).Error; err != nil {
		logger.Get().Errorw("Failed to create event", "title", title, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	event.Category = category

	return event, nil
}

// GetEvents retrieves events ordered soonest-first, optionally filtered by
// category name.
func (s *eventService) GetEvents(page pagination.PageRequest, categoryName string) (*pagination.PageResponse[models.Event], error) {
	page.Defaults()

	var events []models.Event
	var total int64

	query := s.db.Model(&models.Event{})
	if categoryName != "" {
		normalized := models.NormalizeCategoryName(categoryName)
		query = query.Joins("JOIN categories ON categories.id = events.category_id").
			Where("categories.name = ?", normalized)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.Get().Errorw("Failed to count events", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := query.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("next_occurrence ASC").
		Find(&events).Error; err != nil {
		logger.Get().Errorw("Failed to get events", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	response := pagination.NewPageResponse(events, page.Page, page.PageSize, total)
	return &response, nil
}

// GetEventByID retrieves a single event with its category.
func (s *eventService) GetEventByID(eventID string) (*models.Event, error) {
	var event models.Event
	if err := s.db.Preload("Category").Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		logger.Get().Errorw("Failed to get event", "eventID", eventID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

// UpdateEvent replaces an event's mutable fields.
func (s *eventService) UpdateEvent(eventID, title, categoryID string, nextOccurrence time.Time, isRecurring bool, recurrenceInterval int, recurrenceUnit temporal.Unit, notes *string) (*models.Event, error) {
	event, err := s.GetEventByID(eventID)
	if err != nil {
		return nil, err
	}

	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Event title is required")
	}
	if nextOccurrence.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Next occurrence date is required")
	}
	interval, unit, err := normalizeRecurrence(recurrenceInterval, recurrenceUnit)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		logger.Get().Errorw("Failed to get category for event", "categoryID", categoryID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	event.Title = title
	event.CategoryID = category.ID
	event.NextOccurrence = nextOccurrence
	event.IsRecurring = isRecurring
	event.RecurrenceInterval = interval
	event.RecurrenceUnit = unit
	event.Notes = notes

	if err := s.db.Save(event).Error; err != nil {
		logger.Get().Errorw("Failed to update event", "eventID", eventID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	event.Category = category

	return event, nil
}

// UpdateEventNotes replaces only the notes field. A nil value clears the
// notes.
func (s *eventService) UpdateEventNotes(eventID string, notes *string) (*models.Event, error) {
	event, err := s.GetEventByID(eventID)
	if err != nil {
		return nil, err
	}

	event.Notes = notes
	if err := s.db.Model(event).Select("notes").Updates(map[string]interface{}{"notes": notes}).Error; err != nil {
		logger.Get().Errorw("Failed to update event notes", "eventID", eventID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return event, nil
}

// CompleteEvent marks an event as done. A recurring event rolls its next
// occurrence forward by one recurrence step; a one-time event is removed.
// The second return value reports whether the event was removed.
func (s *eventService) CompleteEvent(eventID string) (*models.Event, bool, error) {
	event, err := s.GetEventByID(eventID)
	if err != nil {
		return nil, false, err
	}

	if !event.IsRecurring {
		if err := s.db.Delete(event).Error; err != nil {
			logger.Get().Errorw("Failed to delete completed event", "eventID", eventID, "error", err)
			return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return event, true, nil
	}

	next, err := temporal.Advance(event.NextOccurrence, event.RecurrenceUnit, event.RecurrenceInterval)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInvalidRecurrenceUnit, err)
	}
	event.NextOccurrence = next

	if err := s.db.Model(event).Update("next_occurrence", next).Error; err != nil {
		logger.Get().Errorw("Failed to advance event occurrence", "eventID", eventID, "error", err)
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return event, false, nil
}

// DeleteEvent removes an event.
func (s *eventService) DeleteEvent(eventID string) error {
	event, err := s.GetEventByID(eventID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(event).Error; err != nil {
		logger.Get().Errorw("Failed to delete event", "eventID", eventID, "error", err)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
