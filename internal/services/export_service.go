package services

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"gorm.io/gorm"

	apperrors "stontr/internal/errors"
	"stontr/internal/logger"
	"stontr/internal/models"
)

// exportHeader mirrors the columns the importer recognizes, so an exported
// file can be imported back unchanged.
var exportHeader = []string{
	columnTitle,
	columnCategory,
	columnNextOccurrence,
	columnIsRecurring,
	columnRecurrenceInterval,
	columnRecurrenceUnit,
	columnNotes,
}

// exportService renders the event store as CSV.
type exportService struct {
	db *gorm.DB
}

// NewExportService creates a new ExportServicer.
func NewExportService(db *gorm.DB) ExportServicer {
	return &exportService{db: db}
}

// ExportCSV writes every event, soonest-first, with its category name.
func (s *exportService) ExportCSV() ([]byte, error) {
	var events []models.Event
	if err := s.db.Preload("Category").Order("next_occurrence ASC").Find(&events).Error; err != nil {
		logger.Get().Errorw("Failed to load events for export", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write(exportHeader)
	for _, event := range events {
		notes := ""
		if event.Notes != nil {
			notes = *event.Notes
		}
		_ = writer.Write([]string{
			event.Title,
			event.Category.Name,
			event.NextOccurrence.Format(importDateLayout),
			yesNo(event.IsRecurring),
			strconv.Itoa(event.RecurrenceInterval),
			string(event.RecurrenceUnit),
			notes,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.Get().Errorw("Failed to write export CSV", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return buf.Bytes(), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
