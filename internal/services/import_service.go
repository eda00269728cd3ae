package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "stontr/internal/errors"
	"stontr/internal/logger"
	"stontr/internal/models"
	"stontr/internal/temporal"
)

const (
	columnTitle              = "title"
	columnCategory           = "category"
	columnNextOccurrence     = "nextOccurrence"
	columnIsRecurring        = "isRecurring"
	columnRecurrenceInterval = "recurrenceInterval"
	columnRecurrenceUnit     = "recurrenceUnit"
	columnNotes              = "notes"

	importDateLayout    = "2006-01-02"
	defaultCategoryName = "general"
)

// categoryPalette is drawn from when the import has to create a category the
// file names but the store does not have yet.
var categoryPalette = []string{
	"#F44336", "#E91E63", "#9C27B0", "#673AB7", "#3F51B5",
	"#2196F3", "#00BCD4", "#009688", "#4CAF50", "#FF9800",
}

// importRow holds one raw CSV record keyed by recognized column, before any
// decoding.
type importRow struct {
	Title              string
	CategoryName       string
	NextOccurrence     string
	IsRecurring        string
	RecurrenceInterval string
	RecurrenceUnit     string
	Notes              string
}

// categoryStore is the subset of batchTx the resolver needs.
type categoryStore interface {
	FindCategoryByName(name string) (*models.Category, error)
	InsertCategory(category *models.Category) error
}

// batchTx abstracts the transactional store operations one import batch
// performs, so the whole batch commits or rolls back as a unit.
type batchTx interface {
	categoryStore
	InsertEvent(event *models.Event) error
	Commit() error
	Rollback() error
}

type gormBatchTx struct {
	tx *gorm.DB
}

func beginGormBatchTx(db *gorm.DB) (batchTx, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormBatchTx{tx: tx}, nil
}

func (g *gormBatchTx) FindCategoryByName(name string) (*models.Category, error) {
	var category models.Category
	if err := g.tx.Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// InsertCategory runs inside a savepoint so a uniqueness conflict does not
// poison the enclosing transaction.
func (g *gormBatchTx) InsertCategory(category *models.Category) error {
	return g.tx.Transaction(func(tx *gorm.DB) error {
		return tx.Create(category).Error
	})
}

// InsertEvent runs inside a savepoint so a failed row does not poison the
// enclosing transaction.
func (g *gormBatchTx) InsertEvent(event *models.Event) error {
	return g.tx.Transaction(func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
}

func (g *gormBatchTx) Commit() error {
	return g.tx.Commit().Error
}

func (g *gormBatchTx) Rollback() error {
	return g.tx.Rollback().Error
}

// categoryResolver finds or creates categories by normalized name on behalf
// of a single import batch. The mutex and per-batch cache serialize first
// references so two rows naming the same new category produce one row; the
// store's uniqueness constraint is the backstop against a concurrent batch
// creating the same name, handled by re-querying after a rejected insert.
type categoryResolver struct {
	store categoryStore
	now   time.Time

	mu    sync.Mutex
	cache map[string]*models.Category
}

func newCategoryResolver(store categoryStore, now time.Time) *categoryResolver {
	return &categoryResolver{
		store: store,
		now:   now,
		cache: make(map[string]*models.Category),
	}
}

func (r *categoryResolver) Resolve(rawName string) (*models.Category, error) {
	name := models.NormalizeCategoryName(rawName)
	if name == "" {
		name = defaultCategoryName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if category, ok := r.cache[name]; ok {
		return category, nil
	}

	category, err := r.store.FindCategoryByName(name)
	if err == nil {
		r.cache[name] = category
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Category{
		Name:  name,
		Color: categoryPalette[rand.Intn(len(categoryPalette))],
	}
	created.CreatedAt = r.now
	created.UpdatedAt = r.now
	if insertErr := r.store.InsertCategory(created); insertErr != nil {
		// Lost the race to a concurrent batch: the winner's row is the one
		// we want.
		category, err := r.store.FindCategoryByName(name)
		if err != nil {
			return nil, insertErr
		}
		r.cache[name] = category
		return category, nil
	}

	r.cache[name] = created
	return created, nil
}

// importService reconciles bulk CSV uploads into the event store.
type importService struct {
	db      *gorm.DB
	workers int
	beginTx func(db *gorm.DB) (batchTx, error)
}

// NewImportService creates a new ImportServicer. workers bounds the
// concurrent row-decoding goroutines.
func NewImportService(db *gorm.DB, workers int) ImportServicer {
	if workers < 1 {
		workers = 1
	}
	return &importService{
		db:      db,
		workers: workers,
		beginTx: beginGormBatchTx,
	}
}

type rowResult struct {
	event        *models.Event
	categoryName string
	err          error
}

// Reconcile parses the uploaded CSV and stores its rows inside a single
// transaction. Rows that fail to decode or store are counted and skipped;
// the batch as a whole only fails when the file cannot be parsed or the
// transaction cannot commit.
func (s *importService) Reconcile(data []byte) (*ImportOutcome, error) {
	rows, err := parseImportCSV(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportParse, err)
	}

	now := time.Now()

	// Decode phase: pure per-row work, fanned out under a bounded group.
	// Results land positionally so file order survives.
	decoded := make([]rowResult, len(rows))
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			decoded[i] = decodeImportRow(row)
			return nil
		})
	}
	_ = g.Wait()

	tx, err := s.beginTx(s.db)
	if err != nil {
		logger.Get().Errorw("Failed to begin import transaction", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrImportTransaction, err)
	}

	// Store phase: sequential, one transaction for the whole batch.
	resolver := newCategoryResolver(tx, now)
	imported, failed := 0, 0
	for i, result := range decoded {
		if result.err != nil {
			failed++
			logger.Get().Infow("Skipping import row", "row", i+1, "error", result.err)
			continue
		}
		category, err := resolver.Resolve(result.categoryName)
		if err != nil {
			failed++
			logger.Get().Warnw("Failed to resolve category for import row", "row", i+1, "category", result.categoryName, "error", err)
			continue
		}
		result.event.CategoryID = category.ID
		if err := tx.InsertEvent(result.event); err != nil {
			failed++
			logger.Get().Warnw("Failed to store import row", "row", i+1, "title", result.event.Title, "error", err)
			continue
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		logger.Get().Errorw("Failed to commit import transaction", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrImportTransaction, err)
	}

	logger.Get().Infow("Import complete", "imported", imported, "failed", failed)
	return &ImportOutcome{
		ImportedCount: imported,
		FailedCount:   failed,
		Message:       fmt.Sprintf("Import complete. %d events imported, %d events failed.", imported, failed),
	}, nil
}

func parseImportCSV(data []byte) ([]importRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Unrecognized columns are ignored; recognized columns the header lacks
	// read as empty fields and fall through to the per-row defaults.
	index := make(map[string]int, len(records[0]))
	for i, column := range records[0] {
		index[strings.TrimSpace(column)] = i
	}

	rows := make([]importRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		field := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		rows = append(rows, importRow{
			Title:              field(columnTitle),
			CategoryName:       field(columnCategory),
			NextOccurrence:     field(columnNextOccurrence),
			IsRecurring:        field(columnIsRecurring),
			RecurrenceInterval: field(columnRecurrenceInterval),
			RecurrenceUnit:     field(columnRecurrenceUnit),
			Notes:              field(columnNotes),
		})
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func decodeImportRow(row importRow) rowResult {
	if row.Title == "" {
		return rowResult{err: errors.New("missing title")}
	}

	dueDate, err := parseImportDate(row.NextOccurrence)
	if err != nil {
		return rowResult{err: fmt.Errorf("invalid nextOccurrence %q: %w", row.NextOccurrence, err)}
	}

	interval := 1
	if row.RecurrenceInterval != "" {
		interval, err = strconv.Atoi(row.RecurrenceInterval)
		if err != nil || interval < 1 {
			return rowResult{err: fmt.Errorf("invalid recurrenceInterval %q", row.RecurrenceInterval)}
		}
	}

	unit := temporal.UnitYears
	if row.RecurrenceUnit != "" {
		unit = temporal.Unit(strings.ToLower(row.RecurrenceUnit))
		if !unit.Valid() {
			return rowResult{err: fmt.Errorf("invalid recurrenceUnit %q", row.RecurrenceUnit)}
		}
	}

	var notes *string
	if row.Notes != "" {
		notes = &row.Notes
	}

	return rowResult{
		event: &models.Event{
			Title:              row.Title,
			NextOccurrence:     dueDate,
			IsRecurring:        strings.EqualFold(row.IsRecurring, "yes"),
			RecurrenceInterval: interval,
			RecurrenceUnit:     unit,
			Notes:              notes,
		},
		categoryName: row.CategoryName,
	}
}

func parseImportDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing date")
	}
	if parsed, err := time.Parse(importDateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
