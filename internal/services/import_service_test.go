package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"stontr/internal/models"
	"stontr/internal/temporal"
	"stontr/internal/testutil"
)

const importHeader = "title,category,nextOccurrence,isRecurring,recurrenceInterval,recurrenceUnit,notes\n"

func TestReconcile_MixedRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	data := importHeader +
		"Mom's birthday,Family,2026-10-01,yes,1,years,call early\n" +
		"Car insurance,Financial,2026-09-15,yes,6,months,\n" +
		"Dentist,Health,2026-11-20,no,1,years,\n" +
		"Broken,Family,not-a-date,yes,1,years,\n"

	outcome, err := service.Reconcile([]byte(data))
	testutil.AssertNoError(t, err)

	if outcome.ImportedCount != 3 {
		t.Errorf("expected 3 imported, got %d", outcome.ImportedCount)
	}
	if outcome.FailedCount != 1 {
		t.Errorf("expected 1 failed, got %d", outcome.FailedCount)
	}
	want := "Import complete. 3 events imported, 1 events failed."
	if outcome.Message != want {
		t.Errorf("expected message %q, got %q", want, outcome.Message)
	}

	var events int64
	if err := db.Model(&models.Event{}).Count(&events).Error; err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if events != 3 {
		t.Errorf("expected 3 stored events, got %d", events)
	}

	var event models.Event
	if err := db.Preload("Category").Where("title = ?", "Car insurance").First(&event).Error; err != nil {
		t.Fatalf("failed to load imported event: %v", err)
	}
	if event.RecurrenceInterval != 6 || event.RecurrenceUnit != temporal.UnitMonths {
		t.Errorf("expected 6 months recurrence, got %d %s", event.RecurrenceInterval, event.RecurrenceUnit)
	}
	if event.Category.Name != "financial" {
		t.Errorf("expected normalized category name %q, got %q", "financial", event.Category.Name)
	}
}

func TestReconcile_CategoryDeduplication(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	// Three spellings of one category plus one pre-existing category.
	existing := testutil.CreateTestCategoryWithName(t, db, "health")
	data := importHeader +
		"A,Family,2026-10-01,yes,1,years,\n" +
		"B, FAMILY ,2026-10-02,yes,1,years,\n" +
		"C,family,2026-10-03,yes,1,years,\n" +
		"D,Health,2026-10-04,yes,1,years,\n"

	outcome, err := service.Reconcile([]byte(data))
	testutil.AssertNoError(t, err)
	if outcome.ImportedCount != 4 || outcome.FailedCount != 0 {
		t.Fatalf("expected 4 imported / 0 failed, got %d / %d", outcome.ImportedCount, outcome.FailedCount)
	}

	var categories int64
	if err := db.Model(&models.Category{}).Count(&categories).Error; err != nil {
		t.Fatalf("failed to count categories: %v", err)
	}
	if categories != 2 {
		t.Errorf("expected 2 categories (family + existing health), got %d", categories)
	}

	var reused models.Event
	if err := db.Where("title = ?", "D").First(&reused).Error; err != nil {
		t.Fatalf("failed to load imported event: %v", err)
	}
	if reused.CategoryID != existing.ID {
		t.Error("expected row to reuse the pre-existing category")
	}
}

func TestReconcile_BlankCategoryFallsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	data := importHeader + "Untitled chore,,2026-10-01,no,1,years,\n"

	outcome, err := service.Reconcile([]byte(data))
	testutil.AssertNoError(t, err)
	if outcome.ImportedCount != 1 {
		t.Fatalf("expected 1 imported, got %d", outcome.ImportedCount)
	}

	var event models.Event
	if err := db.Preload("Category").Where("title = ?", "Untitled chore").First(&event).Error; err != nil {
		t.Fatalf("failed to load imported event: %v", err)
	}
	if event.Category.Name != defaultCategoryName {
		t.Errorf("expected fallback category %q, got %q", defaultCategoryName, event.Category.Name)
	}
}

func TestReconcile_EmptyFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	for _, data := range []string{"", importHeader} {
		outcome, err := service.Reconcile([]byte(data))
		testutil.AssertNoError(t, err)
		if outcome.ImportedCount != 0 || outcome.FailedCount != 0 {
			t.Errorf("expected empty outcome for %q, got %d / %d", data, outcome.ImportedCount, outcome.FailedCount)
		}
	}
}

func TestReconcile_ParseFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	// An unterminated quote makes the file unreadable as CSV.
	_, err := service.Reconcile([]byte(importHeader + "\"Broken,Family,2026-10-01\n"))
	testutil.AssertAppError(t, err, "IMPORT_PARSE")
}

func TestReconcile_MissingTitleColumn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewImportService(db, 4)

	// A header without the title column still parses; every row then fails
	// decoding for its missing title and is counted, not the batch.
	outcome, err := service.Reconcile([]byte("category,nextOccurrence\nFamily,2026-10-01\nHealth,2026-11-01\n"))
	testutil.AssertNoError(t, err)
	if outcome.ImportedCount != 0 || outcome.FailedCount != 2 {
		t.Errorf("expected 0 imported / 2 failed, got %d / %d", outcome.ImportedCount, outcome.FailedCount)
	}

	var events int64
	if err := db.Model(&models.Event{}).Count(&events).Error; err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if events != 0 {
		t.Errorf("expected no stored events, got %d", events)
	}
}

// failingCommitTx fails the final commit while letting every other store
// operation through.
type failingCommitTx struct {
	batchTx
}

func (f *failingCommitTx) Commit() error {
	return errors.New("commit refused")
}

func TestReconcile_CommitFailureRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	service := NewImportService(db, 4).(*importService)
	service.beginTx = func(db *gorm.DB) (batchTx, error) {
		tx, err := beginGormBatchTx(db)
		if err != nil {
			return nil, err
		}
		return &failingCommitTx{batchTx: tx}, nil
	}

	data := importHeader +
		"A,Family,2026-10-01,yes,1,years,\n" +
		"B,Family,2026-10-02,yes,1,years,\n"

	_, err := service.Reconcile([]byte(data))
	testutil.AssertAppError(t, err, "IMPORT_TRANSACTION")

	var events, categories int64
	if err := db.Model(&models.Event{}).Count(&events).Error; err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if err := db.Model(&models.Category{}).Count(&categories).Error; err != nil {
		t.Fatalf("failed to count categories: %v", err)
	}
	if events != 0 || categories != 0 {
		t.Errorf("expected rollback to leave no rows, got %d events and %d categories", events, categories)
	}
}

func TestCategoryResolver_ConcurrentSameName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tx, err := beginGormBatchTx(db)
	testutil.AssertNoError(t, err)
	resolver := newCategoryResolver(tx, time.Now())

	spellings := []string{"Family", " family ", "FAMILY", "family"}
	var wg sync.WaitGroup
	ids := make([]string, len(spellings)*4)
	for i := 0; i < len(ids); i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			category, err := resolver.Resolve(spellings[i%len(spellings)])
			if err != nil {
				t.Errorf("resolve failed: %v", err)
				return
			}
			ids[i] = category.ID
		}()
	}
	wg.Wait()
	testutil.AssertNoError(t, tx.Commit())

	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected one category for all spellings, got %q and %q", ids[0], ids[i])
		}
	}

	var categories int64
	if err := db.Model(&models.Category{}).Count(&categories).Error; err != nil {
		t.Fatalf("failed to count categories: %v", err)
	}
	if categories != 1 {
		t.Errorf("expected 1 category row, got %d", categories)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, source)

	category := testutil.CreateTestCategoryWithName(t, source, "family")
	notes := "bring a gift"
	due := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	event := &models.Event{
		Title:              "Family dinner",
		CategoryID:         category.ID,
		NextOccurrence:     due,
		IsRecurring:        true,
		RecurrenceInterval: 3,
		RecurrenceUnit:     temporal.UnitMonths,
		Notes:              &notes,
	}
	if err := source.Create(event).Error; err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	testutil.CreateTestOneTimeEvent(t, source, category.ID, due.AddDate(0, 1, 0))

	data, err := NewExportService(source).ExportCSV()
	testutil.AssertNoError(t, err)
	if !strings.HasPrefix(string(data), importHeader) {
		t.Fatalf("expected export header %q, got %q", importHeader, string(data))
	}

	target := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, target)

	outcome, err := NewImportService(target, 4).Reconcile(data)
	testutil.AssertNoError(t, err)
	if outcome.ImportedCount != 2 || outcome.FailedCount != 0 {
		t.Fatalf("expected 2 imported / 0 failed, got %s", outcome.Message)
	}

	var restored models.Event
	if err := target.Preload("Category").Where("title = ?", "Family dinner").First(&restored).Error; err != nil {
		t.Fatalf("failed to load round-tripped event: %v", err)
	}
	if !restored.IsRecurring || restored.RecurrenceInterval != 3 || restored.RecurrenceUnit != temporal.UnitMonths {
		t.Errorf("recurrence did not survive the round trip: %+v", restored)
	}
	if restored.Category.Name != "family" {
		t.Errorf("expected category %q, got %q", "family", restored.Category.Name)
	}
	if restored.Notes == nil || *restored.Notes != notes {
		t.Errorf("expected notes %q, got %v", notes, restored.Notes)
	}
	if got := restored.NextOccurrence.Format("2006-01-02"); got != "2026-12-24" {
		t.Errorf("expected due date 2026-12-24, got %s", got)
	}
}

func TestDecodeImportRow_Defaults(t *testing.T) {
	result := decodeImportRow(importRow{
		Title:          "Minimal",
		NextOccurrence: "2026-10-01",
	})
	testutil.AssertNoError(t, result.err)

	event := result.event
	if event.IsRecurring {
		t.Error("expected non-recurring default")
	}
	if event.RecurrenceInterval != 1 || event.RecurrenceUnit != temporal.UnitYears {
		t.Errorf("expected 1 years default, got %d %s", event.RecurrenceInterval, event.RecurrenceUnit)
	}
	if event.Notes != nil {
		t.Errorf("expected nil notes, got %q", *event.Notes)
	}
}

func TestDecodeImportRow_Invalid(t *testing.T) {
	cases := []struct {
		name string
		row  importRow
	}{
		{"missing title", importRow{NextOccurrence: "2026-10-01"}},
		{"missing date", importRow{Title: "X"}},
		{"bad date", importRow{Title: "X", NextOccurrence: "soon"}},
		{"bad interval", importRow{Title: "X", NextOccurrence: "2026-10-01", RecurrenceInterval: "zero"}},
		{"negative interval", importRow{Title: "X", NextOccurrence: "2026-10-01", RecurrenceInterval: "-1"}},
		{"bad unit", importRow{Title: "X", NextOccurrence: "2026-10-01", RecurrenceUnit: "fortnights"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if result := decodeImportRow(tc.row); result.err == nil {
				t.Errorf("expected decode error, got event %+v", result.event)
			}
		})
	}
}

func TestDecodeImportRow_AcceptsRFC3339Dates(t *testing.T) {
	result := decodeImportRow(importRow{
		Title:          "Timestamped",
		NextOccurrence: "2026-10-01T00:00:00Z",
		IsRecurring:    "YES",
	})
	testutil.AssertNoError(t, result.err)
	if got := result.event.NextOccurrence.Format("2006-01-02"); got != "2026-10-01" {
		t.Errorf("expected 2026-10-01, got %s", got)
	}
	if !result.event.IsRecurring {
		t.Error("expected case-insensitive yes to mark recurring")
	}
}
