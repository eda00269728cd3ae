package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stontr/internal/errors"
	"stontr/internal/services"
)

// maxImportBytes caps the accepted upload size at 5 MiB.
const maxImportBytes = 5 << 20

// ImpexHandler handles bulk CSV import and export requests.
type ImpexHandler struct {
	importService services.ImportServicer
	exportService services.ExportServicer
	auditService  services.AuditServicer
}

// NewImpexHandler creates a new ImpexHandler.
func NewImpexHandler(importService services.ImportServicer, exportService services.ExportServicer, auditService services.AuditServicer) *ImpexHandler {
	return &ImpexHandler{
		importService: importService,
		exportService: exportService,
		auditService:  auditService,
	}
}

// ImportEvents handles a bulk CSV upload.
// @Summary     Import events
// @Description Import events from an uploaded CSV file in one transaction
// @Tags        impex
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "CSV file"
// @Success     200 {object} services.ImportOutcome "Import outcome"
// @Failure     400 {object} ErrorResponse "Invalid upload or unparsable CSV"
// @Failure     500 {object} ErrorResponse "Import failed and was rolled back"
// @Router      /events/import [post]
func (h *ImpexHandler) ImportEvents(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "A CSV file upload named 'file' is required"))
		return
	}
	if fileHeader.Size > maxImportBytes {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "CSV file exceeds the 5 MiB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	outcome, err := h.importService.Reconcile(data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("IMPORT_EVENTS", "event", "", c.ClientIP(),
		map[string]interface{}{
			"filename": fileHeader.Filename,
			"imported": outcome.ImportedCount,
			"failed":   outcome.FailedCount,
		})

	c.JSON(http.StatusOK, outcome)
}

// ExportEvents handles downloading the event store as CSV.
// @Summary     Export events
// @Description Download every event as a CSV attachment
// @Tags        impex
// @Produce     text/csv
// @Success     200 {string} string "CSV file"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/export [get]
func (h *ImpexHandler) ExportEvents(c *gin.Context) {
	data, err := h.exportService.ExportCSV()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stontr_events.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
