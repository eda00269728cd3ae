package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "stontr/internal/errors"
	"stontr/internal/models"
	"stontr/internal/pagination"
	"stontr/internal/services"
	"stontr/internal/temporal"
)

// EventHandler handles event-related requests.
type EventHandler struct {
	eventService     services.EventServicer
	auditService     services.AuditServicer
	oneTimeCycleDays int
}

// NewEventHandler creates a new EventHandler. oneTimeCycleDays is the
// progress window applied to non-recurring events.
func NewEventHandler(eventService services.EventServicer, auditService services.AuditServicer, oneTimeCycleDays int) *EventHandler {
	return &EventHandler{
		eventService:     eventService,
		auditService:     auditService,
		oneTimeCycleDays: oneTimeCycleDays,
	}
}

// CreateEventRequest represents the request payload for creating an event.
type CreateEventRequest struct {
	Title              string        `json:"title" binding:"required,min=1,max=200"`
	CategoryID         string        `json:"category_id" binding:"required,uuid"`
	NextOccurrence     time.Time     `json:"next_occurrence" binding:"required"`
	IsRecurring        bool          `json:"is_recurring"`
	RecurrenceInterval int           `json:"recurrence_interval" binding:"omitempty,gte=1"`
	RecurrenceUnit     temporal.Unit `json:"recurrence_unit" binding:"omitempty,recurrence_unit"`
	Notes              *string       `json:"notes"`
}

// UpdateEventRequest represents the request payload for updating an event.
type UpdateEventRequest struct {
	Title              string        `json:"title" binding:"required,min=1,max=200"`
	CategoryID         string        `json:"category_id" binding:"required,uuid"`
	NextOccurrence     time.Time     `json:"next_occurrence" binding:"required"`
	IsRecurring        bool          `json:"is_recurring"`
	RecurrenceInterval int           `json:"recurrence_interval" binding:"omitempty,gte=1"`
	RecurrenceUnit     temporal.Unit `json:"recurrence_unit" binding:"omitempty,recurrence_unit"`
	Notes              *string       `json:"notes"`
}

// UpdateEventNotesRequest represents the request payload for replacing an
// event's notes. A null value clears them.
type UpdateEventNotesRequest struct {
	Notes *string `json:"notes"`
}

// EventResponse decorates an event with its computed schedule state.
type EventResponse struct {
	models.Event
	DaysRemaining int              `json:"days_remaining"`
	Urgency       temporal.Urgency `json:"urgency"`
	Progress      float64          `json:"progress"`
	TimeRemaining string           `json:"time_remaining"`
}

func (h *EventHandler) eventResponse(event models.Event, now time.Time) (EventResponse, error) {
	result, err := temporal.Progress(temporal.ProgressInput{
		DueDate:            event.NextOccurrence,
		IsRecurring:        event.IsRecurring,
		RecurrenceInterval: event.RecurrenceInterval,
		RecurrenceUnit:     event.RecurrenceUnit,
		OneTimeCycleDays:   h.oneTimeCycleDays,
	}, now)
	if err != nil {
		return EventResponse{}, err
	}
	return EventResponse{
		Event:         event,
		DaysRemaining: result.DaysRemaining,
		Urgency:       result.Urgency,
		Progress:      result.Fraction,
		TimeRemaining: result.Remaining,
	}, nil
}

// CreateEvent handles the creation of a new event.
// @Summary     Create an event
// @Description Create a new tracked event in an existing category
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       request body CreateEventRequest true "Event details"
// @Success     201 {object} EventResponse "Event created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.eventService.CreateEvent(
		req.Title, req.CategoryID, req.NextOccurrence, req.IsRecurring,
		req.RecurrenceInterval, req.RecurrenceUnit, req.Notes,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_EVENT", "event", event.ID, c.ClientIP(),
		map[string]interface{}{"title": event.Title, "categoryId": event.CategoryID})

	response, err := h.eventResponse(*event, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": response})
}

// GetEvents handles listing events soonest-first.
// @Summary     Get events
// @Description Get a paginated list of events ordered by next occurrence
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       category  query string false "Filter by category name"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[EventResponse] "Paginated events"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events [get]
func (h *EventHandler) GetEvents(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	events, err := h.eventService.GetEvents(page, c.Query("category"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now()
	items := make([]EventResponse, 0, len(events.Data))
	for _, event := range events.Data {
		response, err := h.eventResponse(event, now)
		if err != nil {
			respondWithError(c, err)
			return
		}
		items = append(items, response)
	}

	c.JSON(http.StatusOK, pagination.PageResponse[EventResponse]{
		Data:       items,
		Page:       events.Page,
		PageSize:   events.PageSize,
		TotalItems: events.TotalItems,
		TotalPages: events.TotalPages,
	})
}

// GetEvent handles retrieving a single event.
// @Summary     Get an event
// @Description Get one event with its computed urgency and progress
// @Tags        events
// @Produce     json
// @Param       id path string true "Event ID"
// @Success     200 {object} EventResponse "Event"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	event, err := h.eventService.GetEventByID(eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response, err := h.eventResponse(*event, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": response})
}

// UpdateEvent handles replacing an event's fields.
// @Summary     Update an event
// @Description Replace an event's title, category, schedule and notes
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       id      path string             true "Event ID"
// @Param       request body UpdateEventRequest true "Event details"
// @Success     200 {object} EventResponse "Event updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Event or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	eventID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.eventService.UpdateEvent(
		eventID, req.Title, req.CategoryID, req.NextOccurrence, req.IsRecurring,
		req.RecurrenceInterval, req.RecurrenceUnit, req.Notes,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("UPDATE_EVENT", "event", event.ID, c.ClientIP(),
		map[string]interface{}{"title": req.Title, "categoryId": req.CategoryID})

	response, err := h.eventResponse(*event, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": response})
}

// UpdateEventNotes handles replacing an event's notes.
// @Summary     Update event notes
// @Description Replace the notes on an event; null clears them
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       id      path string                  true "Event ID"
// @Param       request body UpdateEventNotesRequest true "Notes"
// @Success     200 {object} EventResponse "Event updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id}/notes [put]
func (h *EventHandler) UpdateEventNotes(c *gin.Context) {
	eventID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateEventNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.eventService.UpdateEventNotes(eventID, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response, err := h.eventResponse(*event, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": response})
}

// CompleteEvent handles marking an event done.
// @Summary     Complete an event
// @Description Advance a recurring event to its next occurrence, or remove a one-time event
// @Tags        events
// @Produce     json
// @Param       id path string true "Event ID"
// @Success     200 {object} EventResponse "Event advanced or removed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id}/complete [post]
func (h *EventHandler) CompleteEvent(c *gin.Context) {
	eventID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	event, removed, err := h.eventService.CompleteEvent(eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("COMPLETE_EVENT", "event", eventID, c.ClientIP(),
		map[string]interface{}{"removed": removed})

	if removed {
		c.JSON(http.StatusOK, gin.H{"message": "Event completed and removed", "removed": true})
		return
	}

	response, err := h.eventResponse(*event, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": response, "removed": false})
}

// DeleteEvent handles removing an event.
// @Summary     Delete an event
// @Description Delete an event
// @Tags        events
// @Produce     json
// @Param       id path string true "Event ID"
// @Success     200 {object} map[string]string "Event deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	eventID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.eventService.DeleteEvent(eventID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_EVENT", "event", eventID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
