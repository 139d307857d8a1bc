package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/floral-staffing/internal/staffing"
)

type eventService interface {
	CreateEvent(ctx context.Context, input staffing.EventInput) (staffing.Event, error)
	GetEvent(ctx context.Context, id string) (staffing.Event, error)
	ListEvents(ctx context.Context) ([]staffing.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type eventRequest struct {
	Title                 string `json:"title"`
	Date                  string `json:"date"`
	StartTime             string `json:"startTime"`
	EndTime               string `json:"endTime"`
	RequiredResourceCount int    `json:"requiredResourceCount"`
}

func (r eventRequest) toInput() staffing.EventInput {
	return staffing.EventInput{
		Title:                 strings.TrimSpace(r.Title),
		Date:                  parseDate(r.Date),
		StartTime:             strings.TrimSpace(r.StartTime),
		EndTime:               strings.TrimSpace(r.EndTime),
		RequiredResourceCount: r.RequiredResourceCount,
	}
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	Date                  string          `json:"date"`
	StartTime             string          `json:"startTime,omitempty"`
	EndTime               string          `json:"endTime,omitempty"`
	RequiredResourceCount int             `json:"requiredResourceCount"`
	Assignments           []assignmentDTO `json:"assignments"`
	CreatedAt             string          `json:"createdAt"`
	UpdatedAt             string          `json:"updatedAt"`
}

func toEventDTO(event staffing.Event) eventDTO {
	return eventDTO{
		ID:                    event.ID,
		Title:                 event.Title,
		Date:                  event.Date.Format(time.DateOnly),
		StartTime:             event.StartTime,
		EndTime:               event.EndTime,
		RequiredResourceCount: event.RequiredResourceCount,
		Assignments:           toAssignmentDTOs(event.Assignments),
		CreatedAt:             event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             event.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEventDTOs(events []staffing.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type assignmentDTO struct {
	ResourceID       string `json:"resourceId"`
	ResourceName     string `json:"resourceName"`
	Status           string `json:"status"`
	AssignedAt       string `json:"assignedAt"`
	GeneratedMessage string `json:"generatedMessage,omitempty"`
}

func toAssignmentDTO(assignment staffing.Assignment) assignmentDTO {
	return assignmentDTO{
		ResourceID:       assignment.ResourceID,
		ResourceName:     assignment.ResourceName,
		Status:           string(assignment.Status),
		AssignedAt:       assignment.AssignedAt.UTC().Format(time.RFC3339),
		GeneratedMessage: assignment.GeneratedMessage,
	}
}

func toAssignmentDTOs(assignments []staffing.Assignment) []assignmentDTO {
	out := make([]assignmentDTO, 0, len(assignments))
	for _, assignment := range assignments {
		out = append(out, toAssignmentDTO(assignment))
	}
	return out
}

type conflictReportDTO struct {
	HasConflict bool                  `json:"hasConflict"`
	Conflicting []conflictingEventDTO `json:"conflictingEvents,omitempty"`
}

type conflictingEventDTO struct {
	EventID    string `json:"eventId"`
	EventTitle string `json:"eventTitle"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
}

func toConflictReportDTO(report staffing.ConflictReport) *conflictReportDTO {
	dto := conflictReportDTO{HasConflict: report.HasConflict}
	for _, conflicting := range report.Conflicting {
		dto.Conflicting = append(dto.Conflicting, conflictingEventDTO{
			EventID:    conflicting.EventID,
			EventTitle: conflicting.EventTitle,
			Date:       conflicting.Date.Format(time.DateOnly),
			StartTime:  conflicting.StartTime,
			EndTime:    conflicting.EndTime,
		})
	}
	return &dto
}
