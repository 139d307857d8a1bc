package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/floral-staffing/internal/staffing"
)

// originHeader identifies the surface (browser tab, kiosk, API client) that
// issued a mutation so the sync layer can tell surfaces apart.
const originHeader = "X-Origin-ID"

type assignmentService interface {
	AddResource(ctx context.Context, params staffing.AddResourceParams) (staffing.MutationResult, error)
	Confirm(ctx context.Context, params staffing.ConfirmParams) (staffing.MutationResult, error)
	Refuse(ctx context.Context, params staffing.RefuseParams) (staffing.MutationResult, error)
	Remove(ctx context.Context, params staffing.RemoveParams) (staffing.MutationResult, error)
	SetRequiredCount(ctx context.Context, params staffing.SetRequiredCountParams) (staffing.MutationResult, error)
	Assignments(ctx context.Context, eventID string) ([]staffing.Assignment, error)
	CheckConflicts(ctx context.Context, eventID, resourceID string) (staffing.ConflictReport, error)
}

type AssignmentHandler struct {
	service   assignmentService
	responder responder
}

func NewAssignmentHandler(service assignmentService, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{service: service, responder: newResponder(logger)}
}

// List returns the latest known assignment snapshot for an event.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	assignments, err := h.service.Assignments(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAssignmentsResponse{
		Assignments: toAssignmentDTOs(assignments),
	})
}

// Add creates a pending assignment for a resource.
func (h *AssignmentHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req addResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.ResourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	result, err := h.service.AddResource(r.Context(), staffing.AddResourceParams{
		EventID:    eventID,
		ResourceID: strings.TrimSpace(req.ResourceID),
		OriginID:   r.Header.Get(originHeader),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMutation(r, w, result, http.StatusCreated)
}

// Confirm moves an assignment into a quota slot. A non-forced confirm that
// hits an advisory conflict comes back as 409 with the conflicting events;
// repeating the request with "force": true applies it.
func (h *AssignmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, resourceID, ok := h.pathIdentifiers(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req confirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	result, err := h.service.Confirm(r.Context(), staffing.ConfirmParams{
		EventID:    eventID,
		ResourceID: resourceID,
		Force:      req.Force,
		OriginID:   r.Header.Get(originHeader),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if !result.Applied && result.Conflicts != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "CONFLICT_DETECTED",
			Message:   "the resource is already booked on an overlapping event",
			Conflicts: toConflictReportDTO(*result.Conflicts),
		})
		return
	}

	h.renderMutation(r, w, result, http.StatusOK)
}

// Refuse marks an assignment as refused.
func (h *AssignmentHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, resourceID, ok := h.pathIdentifiers(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	result, err := h.service.Refuse(r.Context(), staffing.RefuseParams{
		EventID:    eventID,
		ResourceID: resourceID,
		OriginID:   r.Header.Get(originHeader),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMutation(r, w, result, http.StatusOK)
}

// Remove deletes an assignment entry entirely.
func (h *AssignmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, resourceID, ok := h.pathIdentifiers(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	result, err := h.service.Remove(r.Context(), staffing.RemoveParams{
		EventID:    eventID,
		ResourceID: resourceID,
		OriginID:   r.Header.Get(originHeader),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMutation(r, w, result, http.StatusOK)
}

// SetRequiredCount changes the confirmed quota for an event.
func (h *AssignmentHandler) SetRequiredCount(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req requiredCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.SetRequiredCount(r.Context(), staffing.SetRequiredCountParams{
		EventID:  eventID,
		Required: req.RequiredResourceCount,
		OriginID: r.Header.Get(originHeader),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderMutation(r, w, result, http.StatusOK)
}

// CheckConflicts runs the advisory double-booking scan without mutating.
func (h *AssignmentHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	resourceID := strings.TrimSpace(r.URL.Query().Get("resourceId"))
	if resourceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	report, err := h.service.CheckConflicts(r.Context(), eventID, resourceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConflictReportDTO(report))
}

func (h *AssignmentHandler) pathIdentifiers(r *http.Request) (eventID, resourceID string, ok bool) {
	eventID, eventOK := EventIDFromContext(r.Context())
	resourceID, resourceOK := ResourceIDFromContext(r.Context())
	if !eventOK || !resourceOK || strings.TrimSpace(eventID) == "" || strings.TrimSpace(resourceID) == "" {
		return "", "", false
	}
	return eventID, resourceID, true
}

// renderMutation writes a mutation result. A failed store write after the
// local commit surfaces as a warning on an otherwise successful response so
// the caller knows the displayed state is ahead of the database.
func (h *AssignmentHandler) renderMutation(r *http.Request, w http.ResponseWriter, result staffing.MutationResult, status int) {
	payload := mutationResponse{
		Event:       toEventDTO(result.Event),
		Applied:     result.Applied,
		SideEffects: toTransitionDTOs(result.SideEffects),
	}
	if result.PersistenceErr != nil {
		payload.Warning = "the change was applied and broadcast, but saving it failed; it will be retried on the next write"
		logger := handlerLogger(r.Context(), h.responder.logger, "assignment", "render", "event_id", result.Event.ID)
		logger.WarnContext(r.Context(), "mutation persisted locally only", "error", result.PersistenceErr)
	}

	h.responder.writeJSON(r.Context(), w, status, payload)
}

type addResourceRequest struct {
	ResourceID string `json:"resourceId"`
}

type confirmRequest struct {
	Force bool `json:"force"`
}

type requiredCountRequest struct {
	RequiredResourceCount int `json:"requiredResourceCount"`
}

type listAssignmentsResponse struct {
	Assignments []assignmentDTO `json:"assignments"`
}

type mutationResponse struct {
	Event       eventDTO        `json:"event"`
	Applied     bool            `json:"applied"`
	SideEffects []transitionDTO `json:"sideEffects,omitempty"`
	Warning     string          `json:"warning,omitempty"`
}

type transitionDTO struct {
	ResourceID string `json:"resourceId"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Message    string `json:"message,omitempty"`
}

func toTransitionDTOs(transitions []staffing.Transition) []transitionDTO {
	if len(transitions) == 0 {
		return nil
	}
	out := make([]transitionDTO, 0, len(transitions))
	for _, transition := range transitions {
		out = append(out, transitionDTO{
			ResourceID: transition.ResourceID,
			From:       string(transition.From),
			To:         string(transition.To),
			Message:    transition.Message,
		})
	}
	return out
}
