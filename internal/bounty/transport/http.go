// Package transport provides HTTP handlers for the bounty domain.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/observability/metrics"
	"github.com/bugchan/bountyd/internal/storage"
	"github.com/bugchan/bountyd/internal/validation"
)

// Handler handles HTTP requests for the bounty lifecycle.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new bounty HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only bounty lifecycle routes (no auth
// required). Mounted under /bounties.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{id}/submissions", h.handleListSubmissions)
	r.Get("/{id}/submissions/{researcher}", h.handleGetSubmission)
	r.Get("/{id}/events", h.handleListEvents)
}

// RegisterWriteRoutes registers mutating bounty lifecycle routes (auth
// required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/{id}/submissions", h.handleSubmit)
	r.Post("/{id}/submissions/{researcher}/accept", h.handleAccept)
	r.Post("/{id}/submissions/{researcher}/reject", h.handleReject)
	r.Post("/{id}/submissions/{researcher}/severity", h.handleSetSeverity)
	r.Post("/{id}/submissions/{researcher}/visibility", h.handleSetVisibility)
	r.Post("/{id}/close", h.handleClose)
	r.Post("/{id}/close-expired", h.handleCloseExpired)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	sub, err := h.svc.SubmitReport(r.Context(), chi.URLParam(r, "id"), domain.SubmitRequest{
		Researcher: req.Researcher,
		ContentRef: req.ContentRef,
		Deposit:    req.Deposit,
	})
	if err != nil {
		metrics.Submission("error")
		writeDomainError(w, err, "Failed to submit report")
		return
	}
	metrics.Submission("ok")
	writeJSON(w, http.StatusCreated, SubmissionFromDomain(sub, true))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	caller, ok := decodeCaller(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.AcceptSubmission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "researcher"), caller)
	if err != nil {
		metrics.Triage("accept", "error")
		writeDomainError(w, err, "Failed to accept submission")
		return
	}
	metrics.Triage("accept", "ok")
	writeJSON(w, http.StatusOK, SubmissionFromDomain(sub, true))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	caller, ok := decodeCaller(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.RejectSubmission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "researcher"), caller)
	if err != nil {
		metrics.Triage("reject", "error")
		writeDomainError(w, err, "Failed to reject submission")
		return
	}
	metrics.Triage("reject", "ok")
	writeJSON(w, http.StatusOK, SubmissionFromDomain(sub, true))
}

func (h *Handler) handleSetSeverity(w http.ResponseWriter, r *http.Request) {
	var req SeverityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	severity, err := domain.ParseSeverity(req.Severity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown severity")
		return
	}
	sub, err := h.svc.SetSeverity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "researcher"), req.Caller, severity)
	if err != nil {
		metrics.Triage("severity", "error")
		writeDomainError(w, err, "Failed to set severity")
		return
	}
	metrics.Triage("severity", "ok")
	writeJSON(w, http.StatusOK, SubmissionFromDomain(sub, true))
}

func (h *Handler) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	sub, err := h.svc.SetVisibility(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "researcher"), req.Caller, domain.Visibility(req.Visibility), req.ContentRef)
	if err != nil {
		metrics.Triage("visibility", "error")
		writeDomainError(w, err, "Failed to change visibility")
		return
	}
	metrics.Triage("visibility", "ok")
	writeJSON(w, http.StatusOK, SubmissionFromDomain(sub, true))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	caller, ok := decodeCaller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Close(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		metrics.Close("owner", "error", 0)
		writeDomainError(w, err, "Failed to close bounty")
		return
	}
	metrics.Close("owner", "ok", res.Winners)
	writeJSON(w, http.StatusOK, CloseFromDomain(res))
}

func (h *Handler) handleCloseExpired(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CloseIfExpired(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		metrics.Close("expired", "error", 0)
		writeDomainError(w, err, "Failed to close bounty")
		return
	}
	metrics.Close("expired", "ok", res.Winners)
	writeJSON(w, http.StatusOK, CloseFromDomain(res))
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	bountyID := chi.URLParam(r, "id")
	researcher := chi.URLParam(r, "researcher")
	sub, err := h.svc.GetSubmission(r.Context(), bountyID, researcher)
	if err != nil {
		writeDomainError(w, err, "Failed to get submission")
		return
	}
	writeJSON(w, http.StatusOK, SubmissionFromDomain(sub, h.mayReveal(r, sub)))
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	bountyID := chi.URLParam(r, "id")
	subs, err := h.svc.ListSubmissions(r.Context(), bountyID)
	if err != nil {
		writeDomainError(w, err, "Failed to list submissions")
		return
	}

	viewer := validation.NormalizeAddress(r.URL.Query().Get("viewer"))
	var triage bool
	if viewer != "" {
		if b, err := h.svc.GetBounty(r.Context(), bountyID); err == nil {
			triage = domain.CanTriage(b, viewer)
		}
	}

	data := make([]SubmissionResponse, 0, len(subs))
	for i := range subs {
		reveal := triage || viewer == subs[i].Researcher
		data = append(data, SubmissionFromDomain(&subs[i], reveal))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": data,
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	result, err := h.svc.ListEvents(r.Context(), chi.URLParam(r, "id"), storage.PaginationParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		writeDomainError(w, err, "Failed to list events")
		return
	}

	data := make([]EventResponse, 0, len(result.Data))
	for i := range result.Data {
		data = append(data, EventFromRecord(&result.Data[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": data,
		"pagination": map[string]any{
			"limit":      limit,
			"hasMore":    result.HasMore,
			"nextCursor": result.NextCursor,
		},
	})
}

// mayReveal reports whether the requesting viewer may see a private
// report's content reference.
func (h *Handler) mayReveal(r *http.Request, sub *domain.Submission) bool {
	viewer := validation.NormalizeAddress(r.URL.Query().Get("viewer"))
	if viewer == "" {
		return false
	}
	if viewer == sub.Researcher {
		return true
	}
	b, err := h.svc.GetBounty(r.Context(), sub.BountyID)
	if err != nil {
		return false
	}
	return domain.CanTriage(b, viewer)
}

func decodeCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req CallerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return "", false
	}
	return req.Caller, true
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrBountyNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Bounty not found")
	case errors.Is(err, domain.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Submission not found")
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "ALREADY_SUBMITTED", "This wallet has already submitted to this bounty")
	case errors.Is(err, domain.ErrBountyClosed):
		writeError(w, http.StatusConflict, "BOUNTY_CLOSED", "Bounty is closed")
	case errors.Is(err, domain.ErrWrongStakeAmount):
		writeError(w, http.StatusUnprocessableEntity, "WRONG_STAKE", "Deposit must equal the bounty's stake amount")
	case errors.Is(err, domain.ErrNotExpired):
		writeError(w, http.StatusConflict, "NOT_EXPIRED", "Bounty end time has not passed")
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Caller is not authorized for this operation")
	case errors.Is(err, domain.ErrInvalidParameters):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
