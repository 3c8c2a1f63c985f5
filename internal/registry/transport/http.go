// Package transport provides HTTP handlers for the registry domain.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/observability/metrics"
	"github.com/bugchan/bountyd/internal/registry/domain"
	"github.com/bugchan/bountyd/internal/storage"
)

// Handler handles HTTP requests for the bounty registry.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new registry HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only registry routes (no auth
// required). Mounted under /bounties.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

// RegisterWriteRoutes registers mutating registry routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	b, err := h.svc.Create(r.Context(), req.ToDomain())
	if err != nil {
		metrics.BountyCreate("error")
		if errors.Is(err, bounty.ErrInvalidParameters) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create bounty")
		return
	}
	metrics.BountyCreate("ok")
	writeJSON(w, http.StatusCreated, FromDomain(b))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, bounty.ErrBountyNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Bounty not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get bounty")
		return
	}
	writeJSON(w, http.StatusOK, FromDomain(b))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	result, err := h.svc.List(r.Context(), domain.ListFilter{
		Owner:  r.URL.Query().Get("owner"),
		Status: r.URL.Query().Get("status"),
	}, storage.PaginationParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list bounties")
		return
	}

	data := make([]BountyResponse, 0, len(result.Bounties))
	for i := range result.Bounties {
		data = append(data, FromDomain(&result.Bounties[i]))
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
