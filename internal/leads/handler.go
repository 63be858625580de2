package leads

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/aesthetic-leads/internal/observability/metrics"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// Handler serves the admin lead table.
type Handler struct {
	repo    Repository
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// WithMetrics records admin status changes on m.
func (h *Handler) WithMetrics(m *metrics.BookingMetrics) *Handler {
	h.metrics = m
	return h
}

// LeadView is a lead as the admin dashboard sees it.
type LeadView struct {
	*Lead
	Reference string `json:"reference"`
}

func viewOf(lead *Lead) LeadView {
	return LeadView{Lead: lead, Reference: lead.Reference()}
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []LeadView `json:"leads"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

// UpdateStatusRequest is the body of a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ListLeads handles GET /admin/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListLeadsFilter{Limit: defaultListLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= maxListLimit {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filter.Status = status
	}

	leads, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}

	views := make([]LeadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, viewOf(lead))
	}
	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  views,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/leads/{leadID}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load lead", "error", err, "lead_id", leadID)
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(lead))
}

// UpdateStatus handles PATCH /admin/leads/{leadID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		http.Error(w, "status must be one of NEW, CONTACTED, BOOKED, CLOSED", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.UpdateStatus(r.Context(), leadID, status)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update lead status", "error", err, "lead_id", leadID)
		http.Error(w, "failed to update lead", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveStatusChange(string(lead.Status))
	h.logger.Info("lead status updated", "lead_id", lead.ID, "status", lead.Status)
	writeJSON(w, http.StatusOK, viewOf(lead))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
