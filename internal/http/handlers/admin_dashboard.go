package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

const (
	recentWindow    = 7 * 24 * time.Hour
	attemptsWindow  = 24 * time.Hour
	topSourcesLimit = 5
)

// AdminDashboardHandler serves the lead overview for clinic staff.
type AdminDashboardHandler struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminDashboardHandler creates a new admin dashboard handler.
func NewAdminDashboardHandler(db *sql.DB, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// DashboardResponse summarizes the lead table.
type DashboardResponse struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	NewLast7Days     int            `json:"new_last_7_days"`
	ByTargetArea     []AreaCount    `json:"by_target_area"`
	TopSources       []SourceCount  `json:"top_sources"`
	AttemptsLast24h  int64          `json:"attempts_last_24h"`
	ClientsLast24h   int            `json:"clients_last_24h"`
	AreaStatusFilter []string       `json:"area_status_filter"`
}

// AreaCount is the number of leads for one target area.
type AreaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

// SourceCount is the number of leads attributed to one source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// GetDashboard handles GET /admin/dashboard. The optional status query
// parameter (comma separated) narrows the target area breakdown.
func (h *AdminDashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	areaStatuses, err := parseStatusList(r.URL.Query().Get("status"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := h.now().UTC()
	resp := DashboardResponse{
		GeneratedAt:      now,
		ByStatus:         make(map[string]int, len(leads.Statuses)),
		AreaStatusFilter: areaStatuses,
	}
	for _, s := range leads.Statuses {
		resp.ByStatus[string(s)] = 0
	}

	ctx := r.Context()
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"status counts", func(ctx context.Context) error { return h.statusCounts(ctx, &resp) }},
		{"recent leads", func(ctx context.Context) error {
			return h.db.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, now.Add(-recentWindow),
			).Scan(&resp.NewLast7Days)
		}},
		{"target areas", func(ctx context.Context) error { return h.areaCounts(ctx, areaStatuses, &resp) }},
		{"top sources", func(ctx context.Context) error { return h.topSources(ctx, &resp) }},
		{"submission attempts", func(ctx context.Context) error {
			return h.db.QueryRowContext(ctx,
				`SELECT COALESCE(SUM(count), 0), COUNT(DISTINCT identifier) FROM rate_limit_counters WHERE bucket_start >= $1`,
				now.Add(-attemptsWindow),
			).Scan(&resp.AttemptsLast24h, &resp.ClientsLast24h)
		}},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			h.logger.Error("dashboard query failed", "step", step.name, "error", err)
			jsonError(w, "failed to load dashboard", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminDashboardHandler) statusCounts(ctx context.Context, resp *DashboardResponse) error {
	rows, err := h.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		resp.ByStatus[status] = n
		resp.Total += n
	}
	return rows.Err()
}

func (h *AdminDashboardHandler) areaCounts(ctx context.Context, statuses []string, resp *DashboardResponse) error {
	rows, err := h.db.QueryContext(ctx,
		`SELECT target_area, COUNT(*) FROM leads
		 WHERE status = ANY($1)
		 GROUP BY target_area
		 ORDER BY COUNT(*) DESC, target_area`,
		pq.Array(statuses),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	resp.ByTargetArea = []AreaCount{}
	for rows.Next() {
		var ac AreaCount
		if err := rows.Scan(&ac.Area, &ac.Count); err != nil {
			return err
		}
		resp.ByTargetArea = append(resp.ByTargetArea, ac)
	}
	return rows.Err()
}

func (h *AdminDashboardHandler) topSources(ctx context.Context, resp *DashboardResponse) error {
	rows, err := h.db.QueryContext(ctx,
		`SELECT COALESCE(NULLIF(utm_source, ''), NULLIF(source, ''), 'direct') AS src, COUNT(*)
		 FROM leads
		 GROUP BY src
		 ORDER BY COUNT(*) DESC, src
		 LIMIT $1`,
		topSourcesLimit,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	resp.TopSources = []SourceCount{}
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return err
		}
		resp.TopSources = append(resp.TopSources, sc)
	}
	return rows.Err()
}

// parseStatusList returns every status when raw is empty.
func parseStatusList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		out := make([]string, 0, len(leads.Statuses))
		for _, s := range leads.Statuses {
			out = append(out, string(s))
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		s, err := leads.ParseStatus(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status %q", strings.TrimSpace(part))
		}
		out = append(out, string(s))
	}
	return out, nil
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
