package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/rounds-hq/rounds/internal/audit"
	"github.com/rounds-hq/rounds/internal/platform/httpx"
	"github.com/rounds-hq/rounds/jobs"
)

const maxDateRange = 90 * 24 * time.Hour

var (
	errInvalidRange = errors.New("until must not precede since")
	errInvalidPage  = errors.New("page and page_size must be positive integers")
)

// HistoryService defines the business contract for audit history reads.
type HistoryService interface {
	History(ctx context.Context, targetPrincipalID int64, filters audit.HistoryFilters) (audit.Result, error)
	Export(ctx context.Context, targetPrincipalID int64, filters audit.HistoryFilters) ([]audit.Entry, error)
}

// Exporter writes audit history exports.
type Exporter interface {
	WriteCSV(entries []audit.Entry) ([]byte, error)
}

// Enqueuer submits background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Handler serves the compliance-facing audit history API.
type Handler struct {
	logger   *slog.Logger
	service  HistoryService
	exporter Exporter
	enqueuer Enqueuer
	now      func() time.Time
}

// NewHandler builds an audit history handler.
func NewHandler(logger *slog.Logger, service HistoryService, exporter Exporter, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		exporter: exporter,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

type entryResponse struct {
	ID                string    `json:"id"`
	ActorID           *int64    `json:"actor_id,omitempty"`
	TargetPrincipalID int64     `json:"target_principal_id"`
	Action            string    `json:"action"`
	Role              string    `json:"role"`
	Details           string    `json:"details,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type historyResponse struct {
	Entries []entryResponse `json:"entries"`
	Page    int             `json:"page"`
	HasNext bool            `json:"has_next"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.History(r.Context(), principalID, filters)
	if err != nil {
		h.logger.Error("load audit history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	entries := make([]entryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, historyResponse{
		Entries: entries,
		Page:    result.Paging.Page,
		HasNext: result.Paging.HasNext,
	})
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entries, err := h.service.Export(r.Context(), principalID, filters)
	if err != nil {
		h.logger.Error("export audit history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	data, err := h.exporter.WriteCSV(entries)
	if err != nil {
		h.logger.Error("render audit csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-history.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleExportAsync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "background export not configured")
		return
	}
	principalID, ok := pathPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	task, err := jobs.NewAuditExportTask(principalID, filters)
	if err != nil {
		h.logger.Error("build export task", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.enqueuer.Enqueue(r.Context(), task); err != nil {
		h.logger.Error("enqueue export task", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// parseFilters reads since/until/page/page_size query parameters. The date
// window is capped to keep export queries bounded.
func (h *Handler) parseFilters(r *http.Request) (audit.HistoryFilters, error) {
	var filters audit.HistoryFilters
	q := r.URL.Query()

	if raw := q.Get("since"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return filters, err
		}
		filters.Since = t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return filters, err
		}
		filters.Until = t
	}
	if !filters.Since.IsZero() && !filters.Until.IsZero() {
		if filters.Until.Before(filters.Since) {
			return filters, errInvalidRange
		}
		if filters.Until.Sub(filters.Since) > maxDateRange {
			filters.Since = filters.Until.Add(-maxDateRange)
		}
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filters, errInvalidPage
		}
		filters.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filters, errInvalidPage
		}
		filters.PageSize = size
	}
	return filters, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func pathPrincipalID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "principalID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toEntryResponse(e audit.Entry) entryResponse {
	return entryResponse{
		ID:                e.ID.String(),
		ActorID:           e.ActorID,
		TargetPrincipalID: e.TargetPrincipalID,
		Action:            string(e.Action),
		Role:              e.RoleName,
		Details:           e.Details,
		OccurredAt:        e.At,
	}
}
