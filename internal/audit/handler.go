package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the audit endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		if !shared.Known(err) {
			h.logger.Error("audit timeline failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries": result.Entries,
		"paging": map[string]any{
			"page":      result.Paging.Page,
			"page_size": result.Paging.PageSize,
			"prev_page": result.Paging.PrevPage,
			"next_page": result.Paging.NextPage,
			"has_next":  result.Paging.HasNext,
		},
	})
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	var filters TimelineFilters
	var err error

	if filters.ActorID, err = queryInt(q.Get("actor_id")); err != nil {
		return filters, err
	}
	if filters.EntityID, err = queryInt(q.Get("entity_id")); err != nil {
		return filters, err
	}
	filters.EntityType = q.Get("entity_type")
	filters.Action = q.Get("action")

	if raw := q.Get("from"); raw != "" {
		if filters.From, err = time.Parse(time.RFC3339, raw); err != nil {
			return filters, err
		}
	}
	if raw := q.Get("to"); raw != "" {
		if filters.To, err = time.Parse(time.RFC3339, raw); err != nil {
			return filters, err
		}
	}

	page, err := queryInt(q.Get("page"))
	if err != nil {
		return filters, err
	}
	filters.Page = int(page)
	pageSize, err := queryInt(q.Get("page_size"))
	if err != nil {
		return filters, err
	}
	filters.PageSize = int(pageSize)
	return filters, nil
}

func queryInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
