package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/inventory"
	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// MetricsPort receives order processing outcomes. Nil is allowed.
type MetricsPort interface {
	OrderProcessed(orderType, outcome string)
	StockConflict()
}

// Handler exposes the order processor over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics MetricsPort
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, metrics MetricsPort) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics}
}

// Routes mounts the order endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.get)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.ActorID == 0 {
		req.ActorID = shared.ActorFromContext(r.Context())
	}

	order, err := h.service.ProcessOrder(r.Context(), req)
	if err != nil {
		if h.metrics != nil {
			if errors.Is(err, shared.ErrConflict) {
				h.metrics.StockConflict()
			}
			h.metrics.OrderProcessed(req.Type, "failed")
		}
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrderProcessed(string(order.Type), "completed")
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, inventory.ErrInsufficientBatchStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrUnknownOrderType),
		errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrInactiveProduct),
		errors.Is(err, ErrInactiveWarehouse),
		errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Order", err.Error())
	default:
		if !shared.Known(err) {
			h.logger.Error("order request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
