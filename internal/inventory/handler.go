package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes stock queries, batch intake and manual adjustments.
type Handler struct {
	logger            *slog.Logger
	service           *Service
	lowStockThreshold int64
}

// NewHandler builds Handler. threshold is the default low stock cutoff
// when the query string does not supply one.
func NewHandler(logger *slog.Logger, service *Service, threshold int64) *Handler {
	return &Handler{logger: logger, service: service, lowStockThreshold: threshold}
}

// Routes mounts the inventory endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products/{id}/stock", h.stockLevels)
	r.Get("/products/{id}/stock/{warehouseID}", h.warehouseStock)
	r.Get("/stock/low", h.lowStock)
	r.Post("/stock/adjust", h.adjust)
	r.Post("/batches", h.receiveBatch)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	levels, err := h.service.StockLevels(r.Context(), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock_levels": levels})
}

func (h *Handler) warehouseStock(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	warehouseID, err := pathID(r, "warehouseID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid warehouse id")
		return
	}
	qty, err := h.service.WarehouseStock(r.Context(), productID, warehouseID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"quantity":     qty,
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid threshold")
			return
		}
		threshold = parsed
	}
	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"threshold": threshold, "items": items})
}

type adjustRequest struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"`
	ActorID     int64  `json:"actor_id"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.ActorID == 0 {
		req.ActorID = shared.ActorFromContext(r.Context())
	}
	level, err := h.service.Adjust(r.Context(), AdjustInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Delta:       req.Delta,
		Reason:      req.Reason,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

type receiveBatchRequest struct {
	ProductID   int64      `json:"product_id"`
	WarehouseID int64      `json:"warehouse_id"`
	BatchNumber string     `json:"batch_number"`
	Quantity    int64      `json:"quantity"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	ActorID     int64      `json:"actor_id"`
}

func (h *Handler) receiveBatch(w http.ResponseWriter, r *http.Request) {
	var req receiveBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.ActorID == 0 {
		req.ActorID = shared.ActorFromContext(r.Context())
	}
	batch, err := h.service.ReceiveBatch(r.Context(), ReceiveBatchInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		ExpiryDate:  req.ExpiryDate,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInsufficientBatchStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Quantity", err.Error())
	case errors.Is(err, ErrStockNotFound), errors.Is(err, ErrBatchNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		if !shared.Known(err) {
			h.logger.Error("inventory request failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
