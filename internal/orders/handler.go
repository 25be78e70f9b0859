package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/messaging"
)

type Handler struct {
	store     *Store
	publisher *messaging.Publisher
	logger    *slog.Logger
}

// NewHandler wires the order ledger to HTTP. The publisher may be nil;
// status changes then go unannounced but the ledger still works.
func NewHandler(store *Store, publisher *messaging.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders := h.store.UserOrders(r.Context())

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, ok := h.store.OrderByID(r.Context(), id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to update order status", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.publisher != nil {
		event := domain.OrderStatusChangedEvent{
			EventID:   uuid.NewString(),
			OrderID:   order.ID,
			Status:    order.Status,
			Timestamp: time.Now().UTC(),
		}
		if err := h.publisher.Publish(r.Context(), strconv.Itoa(order.ID), event); err != nil {
			h.logger.Error("failed to publish status change", "error", err, "order_id", order.ID)
		}
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
