package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bluehouse-sports/storefront/internal/domain"
)

type Handler struct {
	store   *Store
	catalog Catalog
	logger  *slog.Logger
}

func NewHandler(store *Store, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{store: store, catalog: catalog, logger: logger}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.State())
}

type addItemRequest struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	ShoeSize  int    `json:"shoe_size,omitempty"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, ok := h.catalog.ProductByID(r.Context(), req.ProductID)
	if !ok {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	item := domain.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Size:      req.Size,
		ShoeSize:  req.ShoeSize,
		ImageSrc:  product.ImageSrc,
		Stock:     product.Stock,
	}

	if err := h.store.AddItem(r.Context(), item, req.Quantity); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("cart item added", "product_id", product.ID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusCreated, h.store.State())
}

type updateQuantityRequest struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	ShoeSize  int    `json:"shoe_size,omitempty"`
}

func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.UpdateQuantity(r.Context(), req.ProductID, req.Quantity, req.Size, req.ShoeSize); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("cart quantity updated", "product_id", req.ProductID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.Atoi(q.Get("product_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	shoeSize, _ := strconv.Atoi(q.Get("shoe_size"))

	h.store.RemoveItem(r.Context(), productID, q.Get("size"), shoeSize)
	h.writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear(r.Context())
	h.writeJSON(w, http.StatusOK, h.store.State())
}

type discountRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.ApplyDiscount(r.Context(), req.Code); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "unknown discount code")
		return
	}

	h.logger.Info("discount applied", "code", req.Code)
	h.writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) HandleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveDiscount()
	h.writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"product":   stockErr.ProductName,
			"available": stockErr.Available,
		})
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("cart operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
