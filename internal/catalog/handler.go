package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bluehouse-sports/storefront/internal/domain"
)

type Handler struct {
	provider *Provider
	logger   *slog.Logger
}

func NewHandler(provider *Provider, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort, err := parseSort(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products := h.provider.Filtered(r.Context(), filter, sort)
	if products == nil {
		products = []domain.Product{}
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func parseFilter(query url.Values) (Filter, error) {
	var filter Filter
	filter.Variant = domain.Variant(query.Get("variant"))

	if raw := query.Get("min_price"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return Filter{}, errors.New("invalid min_price")
		}
		filter.MinPrice = &min
	}
	if raw := query.Get("max_price"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return Filter{}, errors.New("invalid max_price")
		}
		filter.MaxPrice = &max
	}
	if raw := query.Get("sizes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			size, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Filter{}, errors.New("invalid sizes")
			}
			filter.ShoeSizes = append(filter.ShoeSizes, size)
		}
	}
	if raw := query.Get("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			return Filter{}, errors.New("rating must be between 1 and 5")
		}
		filter.Rating = rating
	}
	return filter, nil
}

func parseSort(query url.Values) (Sort, error) {
	var sort Sort
	switch by := query.Get("sort"); SortBy(by) {
	case "":
	case SortByPrice, SortByPopularity, SortByNewest, SortByRating:
		sort.By = SortBy(by)
	default:
		return Sort{}, errors.New("invalid sort")
	}
	switch order := query.Get("order"); SortOrder(order) {
	case "", OrderDesc:
		sort.Order = OrderDesc
	case OrderAsc:
		sort.Order = OrderAsc
	default:
		return Sort{}, errors.New("invalid order")
	}
	return sort, nil
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, ok := h.provider.ProductByID(r.Context(), id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleRecommended(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, ok := h.provider.ProductByID(r.Context(), id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	recommended := h.provider.Recommended(r.Context(), product.ID, product.Variant, 4)
	if recommended == nil {
		recommended = []domain.Product{}
	}
	h.writeJSON(w, http.StatusOK, recommended)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	products := h.provider.Search(r.Context(), term)

	h.logger.Info("catalog searched", "term", SanitizeTerm(term), "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleRecentSearches(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.provider.RecentSearches(r.Context()))
}

type addReviewRequest struct {
	UserName string `json:"user_name"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	Date     string `json:"date"`
}

func (h *Handler) HandleAddReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req addReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		h.writeError(w, http.StatusUnprocessableEntity, "rating must be between 1 and 5")
		return
	}

	review := domain.Review{
		UserName: req.UserName,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Date:     req.Date,
	}

	product, ok := h.provider.AddReview(r.Context(), id, review)
	if !ok {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("review added", "product_id", id, "rating", req.Rating)
	h.writeJSON(w, http.StatusCreated, product)
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
