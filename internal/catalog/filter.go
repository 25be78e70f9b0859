package catalog

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/bluehouse-sports/storefront/internal/domain"
)

type SortBy string

const (
	SortByPrice      SortBy = "price"
	SortByPopularity SortBy = "popularity"
	SortByNewest     SortBy = "newest"
	SortByRating     SortBy = "rating"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Filter narrows a product list. Zero-valued fields do not constrain.
type Filter struct {
	Variant   domain.Variant
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	ShoeSizes []int
	Rating    int
}

// Sort orders a product list. An empty By keeps the source order; any
// order but asc means descending.
type Sort struct {
	By    SortBy
	Order SortOrder
}

func (f Filter) match(p domain.Product) bool {
	if f.Variant != "" && p.Variant != f.Variant {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if len(f.ShoeSizes) > 0 {
		carried := false
		for _, size := range p.ShoeSizes {
			if slices.Contains(f.ShoeSizes, size) {
				carried = true
				break
			}
		}
		if !carried {
			return false
		}
	}
	if f.Rating > 0 {
		// A product with no reviews never matches a rating filter, and a
		// reviewed one matches only when some review carries that exact
		// rating.
		rated := false
		for _, review := range p.Reviews {
			if review.Rating == f.Rating {
				rated = true
				break
			}
		}
		if !rated {
			return false
		}
	}
	return true
}

func applyFilterSort(products []domain.Product, f Filter, s Sort) []domain.Product {
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.match(p) {
			filtered = append(filtered, p)
		}
	}
	if s.By == "" {
		return filtered
	}

	dir := -1
	if s.Order == OrderAsc {
		dir = 1
	}
	slices.SortStableFunc(filtered, func(a, b domain.Product) int {
		var c int
		switch s.By {
		case SortByPrice:
			c = a.Price.Cmp(b.Price.Decimal)
		case SortByRating:
			c = a.Rating - b.Rating
		case SortByPopularity:
			c = a.ID - b.ID
		case SortByNewest:
			c = b.ID - a.ID
		}
		return c * dir
	})
	return filtered
}
