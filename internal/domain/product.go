package domain

import "math"

type Variant string

const (
	VariantSkate  Variant = "skate"
	VariantBasket Variant = "basket"
	VariantTenis  Variant = "tenis"
)

type Review struct {
	ID       int    `json:"id"`
	UserName string `json:"user_name"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	Date     string `json:"date"`
}

type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       Price    `json:"price"`
	ImageSrc    string   `json:"image_src"`
	Variant     Variant  `json:"variant"`
	Description string   `json:"description,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	ShoeSizes   []int    `json:"shoe_sizes,omitempty"`
	Reviews     []Review `json:"reviews,omitempty"`
	Rating      int      `json:"rating"`
}

// ComputeRating averages the review ratings, rounded to the nearest
// integer. Products without reviews rate 0 and are excluded from
// rating-based filters.
func (p Product) ComputeRating() int {
	if len(p.Reviews) == 0 {
		return 0
	}
	var sum int
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	return int(math.Round(float64(sum) / float64(len(p.Reviews))))
}
