package domain

// MaxQuantity bounds a single cart line.
const MaxQuantity = 999

// LineKey identifies a unique cart line: the same product added with a
// different size or shoe size is a separate line.
type LineKey struct {
	ProductID int
	Size      string
	ShoeSize  int
}

type CartItem struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Price     Price  `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	ShoeSize  int    `json:"shoe_size,omitempty"`
	ImageSrc  string `json:"image_src,omitempty"`
	Stock     *int   `json:"stock,omitempty"`
}

func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.ProductID, Size: i.Size, ShoeSize: i.ShoeSize}
}

// ValidQuantity reports whether q is acceptable for a cart line.
// Quantities outside the bound never persist; a stored value that fails
// this check contributes zero to totals.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

// CloneItems deep-copies a cart line list so order snapshots stay
// untouched by later cart mutations.
func CloneItems(items []CartItem) []CartItem {
	cloned := make([]CartItem, len(items))
	copy(cloned, items)
	for i := range cloned {
		if cloned[i].Stock != nil {
			stock := *cloned[i].Stock
			cloned[i].Stock = &stock
		}
	}
	return cloned
}
