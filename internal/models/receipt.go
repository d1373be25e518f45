package models

// LineItem is one purchase extracted from a receipt or entered by hand.
// Price is signed: a negative price is a discount that could not be attributed
// to a specific product.
type LineItem struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}
