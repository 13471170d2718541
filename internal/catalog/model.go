package catalog

import "time"

// Product represents a catalog product.
type Product struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id"`
	Price      float64   `json:"price"`
	Barcode    string    `json:"barcode"`
	Color      string    `json:"color"`
	Quantity   int64     `json:"quantity"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Category represents a product category. The prefix feeds human readable
// order numbers.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// DefaultPrefix is used for order numbers when a category has no prefix,
// and for merged orders that span categories.
const DefaultPrefix = "XX"
