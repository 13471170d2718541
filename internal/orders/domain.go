// Package orders implements the purchase-order aggregate: header and line
// items, the department/role status workflow, the merge engine and the
// tabular bulk import.
package orders

import (
	"math"
	"time"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
	StatusInactive  Status = "inactive"
)

// Statuses lists every valid order status.
var Statuses = []Status{StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusFulfilled, StatusInactive}

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentStatuses lists every valid payment status.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

// TaxRate applied to every order subtotal.
const TaxRate = 0.08

// Order is the aggregate root.
type Order struct {
	ID                int64         `json:"id"`
	OrderNumber       string        `json:"order_number"`
	Status            Status        `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	SupplierName      string        `json:"supplier_name"`
	ShippingAddress   string        `json:"shipping_address"`
	OrderDate         time.Time     `json:"order_date"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery,omitempty"`
	Notes             string        `json:"notes"`
	Subtotal          float64       `json:"subtotal"`
	Tax               float64       `json:"tax"`
	Shipping          float64       `json:"shipping"`
	TotalAmount       float64       `json:"total_amount"`
	Merged            bool          `json:"merged"`
	CreatedBy         int64         `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	Items             []Item        `json:"items,omitempty"`
}

// Item is a line item. Product data is snapshotted at write time so
// historical orders stay stable against later catalog edits.
type Item struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Barcode     string  `json:"barcode"`
	Color       string  `json:"color"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int64   `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// Totals holds the derived money fields of an order.
type Totals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// ComputeTotals derives tax and total from subtotal and shipping:
// tax = round(subtotal*0.08, 2), total = subtotal + tax + shipping.
func ComputeTotals(subtotal, shipping float64) Totals {
	tax := round2(subtotal * TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    round2(subtotal + tax + shipping),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}
