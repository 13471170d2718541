// Package reports aggregates merged order history into monthly and yearly
// product summaries and serves them as JSON or CSV downloads.
package reports

import "time"

// ProductTotal is one product's aggregate inside a period group.
type ProductTotal struct {
	ProductID   int64   `json:"product_id"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	Revenue     float64 `json:"revenue,omitempty"`
}

// MonthlyGroup sums product quantities for one calendar month.
type MonthlyGroup struct {
	Month    string         `json:"month"` // MM/YYYY
	Products []ProductTotal `json:"products"`
}

// YearlyGroup sums product quantities and revenue for one calendar year.
type YearlyGroup struct {
	Year     string         `json:"year"` // YYYY
	Products []ProductTotal `json:"products"`
	Total    float64        `json:"total"`
}

func monthKey(t time.Time) string {
	return t.Format("01/2006")
}

func yearKey(t time.Time) string {
	return t.Format("2006")
}
