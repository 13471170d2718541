package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// money renders amounts with thousand separators for the spreadsheet
// audience.
var money = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return money.Sprintf("%.2f", v)
}

// selectMonths narrows an export to the requested MM/YYYY periods. An
// empty request exports every month.
func selectMonths(groups []MonthlyGroup, wanted []string) []MonthlyGroup {
	if len(wanted) == 0 {
		return groups
	}
	keep := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		keep[w] = true
	}
	out := []MonthlyGroup{}
	for _, g := range groups {
		if keep[g.Month] {
			out = append(out, g)
		}
	}
	return out
}

// selectYears narrows an export to the requested years.
func selectYears(groups []YearlyGroup, wanted []string) []YearlyGroup {
	if len(wanted) == 0 {
		return groups
	}
	keep := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		keep[w] = true
	}
	out := []YearlyGroup{}
	for _, g := range groups {
		if keep[g.Year] {
			out = append(out, g)
		}
	}
	return out
}

// WriteMonthlyCSV streams the monthly report as CSV. One row per product
// per month.
func WriteMonthlyCSV(w io.Writer, groups []MonthlyGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "product_code", "product_name", "quantity"}); err != nil {
		return err
	}
	for _, g := range groups {
		for _, p := range g.Products {
			if err := cw.Write([]string{g.Month, p.ProductCode, p.ProductName, strconv.FormatInt(p.Quantity, 10)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYearlyCSV streams the yearly report as CSV, with per-product
// revenue and a total row per year.
func WriteYearlyCSV(w io.Writer, groups []YearlyGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "product_code", "product_name", "quantity", "revenue"}); err != nil {
		return err
	}
	for _, g := range groups {
		for _, p := range g.Products {
			if err := cw.Write([]string{g.Year, p.ProductCode, p.ProductName, strconv.FormatInt(p.Quantity, 10), formatMoney(p.Revenue)}); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{g.Year, "", "TOTAL", "", formatMoney(g.Total)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
