package reports

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Service groups the reporting source rows by period.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Monthly groups rows by calendar month (MM/YYYY of the order date) and
// sums quantities per product.
func (s *Service) Monthly(ctx context.Context) ([]MonthlyGroup, error) {
	rows, err := s.repo.MergedOrderRows(ctx)
	if err != nil {
		return nil, err
	}
	grouped := groupRows(rows, monthKey, false)
	out := make([]MonthlyGroup, 0, len(grouped))
	for _, g := range grouped {
		out = append(out, MonthlyGroup{Month: g.key, Products: g.products})
	}
	return out, nil
}

// Yearly groups rows by calendar year, sums quantities and computes
// revenue at each product's snapshotted unit price plus a per-year total.
func (s *Service) Yearly(ctx context.Context) ([]YearlyGroup, error) {
	rows, err := s.repo.MergedOrderRows(ctx)
	if err != nil {
		return nil, err
	}
	grouped := groupRows(rows, yearKey, true)
	out := make([]YearlyGroup, 0, len(grouped))
	for _, g := range grouped {
		var total float64
		for _, p := range g.products {
			total += p.Revenue
		}
		out = append(out, YearlyGroup{Year: g.key, Products: g.products, Total: total})
	}
	return out, nil
}

type periodGroup struct {
	key      string
	products []ProductTotal
}

// groupRows buckets rows by the period key in first-appearance order
// (rows arrive sorted by order date) and merges each bucket by product.
// Revenue is the first-seen unit price times the summed quantity; later
// rows of the same product keep that price even when their own snapshot
// differs.
func groupRows(rows []Row, key func(time.Time) string, withRevenue bool) []periodGroup {
	index := map[string]int{}
	groups := []periodGroup{}
	position := map[string]map[int64]int{}
	prices := map[string]map[int64]float64{}
	for _, row := range rows {
		k := key(row.OrderDate)
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, periodGroup{key: k})
			position[k] = map[int64]int{}
			prices[k] = map[int64]float64{}
		}
		g := &groups[gi]
		pi, seen := position[k][row.ProductID]
		if !seen {
			pi = len(g.products)
			position[k][row.ProductID] = pi
			prices[k][row.ProductID] = row.Price
			g.products = append(g.products, ProductTotal{
				ProductID:   row.ProductID,
				ProductCode: row.ProductCode,
				ProductName: row.ProductName,
			})
		}
		g.products[pi].Quantity += row.Quantity
		if withRevenue {
			g.products[pi].Revenue = prices[k][row.ProductID] * float64(g.products[pi].Quantity)
		}
	}
	for i := range groups {
		sort.Slice(groups[i].products, func(a, b int) bool {
			return groups[i].products[a].ProductID < groups[i].products[b].ProductID
		})
	}
	return groups
}
