package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// ImportRow is one parsed spreadsheet row of a bulk order upload.
type ImportRow struct {
	Line         int
	Barcode      string
	Color        string
	Quantity     int64
	Address      string
	SupplierName string
}

type importGroup struct {
	supplier string
	address  string
	rows     []ImportRow
}

// Import turns uploaded rows into draft orders, one per distinct
// (supplier, address) pair, in first-appearance order. Products resolve by
// barcode and color; the same category and scope rules as Create apply.
// The first invalid row fails the whole import with its line number, and
// nothing is persisted.
func (s *Service) Import(ctx context.Context, actor actors.Actor, rows []ImportRow) ([]Order, error) {
	if !CanCreate(actor) {
		return nil, fmt.Errorf("%w: only sales may import orders", httpx.ErrForbidden)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to import", httpx.ErrValidation)
	}

	groups := groupRows(rows)
	created := make([]Order, 0, len(groups))
	prefixes := make([]string, 0, len(groups))
	for _, g := range groups {
		order, prefix, err := s.buildImportedOrder(ctx, actor, g)
		if err != nil {
			return nil, err
		}
		created = append(created, order)
		prefixes = append(prefixes, prefix)
	}

	// Persist every group in one transaction so a failure leaves no
	// partial import behind.
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i := range created {
			for attempt := 0; ; attempt++ {
				err := tx.Insert(ctx, &created[i])
				if err == nil {
					break
				}
				if !errors.Is(err, ErrNumberConflict) || attempt == numberAttempts-1 {
					return mapRepoError(err)
				}
				created[i].OrderNumber = NewOrderNumber(prefixes[i], s.now())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range created {
		s.recordAudit(ctx, actor, "order.import", created[i], map[string]any{"supplier": created[i].SupplierName})
	}
	s.logger.Info("orders imported", "rows", len(rows), "orders", len(created), "actor_id", actor.ID)
	return created, nil
}

func groupRows(rows []ImportRow) []importGroup {
	index := map[[2]string]int{}
	groups := []importGroup{}
	for _, row := range rows {
		key := [2]string{row.SupplierName, row.Address}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, importGroup{supplier: row.SupplierName, address: row.Address})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}

func (s *Service) buildImportedOrder(ctx context.Context, actor actors.Actor, g importGroup) (Order, string, error) {
	var (
		items      []Item
		categoryID int64
		byProduct  = map[int64]int{}
	)
	for _, row := range g.rows {
		if row.Quantity <= 0 {
			return Order{}, "", fmt.Errorf("%w: row %d: quantity must be positive", httpx.ErrValidation, row.Line)
		}
		product, err := s.catalog.FindByBarcodeColor(ctx, row.Barcode, row.Color)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return Order{}, "", fmt.Errorf("%w: row %d: no product with barcode %s color %s", httpx.ErrValidation, row.Line, row.Barcode, row.Color)
			}
			return Order{}, "", err
		}
		if !product.IsActive {
			return Order{}, "", fmt.Errorf("%w: row %d: product %s is inactive", httpx.ErrValidation, row.Line, product.Code)
		}
		if !actor.CategoryAllowed(product.CategoryID) {
			return Order{}, "", fmt.Errorf("%w: row %d: product %s is outside your categories", httpx.ErrForbidden, row.Line, product.Code)
		}
		if len(items) == 0 {
			categoryID = product.CategoryID
		} else if product.CategoryID != categoryID {
			return Order{}, "", fmt.Errorf("%w: row %d: all rows of one order must share a category", httpx.ErrValidation, row.Line)
		}
		if i, seen := byProduct[product.ID]; seen {
			items[i].Quantity += row.Quantity
			items[i].LineTotal = round2(items[i].UnitPrice * float64(items[i].Quantity))
			continue
		}
		byProduct[product.ID] = len(items)
		items = append(items, Item{
			ProductID:   product.ID,
			ProductCode: product.Code,
			ProductName: product.Name,
			Barcode:     product.Barcode,
			Color:       product.Color,
			UnitPrice:   product.Price,
			Quantity:    row.Quantity,
			LineTotal:   round2(product.Price * float64(row.Quantity)),
		})
	}

	totals := ComputeTotals(sumLines(items), 0)
	order := Order{
		Status:          StatusDraft,
		PaymentStatus:   PaymentPending,
		SupplierName:    g.supplier,
		ShippingAddress: g.address,
		OrderDate:       s.now(),
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		TotalAmount:     totals.Total,
		CreatedBy:       actor.ID,
		Items:           items,
	}
	prefix, err := s.catalog.CategoryPrefix(ctx, categoryID)
	if err != nil {
		return Order{}, "", err
	}
	order.OrderNumber = NewOrderNumber(prefix, s.now())
	return order, prefix, nil
}
