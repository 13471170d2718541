package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/catalog"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// Combine collapses the fulfilled, paid subset of the referenced orders
// into one new draft order and returns stock to the warehouse. Every
// referenced order is flagged merged, the qualifying items are aggregated
// by product at the product's current price, and each product's on-hand
// quantity is incremented by the merged amount. The whole operation runs in
// a single transaction; a failure at any step leaves nothing behind.
func (s *Service) Combine(ctx context.Context, actor actors.Actor, orderIDs []int64) (Order, error) {
	if !CanMerge(actor) {
		return Order{}, fmt.Errorf("%w: only procurement may combine orders", httpx.ErrForbidden)
	}
	if len(orderIDs) == 0 {
		return Order{}, fmt.Errorf("%w: no orders selected", httpx.ErrValidation)
	}

	var merged Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sources := make([]Order, 0, len(orderIDs))
		for _, id := range orderIDs {
			o, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return mapRepoError(err)
			}
			sources = append(sources, o)
		}
		if err := tx.MarkMerged(ctx, orderIDs); err != nil {
			return err
		}

		qualifying := sources[:0]
		for _, o := range sources {
			if o.Status == StatusFulfilled && o.PaymentStatus == PaymentPaid && !o.Merged {
				qualifying = append(qualifying, o)
			}
		}
		if len(qualifying) == 0 {
			return fmt.Errorf("%w: no valid orders to merge", httpx.ErrValidation)
		}

		items, err := s.aggregateItems(ctx, qualifying)
		if err != nil {
			return err
		}

		totals := ComputeTotals(sumLines(items), 0)
		merged = Order{
			Status:          StatusDraft,
			PaymentStatus:   PaymentPending,
			SupplierName:    qualifying[0].SupplierName,
			ShippingAddress: qualifying[0].ShippingAddress,
			OrderDate:       s.now(),
			Notes:           "Merged from " + sourceNumbers(qualifying),
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Shipping:        0,
			TotalAmount:     totals.Total,
			Merged:          true,
			CreatedBy:       actor.ID,
			Items:           items,
		}
		// A merged order spans categories, so its number carries the
		// neutral prefix.
		for attempt := 0; ; attempt++ {
			merged.OrderNumber = NewOrderNumber(catalog.DefaultPrefix, s.now())
			err := tx.Insert(ctx, &merged)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrNumberConflict) || attempt == numberAttempts-1 {
				return mapRepoError(err)
			}
		}

		for _, it := range merged.Items {
			if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if s.notifier != nil {
		s.notifier.Broadcast(ctx, merged, actor, "order.merged",
			fmt.Sprintf("Order %s created by merging %d orders", merged.OrderNumber, len(orderIDs)))
	}
	s.recordAudit(ctx, actor, "order.combine", merged, map[string]any{"sources": orderIDs})
	s.logger.Info("orders combined", "order_id", merged.ID, "order_number", merged.OrderNumber, "sources", len(orderIDs), "actor_id", actor.ID)
	return merged, nil
}

// aggregateItems groups the source orders' items by product, summing
// quantities and repricing every line at the product's current price.
func (s *Service) aggregateItems(ctx context.Context, sources []Order) ([]Item, error) {
	quantities := map[int64]int64{}
	var productIDs []int64
	for _, o := range sources {
		for _, it := range o.Items {
			if _, seen := quantities[it.ProductID]; !seen {
				productIDs = append(productIDs, it.ProductID)
			}
			quantities[it.ProductID] += it.Quantity
		}
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	items := make([]Item, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.catalog.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		qty := quantities[id]
		items = append(items, Item{
			ProductID:   product.ID,
			ProductCode: product.Code,
			ProductName: product.Name,
			Barcode:     product.Barcode,
			Color:       product.Color,
			UnitPrice:   product.Price,
			Quantity:    qty,
			LineTotal:   round2(product.Price * float64(qty)),
		})
	}
	return items, nil
}

func sourceNumbers(sources []Order) string {
	numbers := make([]string, 0, len(sources))
	for _, o := range sources {
		numbers = append(numbers, o.OrderNumber)
	}
	return strings.Join(numbers, ", ")
}
