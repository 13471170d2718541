package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/catalog"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// memoryRepo is an in-memory Repository. WithTx snapshots state and
// restores it when the callback fails, mirroring a rollback.
type memoryRepo struct {
	cat        *fakeCatalog
	orders     map[int64]Order
	stock      map[int64]int64
	nextID     int64
	nextItemID int64
}

func newMemoryRepo(cat *fakeCatalog) *memoryRepo {
	return &memoryRepo{cat: cat, orders: map[int64]Order{}, stock: map[int64]int64{}}
}

func cloneOrder(o Order) Order {
	out := o
	out.Items = make([]Item, len(o.Items))
	copy(out.Items, o.Items)
	return out
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return Order{}, ErrOrderNotFound
}

func (r *memoryRepo) matches(o Order, filter Filter) bool {
	if filter.ExcludeMerged && o.Merged {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if o.Status == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.CategoryIDs) > 0 {
		found := false
		for _, it := range o.Items {
			p, ok := r.cat.products[it.ProductID]
			if !ok {
				continue
			}
			for _, id := range filter.CategoryIDs {
				if p.CategoryID == id {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" &&
		!strings.Contains(o.OrderNumber, filter.Search) &&
		!strings.Contains(o.SupplierName, filter.Search) {
		return false
	}
	return true
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]Order, int64, error) {
	out := []Order{}
	for id := int64(1); id <= r.nextID; id++ {
		o, ok := r.orders[id]
		if !ok || !r.matches(o, filter) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) Search(ctx context.Context, filter Filter) ([]Order, int64, error) {
	return r.List(ctx, filter)
}

func (r *memoryRepo) insert(o *Order) error {
	for _, existing := range r.orders {
		if existing.OrderNumber == o.OrderNumber {
			return ErrNumberConflict
		}
	}
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		r.nextItemID++
		o.Items[i].ID = r.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *memoryRepo) Create(ctx context.Context, o *Order) error {
	return r.insert(o)
}

func (r *memoryRepo) Update(ctx context.Context, o *Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return ErrOrderNotFound
	}
	o.UpdatedAt = time.Now()
	r.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]Order, len(r.orders))
	for id, o := range r.orders {
		snapshot[id] = cloneOrder(o)
	}
	stockSnapshot := make(map[int64]int64, len(r.stock))
	for id, qty := range r.stock {
		stockSnapshot[id] = qty
	}
	nextID, nextItemID := r.nextID, r.nextItemID

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.orders = snapshot
		r.stock = stockSnapshot
		r.nextID, r.nextItemID = nextID, nextItemID
		return err
	}
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) Insert(ctx context.Context, o *Order) error {
	return tx.repo.insert(o)
}

func (tx *memoryTx) MarkMerged(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		o, ok := tx.repo.orders[id]
		if !ok {
			continue
		}
		o.Merged = true
		tx.repo.orders[id] = o
	}
	return nil
}

func (tx *memoryTx) IncrementStock(ctx context.Context, productID, qty int64) error {
	if _, ok := tx.repo.cat.products[productID]; !ok {
		return ErrOrderNotFound
	}
	tx.repo.stock[productID] += qty
	return nil
}

// fakeCatalog backs the Catalog port with fixtures.
type fakeCatalog struct {
	products map[int64]catalog.Product
	prefixes map[int64]string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[int64]catalog.Product{}, prefixes: map[int64]string{}}
}

func (c *fakeCatalog) add(p catalog.Product) {
	c.products[p.ID] = p
}

func (c *fakeCatalog) Get(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	return p, nil
}

func (c *fakeCatalog) FindByCode(ctx context.Context, code string) (catalog.Product, error) {
	for _, p := range c.products {
		if p.Code == code {
			return p, nil
		}
	}
	return catalog.Product{}, fmt.Errorf("%w: product", httpx.ErrNotFound)
}

func (c *fakeCatalog) FindByBarcodeColor(ctx context.Context, barcode, color string) (catalog.Product, error) {
	for _, p := range c.products {
		if p.Barcode == barcode && p.Color == color {
			return p, nil
		}
	}
	return catalog.Product{}, fmt.Errorf("%w: product", httpx.ErrNotFound)
}

func (c *fakeCatalog) CategoryPrefix(ctx context.Context, id int64) (string, error) {
	if prefix, ok := c.prefixes[id]; ok {
		return prefix, nil
	}
	return catalog.DefaultPrefix, nil
}

// fakeNotifier records broadcasts.
type fakeNotifier struct {
	events []string
	orders []Order
}

func (n *fakeNotifier) Broadcast(ctx context.Context, o Order, sender actors.Actor, event, message string) {
	n.events = append(n.events, event)
	n.orders = append(n.orders, o)
}

func newTestService() (*Service, *memoryRepo, *fakeCatalog, *fakeNotifier) {
	cat := newFakeCatalog()
	repo := newMemoryRepo(cat)
	notifier := &fakeNotifier{}
	svc := NewService(repo, cat, notifier, nil, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return svc, repo, cat, notifier
}

var (
	salesManager = actors.Actor{ID: 1, Name: "Lan", Role: actors.RoleManager, Department: actors.DepartmentSales, IsActive: true}
	salesClerk   = actors.Actor{ID: 2, Name: "Minh", Role: actors.RoleEmployee, Department: actors.DepartmentSales, CategoryIDs: []int64{1}, IsActive: true}
	procurement  = actors.Actor{ID: 3, Name: "Thu", Role: actors.RoleManager, Department: actors.DepartmentProcurement, IsActive: true}
	director     = actors.Actor{ID: 4, Name: "Quang", Role: actors.RoleDirector, IsActive: true}
)

func fixtureProducts(cat *fakeCatalog) {
	cat.add(catalog.Product{ID: 10, Code: "SHIRT-01", Name: "Shirt", CategoryID: 1, Price: 10, Barcode: "111", Color: "red", Quantity: 50, IsActive: true})
	cat.add(catalog.Product{ID: 11, Code: "SHIRT-02", Name: "Shirt Slim", CategoryID: 1, Price: 25.5, Barcode: "112", Color: "blue", Quantity: 40, IsActive: true})
	cat.add(catalog.Product{ID: 20, Code: "SHOE-01", Name: "Shoe", CategoryID: 2, Price: 40, Barcode: "211", Color: "black", Quantity: 30, IsActive: true})
	cat.prefixes[1] = "SH"
	cat.prefixes[2] = "FT"
}
