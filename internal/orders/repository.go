package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdesk/orderdesk/internal/platform/db"
)

// Sentinel repository errors. The service maps these onto transport errors.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNumberConflict = errors.New("order number already taken")
)

// Filter narrows List queries.
type Filter struct {
	Statuses      []Status
	ExcludeMerged bool
	Search        string
	// CategoryIDs scopes results to orders whose items belong to the
	// given product categories. Empty means no scoping.
	CategoryIDs []int64
	Page        int
	Limit       int
}

// Repository is the persistence port for orders. The production
// implementation is PGRepository; tests use an in-memory fake.
type Repository interface {
	Get(ctx context.Context, id int64) (Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (Order, error)
	List(ctx context.Context, filter Filter) ([]Order, int64, error)
	Search(ctx context.Context, filter Filter) ([]Order, int64, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations the merge engine runs inside a single
// transaction: locking the source orders, writing the combined order,
// flagging sources and restocking products atomically.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	Insert(ctx context.Context, o *Order) error
	MarkMerged(ctx context.Context, ids []int64) error
	IncrementStock(ctx context.Context, productID, qty int64) error
}

// PGRepository persists orders in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const orderColumns = `id, order_number, status, payment_status, supplier_name, shipping_address,
order_date, estimated_delivery, notes, subtotal, tax, shipping, total_amount, merged,
created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.SupplierName, &o.ShippingAddress,
		&o.OrderDate, &o.EstimatedDelivery, &o.Notes, &o.Subtotal, &o.Tax, &o.Shipping, &o.TotalAmount, &o.Merged,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

func (r *PGRepository) GetByNumber(ctx context.Context, orderNumber string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number=$1`, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	items, err := loadItems(ctx, r.pool, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func getOrder(ctx context.Context, q querier, id int64, forUpdate bool) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	items, err := loadItems(ctx, q, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, product_code, product_name, barcode, color, unit_price, quantity, line_total
FROM order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.Barcode, &it.Color, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Order, int64, error) {
	where, args := baseWhere(filter)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (order_number ILIKE $` + n + ` OR supplier_name ILIKE $` + n + `)`
	}
	return r.queryPage(ctx, where, args, filter)
}

// Search widens the text match of List across line items, product
// attributes and category names.
func (r *PGRepository) Search(ctx context.Context, filter Filter) ([]Order, int64, error) {
	where, args := baseWhere(filter)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (order_number ILIKE $` + n + ` OR supplier_name ILIKE $` + n + `
OR EXISTS (SELECT 1 FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN categories c ON c.id = p.category_id
WHERE oi.order_id = orders.id AND (oi.product_name ILIKE $` + n + ` OR oi.barcode ILIKE $` + n + `
OR oi.color ILIKE $` + n + ` OR c.name ILIKE $` + n + `)))`
	}
	return r.queryPage(ctx, where, args, filter)
}

func baseWhere(filter Filter) (string, []any) {
	where := `WHERE 1=1`
	args := []any{}
	if len(filter.Statuses) > 0 {
		sts := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			sts = append(sts, string(s))
		}
		args = append(args, sts)
		where += ` AND status = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	if filter.ExcludeMerged {
		where += ` AND merged = FALSE`
	}
	if len(filter.CategoryIDs) > 0 {
		args = append(args, filter.CategoryIDs)
		where += ` AND EXISTS (SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = orders.id AND p.category_id = ANY($` + strconv.Itoa(len(args)) + `))`
	}
	return where, args
}

func (r *PGRepository) queryPage(ctx context.Context, where string, args []any, filter Filter) ([]Order, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + orderColumns + ` FROM orders ` + where +
		` ORDER BY order_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		items, err := loadItems(ctx, r.pool, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Items = items
	}
	return out, total, nil
}

func (r *PGRepository) Create(ctx context.Context, o *Order) error {
	return r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Insert(ctx, o)
	})
}

func (r *PGRepository) Update(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET status=$2, payment_status=$3, supplier_name=$4, shipping_address=$5,
order_date=$6, estimated_delivery=$7, notes=$8, subtotal=$9, tax=$10, shipping=$11, total_amount=$12, updated_at=NOW()
WHERE id=$1`, o.ID, o.Status, o.PaymentStatus, o.SupplierName, o.ShippingAddress,
			o.OrderDate, o.EstimatedDelivery, o.Notes, o.Subtotal, o.Tax, o.Shipping, o.TotalAmount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
			return err
		}
		return insertItems(ctx, tx, o.ID, o.Items)
	})
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, r.tx, id, true)
}

func (r *txRepository) Insert(ctx context.Context, o *Order) error {
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (order_number, status, payment_status, supplier_name, shipping_address,
order_date, estimated_delivery, notes, subtotal, tax, shipping, total_amount, merged, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		o.OrderNumber, o.Status, o.PaymentStatus, o.SupplierName, o.ShippingAddress,
		o.OrderDate, o.EstimatedDelivery, o.Notes, o.Subtotal, o.Tax, o.Shipping, o.TotalAmount, o.Merged, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNumberConflict
		}
		return err
	}
	return insertItems(ctx, r.tx, o.ID, o.Items)
}

func insertItems(ctx context.Context, q querier, orderID int64, items []Item) error {
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		if err := q.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, product_code, product_name, barcode, color, unit_price, quantity, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			it.OrderID, it.ProductID, it.ProductCode, it.ProductName, it.Barcode, it.Color, it.UnitPrice, it.Quantity, it.LineTotal).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) MarkMerged(ctx context.Context, ids []int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET merged = TRUE, updated_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}

func (r *txRepository) IncrementStock(ctx context.Context, productID, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2`, qty, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
