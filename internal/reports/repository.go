package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is one order line in the reporting source set: an item of a merged,
// fulfilled, paid order. Price is the unit price snapshotted on the line
// item, not the product's current catalog price.
type Row struct {
	OrderDate   time.Time
	ProductID   int64
	ProductCode string
	ProductName string
	Price       float64
	Quantity    int64
}

// Repository reads the reporting source rows.
type Repository interface {
	MergedOrderRows(ctx context.Context) ([]Row, error)
}

// PGRepository reads reporting rows from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) MergedOrderRows(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.order_date, oi.product_id, oi.product_code, oi.product_name, oi.unit_price, oi.quantity
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
WHERE o.merged = TRUE AND o.status = 'fulfilled' AND o.payment_status = 'paid'
ORDER BY o.order_date ASC, oi.product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.OrderDate, &row.ProductID, &row.ProductCode, &row.ProductName, &row.Price, &row.Quantity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
