package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilters represents standard product list filters.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID *int64
	IsActive   *bool
}

// Repository defines catalog persistence operations.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	FindByCode(ctx context.Context, code string) (Product, error)
	FindByBarcodeColor(ctx context.Context, barcode, color string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	IncrementStock(ctx context.Context, productID int64, qty int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CategoryPrefix(ctx context.Context, id int64) (string, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)
	UpdateCategory(ctx context.Context, id int64, category Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// Sentinel errors surfaced by the repository.
var (
	ErrNotFound  = errors.New("catalog: not found")
	ErrDuplicate = errors.New("catalog: duplicate code")
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, code, name, category_id, price, barcode, color, quantity, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.Price, &p.Barcode, &p.Color, &p.Quantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	appendCond := func(cond string, value interface{}) {
		argCount++
		placeholder := ` ` + cond + ` $` + strconv.Itoa(argCount)
		query += placeholder
		countQuery += placeholder
		args = append(args, value)
	}

	if filters.CategoryID != nil {
		appendCond(`AND category_id =`, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		clause := ` AND (name ILIKE $` + n + ` OR code ILIKE $` + n + ` OR barcode ILIKE $` + n + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		appendCond(`AND is_active =`, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY code ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) FindByCode(ctx context.Context, code string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code))
}

func (r *repository) FindByBarcodeColor(ctx context.Context, barcode, color string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1 AND color = $2`, barcode, color))
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO products (code, name, category_id, price, barcode, color, quantity, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		product.Code, product.Name, product.CategoryID, product.Price, product.Barcode, product.Color, product.Quantity, product.IsActive, now, now).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicate
		}
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET code=$1, name=$2, category_id=$3, price=$4, barcode=$5, color=$6, quantity=$7, is_active=$8, updated_at=NOW()
WHERE id = $9`, product.Code, product.Name, product.CategoryID, product.Price, product.Barcode, product.Color, product.Quantity, product.IsActive, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementStock adjusts the on-hand quantity with a single statement so
// concurrent adjustments never lose updates.
func (r *repository) IncrementStock(ctx context.Context, productID int64, qty int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2`, qty, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, prefix FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Prefix); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, name, prefix FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

// CategoryPrefix returns the category's order-number prefix, falling back
// to DefaultPrefix when the category is missing or has none.
func (r *repository) CategoryPrefix(ctx context.Context, id int64) (string, error) {
	var prefix string
	err := r.db.QueryRow(ctx, `SELECT prefix FROM categories WHERE id = $1`, id).Scan(&prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPrefix, nil
	}
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return DefaultPrefix, nil
	}
	return prefix, nil
}

func (r *repository) CreateCategory(ctx context.Context, category Category) (Category, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name, prefix) VALUES ($1, $2) RETURNING id`,
		category.Name, category.Prefix).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, ErrDuplicate
		}
		return Category{}, err
	}
	return category, nil
}

func (r *repository) UpdateCategory(ctx context.Context, id int64, category Category) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET name=$1, prefix=$2 WHERE id = $3`, category.Name, category.Prefix, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
