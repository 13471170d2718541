package actors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdesk/orderdesk/internal/shared"
)

// Repository defines persistence operations for actors.
type Repository interface {
	Get(ctx context.Context, id int64) (*Actor, error)
	// ListActiveIDs returns the ids of every active actor except the one
	// given. Used for notification broadcast.
	ListActiveIDs(ctx context.Context, exceptID int64) ([]int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get fetches an actor together with its category scope.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Actor, error) {
	var actor Actor
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, role, department, is_active
FROM users WHERE id = $1`, id).Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Role, &actor.Department, &actor.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT category_id FROM user_categories WHERE user_id = $1 ORDER BY category_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var categoryID int64
		if err := rows.Scan(&categoryID); err != nil {
			return nil, err
		}
		actor.CategoryIDs = append(actor.CategoryIDs, categoryID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &actor, nil
}

// ListActiveIDs returns all active actor ids excluding exceptID.
func (r *PGRepository) ListActiveIDs(ctx context.Context, exceptID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE is_active AND id <> $1 ORDER BY id`, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
