package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence port for notifications.
type Repository interface {
	InsertBatch(ctx context.Context, notifications []Notification) error
	ListForUser(ctx context.Context, userID int64, orderStatuses []string, now time.Time) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository persists notifications in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) InsertBatch(ctx context.Context, notifications []Notification) error {
	for _, n := range notifications {
		if _, err := r.pool.Exec(ctx, `INSERT INTO notifications (user_id, sender_id, order_id, type, message, read, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,FALSE,$6,NOW())`, n.UserID, n.SenderID, n.OrderID, n.Type, n.Message, n.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID int64, orderStatuses []string, now time.Time) ([]Notification, error) {
	if len(orderStatuses) == 0 {
		return []Notification{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT n.id, n.user_id, n.sender_id, n.order_id, n.type, n.message, n.read, n.expires_at, n.created_at
FROM notifications n
JOIN orders o ON o.id = n.order_id
WHERE n.user_id = $1 AND n.expires_at > $2 AND o.status = ANY($3)
ORDER BY n.created_at DESC`, userID, now, orderStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.SenderID, &n.OrderID, &n.Type, &n.Message, &n.Read, &n.ExpiresAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PGRepository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PGRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
