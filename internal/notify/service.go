package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/orders"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// ErrNotificationNotFound indicates a missing or foreign notification.
var ErrNotificationNotFound = errors.New("notification not found")

// Service writes and reads notifications. It satisfies orders.Notifier.
type Service struct {
	repo   Repository
	actors actors.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs Service.
func NewService(repo Repository, actorRepo actors.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, actors: actorRepo, logger: logger, now: time.Now}
}

var _ orders.Notifier = (*Service)(nil)

// Broadcast writes one notification per active actor other than the
// sender. Failures are logged, never surfaced: a notification must not
// fail the workflow action that triggered it.
func (s *Service) Broadcast(ctx context.Context, o orders.Order, sender actors.Actor, event, message string) {
	recipients, err := s.actors.ListActiveIDs(ctx, sender.ID)
	if err != nil {
		s.logger.Error("notification fan-out failed", "order_id", o.ID, "err", err)
		return
	}
	expires := s.now().Add(TTL)
	batch := make([]Notification, 0, len(recipients))
	for _, id := range recipients {
		batch = append(batch, Notification{
			UserID:    id,
			SenderID:  sender.ID,
			OrderID:   o.ID,
			Type:      event,
			Message:   message,
			ExpiresAt: expires,
		})
	}
	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		s.logger.Error("notification insert failed", "order_id", o.ID, "err", err)
		return
	}
	s.logger.Info("notification broadcast", "order_id", o.ID, "event", event, "recipients", len(batch))
}

// List returns the unexpired notifications relevant to actor's desk.
func (s *Service) List(ctx context.Context, actor actors.Actor) ([]Notification, error) {
	statuses := relevantStatuses(actor)
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	return s.repo.ListForUser(ctx, actor.ID, names, s.now())
}

// MarkRead flags one of actor's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor actors.Actor, id int64) error {
	if err := s.repo.MarkRead(ctx, actor.ID, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return fmt.Errorf("%w: notification", httpx.ErrNotFound)
		}
		return err
	}
	return nil
}

// PurgeExpired removes notifications past their expiry. Run by the
// scheduled purge job.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
