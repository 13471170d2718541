// Package jobs runs background maintenance for the order workflow on
// Asynq, currently the periodic purge of expired notifications.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/orderdesk/orderdesk/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationsPurge removes expired notification rows.
	TaskNotificationsPurge = "notifications:purge"
)

// NewNotificationsPurgeTask constructs the purge task.
func NewNotificationsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskNotificationsPurge, nil)
}

// PurgeHandler processes TaskNotificationsPurge.
type PurgeHandler struct {
	Notify *notify.Service
	Logger *slog.Logger
}

// Handle deletes expired notifications.
func (h PurgeHandler) Handle(ctx context.Context, t *asynq.Task) error {
	removed, err := h.Notify.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("expired notifications purged", "removed", removed)
	}
	return nil
}
