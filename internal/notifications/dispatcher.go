package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/pkg/queue"
)

// Dispatcher records a notification and enqueues its delivery. It is the
// Notifier the registration ledger and the badge awarder talk to.
type Dispatcher struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewDispatcher creates a notification dispatcher. queue may be nil, in
// which case notifications are recorded but only delivered in-app.
func NewDispatcher(repo *Repository, q *queue.Queue, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{repo: repo, queue: q, logger: logger}
}

// Notify records the notification for the recipients and enqueues the
// delivery job. Failures are logged, never propagated: a notification must
// not fail the business operation that emitted it.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification, recipientIDs []uuid.UUID) {
	if len(recipientIDs) == 0 {
		return
	}
	if err := d.repo.Record(ctx, &n, recipientIDs); err != nil {
		d.logger.Error("record notification failed",
			zap.Error(err), zap.String("type", string(n.Type)))
		return
	}
	if d.queue == nil {
		return
	}
	if err := d.queue.EnqueueDelivery(ctx, queue.DeliveryPayload{NotificationID: n.ID}); err != nil {
		d.logger.Error("enqueue delivery failed",
			zap.Error(err), zap.String("notification_id", n.ID.String()))
	}
}
