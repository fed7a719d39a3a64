// Package worker drains the notification delivery queue and sends each
// notification to its recipients over email and, when configured, SMS and
// WhatsApp.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/locale"
	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/internal/notifications"
	"github.com/centre-jeunesse/backend/pkg/queue"
)

// Deliverer processes notification delivery jobs.
type Deliverer struct {
	repo     *notifications.Repository
	queue    *queue.Queue
	mailer   *Mailer
	sms      *SMSSender
	whatsapp *WhatsAppSender
	loc      *locale.Locale
	logger   *zap.Logger
}

// NewDeliverer creates a delivery processor. mailer, sms and whatsapp may
// each be nil, disabling that channel.
func NewDeliverer(repo *notifications.Repository, q *queue.Queue, mailer *Mailer, sms *SMSSender, whatsapp *WhatsAppSender, loc *locale.Locale, logger *zap.Logger) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deliverer{repo: repo, queue: q, mailer: mailer, sms: sms, whatsapp: whatsapp, loc: loc, logger: logger}
}

// Process executes one delivery job.
func (d *Deliverer) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeDelivery {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.DeliveryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	n, err := d.repo.GetByID(ctx, payload.NotificationID)
	if err != nil {
		return fmt.Errorf("notification not found: %s", payload.NotificationID)
	}
	recipients, err := d.repo.PendingEmailRecipients(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}

	subject, body := d.compose(n)
	failed := 0
	for _, m := range recipients {
		if d.mailer != nil {
			if err := d.mailer.Send(m.Email, subject, body); err != nil {
				d.logger.Warn("email delivery failed",
					zap.Error(err), zap.String("member_id", m.ID.String()))
				failed++
				continue
			}
		}
		if err := d.repo.MarkEmailed(ctx, n.ID, m.ID); err != nil {
			d.logger.Warn("mark emailed failed", zap.Error(err))
		}
		if m.Phone != "" {
			d.sendText(ctx, m.Phone, subject+" : "+body)
		}
	}
	if failed > 0 {
		// The retry re-runs only the recipients still pending.
		return fmt.Errorf("%d of %d deliveries failed", failed, len(recipients))
	}

	d.logger.Info("notification delivered",
		zap.String("notification_id", n.ID.String()), zap.Int("recipients", len(recipients)))
	return nil
}

func (d *Deliverer) sendText(ctx context.Context, phone, text string) {
	if d.sms != nil {
		if err := d.sms.Send(ctx, phone, text); err != nil {
			d.logger.Warn("sms delivery failed", zap.Error(err))
		}
	}
	if d.whatsapp != nil {
		if err := d.whatsapp.Send(ctx, phone, text); err != nil {
			d.logger.Warn("whatsapp delivery failed", zap.Error(err))
		}
	}
}

// compose renders the subject and body for a notification from the locale's
// copy tables. Unknown types fall back to the stored title and excerpt.
func (d *Deliverer) compose(n *models.Notification) (subject, body string) {
	loc := d.loc
	if loc == nil {
		loc = locale.French
	}
	if c, ok := loc.Notifications[string(n.Type)]; ok {
		return c.Subject, fmt.Sprintf(c.BodyTpl, n.Title)
	}
	return n.Title, n.Excerpt
}

// Run starts the worker loop: dequeue, process, retry on error.
func (d *Deliverer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("delivery worker stopping")
			return
		default:
		}

		job, key, err := d.queue.Dequeue(ctx)
		if err != nil {
			d.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		d.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := d.Process(ctx, job); err != nil {
			d.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := d.queue.Retry(ctx, job, key); reErr != nil {
				d.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
