// Package notifications records business notifications, fans them out to
// recipients and hands delivery off to the worker via the job queue.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a notification together with its recipient rows, in one
// transaction.
func (r *Repository) Record(ctx context.Context, n *models.Notification, recipientIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO notifications (type, title, excerpt, url, source, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, q, string(n.Type), n.Title, n.Excerpt, n.URL, n.Source, n.Payload).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	rows := make([][]any, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		rows = append(rows, []any{n.ID, id})
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"notification_recipients"},
		[]string{"notification_id", "member_id"}, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert recipients: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID returns a notification by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	const q = `SELECT id, type, title, excerpt, url, source, payload, created_at
		FROM notifications WHERE id = $1`
	var n models.Notification
	err := r.pool.QueryRow(ctx, q, id).Scan(&n.ID, &n.Type, &n.Title, &n.Excerpt, &n.URL,
		&n.Source, &n.Payload, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MemberNotification is a notification joined with the member's delivery row.
type MemberNotification struct {
	models.Notification
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// ListForMember returns a member's notifications, newest first.
func (r *Repository) ListForMember(ctx context.Context, memberID uuid.UUID, limit int) ([]MemberNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT n.id, n.type, n.title, n.excerpt, n.url, n.source, n.payload, n.created_at, nr.read_at
		FROM notifications n
		JOIN notification_recipients nr ON nr.notification_id = n.id
		WHERE nr.member_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []MemberNotification
	for rows.Next() {
		var n MemberNotification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Excerpt, &n.URL,
			&n.Source, &n.Payload, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead records that the member saw the notification.
func (r *Repository) MarkRead(ctx context.Context, notificationID, memberID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_recipients SET read_at = now()
		WHERE notification_id = $1 AND member_id = $2 AND read_at IS NULL`,
		notificationID, memberID)
	return err
}

// PendingEmailRecipients returns the recipients of a notification whose
// email has not gone out yet, with their addresses and phone numbers.
func (r *Repository) PendingEmailRecipients(ctx context.Context, notificationID uuid.UUID) ([]models.Member, error) {
	const q = `SELECT m.id, m.email, m.first_name, m.last_name, COALESCE(m.phone,'')
		FROM notification_recipients nr
		JOIN members m ON m.id = nr.member_id
		WHERE nr.notification_id = $1 AND nr.emailed_at IS NULL`
	rows, err := r.pool.Query(ctx, q, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &m.Phone); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkEmailed records a successful email delivery for one recipient.
func (r *Repository) MarkEmailed(ctx context.Context, notificationID, memberID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_recipients SET emailed_at = now()
		WHERE notification_id = $1 AND member_id = $2`,
		notificationID, memberID)
	return err
}
