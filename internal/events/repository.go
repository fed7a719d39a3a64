// Package events owns event CRUD and the occurrence/schedule read API that
// feeds the registration widget and the admin screens.
package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, location_id, schedule,
	capacity_total, capacity_waitlist, capacity_notify_threshold,
	occurrence_selection_mode, requires_validation, price_cents,
	free_participation, registration_deadline, published, created_by,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.LocationID, &e.Schedule,
		&e.CapacityTotal, &e.CapacityWaitlist, &e.CapacityNotifyThreshold,
		&e.OccurrenceSelectionMode, &e.RequiresValidation, &e.PriceCents,
		&e.FreeParticipation, &e.RegistrationDeadline, &e.Published, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, location_id, schedule,
			capacity_total, capacity_waitlist, capacity_notify_threshold,
			occurrence_selection_mode, requires_validation, price_cents,
			free_participation, registration_deadline, published, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.LocationID, e.Schedule,
		e.CapacityTotal, e.CapacityWaitlist, e.CapacityNotifyThreshold,
		string(e.OccurrenceSelectionMode), e.RequiresValidation, e.PriceCents,
		e.FreeParticipation, e.RegistrationDeadline, e.Published, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// List returns events, optionally only published ones, newest first.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if publishedOnly {
		q += ` WHERE published`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update replaces the editable fields of an event. The schedule is always
// written whole: the admin form serializes the complete configuration on
// every save, never a partial patch.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, location_id = $3,
			schedule = $4, capacity_total = $5, capacity_waitlist = $6,
			capacity_notify_threshold = $7, occurrence_selection_mode = $8,
			requires_validation = $9, price_cents = $10, free_participation = $11,
			registration_deadline = $12, published = $13, updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.LocationID, e.Schedule,
		e.CapacityTotal, e.CapacityWaitlist, e.CapacityNotifyThreshold,
		string(e.OccurrenceSelectionMode), e.RequiresValidation, e.PriceCents,
		e.FreeParticipation, e.RegistrationDeadline, e.Published, e.ID).
		Scan(&e.UpdatedAt)
}

// Delete removes an event by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}
