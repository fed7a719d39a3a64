package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `id, event_id, member_id, status, scope_kind, scope_timestamps, note, created_at, updated_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	var kind string
	var timestamps []int64
	err := row.Scan(&reg.ID, &reg.EventID, &reg.MemberID, &reg.Status, &kind, &timestamps, &reg.Note, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Scope = models.OccurrenceScope{Kind: models.ScopeKind(kind), Timestamps: timestamps}
	return &reg, nil
}

// GetActiveByEventAndMember returns the member's non-cancelled registration
// for the event, or nil when there is none.
func (r *Repository) GetActiveByEventAndMember(ctx context.Context, eventID, memberID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations
		WHERE event_id = $1 AND member_id = $2 AND status <> 'cancelled'`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, eventID, memberID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reg, err
}

// Insert persists a new registration.
func (r *Repository) Insert(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, event_id, member_id, status, scope_kind, scope_timestamps, note)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.EventID, reg.MemberID, string(reg.Status),
		string(reg.Scope.Kind), reg.Scope.Timestamps, reg.Note).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	return mapConflict(err)
}

// Update persists changed status/scope/note on an existing registration.
// created_at is never touched.
func (r *Repository) Update(ctx context.Context, reg *models.Registration) error {
	const q = `UPDATE registrations
		SET status = $1, scope_kind = $2, scope_timestamps = $3, note = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, string(reg.Status), string(reg.Scope.Kind),
		reg.Scope.Timestamps, reg.Note, reg.ID).Scan(&reg.UpdatedAt)
	return mapConflict(err)
}

// ListActiveByEvent returns all non-cancelled registrations for an event,
// oldest first (the order waitlist promotion relies on).
func (r *Repository) ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations
		WHERE event_id = $1 AND status <> 'cancelled' ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// ListByMember returns a member's registrations (all statuses), newest first.
func (r *Repository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations
		WHERE member_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// CountActiveByMember returns how many non-cancelled registrations a member
// holds, used for badge thresholds.
func (r *Repository) CountActiveByMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE member_id = $1 AND status <> 'cancelled'`
	var n int
	err := r.pool.QueryRow(ctx, q, memberID).Scan(&n)
	return n, err
}

// WithEventLock runs fn while holding a session-level advisory lock keyed
// by the event ID, serializing concurrent capacity check-then-act sequences
// for the same event across all server instances.
func (r *Repository) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, eventID.String()); err != nil {
		return err
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, eventID.String())

	return fn(ctx)
}

// mapConflict converts a unique violation into the ledger's conflict
// sentinel so the check-then-act is retried on fresh data.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
