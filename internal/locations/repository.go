package locations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles location persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a locations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const locationColumns = `id, name, COALESCE(address,''), COALESCE(room,''), capacity, created_at, updated_at`

func scanLocation(row pgx.Row) (*models.Location, error) {
	var l models.Location
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.Room, &l.Capacity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new location.
func (r *Repository) Create(ctx context.Context, l *models.Location) error {
	const q = `INSERT INTO locations (name, address, room, capacity)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.Name, l.Address, l.Room, l.Capacity).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// GetByID returns a location by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	const q = `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	l, err := scanLocation(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// List returns all locations ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}

// Update replaces a location's fields.
func (r *Repository) Update(ctx context.Context, l *models.Location) error {
	const q = `UPDATE locations SET name = $1, address = NULLIF($2,''), room = NULLIF($3,''),
			capacity = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, l.Name, l.Address, l.Room, l.Capacity, l.ID).Scan(&l.UpdatedAt)
}

// Delete removes a location. Events referencing it keep running with no venue.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	return err
}
