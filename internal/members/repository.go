package members

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles member directory persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a members repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a member by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	const q = `SELECT id, email, password_hash, first_name, last_name,
		COALESCE(phone,''), role, birthdate, created_at, updated_at
		FROM members WHERE id = $1`
	var m models.Member
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.Email, &m.Password, &m.FirstName, &m.LastName,
		&m.Phone, &m.Role, &m.Birthdate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the member directory, optionally filtered by role.
func (r *Repository) List(ctx context.Context, role models.Role) ([]models.MemberPublic, error) {
	q := `SELECT id, email, first_name, last_name, COALESCE(phone,''), role, created_at
		FROM members`
	args := []any{}
	if role != "" {
		q += ` WHERE role = $1`
		args = append(args, string(role))
	}
	q += ` ORDER BY last_name, first_name, email`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.MemberPublic
	for rows.Next() {
		var m models.MemberPublic
		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &m.Phone, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// StaffIDs returns the IDs of all admins and animateurs. Used to address
// admin-side notifications.
func (r *Repository) StaffIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM members WHERE role IN ($1, $2)`,
		string(models.RoleAdmin), string(models.RoleAnimateur))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateRole changes a member's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE members SET role = $2, updated_at = now() WHERE id = $1`,
		id, string(role))
	return err
}

// UpdateProfile updates a member's own editable fields.
func (r *Repository) UpdateProfile(ctx context.Context, m *models.Member) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE members SET first_name = $2, last_name = $3, phone = NULLIF($4,''), birthdate = $5, updated_at = now()
		WHERE id = $1`,
		m.ID, m.FirstName, m.LastName, m.Phone, m.Birthdate)
	return err
}
