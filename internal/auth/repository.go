package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles member credential persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, email, password_hash, first_name, last_name,
	COALESCE(phone,''), role, birthdate, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.Email, &m.Password, &m.FirstName, &m.LastName,
		&m.Phone, &m.Role, &m.Birthdate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID returns a member by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	const q = `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a member by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	const q = `SELECT ` + memberColumns + ` FROM members WHERE lower(email) = lower($1)`
	return scanMember(r.pool.QueryRow(ctx, q, email))
}

// CreateMemberParams holds the fields for a new member account.
type CreateMemberParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         models.Role
	Birthdate    *time.Time
}

// Create inserts a new member.
func (r *Repository) Create(ctx context.Context, p CreateMemberParams) (*models.Member, error) {
	const q = `INSERT INTO members (email, password_hash, first_name, last_name, phone, role, birthdate)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7)
		RETURNING ` + memberColumns
	return scanMember(r.pool.QueryRow(ctx, q,
		p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Phone, string(p.Role), p.Birthdate))
}
