// Package badges implements the participation badge catalog and the
// threshold-based awarding that runs after each registration.
package badges

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centre-jeunesse/backend/internal/models"
)

// Repository handles badge persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a badges repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the badge catalog ordered by threshold.
func (r *Repository) List(ctx context.Context) ([]models.Badge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, name, description, threshold, created_at
		FROM badges ORDER BY threshold, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.Threshold, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Upsert creates or updates a badge by slug.
func (r *Repository) Upsert(ctx context.Context, b *models.Badge) error {
	const q = `INSERT INTO badges (slug, name, description, threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, threshold = EXCLUDED.threshold
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, b.Slug, b.Name, b.Description, b.Threshold).
		Scan(&b.ID, &b.CreatedAt)
}

// Delete removes a badge from the catalog. Awarded copies disappear with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM badges WHERE id = $1`, id)
	return err
}

// ListForMember returns the badges a member has earned.
func (r *Repository) ListForMember(ctx context.Context, memberID uuid.UUID) ([]models.Badge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.slug, b.name, b.description, b.threshold, b.created_at
		FROM member_badges mb
		JOIN badges b ON b.id = mb.badge_id
		WHERE mb.member_id = $1
		ORDER BY mb.awarded_at`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.Threshold, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Award gives a badge to a member. Returns false when the member already
// has it.
func (r *Repository) Award(ctx context.Context, memberID, badgeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO member_badges (member_id, badge_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, memberID, badgeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
