package staffing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines facility persistence operations.
type Repository interface {
	UpdateFacility(ctx context.Context, id int64, name, timezone string) (Facility, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UpdateFacility applies the changed fields and returns the updated row.
func (r *PGRepository) UpdateFacility(ctx context.Context, id int64, name, timezone string) (Facility, error) {
	const query = `UPDATE facilities
		SET name = COALESCE(NULLIF($2, ''), name),
		    timezone = COALESCE(NULLIF($3, ''), timezone),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, timezone, updated_at`
	var f Facility
	if err := r.pool.QueryRow(ctx, query, id, name, timezone).Scan(&f.ID, &f.Name, &f.Timezone, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Facility{}, ErrFacilityNotFound
		}
		return Facility{}, err
	}
	return f, nil
}

var _ Repository = (*PGRepository)(nil)
