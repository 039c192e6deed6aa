package directory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/rosterly/rosterly/internal/identity"
)

// PGDirectory implements Directory and AccountFinder against PostgreSQL.
// Concurrent lookups for the same id are deduplicated.
type PGDirectory struct {
	pool  *pgxpool.Pool
	group singleflight.Group
}

// NewPGDirectory constructs a PGDirectory.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

// Lookup fetches an active user by id.
func (d *PGDirectory) Lookup(ctx context.Context, id int64) (identity.Principal, error) {
	v, err, _ := d.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return d.lookup(ctx, id)
	})
	if err != nil {
		return identity.Principal{}, err
	}
	return v.(identity.Principal), nil
}

func (d *PGDirectory) lookup(ctx context.Context, id int64) (identity.Principal, error) {
	const query = `SELECT id, name, email, role, facility_id FROM users WHERE id = $1 AND is_active`
	var (
		p          identity.Principal
		facilityID *int64
	)
	if err := d.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &facilityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Principal{}, ErrNotFound
		}
		return identity.Principal{}, err
	}
	p.FacilityID = facilityID
	return p, nil
}

// FindByEmail fetches an account, active or not, for credential checks.
func (d *PGDirectory) FindByEmail(ctx context.Context, email string) (Account, error) {
	const query = `SELECT id, name, email, role, facility_id, password_hash, is_active FROM users WHERE email = $1`
	var (
		acct       Account
		facilityID *int64
	)
	err := d.pool.QueryRow(ctx, query, email).Scan(
		&acct.Principal.ID,
		&acct.Principal.Name,
		&acct.Principal.Email,
		&acct.Principal.Role,
		&facilityID,
		&acct.PasswordHash,
		&acct.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.Principal.FacilityID = facilityID
	return acct, nil
}

var (
	_ Directory     = (*PGDirectory)(nil)
	_ AccountFinder = (*PGDirectory)(nil)
)
