package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterly/rosterly/internal/identity"
)

// PGStore implements Store against the append-only audit_logs table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

type recordContext struct {
	Impersonation *Snapshot      `json:"impersonation,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// Insert appends one record.
func (s *PGStore) Insert(ctx context.Context, rec Record) error {
	contextJSON, err := json.Marshal(recordContext{
		Impersonation: rec.ImpersonationContext,
		Details:       rec.Details,
	})
	if err != nil {
		return err
	}
	const query = `INSERT INTO audit_logs
		(id, occurred_at, action, resource, resource_id, acting_user_id, acting_user_role, true_user_id, is_impersonated, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		rec.Timestamp,
		rec.Action,
		rec.Resource,
		optionalText(rec.ResourceID),
		rec.ActingUserID,
		string(rec.ActingUserRole),
		optionalInt8(rec.TrueUserID),
		rec.IsImpersonated,
		contextJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("audit insert (%s): %w", pgErr.Code, err)
		}
		return err
	}
	return nil
}

// List returns a window of records, newest first.
func (s *PGStore) List(ctx context.Context, q Query) ([]Record, error) {
	const query = `SELECT id, occurred_at, action, resource, resource_id, acting_user_id, acting_user_role, true_user_id, is_impersonated, context
		FROM audit_logs
		WHERE ($1::bigint = 0 OR acting_user_id = $1)
		  AND ($2::text = '' OR action = $2)
		  AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		  AND ($4::timestamptz IS NULL OR occurred_at <= $4)
		ORDER BY occurred_at DESC
		OFFSET $5 LIMIT $6`
	rows, err := s.pool.Query(ctx, query,
		q.Actor,
		q.Action,
		toPgTime(q.From),
		toPgTime(q.To),
		q.Offset,
		q.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec         Record
			resourceID  pgtype.Text
			trueUserID  pgtype.Int8
			role        string
			contextJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Action, &rec.Resource, &resourceID,
			&rec.ActingUserID, &role, &trueUserID, &rec.IsImpersonated, &contextJSON); err != nil {
			return nil, err
		}
		rec.ActingUserRole = identity.Role(role)
		if resourceID.Valid {
			rec.ResourceID = resourceID.String
		}
		if trueUserID.Valid {
			id := trueUserID.Int64
			rec.TrueUserID = &id
		}
		if len(contextJSON) > 0 {
			var stored recordContext
			if err := json.Unmarshal(contextJSON, &stored); err != nil {
				return nil, err
			}
			rec.ImpersonationContext = stored.Impersonation
			rec.Details = stored.Details
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

func optionalInt8(value *int64) pgtype.Int8 {
	if value == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *value, Valid: true}
}

var _ Store = (*PGStore)(nil)
