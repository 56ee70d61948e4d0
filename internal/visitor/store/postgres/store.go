// Package postgres persists visitors in a relational table with the
// verification result held as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
)

const visitorColumns = `id, full_name, email, phone, scheduled_at, image_url, registered_at, verified_at, verification_result`

// PostgresStore is a PostgreSQL-backed visitor store.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Visitor) (*models.Visitor, error) {
	id := uuid.New()
	if v.ID != "" {
		parsed, err := uuid.Parse(v.ID)
		if err != nil {
			return nil, fmt.Errorf("create visitor: invalid id %q: %w", v.ID, err)
		}
		id = parsed
	}
	result, err := marshalResult(v.VerificationResult)
	if err != nil {
		return nil, err
	}
	var verifiedAt sql.NullTime
	if v.VerifiedAt != nil {
		verifiedAt = sql.NullTime{Time: *v.VerifiedAt, Valid: true}
	}

	query := `
		INSERT INTO visitors (` + visitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + visitorColumns
	row := s.db.QueryRowContext(ctx, query,
		id, v.FullName, v.Email, v.Phone, v.ScheduledAt, v.ReferenceImageRef, v.RegisteredAt, verifiedAt, result,
	)
	created, err := scanVisitor(row)
	if err != nil {
		return nil, fmt.Errorf("insert visitor: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Visitor, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitors WHERE id = $1`, parsed)
	v, err := scanVisitor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find visitor by id: %w", err)
	}
	return v, nil
}

// pendingQuery matches the document backends: no result, a JSON null result,
// or a result object without a match key.
const pendingQuery = `
	SELECT ` + visitorColumns + `
	FROM visitors
	WHERE scheduled_at >= $1 AND scheduled_at < $2
	  AND (verification_result IS NULL
	       OR verification_result = 'null'::jsonb
	       OR NOT (verification_result ? 'match'))
	ORDER BY scheduled_at ASC`

func (s *PostgresStore) FindPending(ctx context.Context, from, to time.Time) ([]*models.Visitor, error) {
	rows, err := s.db.QueryContext(ctx, pendingQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("find pending visitors: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Visitor, 0)
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending visitor: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending visitors: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecordVerification(ctx context.Context, id string, verifiedAt time.Time, result models.VerificationResult) (*models.Visitor, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	payload, err := marshalResult(&result)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE visitors
		SET verified_at = $2, verification_result = $3
		WHERE id = $1
		RETURNING ` + visitorColumns
	v, err := scanVisitor(s.db.QueryRowContext(ctx, query, parsed, verifiedAt, payload))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("record verification: %w", err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVisitor(row scanner) (*models.Visitor, error) {
	var (
		v          models.Visitor
		id         uuid.UUID
		verifiedAt sql.NullTime
		result     []byte
	)
	if err := row.Scan(&id, &v.FullName, &v.Email, &v.Phone, &v.ScheduledAt, &v.ReferenceImageRef, &v.RegisteredAt, &verifiedAt, &result); err != nil {
		return nil, err
	}
	v.ID = id.String()
	if verifiedAt.Valid {
		at := verifiedAt.Time
		v.VerifiedAt = &at
	}
	r, err := unmarshalResult(result)
	if err != nil {
		return nil, err
	}
	v.VerificationResult = r
	return &v, nil
}

// marshalResult yields an invalid NullString for a nil result so the column
// stays SQL NULL. JSON is sent as text; lib/pq would encode []byte as bytea.
func marshalResult(r *models.VerificationResult) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal verification result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalResult(raw []byte) (*models.VerificationResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r models.VerificationResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unmarshal verification result: %w", err)
	}
	return &r, nil
}
