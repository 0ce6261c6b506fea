package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the disease_records table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS disease_records (
    key          TEXT PRIMARY KEY,
    disease_name TEXT NOT NULL,
    crop         TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT '',
    severity     TEXT NOT NULL DEFAULT '',
    cause        TEXT NOT NULL DEFAULT '',
    symptoms     TEXT NOT NULL DEFAULT '',
    treatment    JSONB NOT NULL DEFAULT '[]',
    prevention   JSONB NOT NULL DEFAULT '[]',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a knowledge base backed by a PostgreSQL database, for
// deployments that curate disease records operationally instead of shipping
// a static file. Rows are keyed by normalised label.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a PostgresStore over the given connection or
// pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("knowledge: migrate: %w", err)
	}
	return nil
}

// Lookup resolves key to its record, or to the synthesized not-found record
// when no row matches. An error means the database itself failed.
func (s *PostgresStore) Lookup(ctx context.Context, key string) (*TreatmentRecord, error) {
	const query = `
		SELECT disease_name, crop, type, severity, cause, symptoms, treatment, prevention
		FROM   disease_records
		WHERE  key = $1`

	var (
		rec                        TreatmentRecord
		treatmentJSON, preventJSON []byte
	)
	err := s.db.QueryRow(ctx, query, NormalizeKey(key)).Scan(
		&rec.DiseaseName, &rec.Crop, &rec.Type, &rec.Severity,
		&rec.Cause, &rec.Symptoms, &treatmentJSON, &preventJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFoundRecord(key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge: lookup %q: %w", key, err)
	}

	if err := json.Unmarshal(treatmentJSON, &rec.TreatmentSteps); err != nil {
		return nil, fmt.Errorf("knowledge: unmarshal treatment for %q: %w", key, err)
	}
	if err := json.Unmarshal(preventJSON, &rec.PreventionSteps); err != nil {
		return nil, fmt.Errorf("knowledge: unmarshal prevention for %q: %w", key, err)
	}
	rec.Found = true
	return &rec, nil
}

// Keys returns the sorted normalised keys of every stored record.
func (s *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT key FROM disease_records ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("knowledge: scan keys: %w", err)
	}
	return keys, nil
}

// Upsert inserts or replaces the record stored under key.
func (s *PostgresStore) Upsert(ctx context.Context, key string, rec TreatmentRecord) error {
	norm := NormalizeKey(key)
	if norm == "" {
		return fmt.Errorf("knowledge: upsert: key %q normalises to empty", key)
	}
	treatmentJSON, err := json.Marshal(emptySlice(rec.TreatmentSteps))
	if err != nil {
		return fmt.Errorf("knowledge: marshal treatment: %w", err)
	}
	preventJSON, err := json.Marshal(emptySlice(rec.PreventionSteps))
	if err != nil {
		return fmt.Errorf("knowledge: marshal prevention: %w", err)
	}

	const query = `
		INSERT INTO disease_records
		    (key, disease_name, crop, type, severity, cause, symptoms, treatment, prevention)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (key) DO UPDATE SET
		    disease_name = EXCLUDED.disease_name,
		    crop         = EXCLUDED.crop,
		    type         = EXCLUDED.type,
		    severity     = EXCLUDED.severity,
		    cause        = EXCLUDED.cause,
		    symptoms     = EXCLUDED.symptoms,
		    treatment    = EXCLUDED.treatment,
		    prevention   = EXCLUDED.prevention,
		    updated_at   = now()`

	if _, err := s.db.Exec(ctx, query,
		norm, rec.DiseaseName, rec.Crop, rec.Type, rec.Severity,
		rec.Cause, rec.Symptoms, treatmentJSON, preventJSON,
	); err != nil {
		return fmt.Errorf("knowledge: upsert %q: %w", norm, err)
	}
	return nil
}

// Seed upserts every record of the supplied set. Used at startup to load the
// built-in records into a fresh database.
func (s *PostgresStore) Seed(ctx context.Context, records map[string]TreatmentRecord) error {
	for key, rec := range records {
		if err := s.Upsert(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

// emptySlice returns an empty slice instead of nil so JSONB columns store
// '[]' rather than 'null'.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
