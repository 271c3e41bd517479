package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// PostgresStore persists incidents in a single table: queryable columns for
// the scheduler's eligibility query plus the full record as JSONB. Expiry is
// honored at read time against expires_at.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and verifies connectivity.
// Schema migrations are the caller's responsibility (run before this).
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Put(ctx context.Context, inc *models.Incident) error {
	payload, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	query := `
		INSERT INTO incidents (incident_id, scenario, status, severity, created_at, expires_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		inc.IncidentID, string(inc.Scenario), inc.Status, inc.Severity,
		inc.CreatedAt, time.Unix(inc.TTL, 0).UTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("store incident %s: %w", inc.IncidentID, err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := `
		SELECT payload FROM incidents
		WHERE incident_id = $1 AND expires_at > now()
	`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}

	var inc models.Incident
	if err := json.Unmarshal(payload, &inc); err != nil {
		return nil, fmt.Errorf("unmarshal incident %s: %w", id, err)
	}
	return &inc, nil
}

func (s *PostgresStore) QueryOpen(ctx context.Context, scenario models.Scenario) ([]*models.Incident, error) {
	query := `
		SELECT payload FROM incidents
		WHERE scenario = $1 AND status = $2 AND expires_at > now()
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, string(scenario), models.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("list open incidents: %w", err)
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		var inc models.Incident
		if err := json.Unmarshal(payload, &inc); err != nil {
			return nil, fmt.Errorf("unmarshal incident: %w", err)
		}
		out = append(out, &inc)
	}
	return out, rows.Err()
}

// Resolve updates the row only while status is still OPEN; the WHERE clause
// is the optimistic-concurrency check.
func (s *PostgresStore) Resolve(ctx context.Context, id string, r *models.Resolution) error {
	query := `
		UPDATE incidents
		SET status = $2,
		    payload = payload || jsonb_build_object(
		        'status', $2::text,
		        'resolved_at', $3::text,
		        'resolution_time_seconds', $4::bigint,
		        'resolution_notes', $5::text,
		        'remediation_type', $6::text
		    )
		WHERE incident_id = $1 AND status = $7
	`

	result, err := s.pool.Exec(ctx, query,
		id, models.StatusResolved,
		r.ResolvedAt, r.ResolutionTimeSeconds, r.ResolutionNotes, r.RemediationType,
		models.StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("resolve incident %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a lost race from a missing record.
		if _, err := s.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrPreconditionFailed
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
