// Package postgres provides Postgres-backed persistence for monitoring
// jobs and subscriptions.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements intel.JobStore over a pgx connection pool. The schema
// it expects is created by InitSchema.
type Store struct {
	pool pool
}

// NewStore connects a pool and returns a Store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InitSchema creates the monitoring_jobs and subscriptions tables when
// they do not exist yet. Safe to run repeatedly.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{`
CREATE TABLE IF NOT EXISTS monitoring_jobs (
	user_email        TEXT PRIMARY KEY,
	url_1             TEXT,
	url_2             TEXT,
	url_3             TEXT,
	is_active         BOOLEAN NOT NULL DEFAULT FALSE,
	last_content_hash TEXT,
	latest_report     TEXT,
	last_check_at     TIMESTAMPTZ
)`, `
CREATE TABLE IF NOT EXISTS subscriptions (
	user_email TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	plan       TEXT NOT NULL
)`}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ListActiveJobs returns jobs eligible for processing: the job row must be
// active and its owning subscription must be active too.
func (s *Store) ListActiveJobs(ctx context.Context) ([]intel.MonitoringJob, error) {
	query := `
SELECT
	j.user_email,
	COALESCE(j.url_1, ''),
	COALESCE(j.url_2, ''),
	COALESCE(j.url_3, ''),
	j.is_active,
	COALESCE(j.last_content_hash, ''),
	COALESCE(j.latest_report, ''),
	j.last_check_at
FROM monitoring_jobs j
JOIN subscriptions s ON s.user_email = j.user_email
WHERE j.is_active = TRUE
  AND s.status = $1
ORDER BY j.user_email`

	rows, err := s.pool.Query(ctx, query, intel.SubscriptionActive)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []intel.MonitoringJob
	for rows.Next() {
		var job intel.MonitoringJob
		if err := rows.Scan(
			&job.UserEmail,
			&job.URL1,
			&job.URL2,
			&job.URL3,
			&job.IsActive,
			&job.LastContentHash,
			&job.LatestReport,
			&job.LastCheckAt,
		); err != nil {
			return nil, fmt.Errorf("scan monitoring job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitoring jobs: %w", err)
	}
	return jobs, nil
}

// SaveReport writes hash, report and check timestamp in one statement so
// the stored hash can never describe a different report version.
func (s *Store) SaveReport(ctx context.Context, userEmail, contentHash, report string, checkedAt time.Time) error {
	query := `
UPDATE monitoring_jobs
SET last_content_hash = $2,
    latest_report = $3,
    last_check_at = $4
WHERE user_email = $1`

	tag, err := s.pool.Exec(ctx, query, userEmail, contentHash, report, checkedAt)
	if err != nil {
		return fmt.Errorf("save report for %s: %w", userEmail, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save report for %s: no such job", userEmail)
	}
	return nil
}

// TouchJob refreshes last_check_at so an unchanged job still shows the
// monitor is alive.
func (s *Store) TouchJob(ctx context.Context, userEmail string, checkedAt time.Time) error {
	query := `UPDATE monitoring_jobs SET last_check_at = $2 WHERE user_email = $1`

	tag, err := s.pool.Exec(ctx, query, userEmail, checkedAt)
	if err != nil {
		return fmt.Errorf("touch job for %s: %w", userEmail, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("touch job for %s: no such job", userEmail)
	}
	return nil
}

// UpsertSubscription creates or refreshes a subscription row. Idempotent so
// duplicate payment callbacks are harmless.
func (s *Store) UpsertSubscription(ctx context.Context, sub intel.Subscription) error {
	query := `
INSERT INTO subscriptions (user_email, status, plan)
VALUES ($1, $2, $3)
ON CONFLICT (user_email) DO UPDATE
SET status = EXCLUDED.status,
    plan = EXCLUDED.plan`

	if _, err := s.pool.Exec(ctx, query, sub.UserEmail, sub.Status, sub.Plan); err != nil {
		return fmt.Errorf("upsert subscription for %s: %w", sub.UserEmail, err)
	}
	return nil
}

// ActivateJob creates or reactivates the monitoring job row for a user.
// URL slots are left alone for the user to configure later.
func (s *Store) ActivateJob(ctx context.Context, userEmail string) error {
	query := `
INSERT INTO monitoring_jobs (user_email, is_active)
VALUES ($1, TRUE)
ON CONFLICT (user_email) DO UPDATE
SET is_active = TRUE`

	if _, err := s.pool.Exec(ctx, query, userEmail); err != nil {
		return fmt.Errorf("activate job for %s: %w", userEmail, err)
	}
	return nil
}

// CountJobs reports the total number of monitoring job rows.
func (s *Store) CountJobs(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM monitoring_jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count monitoring jobs: %w", err)
	}
	return count, nil
}
