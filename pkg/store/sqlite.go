package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/promptroute/pkg/feedback"
	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"

	_ "modernc.org/sqlite"
)

const sqliteSchemaVersion = 1

// SQLiteStore persists aggregates and samples in a local SQLite database.
// Aggregate updates use a single upsert whose arithmetic runs against the
// stored row, so concurrent writers on the same key never lose increments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath, creating the
// parent directory and running schema migrations as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for WAL mode simplicity.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var ver int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		ver = 0
	} else if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	if ver < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) migrateV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS route_preferences (
			user_id         TEXT NOT NULL,
			route           TEXT NOT NULL,
			success_count   INTEGER NOT NULL DEFAULT 0,
			total_count     INTEGER NOT NULL DEFAULT 0,
			avg_duration_ms REAL NOT NULL DEFAULT 0,
			last_used_at    TEXT NOT NULL,
			PRIMARY KEY (user_id, route)
		)`,
		`CREATE TABLE IF NOT EXISTS metric_samples (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			route       TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			success     INTEGER NOT NULL,
			timestamp   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_samples_user ON metric_samples(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_samples_route ON metric_samples(route)`,
		fmt.Sprintf(`INSERT OR REPLACE INTO schema_version (version) VALUES (%d)`, sqliteSchemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

// LoadPreferences returns the user's aggregates in route order.
func (s *SQLiteStore) LoadPreferences(ctx context.Context, userID string) ([]preference.RoutePreference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT route, success_count, total_count, avg_duration_ms, last_used_at
		FROM route_preferences WHERE user_id = ? ORDER BY route`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var out []preference.RoutePreference
	for rows.Next() {
		var (
			routeStr   string
			p          preference.RoutePreference
			lastUsedAt string
		)
		if err := rows.Scan(&routeStr, &p.SuccessCount, &p.TotalCount, &p.AvgDurationMs, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		r, err := route.Parse(routeStr)
		if err != nil {
			return nil, fmt.Errorf("stored preference: %w", err)
		}
		p.UserID = userID
		p.Route = r
		if t, err := time.Parse(time.RFC3339Nano, lastUsedAt); err == nil {
			p.LastUsedAt = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Apply upserts the (user, route) aggregate in one statement. The SET
// expressions all read the pre-update row, which makes the incremental mean
// exact and the whole update atomic per key.
func (s *SQLiteStore) Apply(ctx context.Context, userID string, r route.Route, d preference.Delta) error {
	at := d.ObservedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	successInc := 0
	if d.Success {
		successInc = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_preferences
			(user_id, route, success_count, total_count, avg_duration_ms, last_used_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id, route) DO UPDATE SET
			success_count   = success_count + excluded.success_count,
			total_count     = total_count + 1,
			avg_duration_ms = avg_duration_ms + (excluded.avg_duration_ms - avg_duration_ms) / (total_count + 1),
			last_used_at    = excluded.last_used_at`,
		userID, r.String(), successInc, float64(d.DurationMs), at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("apply preference delta: %w", err)
	}
	return nil
}

// Append inserts one metric sample.
func (s *SQLiteStore) Append(ctx context.Context, sample feedback.Sample) error {
	success := 0
	if sample.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metric_samples (id, user_id, route, duration_ms, success, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sample.UserID, sample.Route.String(),
		sample.ActualDurationMs, success, sample.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append metric sample: %w", err)
	}
	return nil
}

// SampleCount returns the number of stored samples for a user, for stats
// reporting.
func (s *SQLiteStore) SampleCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metric_samples WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
