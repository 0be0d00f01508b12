package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	coreerrors "apisurface/internal/core/errors"
	"apisurface/internal/engine/surface"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// Fixed width so ts_utc sorts lexicographically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot persists a run and its records in one transaction. Missing run
// id, timestamp and counts are filled in; the stored snapshot is returned.
func (s *Store) SaveSnapshot(snapshot Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.ProjectKey = projectKeyOrDefault(snapshot.ProjectKey)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}
	snapshot.PublicCount, snapshot.InternalCount = surface.Count(snapshot.Records)

	err := s.withRetry("save snapshot", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO surface_runs (
  run_id, project_key, schema_version, ts_utc, granularity, pattern_fingerprint, public_count, internal_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.RunID,
			snapshot.ProjectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(timestampLayout),
			snapshot.Granularity,
			snapshot.PatternFingerprint,
			snapshot.PublicCount,
			snapshot.InternalCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}

		stmt, err := tx.Prepare(`INSERT INTO surface_entries (run_id, identifier, classification) VALUES (?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()
		for _, rec := range snapshot.Records {
			if _, err := stmt.Exec(snapshot.RunID, rec.Identifier, string(rec.Classification)); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// LoadSnapshots returns run headers (no records) at or after since, oldest first.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT run_id, project_key, schema_version, ts_utc, granularity, pattern_fingerprint, public_count, internal_count
FROM surface_runs
WHERE project_key = ?`
	args := []any{projectKeyOrDefault(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(timestampLayout))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// LatestSnapshot returns the newest run of projectKey with its records, or a
// NOT_FOUND domain error when the project has no runs.
func (s *Store) LatestSnapshot(projectKey string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = projectKeyOrDefault(projectKey)
	var snapshot Snapshot
	err := s.withRetry("load latest snapshot", func() error {
		row := s.db.QueryRow(`
SELECT run_id, project_key, schema_version, ts_utc, granularity, pattern_fingerprint, public_count, internal_count
FROM surface_runs
WHERE project_key = ?
ORDER BY ts_utc DESC, run_id DESC
LIMIT 1`, projectKey)
		var scanErr error
		snapshot, scanErr = scanSnapshot(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, coreerrors.New(coreerrors.CodeNotFound, fmt.Sprintf("no snapshots for project %q", projectKey))
	}
	if err != nil {
		return Snapshot{}, err
	}

	records, err := s.loadRecords(snapshot.RunID)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.Records = records
	return snapshot, nil
}

// LoadRecords returns the records of one run sorted by identifier.
func (s *Store) LoadRecords(runID string) ([]surface.ModuleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecords(runID)
}

func (s *Store) loadRecords(runID string) ([]surface.ModuleRecord, error) {
	var rows *sql.Rows
	err := s.withRetry("load records", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT identifier, classification FROM surface_entries WHERE run_id = ? ORDER BY identifier ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]surface.ModuleRecord, 0)
	for rows.Next() {
		var (
			rec   surface.ModuleRecord
			class string
		)
		if err := rows.Scan(&rec.Identifier, &class); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.Classification = surface.Classification(class)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return records, nil
}

// Prune keeps the newest keep runs of projectKey and deletes the rest.
func (s *Store) Prune(projectKey string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be >= 0, got %d", keep)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune snapshots", func() error {
		res, err := s.db.Exec(`
DELETE FROM surface_runs
WHERE project_key = ?
  AND run_id NOT IN (
    SELECT run_id FROM surface_runs WHERE project_key = ? ORDER BY ts_utc DESC, run_id DESC LIMIT ?
  )`, projectKeyOrDefault(projectKey), projectKeyOrDefault(projectKey), keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		tsRaw    string
		snapshot Snapshot
	)
	if err := row.Scan(
		&snapshot.RunID,
		&snapshot.ProjectKey,
		&snapshot.SchemaVersion,
		&tsRaw,
		&snapshot.Granularity,
		&snapshot.PatternFingerprint,
		&snapshot.PublicCount,
		&snapshot.InternalCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
	}

	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
	}
	snapshot.Timestamp = ts.UTC()
	return snapshot, nil
}

func projectKeyOrDefault(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "default"
	}
	return key
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
