package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"romdex/internal/config"
)

// Store manages library persistence backed by SQLite. The store is the
// authoritative durability mechanism: a checkpoint is one transaction that
// merges matched records, appends unmatched entries, and stamps the run.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the library database in the output
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.OutputDir, "library.db"))
}

// OpenPath initializes or connects to a library database at an explicit
// path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Checkpoint persists a batch of results in one transaction. Matched
// records merge with any existing record for the same key; unmatched
// entries append. The checkpoint row records the flush for the run.
func (s *Store) Checkpoint(ctx context.Context, runID string, matched []Record, unmatched []Unmatched) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin checkpoint tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, rec := range matched {
			existing, err := getRecordTx(ctx, tx, rec.Key)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.Merge(rec)
				rec = *existing
			}
			rec.UpdatedAt = now
			if err := upsertRecordTx(ctx, tx, rec, runID, timestamp); err != nil {
				return err
			}
		}

		for _, un := range unmatched {
			if un.RecordedAt.IsZero() {
				un.RecordedAt = now
			}
			attempted, err := json.Marshal(un.Attempted)
			if err != nil {
				return fmt.Errorf("marshal attempted variations: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO unmatched (platform_key, title, path, reason, attempted_json, run_id, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				un.PlatformKey, un.Title, un.Path, un.Reason, string(attempted), runID,
				un.RecordedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert unmatched: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (run_id, matched_count, unmatched_count, created_at)
             VALUES (?, ?, ?, ?)`,
			runID, len(matched), len(unmatched), timestamp,
		); err != nil {
			return fmt.Errorf("insert checkpoint: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit checkpoint: %w", err)
		}
		return nil
	})
}

func getRecordTx(ctx context.Context, tx *sql.Tx, key string) (*Record, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE record_key = ?`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func upsertRecordTx(ctx context.Context, tx *sql.Tx, rec Record, runID, timestamp string) error {
	genres, err := json.Marshal(rec.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}
	companies, err := json.Marshal(rec.Companies)
	if err != nil {
		return fmt.Errorf("marshal companies: %w", err)
	}
	screenshots, err := json.Marshal(rec.Screenshots)
	if err != nil {
		return fmt.Errorf("marshal screenshots: %w", err)
	}
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (
            record_key, platform_key, title, game_id, name, summary,
            release_date, rating, genres_json, companies_json, cover_url,
            screenshots_json, files_json, match_type, score, run_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(record_key) DO UPDATE SET
            platform_key = excluded.platform_key,
            title = excluded.title,
            game_id = excluded.game_id,
            name = excluded.name,
            summary = excluded.summary,
            release_date = excluded.release_date,
            rating = excluded.rating,
            genres_json = excluded.genres_json,
            companies_json = excluded.companies_json,
            cover_url = excluded.cover_url,
            screenshots_json = excluded.screenshots_json,
            files_json = excluded.files_json,
            match_type = excluded.match_type,
            score = excluded.score,
            run_id = excluded.run_id,
            updated_at = excluded.updated_at`,
		rec.Key, rec.PlatformKey, rec.Title, rec.GameID, rec.Name, rec.Summary,
		rec.ReleaseDate, rec.Rating, string(genres), string(companies), rec.CoverURL,
		string(screenshots), string(files), rec.MatchType, rec.Score, runID,
		timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

const recordColumns = `record_key, platform_key, title, game_id, name, summary,
    release_date, rating, genres_json, companies_json, cover_url,
    screenshots_json, files_json, match_type, score, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec         Record
		genres      string
		companies   string
		screenshots string
		files       string
		updatedAt   string
	)
	err := row.Scan(
		&rec.Key, &rec.PlatformKey, &rec.Title, &rec.GameID, &rec.Name, &rec.Summary,
		&rec.ReleaseDate, &rec.Rating, &genres, &companies, &rec.CoverURL,
		&screenshots, &files, &rec.MatchType, &rec.Score, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	columns := []struct {
		raw    string
		target any
	}{
		{genres, &rec.Genres},
		{companies, &rec.Companies},
		{screenshots, &rec.Screenshots},
		{files, &rec.Files},
	}
	for _, col := range columns {
		if col.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw), col.target); err != nil {
			return nil, fmt.Errorf("decode record column: %w", err)
		}
	}
	if updatedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
			rec.UpdatedAt = ts
		}
	}
	return &rec, nil
}

// ExistingKeys returns the set of keys already decided in a prior run,
// covering both cataloged records and entries in the unmatched log. Re-runs
// skip both, so a file nothing could be found for is not re-queried on
// every invocation.
func (s *Store) ExistingKeys(ctx context.Context) (map[string]bool, error) {
	ctx = ensureContext(ctx)
	keys := make(map[string]bool)

	rows, err := s.db.QueryContext(ctx, `SELECT record_key FROM records`)
	if err != nil {
		return nil, fmt.Errorf("list record keys: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan record key: %w", err)
		}
		keys[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unmatchedRows, err := s.db.QueryContext(ctx, `SELECT DISTINCT platform_key, title FROM unmatched`)
	if err != nil {
		return nil, fmt.Errorf("list unmatched keys: %w", err)
	}
	defer func() { _ = unmatchedRows.Close() }()
	for unmatchedRows.Next() {
		var platform, title string
		if err := unmatchedRows.Scan(&platform, &title); err != nil {
			return nil, fmt.Errorf("scan unmatched key: %w", err)
		}
		keys[RecordKey(platform, title)] = true
	}
	return keys, unmatchedRows.Err()
}

// RecordsByPlatform returns every record grouped by platform key, each
// group sorted by title.
func (s *Store) RecordsByPlatform(ctx context.Context) (map[string][]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY platform_key, title`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	grouped := make(map[string][]Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		grouped[rec.PlatformKey] = append(grouped[rec.PlatformKey], *rec)
	}
	return grouped, rows.Err()
}

// GetRecord fetches a record by key, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, key string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE record_key = ?`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// AllUnmatched returns every unmatched entry in insertion order.
func (s *Store) AllUnmatched(ctx context.Context) ([]Unmatched, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT platform_key, title, path, reason, attempted_json, created_at FROM unmatched ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unmatched: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Unmatched
	for rows.Next() {
		var (
			un        Unmatched
			attempted string
			createdAt string
		)
		if err := rows.Scan(&un.PlatformKey, &un.Title, &un.Path, &un.Reason, &attempted, &createdAt); err != nil {
			return nil, fmt.Errorf("scan unmatched: %w", err)
		}
		if attempted != "" {
			if err := json.Unmarshal([]byte(attempted), &un.Attempted); err != nil {
				return nil, fmt.Errorf("decode attempted variations: %w", err)
			}
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			un.RecordedAt = ts
		}
		entries = append(entries, un)
	}
	return entries, rows.Err()
}

// PlatformCount summarizes one platform for status reporting.
type PlatformCount struct {
	PlatformKey string
	Records     int
	SizeBytes   int64
}

// Summary describes the current library contents.
type Summary struct {
	Platforms      []PlatformCount
	TotalRecords   int
	TotalUnmatched int
	LastCheckpoint time.Time
	LastRunID      string
}

// Summarize reports per-platform record counts, the unmatched total, and
// the most recent checkpoint.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var summary Summary

	grouped, err := s.RecordsByPlatform(ctx)
	if err != nil {
		return summary, err
	}
	for platform, records := range grouped {
		count := PlatformCount{PlatformKey: platform, Records: len(records)}
		for _, rec := range records {
			count.SizeBytes += rec.SizeBytes()
		}
		summary.Platforms = append(summary.Platforms, count)
		summary.TotalRecords += len(records)
	}
	sort.Slice(summary.Platforms, func(i, j int) bool {
		return summary.Platforms[i].PlatformKey < summary.Platforms[j].PlatformKey
	})

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM unmatched`).Scan(&summary.TotalUnmatched); err != nil {
		return summary, fmt.Errorf("count unmatched: %w", err)
	}

	var runID, createdAt sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT run_id, created_at FROM checkpoints ORDER BY id DESC LIMIT 1`,
	).Scan(&runID, &createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return summary, fmt.Errorf("last checkpoint: %w", err)
	}
	if runID.Valid {
		summary.LastRunID = runID.String
	}
	if createdAt.Valid {
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt.String); parseErr == nil {
			summary.LastCheckpoint = ts
		}
	}
	return summary, nil
}
