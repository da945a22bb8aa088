package feedcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// searchResultLimit caps keyword search results per query.
const searchResultLimit = 50

// SQLiteRepository is the local feed cache. It implements
// ports.CVECacheRepository, ports.KEVRepository and ports.SyncRunRepository
// over a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the cache database.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// GetCVE returns the cached record for a CVE id, or nil if not cached.
func (r *SQLiteRepository) GetCVE(ctx context.Context, cveID string) (*domain.CachedCVE, error) {
	query := `
		SELECT cve_id, description, cvss_score, cvss_vector, cpe_matches,
		       published_at, last_modified_at, fetched_at
		FROM cached_cves
		WHERE cve_id = ?
	`

	row := r.db.QueryRowContext(ctx, query, cveID)
	cve, err := scanCVE(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get CVE: %w", err)
	}

	return &cve, nil
}

// UpsertCVE inserts or refreshes a cached record. An existing record is only
// overwritten when the incoming last_modified_at is not older than the
// cached one, so stale re-fetches never clobber newer data.
func (r *SQLiteRepository) UpsertCVE(ctx context.Context, cve domain.CachedCVE) error {
	cpeJSON, err := json.Marshal(cve.CPEMatches)
	if err != nil {
		return fmt.Errorf("failed to marshal cpe matches: %w", err)
	}

	if cve.FetchedAt.IsZero() {
		cve.FetchedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO cached_cves (
			cve_id, description, cvss_score, cvss_vector, cpe_matches,
			published_at, last_modified_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cve_id) DO UPDATE SET
			description = excluded.description,
			cvss_score = excluded.cvss_score,
			cvss_vector = excluded.cvss_vector,
			cpe_matches = excluded.cpe_matches,
			published_at = excluded.published_at,
			last_modified_at = excluded.last_modified_at,
			fetched_at = excluded.fetched_at,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.last_modified_at >= cached_cves.last_modified_at
	`

	_, err = r.db.ExecContext(ctx, query,
		cve.CVEID, cve.Description, cve.CVSSScore, cve.CVSSVector, string(cpeJSON),
		cve.PublishedAt.Format(time.RFC3339), cve.LastModifiedAt.Format(time.RFC3339),
		cve.FetchedAt.Format(time.RFC3339),
	)

	return err
}

// SearchCVEs returns cached records whose description matches any keyword.
func (r *SQLiteRepository) SearchCVEs(ctx context.Context, keywords []string) ([]domain.CachedCVE, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(description) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	args = append(args, searchResultLimit)

	query := fmt.Sprintf(`
		SELECT cve_id, description, cvss_score, cvss_vector, cpe_matches,
		       published_at, last_modified_at, fetched_at
		FROM cached_cves
		WHERE %s
		ORDER BY cvss_score DESC
		LIMIT ?
	`, strings.Join(conditions, " OR "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var cves []domain.CachedCVE
	for rows.Next() {
		cve, err := scanCVE(rows)
		if err != nil {
			return nil, err
		}
		cves = append(cves, cve)
	}

	return cves, rows.Err()
}

// CountCVEs returns the number of cached records.
func (r *SQLiteRepository) CountCVEs(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cached_cves").Scan(&count)
	return count, err
}

// IsKEV reports whether the CVE id is currently in the cached KEV catalog.
func (r *SQLiteRepository) IsKEV(ctx context.Context, cveID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM kev_entries WHERE cve_id = ?", cveID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kev lookup failed: %w", err)
	}
	return true, nil
}

// ReplaceCatalog swaps the whole cached KEV catalog in one transaction.
func (r *SQLiteRepository) ReplaceCatalog(ctx context.Context, entries []domain.KEVEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM kev_entries"); err != nil {
		return fmt.Errorf("failed to clear kev entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO kev_entries (cve_id, date_added) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.CVEID, e.DateAdded.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to insert kev entry %s: %w", e.CVEID, err)
		}
	}

	return tx.Commit()
}

// CountKEV returns the size of the cached KEV catalog.
func (r *SQLiteRepository) CountKEV(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kev_entries").Scan(&count)
	return count, err
}

// RecordSyncRun appends one row to the sync ledger.
func (r *SQLiteRepository) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (source, started_at, completed_at, record_count, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.Source, run.StartedAt.Format(time.RFC3339), run.CompletedAt.Format(time.RFC3339),
		run.RecordCount, run.Status, run.Error,
	)
	return err
}

// LastSyncRun returns the most recent ledger row for a source, or nil if the
// source has never synced.
func (r *SQLiteRepository) LastSyncRun(ctx context.Context, source string) (*domain.SyncRun, error) {
	query := `
		SELECT id, source, started_at, completed_at, record_count, status, error
		FROM sync_runs
		WHERE source = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var run domain.SyncRun
	var startedAt, completedAt string
	err := r.db.QueryRowContext(ctx, query, source).Scan(
		&run.ID, &run.Source, &startedAt, &completedAt, &run.RecordCount, &run.Status, &run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	run.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
	return &run, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCVE(row scanner) (domain.CachedCVE, error) {
	var cve domain.CachedCVE
	var cpeJSON, publishedAt, lastModifiedAt, fetchedAt string

	err := row.Scan(
		&cve.CVEID, &cve.Description, &cve.CVSSScore, &cve.CVSSVector, &cpeJSON,
		&publishedAt, &lastModifiedAt, &fetchedAt,
	)
	if err != nil {
		return cve, err
	}

	cve.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	cve.LastModifiedAt, _ = time.Parse(time.RFC3339, lastModifiedAt)
	cve.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)

	if cpeJSON != "" {
		json.Unmarshal([]byte(cpeJSON), &cve.CPEMatches)
	}

	return cve, nil
}

// Interface compliance
var (
	_ ports.CVECacheRepository = (*SQLiteRepository)(nil)
	_ ports.KEVRepository      = (*SQLiteRepository)(nil)
	_ ports.SyncRunRepository  = (*SQLiteRepository)(nil)
)
