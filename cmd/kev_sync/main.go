package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/adapters/feed"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feedcache"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

func main() {
	dbPath := flag.String("db-path", "./data/feedcache.db", "Path to feed cache database")
	kevURL := flag.String("kev-url", "", "KEV catalog URL (defaults to CISA)")
	fallbackURL := flag.String("kev-fallback-url", "", "KEV fallback URL (defaults to GitHub mirror)")
	flag.Parse()

	log.Println("=== KEV Catalog Sync ===")
	log.Printf("Database: %s", *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	repo, err := feedcache.NewSQLiteRepository(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open feed cache: %v", err)
	}
	defer repo.Close()

	client := feed.NewKEVClient(*kevURL, *fallbackURL)
	ctx := context.Background()

	run, err := syncOnce(ctx, repo, client)
	if err != nil {
		log.Fatalf("KEV sync failed: %v", err)
	}

	count, _ := repo.CountKEV(ctx)
	log.Printf("✓ Cache now contains %d known exploited vulnerabilities", count)
	log.Printf("✓ Ledger: %s at %s (%d records)",
		run.Status, run.CompletedAt.Format("2006-01-02 15:04:05"), run.RecordCount)
}

// syncOnce fetches the catalog, replaces the cached copy, and appends one
// ledger row covering this invocation, success or failure.
func syncOnce(ctx context.Context, repo *feedcache.SQLiteRepository, client *feed.KEVClient) (domain.SyncRun, error) {
	run := domain.SyncRun{
		Source:    domain.SyncSourceKEV,
		StartedAt: time.Now().UTC(),
	}

	entries, err := client.FetchKEVCatalog(ctx)
	if err != nil {
		return recordFailure(ctx, repo, run, err), fmt.Errorf("kev catalog fetch failed: %w", err)
	}

	if err := repo.ReplaceCatalog(ctx, entries); err != nil {
		return recordFailure(ctx, repo, run, err), fmt.Errorf("kev catalog replace failed: %w", err)
	}

	run.CompletedAt = time.Now().UTC()
	run.RecordCount = len(entries)
	run.Status = domain.SyncStatusSuccess
	if err := repo.RecordSyncRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to record sync run: %w", err)
	}
	return run, nil
}

func recordFailure(ctx context.Context, repo *feedcache.SQLiteRepository, run domain.SyncRun, cause error) domain.SyncRun {
	run.CompletedAt = time.Now().UTC()
	run.Status = domain.SyncStatusFailed
	run.Error = cause.Error()
	if err := repo.RecordSyncRun(ctx, run); err != nil {
		log.Printf("Failed to record failed run: %v", err)
	}
	return run
}
