package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/adapters/alert"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/breach"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feed"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feedcache"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/storage"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/web"
	"github.com/lcalzada-xor/threatwatch/internal/config"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/intel"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/matching"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/scheduler"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/vendorrisk"
	"github.com/lcalzada-xor/threatwatch/internal/telemetry"
)

// Application wires storage, feed clients, the correlation engine, the
// scheduler, and the API server together.
type Application struct {
	Config    *config.Config
	Store     *storage.Adapter
	FeedCache *feedcache.SQLiteRepository
	Intel     *intel.Service
	Scheduler *scheduler.Scheduler
	WebServer *web.Server
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}

	feedClient, breachClient := app.initClients()

	engine := matching.NewEngine(app.FeedCache, app.FeedCache, feedClient, matching.DefaultScoringConfig())
	aggregator := vendorrisk.NewAggregator(vendorrisk.DefaultPenaltyConfig())

	opts := intel.DefaultOptions()
	opts.CacheTTL = app.Config.CacheTTL
	opts.LookupDelay = app.Config.LookupDelay

	app.Intel = intel.NewService(intel.Deps{
		Assets:   app.Store,
		Vendors:  app.Store,
		Matches:  app.Store,
		Scans:    app.Store,
		Breaches: app.Store,
		Cache:    app.FeedCache,
		KEV:      app.FeedCache,
		SyncRuns: app.FeedCache,
		Feed:     feedClient,
		Breach:   breachClient,
		Importer: app.Store,
		Engine:   engine,
		Risk:     aggregator,
	}, opts)

	notifier := alert.NewWebhookNotifier(app.Config.AlertWebhookURL, 10*time.Second)
	app.Scheduler = scheduler.New(app.Intel, app.Store, app.Store, app.FeedCache, notifier, scheduler.Config{
		KEVSyncInterval:       app.Config.KEVSyncInterval,
		InventoryScanInterval: app.Config.InventoryScanInterval,
		AlertThreshold:        app.Config.AlertThreshold,
	})

	app.WebServer = web.NewServer(app.Config.Addr, app.Intel)

	if app.Config.MockMode {
		log.Println("Mock Mode Active: using fixture feed and breach data")
		if err := SeedFixtures(context.Background(), app.Store); err != nil {
			log.Printf("Warning: fixture seeding incomplete: %v", err)
		}
	}

	return nil
}

func (app *Application) initStorage() error {
	for _, p := range []string{app.Config.DBPath, app.Config.CachePath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	store, err := storage.NewAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init match store: %w", err)
	}
	app.Store = store

	cache, err := feedcache.NewSQLiteRepository(app.Config.CachePath)
	if err != nil {
		return fmt.Errorf("failed to init feed cache: %w", err)
	}
	app.FeedCache = cache
	return nil
}

func (app *Application) initClients() (ports.VulnerabilityFeedClient, ports.BreachSearchClient) {
	if app.Config.MockMode {
		return FixtureFeed(), FixtureBreaches()
	}

	nvd := feed.NewNVDClient(app.Config.NVDBaseURL, app.Config.NVDAPIKey, 0)
	kev := feed.NewKEVClient(app.Config.KEVURL, app.Config.KEVFallbackURL)
	feedClient := feed.NewClient(nvd, kev)

	var breachClient ports.BreachSearchClient
	if app.Config.BreachBaseURL != "" {
		breachClient = breach.NewHTTPClient(app.Config.BreachBaseURL, app.Config.BreachAPIKey, 0)
	}
	return feedClient, breachClient
}

// Run starts the scheduler and the API server and blocks until the context
// is cancelled or the server fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting threatwatch components...")

	app.Scheduler.Start(ctx)
	defer app.Scheduler.Stop()

	err := app.WebServer.Run(ctx)

	app.cleanup()
	return err
}

func (app *Application) cleanup() {
	slog.Info("Cleaning up resources...")

	if app.FeedCache != nil {
		if err := app.FeedCache.Close(); err != nil {
			log.Printf("Feed cache close error: %v", err)
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			log.Printf("Match store close error: %v", err)
		}
	}
}
