package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

// Config controls the background cadence.
type Config struct {
	// KEVSyncInterval is how often the KEV catalog is refreshed.
	KEVSyncInterval time.Duration

	// InventoryScanInterval is how often the full multi-client inventory
	// sweep runs.
	InventoryScanInterval time.Duration

	// AlertThreshold is the minimum CVSS score for a newly discovered
	// match to be included in the high-severity alert.
	AlertThreshold float64
}

// DefaultConfig returns the production cadence.
func DefaultConfig() Config {
	return Config{
		KEVSyncInterval:       12 * time.Hour,
		InventoryScanInterval: 24 * time.Hour,
		AlertThreshold:        7.0,
	}
}

// Scheduler drives the periodic KEV sync and inventory sweep. Each task has
// an overlap guard so a slow run is never stacked on top of itself, and a
// failing client never stops the sweep for the others.
type Scheduler struct {
	intel    ports.IntelService
	assets   ports.AssetRepository
	matches  ports.AssetMatchRepository
	cache    ports.CVECacheRepository
	notifier ports.AlertNotifier
	cfg      Config

	kevRunning  atomic.Bool
	scanRunning atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. The notifier may be nil, in which case alerting
// is disabled.
func New(intel ports.IntelService, assets ports.AssetRepository, matches ports.AssetMatchRepository, cache ports.CVECacheRepository, notifier ports.AlertNotifier, cfg Config) *Scheduler {
	if cfg.KEVSyncInterval <= 0 {
		cfg.KEVSyncInterval = DefaultConfig().KEVSyncInterval
	}
	if cfg.InventoryScanInterval <= 0 {
		cfg.InventoryScanInterval = DefaultConfig().InventoryScanInterval
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = DefaultConfig().AlertThreshold
	}
	return &Scheduler{
		intel:    intel,
		assets:   assets,
		matches:  matches,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Start launches the background loops. It returns immediately; call Stop to
// shut them down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.loop(ctx, s.cfg.KEVSyncInterval, "kev-sync", s.RunKEVSyncOnce)
	go s.loop(ctx, s.cfg.InventoryScanInterval, "inventory-scan", s.RunInventoryScanOnce)

	log.Printf("[SCHED] started (kev every %s, inventory every %s)",
		s.cfg.KEVSyncInterval, s.cfg.InventoryScanInterval)
}

// Stop cancels the loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, task func(context.Context)) {
	defer s.wg.Done()

	// First run happens shortly after startup, not a full interval later.
	startup := time.NewTimer(10 * time.Second)
	defer startup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-startup.C:
		task(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCHED] %s loop stopped", name)
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

// RunKEVSyncOnce performs one KEV catalog refresh. If a sync is already in
// flight the call is a no-op.
func (s *Scheduler) RunKEVSyncOnce(ctx context.Context) {
	if !s.kevRunning.CompareAndSwap(false, true) {
		log.Printf("[SCHED] kev sync still running, skipping tick")
		return
	}
	defer s.kevRunning.Store(false)

	if _, err := s.intel.SyncKEVCatalog(ctx); err != nil {
		log.Printf("[SCHED] kev sync failed: %v", err)
	}
}

// RunInventoryScanOnce sweeps every client's inventory and then alerts on
// high-severity matches discovered during the sweep. A failing client is
// logged and the sweep moves on.
func (s *Scheduler) RunInventoryScanOnce(ctx context.Context) {
	if !s.scanRunning.CompareAndSwap(false, true) {
		log.Printf("[SCHED] inventory scan still running, skipping tick")
		return
	}
	defer s.scanRunning.Store(false)

	clients, err := s.assets.ListClientIDs(ctx)
	if err != nil {
		log.Printf("[SCHED] failed to list clients: %v", err)
		return
	}

	for _, clientID := range clients {
		if ctx.Err() != nil {
			return
		}

		start := time.Now().UTC()
		summary, err := s.intel.ScanAllAssets(ctx, clientID)
		if err != nil {
			log.Printf("[SCHED] inventory scan for client %s failed: %v", clientID, err)
			continue
		}
		log.Printf("[SCHED] client %s: %d assets scanned, %d skipped, %d new matches",
			clientID, summary.AssetsScanned, summary.AssetsSkipped, summary.MatchesCreated)

		s.alertOnNewMatches(ctx, clientID, start)
	}
}

// alertOnNewMatches sends one grouped notification per client covering the
// matches discovered since start whose cached CVSS score meets the alert
// threshold. No findings, no notification.
func (s *Scheduler) alertOnNewMatches(ctx context.Context, clientID string, start time.Time) {
	if s.notifier == nil {
		return
	}

	recent, err := s.matches.ListDiscoveredAfter(ctx, clientID, start)
	if err != nil {
		log.Printf("[SCHED] failed to load new matches for client %s: %v", clientID, err)
		return
	}

	var findings []ports.AlertFinding
	assetNames := make(map[string]string)
	for _, m := range recent {
		name, ok := assetNames[m.AssetID]
		if !ok {
			name = m.AssetID
			if asset, err := s.assets.GetAsset(ctx, m.AssetID); err == nil && asset != nil {
				name = asset.Name
			}
			assetNames[m.AssetID] = name
		}
		finding := ports.AlertFinding{CVEID: m.CVEID, AssetName: name, IsKEV: m.IsKEV}

		var cvss float64
		cve, err := s.cache.GetCVE(ctx, m.CVEID)
		if err == nil && cve != nil {
			cvss = cve.CVSSScore
			finding.Description = cve.Description
			finding.CVSSScore = cve.CVSSScore
		}

		if cvss >= s.cfg.AlertThreshold {
			findings = append(findings, finding)
		}
	}
	if len(findings) == 0 {
		return
	}

	if err := s.notifier.NotifyHighSeverityMatches(ctx, clientID, findings); err != nil {
		log.Printf("[SCHED] alert delivery for client %s failed: %v", clientID, err)
	}
}
