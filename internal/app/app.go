package app

import (
	"context"
	"sync"
	"time"

	"paper-trader/config"
	"paper-trader/engine"
	"paper-trader/observability"
)

// Sweeper retries pending orders against current quotes
type Sweeper interface {
	SweepPending(ctx context.Context) (engine.SweepStats, error)
}

// Cycler runs one auto-trader pass over every oracle account
type Cycler interface {
	RunCycle(ctx context.Context) error
}

// CacheCleaner drops quote cache entries too old to serve as fallbacks
type CacheCleaner interface {
	ClearExpired()
}

const cacheCleanupInterval = 2 * time.Minute

// App owns the background loops: the pending-order sweep, the auto-trader
// cycle and the quote cache cleanup. Loops stop when the Start context is
// cancelled; Wait blocks until they have all drained.
type App struct {
	cfg     *config.Config
	sweeper Sweeper
	cycler  Cycler
	cleaner CacheCleaner

	wg sync.WaitGroup
}

// New creates a new App. cycler may be nil when the auto-trader is
// disabled; cleaner may be nil when quotes are uncached.
func New(cfg *config.Config, sweeper Sweeper, cycler Cycler, cleaner CacheCleaner) *App {
	return &App{
		cfg:     cfg,
		sweeper: sweeper,
		cycler:  cycler,
		cleaner: cleaner,
	}
}

// Start launches the background loops. It returns immediately.
func (a *App) Start(ctx context.Context) {
	sweepInterval := time.Duration(a.cfg.Engine.SweepIntervalSeconds) * time.Second
	a.wg.Add(1)
	go a.loop(ctx, "sweep", sweepInterval, a.runSweep)

	if a.cycler != nil && a.cfg.Trader.Enabled {
		cycleInterval := time.Duration(a.cfg.Trader.IntervalSeconds) * time.Second
		a.wg.Add(1)
		go a.loop(ctx, "oracle", cycleInterval, a.runCycle)
	}

	if a.cleaner != nil {
		a.wg.Add(1)
		go a.loop(ctx, "cache_cleanup", cacheCleanupInterval, func(context.Context) {
			a.cleaner.ClearExpired()
		})
	}
}

// Wait blocks until every loop started by Start has exited.
func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	observability.Info("background loop started", "loop", name, "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			observability.Info("background loop stopped", "loop", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (a *App) runSweep(ctx context.Context) {
	stats, err := a.sweeper.SweepPending(ctx)
	if err != nil {
		observability.WithError(err).Error("pending order sweep failed")
		return
	}
	if stats.Filled > 0 {
		observability.Info("pending order sweep",
			"checked", stats.Checked, "filled", stats.Filled)
	}
}

func (a *App) runCycle(ctx context.Context) {
	if err := a.cycler.RunCycle(ctx); err != nil {
		observability.WithError(err).Error("auto-trader cycle failed")
	}
}
