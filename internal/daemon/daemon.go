// Package daemon wires the arbitration core to its drivers: the timer, the
// schedule generator, persistence, and the presentation adapters.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/daemon/events"
	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/history"
	"git.home.luguber.info/inful/presenced/internal/logfields"
	"git.home.luguber.info/inful/presenced/internal/metrics"
	"git.home.luguber.info/inful/presenced/internal/schedule"
	"git.home.luguber.info/inful/presenced/internal/snapshot"
	"git.home.luguber.info/inful/presenced/internal/status"
)

// Daemon owns the long-running presence service: one arbitrator, one
// schedule store, the timer driver and the adapter fan-out.
type Daemon struct {
	mu      sync.RWMutex // guards cfg and factory across live reloads
	cfg     *config.Config
	factory *status.Factory

	arb      *status.Arbitrator
	store    *schedule.Store
	cache    *schedule.Cache
	gen      schedule.Generator
	gateway  *snapshot.Gateway
	bus      *events.Bus
	hist     *history.SQLiteStore
	recorder metrics.Recorder

	scheduler  *Scheduler
	httpServer *HTTPServer
	natsPub    *NATSPublisher
	watcher    *ConfigWatcher

	// tickGate coalesces overlapping timer fires into at most one
	// in-flight evaluation.
	tickGate chan struct{}

	adapterWG sync.WaitGroup
}

// Options carries optional collaborators for New. Zero values select
// defaults (noop recorder, HTTP generator from config).
type Options struct {
	Generator schedule.Generator
	Recorder  metrics.Recorder
}

// New builds a daemon from configuration, restoring persisted state.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	gen := opts.Generator
	if gen == nil {
		gen = schedule.NewHTTPGenerator(cfg.Generator)
	}

	gateway, err := snapshot.NewGateway(cfg.DataDir, cfg.PersistTimeout.Std())
	if err != nil {
		return nil, err
	}

	cache, err := schedule.NewCache(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		factory:  status.NewFactory(cfg),
		cache:    cache,
		gen:      gen,
		gateway:  gateway,
		bus:      events.NewBus(),
		recorder: recorder,
		tickGate: make(chan struct{}, 1),
	}

	d.arb = status.New(status.WithChangeHook(d.onActiveChange))
	d.store = schedule.NewStore(d.arb, d)

	if cfg.History.Enabled {
		hist, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		d.hist = hist
	}

	if cfg.NATS.Enabled {
		pub, err := NewNATSPublisher(cfg.NATS)
		if err != nil {
			return nil, err
		}
		d.natsPub = pub
	}

	if cfg.HTTP.Enabled {
		d.httpServer = NewHTTPServer(cfg.HTTP, d)
	}

	d.scheduler, err = NewScheduler()
	if err != nil {
		return nil, err
	}

	d.restore()
	return d, nil
}

// NewEntry implements schedule.EntryFactory against the live factory, so a
// config reload takes effect without rebuilding the store.
func (d *Daemon) NewEntry(source status.Source, label string, priority int, validFrom time.Time, validUntil *time.Time) (status.Entry, error) {
	return d.currentFactory().NewEntry(source, label, priority, validFrom, validUntil)
}

func (d *Daemon) currentFactory() *status.Factory {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.factory
}

func (d *Daemon) currentConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// restore loads the last snapshot into the arbitrator and schedule store.
// Corrupt or future-versioned snapshots degrade to an empty state.
func (d *Daemon) restore() {
	loaded, err := d.gateway.Load(context.Background())
	if err != nil {
		slog.Warn("Snapshot unusable, starting from empty state", logfields.Error(err))
		return
	}
	loaded.Match(func(doc snapshot.Document) {
		d.arb.Restore(doc.State())
		d.store.Restore(doc.ScheduleDay, doc.DailySchedule)
		slog.Info("Restored persisted state",
			logfields.Count(len(doc.Candidates)),
			logfields.Day(doc.ScheduleDay))
	}, func() {
		slog.Info("No snapshot found, starting from empty state")
	})
}

// Run starts the daemon and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.currentConfig()
	slog.Info("Starting presence daemon",
		logfields.Path(cfg.DataDir),
		slog.Duration("tick_interval", cfg.TickInterval.Std()))

	d.startAdapters()

	if _, err := d.scheduler.ScheduleTick(cfg.TickInterval.Std(), d.onTick); err != nil {
		return err
	}
	if _, err := d.scheduler.ScheduleDailyBoundary(d.onDailyBoundary); err != nil {
		return err
	}
	d.scheduler.Start(ctx)

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx); err != nil {
			return err
		}
	}

	// Catch up immediately instead of waiting for the first tick: the
	// process may have been down across any number of missed ticks. Going
	// through onTick keeps the single-in-flight guarantee even if the
	// scheduler fires during startup.
	d.onTick()

	<-ctx.Done()
	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	slog.Info("Shutting down presence daemon")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.scheduler.Stop(stopCtx); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	if d.httpServer != nil {
		d.httpServer.Stop(stopCtx)
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}

	// Final snapshot before the adapters drain.
	d.persist()

	d.bus.Close()
	d.adapterWG.Wait()

	if d.natsPub != nil {
		d.natsPub.Close()
	}
	if d.hist != nil {
		if err := d.hist.Close(); err != nil {
			slog.Warn("History store close failed", logfields.Error(err))
		}
	}
	return nil
}

// WatchConfig attaches a live-reload watcher for presets and priorities.
func (d *Daemon) WatchConfig(ctx context.Context, path string) error {
	w, err := NewConfigWatcher(path, d)
	if err != nil {
		return err
	}
	d.watcher = w
	return w.Start(ctx)
}

// ReloadConfig re-reads the config file and swaps the policy-bearing parts
// (presets, priorities, wake settings). Structural settings (data dir,
// listeners, tick interval) need a restart and are left untouched.
func (d *Daemon) ReloadConfig(path string) error {
	fresh, err := config.Load(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.cfg.Presets = fresh.Presets
	d.cfg.Priorities = fresh.Priorities
	d.cfg.Wake = fresh.Wake
	d.cfg.LabelMaxWidth = fresh.LabelMaxWidth
	d.factory = status.NewFactory(d.cfg)
	d.mu.Unlock()

	slog.Info("Reloaded presets and priorities", logfields.Path(path))
	return nil
}

// onTick is the timer driver entry point. Overlapping fires coalesce: at
// most one evaluation is in flight, extra ticks are dropped (the next tick
// sweeps anything they would have).
func (d *Daemon) onTick() {
	select {
	case d.tickGate <- struct{}{}:
	default:
		slog.Debug("Tick coalesced, evaluation already in flight")
		return
	}
	defer func() { <-d.tickGate }()

	now := time.Now()
	d.ensureDailySchedule(context.Background(), now)
	d.evaluate(now)
}

// onDailyBoundary discards the prior day's schedule and regenerates.
func (d *Daemon) onDailyBoundary() {
	now := time.Now()
	slog.Info("Daily boundary reached, regenerating schedule", logfields.Day(now.Format(schedule.DayFormat)))
	if err := d.regenerate(context.Background(), now); err != nil {
		slog.Warn("Daily schedule regeneration failed, keeping previous schedule", logfields.Error(err))
	}
	d.evaluate(now)
}

// evaluate runs one arbitration pass and persists on mutation.
func (d *Daemon) evaluate(now time.Time) {
	started := time.Now()
	before := d.arb.CandidateCount()
	change := d.arb.Evaluate(now)
	swept := before - d.arb.CandidateCount()
	elapsed := time.Since(started)

	d.recorder.IncEvaluation()
	d.recorder.ObserveEvaluateDuration(elapsed)
	if swept > 0 {
		d.recorder.AddExpired(swept)
	}
	slog.Debug("Evaluation pass finished",
		logfields.DurationMS(float64(elapsed.Nanoseconds())/1e6),
		logfields.Count(swept))

	if change != nil || swept > 0 {
		d.persist()
	}
}

// SubmitEntry validates and inserts an externally pushed candidate
// (command or tool call) and returns its id.
func (d *Daemon) SubmitEntry(entry status.Entry) (string, error) {
	id, err := d.arb.Submit(entry)
	if err != nil {
		return "", err
	}
	slog.Info("Status candidate submitted",
		logfields.EntryID(id),
		logfields.Label(entry.Label),
		logfields.Source(string(entry.Source)),
		logfields.Priority(entry.Priority))
	d.recorder.IncSubmission(string(entry.Source))
	d.persist()
	return id, nil
}

// RevokeEntry removes a candidate by id; unknown ids are a no-op.
func (d *Daemon) RevokeEntry(id string) {
	d.arb.Revoke(id)
	slog.Debug("Status candidate revoked", logfields.EntryID(id))
	d.persist()
}

// CurrentActive returns the active entry, if any.
func (d *Daemon) CurrentActive() foundation.Option[status.Entry] {
	return d.arb.CurrentActive()
}

// ScheduleView returns the loaded schedule day and its planned entries.
func (d *Daemon) ScheduleView() (string, []status.Entry) {
	return d.store.Day(), d.store.Entries()
}

// SetMetricsHandler exposes a metrics endpoint on the admin API.
func (d *Daemon) SetMetricsHandler(h http.Handler) {
	if d.httpServer != nil {
		d.httpServer.SetMetricsHandler(h)
	}
}

// RecentTransitions reads the transition history, newest first.
func (d *Daemon) RecentTransitions(ctx context.Context, limit int) ([]history.Transition, error) {
	if d.hist == nil {
		return nil, foundation.NotFoundError("transition history").
			WithComponent("daemon").
			Build()
	}
	return d.hist.Recent(ctx, limit)
}

// TriggerWake submits the short-lived wake status unless the current
// background status is marked silent. Returns the submitted id, or empty
// when suppressed.
func (d *Daemon) TriggerWake(now time.Time) (string, error) {
	if active := d.arb.CurrentActive(); active.IsSome() && active.Unwrap().Silent {
		slog.Debug("Wake suppressed by silent background status",
			logfields.Label(active.Unwrap().Label))
		return "", nil
	}

	cfg := d.currentConfig()
	factory := d.currentFactory()

	var entry status.Entry
	var err error
	if cfg.Wake.Preset != "" {
		entry, err = factory.FromPreset(cfg.Wake.Preset, status.SourceManualOverride,
			cfg.Wake.Priority, now, cfg.Wake.Duration.Std())
	} else {
		entry, err = factory.NewTimedEntry(status.SourceManualOverride, "online",
			cfg.Wake.Priority, now, cfg.Wake.Duration.Std())
	}
	if err != nil {
		return "", err
	}
	entry.Silent = false

	id, err := d.arb.SubmitAt(now, entry)
	if err != nil {
		return "", err
	}
	slog.Info("Wake status submitted",
		logfields.EntryID(id),
		logfields.Label(entry.Label),
		logfields.Priority(entry.Priority))
	d.recorder.IncSubmission(string(entry.Source))
	d.persist()
	return id, nil
}

// RegenerateSchedule forces a fresh generation, bypassing the day cache.
// Exposed for the manual-regeneration API.
func (d *Daemon) RegenerateSchedule(ctx context.Context) error {
	now := time.Now()
	if err := d.regenerate(ctx, now); err != nil {
		return err
	}
	d.evaluate(now)
	return nil
}

// ensureDailySchedule makes sure today's schedule is loaded, preferring the
// day cache over a generation round-trip. Generation failure keeps the
// previous day's schedule rather than leaving no schedule at all.
func (d *Daemon) ensureDailySchedule(ctx context.Context, now time.Time) {
	day := now.Format(schedule.DayFormat)
	if d.store.Day() == day && len(d.store.Entries()) > 0 {
		return
	}

	if cached := d.cache.LoadDay(day); cached.IsSome() {
		slog.Info("Loaded schedule from day cache", logfields.Day(day))
		d.store.Replace(now, dayStart(now), cached.Unwrap())
		d.persist()
		return
	}

	if err := d.regenerate(ctx, now); err != nil {
		slog.Warn("Schedule generation failed, keeping previous schedule",
			logfields.Day(day), logfields.Error(err))
	}
}

// regenerate calls the external generator, caches the result for the day
// and swaps the schedule in.
func (d *Daemon) regenerate(ctx context.Context, now time.Time) error {
	day := now.Format(schedule.DayFormat)

	slots, err := d.gen.GenerateDailySchedule(ctx, day)
	if err != nil {
		d.recorder.IncGenerationResult(false)
		return err
	}
	d.recorder.IncGenerationResult(true)

	if err := d.cache.SaveDay(day, slots); err != nil {
		slog.Warn("Failed to cache generated schedule", logfields.Day(day), logfields.Error(err))
	}

	d.store.Replace(now, dayStart(now), slots)
	d.persist()
	return nil
}

// persist writes a complete snapshot. Failures are logged and counted but
// never abort the in-memory state change.
func (d *Daemon) persist() {
	cfg := d.currentConfig()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout.Std())
	defer cancel()

	doc := snapshot.FromState(d.arb.Snapshot(), d.store.Day(), d.store.Entries())
	if err := d.gateway.Save(ctx, doc); err != nil {
		d.recorder.IncPersistenceFailure()
		slog.Warn("Snapshot write failed, in-memory state remains authoritative",
			logfields.Error(err))
	}
}

// onActiveChange is the arbitrator change hook: it records the transition
// metric and fans the change out to adapters. It runs under the arbitrator
// lock, so delivery uses buffered subscribers and a bounded context.
func (d *Daemon) onActiveChange(change status.ActiveChange) {
	source := ""
	if change.To != nil {
		source = string(change.To.Source)
	}
	d.recorder.IncActiveChange(source)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.bus.Publish(ctx, change); err != nil {
		slog.Warn("Dropped active-change notification", logfields.Error(err))
	}
}

// startAdapters attaches the presentation-side consumers to the bus.
func (d *Daemon) startAdapters() {
	// Structured transition log, always on.
	logCh, _ := d.bus.Subscribe(16)
	d.adapterWG.Add(1)
	go func() {
		defer d.adapterWG.Done()
		for change := range logCh {
			slog.Info("Active status changed",
				slog.String("from", change.FromLabel()),
				slog.String("to", change.ToLabel()))
		}
	}()

	if d.hist != nil {
		histCh, _ := d.bus.Subscribe(16)
		d.adapterWG.Add(1)
		go func() {
			defer d.adapterWG.Done()
			for change := range histCh {
				// Deliberately not the run context: transitions drained
				// during shutdown still get recorded.
				appendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := d.hist.Append(appendCtx, change); err != nil {
					slog.Warn("Failed to record transition", logfields.Error(err))
				}
				cancel()
			}
		}()
	}

	if d.natsPub != nil {
		natsCh, _ := d.bus.Subscribe(16)
		d.adapterWG.Add(1)
		go func() {
			defer d.adapterWG.Done()
			for change := range natsCh {
				if err := d.natsPub.Publish(change); err != nil {
					slog.Warn("Failed to publish presence update", logfields.Error(err))
				}
			}
		}()
	}
}

func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
