package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"haltwatch/internal/alerting"
	"haltwatch/internal/config"
	"haltwatch/internal/feed"
	"haltwatch/internal/intel"
	"haltwatch/internal/markethours"
	"haltwatch/internal/scheduler"
	"haltwatch/internal/service"
	"haltwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() feed.SnapshotFetcher {
	return feed.NewClient(feed.Options{
		URL:       a.Config.Feed.URL,
		Timeout:   a.Config.Feed.RequestTimeout,
		UserAgent: a.Config.Feed.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Discord.Enabled {
		cfg := a.Config.Alerting.Discord
		return alerting.NewDiscordNotifier(cfg.WebhookURL, cfg.Username, cfg.RequestTimeout, a.Logger)
	}
	return nil
}

func (a *App) newEngine() *intel.Engine {
	ic := a.Config.Intelligence
	correlator := intel.NewCorrelator(ic.UnderlyingRules, ic.LeverageSuffixes)
	classifier := intel.NewClassifier(ic.VIPSymbols, ic.Thresholds)
	return intel.NewEngine(correlator, classifier, ic.Thresholds, a.Logger)
}

func (a *App) newSchedule(cfg markethours.Config) (*markethours.Schedule, error) {
	return markethours.New(cfg)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) buildService(sched *scheduler.Scheduler, fetcher feed.SnapshotFetcher, store *storage.Store, notifier alerting.Notifier, schedule *markethours.Schedule) *service.Service {
	var snapshots storage.SnapshotStore
	var events storage.AlertEventStore
	if store != nil {
		snapshots = store
		events = store
	}

	formatter := alerting.NewFormatter(schedule.Location())
	return service.New(a.Config, sched, fetcher, snapshots, events, a.newEngine(), formatter, notifier, schedule, a.Logger)
}

// buildServiceForSimulate wires a store-less pipeline that alerts even on a
// baseline run, since a simulated record is always a baseline diff.
func (a *App) buildServiceForSimulate(fetcher feed.SnapshotFetcher, notifier alerting.Notifier, schedule *markethours.Schedule) *service.Service {
	cfg := *a.Config
	cfg.Alerting.Enabled = true
	cfg.Alerting.NotifyOnBaseline = true
	formatter := alerting.NewFormatter(schedule.Location())
	return service.New(&cfg, nil, fetcher, nil, nil, a.newEngine(), formatter, notifier, schedule, a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	schedule, err := a.newSchedule(a.Config.Market)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Resolver:     a.intervalResolver(schedule),
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()
	svc := a.buildService(sched, a.newFeed(), store, notifier, schedule)

	a.Logger.Info().Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// intervalResolver polls at the rush cadence during the rush-open phase and
// at the base cadence otherwise.
func (a *App) intervalResolver(schedule *markethours.Schedule) scheduler.IntervalResolver {
	rush := a.Config.Scheduler.RushInterval
	if rush <= 0 {
		return nil
	}
	return func(now time.Time) time.Duration {
		if schedule.PhaseAt(now) == markethours.PhaseRushOpen {
			return rush
		}
		return a.Config.Scheduler.Interval
	}
}

// Check runs one fetch/diff/alert cycle and returns. Batch windows are
// forced to zero because a one-shot process has nothing left alive to flush
// a deferred batch.
func (a *App) Check(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	marketCfg := a.Config.Market
	marketCfg.Windows = markethours.WindowsConfig{}
	schedule, err := a.newSchedule(marketCfg)
	if err != nil {
		return err
	}

	svc := a.buildService(nil, a.newFeed(), store, a.newNotifier(), schedule)
	return svc.ProcessTick(ctx, time.Now().UTC())
}

// ExportOptions hold parameters for exporting halt history.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions describe a synthetic record driven through the pipeline.
type SimulateOptions struct {
	Symbol       string
	SecurityName string
	TriggerDate  string
	TriggerTime  string
}
