package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"haltwatch/internal/alerting"
	"haltwatch/internal/breaker"
	"haltwatch/internal/config"
	"haltwatch/internal/feed"
	"haltwatch/internal/intel"
	"haltwatch/internal/markethours"
	"haltwatch/internal/scheduler"
	"haltwatch/internal/storage"
)

// emitTimeout bounds the notification round trip of an asynchronous batch
// flush, which has no caller context to inherit.
const emitTimeout = 15 * time.Second

// Service orchestrates fetching, diffing, classification, batching, and
// persistence.
type Service struct {
	scheduler *scheduler.Scheduler
	feed      feed.SnapshotFetcher
	snapshots storage.SnapshotStore
	events    storage.AlertEventStore
	engine    *intel.Engine
	formatter *alerting.Formatter
	notifier  alerting.Notifier
	batcher   *alerting.Batcher
	schedule  *markethours.Schedule
	logger    zerolog.Logger

	alertsOn         bool
	notifyOnBaseline bool
	locker           storage.AdvisoryLocker
	lockKey          int64
}

// New constructs the monitoring service and its internal alert batcher.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetcher feed.SnapshotFetcher, snapshots storage.SnapshotStore, events storage.AlertEventStore, engine *intel.Engine, formatter *alerting.Formatter, notifier alerting.Notifier, schedule *markethours.Schedule, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := snapshots.(storage.AdvisoryLocker); ok {
		locker = l
	}

	s := &Service{
		scheduler:        sched,
		feed:             fetcher,
		snapshots:        snapshots,
		events:           events,
		engine:           engine,
		formatter:        formatter,
		notifier:         notifier,
		schedule:         schedule,
		logger:           logger.With().Str("component", "service").Logger(),
		alertsOn:         cfg.Alerting.Enabled,
		notifyOnBaseline: cfg.Alerting.NotifyOnBaseline,
		locker:           locker,
		lockKey:          cfg.Scheduler.AdvisoryLockKey,
	}

	s.batcher = alerting.NewBatcher(alerting.BatcherOptions{
		Window: schedule.BatchWindowAt,
		Bypass: s.shouldBypass,
	}, s.emitBatch, logger)

	return s
}

// Run begins the polling loop and drains batch timers on shutdown.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	defer s.batcher.Stop()
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单次检查。
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCheck(ctx)
}

// executeCheck is one full fetch → diff → classify → queue → persist cycle.
// Persistence advances once diff and classification succeed for this
// invocation, regardless of whether the batcher has flushed yet; batching
// affects when a notification goes out, not when the baseline moves.
func (s *Service) executeCheck(ctx context.Context) error {
	runID := uuid.New().String()
	log := s.logger.With().Str("run_id", runID).Logger()

	current, excluded, err := s.feed.FetchSnapshot(ctx)
	if err != nil {
		// No diff is performed on a failed fetch; the next invocation retries
		// from the last good persisted snapshot.
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	var previous breaker.Snapshot
	baseline := true
	if s.snapshots != nil {
		var found bool
		previous, found, err = s.snapshots.LoadLatestSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("load previous snapshot: %w", err)
		}
		baseline = !found
	}

	change := breaker.Diff(previous, current)
	results := s.engine.AnalyzeBatch(change.New, current)

	switch {
	case change.Empty():
		log.Debug().Int("records", len(current)).Msg("no changes detected")
	case baseline && !s.notifyOnBaseline:
		log.Info().Int("new", len(change.New)).Msg("baseline run, alerting suppressed")
	case s.alertsOn && s.notifier != nil:
		s.batcher.Queue(change, current, results)
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, current, excluded); err != nil {
			// The one failure mode that risks duplicate alerts next run; the
			// whole invocation fails even though notification may have gone out.
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}

	log.Info().
		Int("records", len(current)).
		Int("excluded", excluded).
		Int("new", len(change.New)).
		Int("ended", len(change.Ended)).
		Bool("baseline", baseline).
		Msg("check completed")

	return nil
}

// shouldBypass reports whether a change must skip batching: a VIP symbol
// triggering overnight is urgent enough to emit on the spot.
func (s *Service) shouldBypass(newRecords []breaker.Record, now time.Time) bool {
	if !s.schedule.IsOvernight(now) {
		return false
	}
	for _, rec := range newRecords {
		if s.engine.Classifier().IsVIP(rec.Symbol) {
			return true
		}
	}
	return false
}

// emitBatch is the batcher's flush target: format, send, audit. An emission
// failure discards the batch; these are time-sensitive alerts and a stale
// retry has little value.
func (s *Service) emitBatch(change breaker.Change, full breaker.Snapshot, results map[string]intel.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	msg := s.formatter.Format(change, results, time.Now())
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error().Err(err).Int("new", len(change.New)).Int("ended", len(change.Ended)).
			Msg("failed to dispatch alert, batch discarded")
		return
	}

	if s.events == nil {
		return
	}
	if err := s.events.InsertAlertEvents(ctx, auditEvents(change, results)); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist alert events")
	}
}

func auditEvents(change breaker.Change, results map[string]intel.Result) []storage.AlertEvent {
	events := make([]storage.AlertEvent, 0, len(change.New)+len(change.Ended))
	for _, rec := range change.New {
		ev := storage.AlertEvent{
			ID:          uuid.New(),
			RecordKey:   rec.Key(),
			Kind:        storage.KindStarted,
			Symbol:      breaker.NormalizeSymbol(rec.Symbol),
			TriggerDate: rec.TriggerDate,
			TriggerTime: rec.TriggerTime,
			Priority:    string(intel.PriorityStandard),
			Frequency:   1,
		}
		if res, ok := results[rec.Key()]; ok {
			ev.Priority = string(res.Priority)
			ev.Frequency = res.Frequency
			ev.Correlated = res.Correlated
			ev.Underlying = res.Underlying
		}
		events = append(events, ev)
	}
	for _, rec := range change.Ended {
		events = append(events, storage.AlertEvent{
			ID:          uuid.New(),
			RecordKey:   rec.Key(),
			Kind:        storage.KindEnded,
			Symbol:      breaker.NormalizeSymbol(rec.Symbol),
			TriggerDate: rec.TriggerDate,
			TriggerTime: rec.TriggerTime,
			EndTime:     rec.EndTime,
			Priority:    string(intel.PriorityStandard),
			Frequency:   1,
		})
	}
	return events
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
