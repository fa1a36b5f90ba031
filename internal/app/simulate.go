package app

import (
	"context"
	"errors"
	"time"

	"haltwatch/internal/breaker"
	"haltwatch/internal/feed"
	"haltwatch/internal/markethours"
)

// SimulateAlert 将一条合成记录驱动完整的 diff/分类/告警流程，用于验证通道配置。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	rec := breaker.Record{
		Symbol:       opts.Symbol,
		SecurityName: opts.SecurityName,
		TriggerDate:  opts.TriggerDate,
		TriggerTime:  opts.TriggerTime,
	}
	if rec.TriggerDate == "" {
		rec.TriggerDate = time.Now().UTC().Format("2006-01-02")
	}
	if rec.TriggerTime == "" {
		rec.TriggerTime = time.Now().UTC().Format("15:04:05")
	}
	if !rec.HasIdentity() {
		return errors.New("simulate 需要 --symbol")
	}

	// Zero windows so the synthetic alert emits synchronously before the
	// process exits. No store is wired: the baseline stays empty and the
	// record always diffs as new.
	marketCfg := a.Config.Market
	marketCfg.Windows = markethours.WindowsConfig{}
	schedule, err := a.newSchedule(marketCfg)
	if err != nil {
		return err
	}

	fetcher := &staticFetcher{snapshot: breaker.Snapshot{rec}}
	svc := a.buildServiceForSimulate(fetcher, notifier, schedule)
	return svc.ProcessTick(ctx, time.Now().UTC())
}

type staticFetcher struct {
	snapshot breaker.Snapshot
}

func (s *staticFetcher) FetchSnapshot(ctx context.Context) (breaker.Snapshot, int, error) {
	return s.snapshot, 0, nil
}

var _ feed.SnapshotFetcher = (*staticFetcher)(nil)
