package alerting

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"haltwatch/internal/breaker"
	"haltwatch/internal/intel"
)

// EmitFunc receives one merged batch. Emission failures are the receiver's
// concern; the batcher never retries a flushed bucket.
type EmitFunc func(change breaker.Change, full breaker.Snapshot, results map[string]intel.Result)

// entry is one queued detection: the change set, the snapshot it was diffed
// from (needed for correlation context), and the diff-time annotations.
type entry struct {
	change  breaker.Change
	full    breaker.Snapshot
	results map[string]intel.Result
}

// BatcherOptions tune batching behaviour. Window and Bypass come from the
// market-hours schedule; Now and StartTimer exist so tests control time.
type BatcherOptions struct {
	// Window resolves the batch window for the current instant.
	Window func(time.Time) time.Duration
	// Bypass reports whether a change set must skip batching and emit
	// immediately (VIP symbol triggering overnight).
	Bypass func(newRecords []breaker.Record, now time.Time) bool
	// Now defaults to time.Now.
	Now func() time.Time
	// StartTimer schedules fn after d and returns a cancel func. Defaults to
	// time.AfterFunc.
	StartTimer func(d time.Duration, fn func()) func() bool
}

// Batcher coalesces closely-spaced detections into one outbound notification
// per coarse time bucket. Buckets live only in process memory; a batch lost
// to a restart is an accepted at-most-once window.
type Batcher struct {
	mu      sync.Mutex
	pending map[int64][]entry
	cancels map[int64]func() bool

	emit   EmitFunc
	opts   BatcherOptions
	logger zerolog.Logger
}

// NewBatcher constructs a batcher that hands merged batches to emit.
func NewBatcher(opts BatcherOptions, emit EmitFunc, logger zerolog.Logger) *Batcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartTimer == nil {
		opts.StartTimer = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}
	return &Batcher{
		pending: make(map[int64][]entry),
		cancels: make(map[int64]func() bool),
		emit:    emit,
		opts:    opts,
		logger:  logger.With().Str("component", "batcher").Logger(),
	}
}

// Queue adds a change set to the bucket covering the current instant. The
// first change for a bucket arms a flush timer for the bucket's remaining
// window; the enqueuing call returns immediately. A change matching the
// bypass predicate is merged and emitted synchronously instead.
func (b *Batcher) Queue(change breaker.Change, full breaker.Snapshot, results map[string]intel.Result) {
	if change.Empty() {
		return
	}

	now := b.opts.Now()
	e := entry{change: change, full: full, results: results}

	if b.opts.Bypass != nil && b.opts.Bypass(change.New, now) {
		b.logger.Info().Msg("bypass predicate matched, emitting without batching")
		b.emitMerged([]entry{e})
		return
	}

	// Bucket math works in whole seconds; a window under one second cannot
	// form a bucket and degenerates to synchronous emission.
	window := b.opts.Window(now)
	if window < time.Second {
		b.emitMerged([]entry{e})
		return
	}

	windowSec := int64(window / time.Second)
	bucket := now.Unix() / windowSec * windowSec
	remaining := time.Duration(bucket+windowSec-now.Unix()) * time.Second

	b.mu.Lock()
	b.pending[bucket] = append(b.pending[bucket], e)
	queued := len(b.pending[bucket])
	if _, armed := b.cancels[bucket]; !armed {
		b.cancels[bucket] = b.opts.StartTimer(remaining, func() { b.flush(bucket) })
	}
	b.mu.Unlock()

	b.logger.Debug().Int64("bucket", bucket).Int("queued", queued).
		Dur("window", window).Msg("change queued for batching")
}

// flush merges and emits everything queued for a bucket, then discards the
// bucket state whether or not emission succeeded.
func (b *Batcher) flush(bucket int64) {
	b.mu.Lock()
	entries := b.pending[bucket]
	delete(b.pending, bucket)
	delete(b.cancels, bucket)
	b.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	b.logger.Info().Int64("bucket", bucket).Int("batched", len(entries)).Msg("flushing alert batch")
	b.emitMerged(entries)
}

// emitMerged de-duplicates by record key across the queued changes (first
// seen wins, arrival order preserved), keeps the most recent snapshot for
// correlation, and unions the annotation maps.
func (b *Batcher) emitMerged(entries []entry) {
	merged := entries[0].change
	results := make(map[string]intel.Result, len(entries[0].results))
	for k, v := range entries[0].results {
		results[k] = v
	}
	full := entries[0].full

	for _, e := range entries[1:] {
		merged = merged.Merge(e.change)
		for k, v := range e.results {
			if _, ok := results[k]; !ok {
				results[k] = v
			}
		}
		full = e.full
	}

	if merged.Empty() {
		return
	}
	b.emit(merged, full, results)
}

// Stop cancels all armed flush timers and drops pending buckets. In-flight
// batches are lost, matching the documented restart semantics.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for bucket, cancel := range b.cancels {
		cancel()
		delete(b.cancels, bucket)
		delete(b.pending, bucket)
	}
}
