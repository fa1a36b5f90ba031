package intel

import (
	"github.com/rs/zerolog"

	"haltwatch/internal/breaker"
)

// Result is the derived annotation for one newly triggered record. It is
// recomputed fresh from the full current snapshot each run; recomputing is
// cheap and avoids staleness.
type Result struct {
	Frequency         int
	Tier              Tier
	Correlated        bool
	CorrelatedSymbols []string
	Underlying        string
	Priority          Priority
}

// Engine coordinates frequency scoring, correlation, and priority
// classification.
type Engine struct {
	correlator *Correlator
	classifier *Classifier
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewEngine wires the analysis pipeline.
func NewEngine(correlator *Correlator, classifier *Classifier, thresholds Thresholds, logger zerolog.Logger) *Engine {
	return &Engine{
		correlator: correlator,
		classifier: classifier,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "intel").Logger(),
	}
}

// Classifier exposes the engine's classifier for VIP checks elsewhere.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Analyze computes the full annotation for one record against the current
// snapshot. A failure analysing one record degrades to a standard,
// non-correlated default for that record only; it must never poison the rest
// of the batch.
func (e *Engine) Analyze(rec breaker.Record, full breaker.Snapshot) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("symbol", rec.Symbol).
				Msg("intelligence analysis failed, using standard defaults")
			result = e.defaultResult(rec)
		}
	}()

	frequency := Frequency(rec.Symbol, full)
	related := e.correlator.CorrelatedWith(rec.Symbol, rec.TriggerDate, full)
	correlated := len(related) > 0

	return Result{
		Frequency:         frequency,
		Tier:              e.thresholds.Tier(frequency),
		Correlated:        correlated,
		CorrelatedSymbols: related,
		Underlying:        e.correlator.UnderlyingOf(rec.Symbol),
		Priority:          e.classifier.Classify(rec.Symbol, frequency, correlated),
	}
}

func (e *Engine) defaultResult(rec breaker.Record) Result {
	return Result{
		Frequency:  1,
		Tier:       TierStandard,
		Underlying: breaker.NormalizeSymbol(rec.Symbol),
		Priority:   PriorityStandard,
	}
}

// AnalyzeBatch annotates every new record, keyed by record identity.
func (e *Engine) AnalyzeBatch(records []breaker.Record, full breaker.Snapshot) map[string]Result {
	results := make(map[string]Result, len(records))
	for _, rec := range records {
		results[rec.Key()] = e.Analyze(rec, full)
	}
	return results
}
