package intel

import (
	"strings"

	"haltwatch/internal/breaker"
)

// PrefixRule maps a leveraged/derivative symbol prefix to its underlying
// asset. Rules are evaluated in order; the first matching prefix wins.
type PrefixRule struct {
	Prefix     string `mapstructure:"prefix"`
	Underlying string `mapstructure:"underlying"`
}

// DefaultPrefixRules covers the leveraged ETF families the feed regularly
// produces. The table is configuration so new product families can be added
// without a code change.
func DefaultPrefixRules() []PrefixRule {
	return []PrefixRule{
		{Prefix: "TSL", Underlying: "TSLA"},
		{Prefix: "NVD", Underlying: "NVDA"},
		{Prefix: "MST", Underlying: "MSTR"},
		{Prefix: "ETHU", Underlying: "ETH"},
		{Prefix: "ETU", Underlying: "ETH"},
		{Prefix: "ETQ", Underlying: "ETH"},
		{Prefix: "BITX", Underlying: "BTC"},
		{Prefix: "BTC", Underlying: "BTC"},
		{Prefix: "ROB", Underlying: "HOOD"},
		{Prefix: "QBT", Underlying: "QUANTUM"},
		{Prefix: "QUB", Underlying: "QUANTUM"},
		{Prefix: "ARM", Underlying: "ARM"},
		{Prefix: "RBL", Underlying: "RBLX"},
		{Prefix: "PLT", Underlying: "PLTR"},
		{Prefix: "DJT", Underlying: "DJT"},
		{Prefix: "UVI", Underlying: "VIX"},
		{Prefix: "SVIX", Underlying: "VIX"},
		{Prefix: "CWV", Underlying: "CRWV"},
		{Prefix: "CRWU", Underlying: "CRWV"},
		{Prefix: "SMU", Underlying: "SMR"},
	}
}

// DefaultLeverageSuffixes are trailing characters that denote direction or
// leverage (ultra, up, 2x, inverse) on four-letter-plus products.
const DefaultLeverageSuffixes = "PUTZ"

// Correlator maps symbols to a canonical underlying asset. This is a
// best-effort heuristic, not an authoritative mapping.
type Correlator struct {
	rules    []PrefixRule
	suffixes string
}

// NewCorrelator builds a correlator from an ordered rule table and a suffix
// set for the generic fallback.
func NewCorrelator(rules []PrefixRule, suffixes string) *Correlator {
	if len(rules) == 0 {
		rules = DefaultPrefixRules()
	}
	if suffixes == "" {
		suffixes = DefaultLeverageSuffixes
	}
	return &Correlator{rules: rules, suffixes: strings.ToUpper(suffixes)}
}

// UnderlyingOf resolves the underlying asset of a symbol. Known prefixes are
// checked first; otherwise a single trailing leverage/direction character is
// stripped from symbols of four letters or more; otherwise the symbol is its
// own underlying.
func (c *Correlator) UnderlyingOf(symbol string) string {
	sym := breaker.NormalizeSymbol(symbol)
	for _, rule := range c.rules {
		if strings.HasPrefix(sym, strings.ToUpper(rule.Prefix)) {
			return strings.ToUpper(rule.Underlying)
		}
	}

	if len(sym) >= 4 {
		base := sym[:len(sym)-1]
		if strings.ContainsRune(c.suffixes, rune(base[len(base)-1])) {
			return base[:len(base)-1]
		}
		return base
	}

	return sym
}

// CorrelatedWith returns the other symbols in the snapshot that triggered on
// the same day and share this symbol's underlying asset. Multiple related
// instruments tripping the same day is a trading signal in its own right,
// distinct from raw frequency.
func (c *Correlator) CorrelatedWith(symbol, triggerDate string, snapshot breaker.Snapshot) []string {
	sym := breaker.NormalizeSymbol(symbol)
	underlying := c.UnderlyingOf(sym)

	var related []string
	seen := make(map[string]bool)
	for _, rec := range snapshot {
		if strings.TrimSpace(rec.TriggerDate) != strings.TrimSpace(triggerDate) {
			continue
		}
		other := breaker.NormalizeSymbol(rec.Symbol)
		if other == sym || seen[other] {
			continue
		}
		if c.UnderlyingOf(other) == underlying {
			seen[other] = true
			related = append(related, other)
		}
	}
	return related
}
