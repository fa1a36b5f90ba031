package intel

import "haltwatch/internal/breaker"

// Tier buckets a symbol's halt frequency for display and priority purposes.
type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierActive   Tier = "ACTIVE"
	TierHot      Tier = "HOT"
	TierVeryHot  Tier = "VERY_HOT"
	TierSuperHot Tier = "SUPER_HOT"
)

// Thresholds hold the frequency cutoffs shared by tiering and priority
// classification. Keeping them in one struct is what stops "HOT" and "HIGH
// priority" from drifting apart.
type Thresholds struct {
	SuperHot int `mapstructure:"super_hot"`
	VeryHot  int `mapstructure:"very_hot"`
	Hot      int `mapstructure:"hot"`
	Active   int `mapstructure:"active"`
	// HighPriority is the frequency at which a non-VIP symbol is promoted to
	// HIGH priority. Defaults to the Hot cutoff.
	HighPriority int `mapstructure:"high_priority"`
	// CorrelatedMin is the secondary frequency floor for promoting a
	// correlated symbol to HIGH priority.
	CorrelatedMin int `mapstructure:"correlated_min"`
}

// DefaultThresholds mirror the feed's historical activity profile.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SuperHot:      30,
		VeryHot:       20,
		Hot:           15,
		Active:        10,
		HighPriority:  15,
		CorrelatedMin: 5,
	}
}

// Frequency counts how many rows in the historical dataset match the symbol,
// case-insensitively. A symbol with no prior history has still been seen once
// this run, so the minimum is 1.
func Frequency(symbol string, historical breaker.Snapshot) int {
	sym := breaker.NormalizeSymbol(symbol)
	count := 0
	for _, rec := range historical {
		if breaker.NormalizeSymbol(rec.Symbol) == sym {
			count++
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

// Tier maps a frequency count to its discrete tier.
func (t Thresholds) Tier(frequency int) Tier {
	switch {
	case frequency >= t.SuperHot:
		return TierSuperHot
	case frequency >= t.VeryHot:
		return TierVeryHot
	case frequency >= t.Hot:
		return TierHot
	case frequency >= t.Active:
		return TierActive
	default:
		return TierStandard
	}
}
