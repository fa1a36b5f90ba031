package intel

import "haltwatch/internal/breaker"

// Priority ranks an alert for routing and display.
type Priority string

const (
	PriorityStandard Priority = "STANDARD"
	PriorityHigh     Priority = "HIGH"
	PriorityVIP      Priority = "VIP"
)

// Classifier assigns priorities from frequency, correlation, and the VIP set.
type Classifier struct {
	vip        map[string]bool
	thresholds Thresholds
}

// NewClassifier builds a classifier. VIP symbols are case-normalized once.
func NewClassifier(vipSymbols []string, thresholds Thresholds) *Classifier {
	vip := make(map[string]bool, len(vipSymbols))
	for _, s := range vipSymbols {
		vip[breaker.NormalizeSymbol(s)] = true
	}
	return &Classifier{vip: vip, thresholds: thresholds}
}

// IsVIP reports whether the symbol is in the configured VIP set.
func (c *Classifier) IsVIP(symbol string) bool {
	return c.vip[breaker.NormalizeSymbol(symbol)]
}

// Classify applies the priority rules, first match wins:
// VIP set membership, then high frequency, then correlated activity above the
// secondary frequency floor.
func (c *Classifier) Classify(symbol string, frequency int, correlated bool) Priority {
	if c.IsVIP(symbol) {
		return PriorityVIP
	}
	if frequency >= c.thresholds.HighPriority {
		return PriorityHigh
	}
	if correlated && frequency >= c.thresholds.CorrelatedMin {
		return PriorityHigh
	}
	return PriorityStandard
}
