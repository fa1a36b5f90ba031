package breaker

import "strings"

// Record is one row of the circuit-breaker feed. A breaker is open while the
// end fields are blank and closed once both are filled in.
type Record struct {
	Symbol       string
	SecurityName string
	TriggerDate  string // YYYY-MM-DD
	TriggerTime  string // HH:MM:SS
	EndDate      string
	EndTime      string
	Exchange     string
}

// keyEscaper makes the join delimiter collision-free; a symbol containing
// "|" cannot forge another record's key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// NormalizeSymbol upper-cases and trims a ticker so that casing or padding
// drift between polls does not change record identity.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Key derives the stable identity of a record across snapshots. Identity is
// symbol + trigger date + trigger time; a retrigger at the exact same
// timestamp collides, which is an accepted limitation of the feed.
func (r Record) Key() string {
	parts := []string{
		keyEscaper.Replace(NormalizeSymbol(r.Symbol)),
		keyEscaper.Replace(strings.TrimSpace(r.TriggerDate)),
		keyEscaper.Replace(strings.TrimSpace(r.TriggerTime)),
	}
	return strings.Join(parts, "|")
}

// Closed reports whether the breaker has ended. End time without end date is
// treated as still open so a partial feed write never produces a false
// "ended" detection.
func (r Record) Closed() bool {
	return strings.TrimSpace(r.EndDate) != "" && strings.TrimSpace(r.EndTime) != ""
}

// Open is the complement of Closed.
func (r Record) Open() bool {
	return !r.Closed()
}

// HasIdentity reports whether the row carries all fields required to key it.
func (r Record) HasIdentity() bool {
	return strings.TrimSpace(r.Symbol) != "" &&
		strings.TrimSpace(r.TriggerDate) != "" &&
		strings.TrimSpace(r.TriggerTime) != ""
}
