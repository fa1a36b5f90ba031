package alerting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"haltwatch/internal/breaker"
	"haltwatch/internal/intel"
)

// Embed colors, escalating with batch severity.
const (
	ColorStandard   = 0x0099FF
	ColorHigh       = 0xFF8C00
	ColorCorrelated = 0xFF0000
	ColorVIP        = 0xFFD700
	ColorAllClear   = 0x28A745
)

// Formatter renders change batches into a title/body/color message. It is a
// pure transform; the caller supplies the wall-clock instant so output is
// reproducible.
type Formatter struct {
	loc *time.Location
}

// NewFormatter builds a formatter that renders timestamps in the given
// location.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc}
}

// Format renders one flushed batch. Started records with VIP or correlated
// annotations are surfaced first, the remainder chronologically; the ended
// section is symmetric.
func (f *Formatter) Format(change breaker.Change, results map[string]intel.Result, now time.Time) Message {
	local := now.In(f.loc)

	title := fmt.Sprintf("CBOE Changes: %d Started, %d Ended", len(change.New), len(change.Ended))
	if indicators := titleIndicators(change.New, results); indicators != "" {
		title = fmt.Sprintf("%s (%s)", title, indicators)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("**CHANGES DETECTED at %s**", local.Format("3:04:05 PM MST")))

	if len(change.New) > 0 {
		parts = append(parts, "", fmt.Sprintf("**%d STARTED:**", len(change.New)))
		parts = append(parts, f.recordLines(change.New, results, "Started", false, local)...)
	}

	if len(change.Ended) > 0 {
		parts = append(parts, "", fmt.Sprintf("**%d ENDED:**", len(change.Ended)))
		parts = append(parts, f.recordLines(change.Ended, results, "Ended", true, local)...)
	}

	if section := correlatedSection(change.New, results); section != "" {
		parts = append(parts, "", section)
	}

	return Message{
		Title: title,
		Body:  strings.Join(parts, "\n"),
		Color: batchColor(change.New, results),
	}
}

// FormatOpenReport renders the current set of open breakers for scheduled and
// on-demand status reports.
func (f *Formatter) FormatOpenReport(open breaker.Snapshot, now time.Time) Message {
	if len(open) == 0 {
		return Message{
			Title: "Open Circuit Breaker Report",
			Body:  "No open short sale circuit breakers found at this time.",
			Color: ColorAllClear,
		}
	}

	local := now.In(f.loc)
	lines := f.recordLines(open, nil, "Started", false, local)
	return Message{
		Title: fmt.Sprintf("Open Circuit Breaker Report (%d Found)", len(open)),
		Body:  strings.Join(lines, "\n"),
		Color: ColorStandard,
	}
}

func (f *Formatter) recordLines(records []breaker.Record, results map[string]intel.Result, verb string, useEnd bool, local time.Time) []string {
	sorted := make([]breaker.Record, len(records))
	copy(sorted, records)

	prominent := func(rec breaker.Record) bool {
		res, ok := results[rec.Key()]
		return ok && (res.Priority == intel.PriorityVIP || res.Correlated)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := prominent(sorted[i]), prominent(sorted[j])
		if pi != pj {
			return pi
		}
		return sorted[i].TriggerDate+sorted[i].TriggerTime > sorted[j].TriggerDate+sorted[j].TriggerTime
	})

	today := local.Format("2006-01-02")
	lines := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		date, clock := rec.TriggerDate, rec.TriggerTime
		if useEnd {
			date, clock = rec.EndDate, rec.EndTime
		}
		when := date
		if date == today {
			when = "Today"
		}

		symbol := breaker.NormalizeSymbol(rec.Symbol)
		res, annotated := results[rec.Key()]

		marker := ""
		if annotated && res.Priority == intel.PriorityVIP {
			marker = "[VIP] "
		}

		display := fmt.Sprintf("**%s**", symbol)
		if annotated && res.Underlying != "" && res.Underlying != symbol {
			display = fmt.Sprintf("**%s** (*%s*)", res.Underlying, symbol)
		}

		line := fmt.Sprintf("• %s%s - %s (%s %s at %s)", marker, display, rec.SecurityName, verb, when, clock)
		if annotated && res.Frequency > 1 {
			line += fmt.Sprintf(" [%dx]", res.Frequency)
		}
		lines = append(lines, line)
	}
	return lines
}

func titleIndicators(records []breaker.Record, results map[string]intel.Result) string {
	vip, correlated, highFreq := 0, 0, 0
	for _, rec := range records {
		res, ok := results[rec.Key()]
		if !ok {
			continue
		}
		if res.Priority == intel.PriorityVIP {
			vip++
		}
		if res.Correlated {
			correlated++
		}
		if res.Tier == intel.TierVeryHot || res.Tier == intel.TierSuperHot {
			highFreq++
		}
	}

	var indicators []string
	if vip > 0 {
		indicators = append(indicators, fmt.Sprintf("%d VIP", vip))
	}
	if correlated > 0 {
		indicators = append(indicators, fmt.Sprintf("%d Correlated", correlated))
	}
	if highFreq > 0 {
		indicators = append(indicators, fmt.Sprintf("%d High Freq", highFreq))
	}
	return strings.Join(indicators, " | ")
}

func correlatedSection(records []breaker.Record, results map[string]intel.Result) string {
	var lines []string
	for _, rec := range records {
		res, ok := results[rec.Key()]
		if !ok || !res.Correlated {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s + %s (%s)",
			breaker.NormalizeSymbol(rec.Symbol),
			strings.Join(res.CorrelatedSymbols, ", "),
			res.Underlying))
	}
	if len(lines) == 0 {
		return ""
	}
	return "**CORRELATED UNDERLYINGS:**\n" + strings.Join(lines, "\n")
}

func batchColor(records []breaker.Record, results map[string]intel.Result) int {
	anyCorrelated, anyHigh := false, false
	for _, rec := range records {
		res, ok := results[rec.Key()]
		if !ok {
			continue
		}
		if res.Priority == intel.PriorityVIP {
			return ColorVIP
		}
		if res.Correlated {
			anyCorrelated = true
		}
		if res.Priority == intel.PriorityHigh {
			anyHigh = true
		}
	}
	switch {
	case anyCorrelated:
		return ColorCorrelated
	case anyHigh:
		return ColorHigh
	default:
		return ColorStandard
	}
}
