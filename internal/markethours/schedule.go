// Package markethours resolves wall-clock time to a trading-session phase and
// the per-phase batch window and poll cadence. Phase boundaries are named,
// configured thresholds rather than inline time comparisons so the table can
// be tested without mocking the clock.
package markethours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase names a trading-session segment in the exchange timezone.
type Phase string

const (
	PhasePreMarket  Phase = "PRE_MARKET"
	PhaseRushOpen   Phase = "RUSH_OPEN"
	PhaseRegular    Phase = "REGULAR"
	PhaseAfterHours Phase = "AFTER_HOURS"
)

// Config declares the phase boundaries as HH:MM strings in the exchange
// timezone plus the batch window per phase.
type Config struct {
	Timezone        string        `mapstructure:"timezone"`
	PreMarketStart  string        `mapstructure:"pre_market_start"`
	RushStart       string        `mapstructure:"rush_start"`
	RushEnd         string        `mapstructure:"rush_end"`
	RegularStart    string        `mapstructure:"regular_start"`
	RegularEnd      string        `mapstructure:"regular_end"`
	AfterHoursStart string        `mapstructure:"after_hours_start"`
	Windows         WindowsConfig `mapstructure:"windows"`
}

// WindowsConfig is the batch window length per phase. Rush open gets the
// longest window because correlated leveraged products trip in clusters at
// the open.
type WindowsConfig struct {
	PreMarket  time.Duration `mapstructure:"pre_market"`
	RushOpen   time.Duration `mapstructure:"rush_open"`
	Regular    time.Duration `mapstructure:"regular"`
	AfterHours time.Duration `mapstructure:"after_hours"`
}

// DefaultConfig reflects CBOE equities hours in America/Chicago.
func DefaultConfig() Config {
	return Config{
		Timezone:        "America/Chicago",
		PreMarketStart:  "08:00",
		RushStart:       "09:20",
		RushEnd:         "10:00",
		RegularStart:    "09:30",
		RegularEnd:      "16:00",
		AfterHoursStart: "20:00",
		Windows: WindowsConfig{
			PreMarket:  30 * time.Second,
			RushOpen:   90 * time.Second,
			Regular:    45 * time.Second,
			AfterHours: 15 * time.Second,
		},
	}
}

// Schedule is the compiled phase lookup.
type Schedule struct {
	loc             *time.Location
	preMarketStart  int
	rushStart       int
	rushEnd         int
	regularStart    int
	regularEnd      int
	afterHoursStart int
	windows         map[Phase]time.Duration
}

// New compiles a Config into a Schedule. Boundary strings must parse as HH:MM.
func New(cfg Config) (*Schedule, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load market timezone: %w", err)
	}

	s := &Schedule{
		loc: loc,
		windows: map[Phase]time.Duration{
			PhasePreMarket:  cfg.Windows.PreMarket,
			PhaseRushOpen:   cfg.Windows.RushOpen,
			PhaseRegular:    cfg.Windows.Regular,
			PhaseAfterHours: cfg.Windows.AfterHours,
		},
	}

	boundaries := []struct {
		name  string
		value string
		dst   *int
	}{
		{"pre_market_start", cfg.PreMarketStart, &s.preMarketStart},
		{"rush_start", cfg.RushStart, &s.rushStart},
		{"rush_end", cfg.RushEnd, &s.rushEnd},
		{"regular_start", cfg.RegularStart, &s.regularStart},
		{"regular_end", cfg.RegularEnd, &s.regularEnd},
		{"after_hours_start", cfg.AfterHoursStart, &s.afterHoursStart},
	}
	for _, b := range boundaries {
		minutes, err := parseClock(b.value)
		if err != nil {
			return nil, fmt.Errorf("market.%s: %w", b.name, err)
		}
		*b.dst = minutes
	}

	return s, nil
}

func parseClock(v string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return hour*60 + minute, nil
}

// Location returns the exchange timezone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

func (s *Schedule) minutesOfDay(t time.Time) int {
	local := t.In(s.loc)
	return local.Hour()*60 + local.Minute()
}

// PhaseAt resolves the session phase for a wall-clock instant. The rush-open
// band is checked before regular hours because the two overlap.
func (s *Schedule) PhaseAt(t time.Time) Phase {
	m := s.minutesOfDay(t)
	switch {
	case m >= s.rushStart && m < s.rushEnd:
		return PhaseRushOpen
	case m >= s.regularStart && m < s.regularEnd:
		return PhaseRegular
	case m >= s.preMarketStart && m < s.rushStart:
		return PhasePreMarket
	default:
		return PhaseAfterHours
	}
}

// BatchWindowAt returns the alert batch window for the phase active at t.
func (s *Schedule) BatchWindowAt(t time.Time) time.Duration {
	return s.windows[s.PhaseAt(t)]
}

// IsOvernight reports whether t falls in the overnight band between
// after-hours start and pre-market start, when a VIP trigger is unusual
// enough to bypass batching entirely.
func (s *Schedule) IsOvernight(t time.Time) bool {
	m := s.minutesOfDay(t)
	return m >= s.afterHoursStart || m < s.preMarketStart
}
