package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"haltwatch/internal/breaker"
)

// Options parameterise the CBOE feed client.
type Options struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Client downloads and parses the circuit-breaker CSV feed.
type Client struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
}

// NewClient constructs a feed client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "feed").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchSnapshot downloads the feed and returns the sanitized snapshot plus
// the number of rows excluded for missing identity fields.
func (c *Client) FetchSnapshot(ctx context.Context) (breaker.Snapshot, int, error) {
	if c.opts.URL == "" {
		return nil, 0, errors.New("feed url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "haltwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(body) > 0 {
			return nil, 0, fmt.Errorf("feed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, 0, fmt.Errorf("feed returned %d", resp.StatusCode)
	}

	rows, err := parseRecords(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	snapshot, excluded := breaker.Sanitize(rows)
	c.logger.Debug().Int("records", len(snapshot)).Int("excluded", excluded).Msg("feed snapshot fetched")
	return snapshot, excluded, nil
}

// Column headers as published by the feed. End columns may be missing
// entirely early in a trading year; those rows are simply all open.
const (
	colSymbol       = "Symbol"
	colSecurityName = "Security Name"
	colTriggerDate  = "Trigger Date"
	colTriggerTime  = "Trigger Time"
	colEndDate      = "End Date"
	colEndTime      = "End Time"
	colExchange     = "Exchange"
)

func parseRecords(r io.Reader) ([]breaker.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("feed returned empty body")
	}
	if err != nil {
		return nil, fmt.Errorf("read feed header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colSymbol]; !ok {
		return nil, fmt.Errorf("feed header missing %q column", colSymbol)
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []breaker.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feed row: %w", err)
		}
		records = append(records, breaker.Record{
			Symbol:       field(row, colSymbol),
			SecurityName: field(row, colSecurityName),
			TriggerDate:  field(row, colTriggerDate),
			TriggerTime:  field(row, colTriggerTime),
			EndDate:      field(row, colEndDate),
			EndTime:      field(row, colEndTime),
			Exchange:     field(row, colExchange),
		})
	}

	return records, nil
}

var _ SnapshotFetcher = (*Client)(nil)
