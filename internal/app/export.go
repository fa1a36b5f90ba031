package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"haltwatch/internal/storage"
)

// Export renders daily halt counts from the latest persisted snapshot as CSV
// and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	counts, err := store.DailyTriggerCounts(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		a.Logger.Info().Msg("no snapshot data found for export")
		return nil
	}

	downsampled := downsampleCounts(counts, opts.MaxPoints)
	a.Logger.Info().Int("total", len(counts)).Int("exported", len(downsampled)).Msg("exporting daily halt counts")

	if opts.CSVPath != "" {
		if err := writeCountsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeCountsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleCounts(counts []storage.DailyCount, max int) []storage.DailyCount {
	if max <= 0 || len(counts) <= max {
		return counts
	}

	result := make([]storage.DailyCount, 0, max)
	step := float64(len(counts)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(counts) {
			idx = len(counts) - 1
		}
		result = append(result, counts[idx])
	}
	return result
}

func writeCountsCSV(path string, counts []storage.DailyCount) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"trigger_date", "halt_count"}); err != nil {
		return err
	}
	for _, dc := range counts {
		if err := writer.Write([]string{dc.Date, strconv.Itoa(dc.Count)}); err != nil {
			return err
		}
	}
	return writer.Error()
}

func writeCountsPNG(path string, counts []storage.DailyCount) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(counts))
	y := make([]float64, 0, len(counts))
	for _, dc := range counts {
		day, err := time.Parse("2006-01-02", dc.Date)
		if err != nil {
			// Feed dates are occasionally malformed; skip rather than abort
			// the whole chart.
			continue
		}
		x = append(x, day)
		y = append(y, float64(dc.Count))
	}
	if len(x) == 0 {
		return errors.New("no parseable dates to chart")
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Circuit breakers triggered",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily halts",
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
