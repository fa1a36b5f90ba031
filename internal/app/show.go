package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"haltwatch/internal/alerting"
)

// Show prints the open-breaker report and recently emitted alerts. The open
// section goes through the same formatter that feeds Discord so the operator
// sees exactly what a report notification would contain.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show state")
	}
	if closeStore != nil {
		defer closeStore()
	}

	schedule, err := a.newSchedule(a.Config.Market)
	if err != nil {
		return err
	}
	formatter := alerting.NewFormatter(schedule.Location())

	snapshot, found, err := store.LoadLatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(os.Stdout, "no snapshot persisted yet")
	} else {
		msg := formatter.FormatOpenReport(snapshot.OpenRecords(), time.Now())
		fmt.Fprintln(os.Stdout, msg.Title)
		fmt.Fprintln(os.Stdout, msg.Body)
	}

	events, err := store.ListRecentAlertEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "no alert events recorded")
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Emitted (UTC)\tKind\tSymbol\tPriority\tFreq\tCorrelated\tUnderlying")
	for _, ev := range events {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
			ev.EmittedAt.UTC().Format(time.RFC3339),
			ev.Kind, ev.Symbol, ev.Priority, ev.Frequency, ev.Correlated, ev.Underlying)
	}
	writer.Flush()
	return nil
}
