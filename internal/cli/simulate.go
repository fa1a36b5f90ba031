package cli

import (
	"github.com/spf13/cobra"

	"haltwatch/internal/app"
)

var (
	simSymbol       string
	simSecurityName string
	simTriggerDate  string
	simTriggerTime  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive a synthetic circuit breaker through the alert pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Symbol:       simSymbol,
			SecurityName: simSecurityName,
			TriggerDate:  simTriggerDate,
			TriggerTime:  simTriggerTime,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simSymbol, "symbol", "", "Ticker symbol for the synthetic record")
	simulateCmd.Flags().StringVar(&simSecurityName, "security-name", "Simulated Security", "Security name for the synthetic record")
	simulateCmd.Flags().StringVar(&simTriggerDate, "trigger-date", "", "Trigger date (YYYY-MM-DD), defaults to today")
	simulateCmd.Flags().StringVar(&simTriggerTime, "trigger-time", "", "Trigger time (HH:MM:SS), defaults to now")
	_ = simulateCmd.MarkFlagRequired("symbol")
}
