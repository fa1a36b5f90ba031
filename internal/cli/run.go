package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the circuit breaker monitoring loop",
	Long:  "Polls the CBOE feed on the configured cadence, diffs against the last persisted snapshot, and dispatches batched alerts until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}
