package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCommand(opts *options) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue occurrences once and exit",
		Long: `Sweep expires every scheduled occurrence dated before now (or --at)
and generates the next occurrence of each affected task.
It exits with an error when any occurrence could not be expired.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			now := a.Clock.Now()
			if at != "" {
				now, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			report, err := a.Sweeper.Sweep(cmd.Context(), now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sweep %s at %s: expired %d, generated %d, failed %d\n",
				report.RunID, now.Format(time.RFC3339), len(report.Expired), len(report.Generated), len(report.Failures))
			for _, f := range report.Failures {
				fmt.Fprintf(out, "  event %d (task %d): %v\n", f.EventID, f.TaskID, f.Err)
			}
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "sweep as of this RFC3339 time instead of now")
	return cmd
}
