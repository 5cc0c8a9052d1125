package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var eventsCMD = &cobra.Command{
	Use:   "events [year]",
	Short: "Detect attention-spike events for one year and write the events table",
	Long: `Pulls weekly search interest for every configured ticker, flags the weeks
at or above the live threshold, anchors each spike on the first trading
day at or after its mid-week, removes window overlaps, and writes the
combined events CSV.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, err := newPipeline(cfg, true, false)
		if err != nil {
			return err
		}
		return p.RunEvents(cmd.Context(), year)
	},
}
