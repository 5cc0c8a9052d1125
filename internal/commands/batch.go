package commands

import (
	"github.com/spf13/cobra"
)

var weeklyCMD = &cobra.Command{
	Use:   "weekly",
	Short: "Gather raw weekly search-interest files for all configured ticker-years",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, false, false)
		if err != nil {
			return err
		}
		return p.RunWeekly(cmd.Context())
	},
}

var excessCMD = &cobra.Command{
	Use:   "excess",
	Short: "Build daily excess-return files against the benchmark",
	Long: `Downloads adjusted daily closes for every configured ticker-year and the
benchmark, computes daily percentage returns, and writes per-ticker-year
excess-return CSVs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, false, true)
		if err != nil {
			return err
		}
		return p.RunExcess(cmd.Context())
	},
}

var conjunctionCMD = &cobra.Command{
	Use:   "conjunction",
	Short: "Join historical spikes with their excess-return windows",
	Long: `Filters the stored weekly files at the batch threshold, de-overlaps the
hits with the fixed-gap rule across years, and for each surviving event
locates the largest-magnitude and largest-positive excess-return days in
the window around the spike week, writing per-ticker conjunction and
summary CSVs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, false, false)
		if err != nil {
			return err
		}
		return p.RunConjunction(cmd.Context())
	},
}

var summaryCMD = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate per-ticker conjunction records into the overall summary table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, false, false)
		if err != nil {
			return err
		}
		return p.RunSummary(cmd.Context())
	},
}
