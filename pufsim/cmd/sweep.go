package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/datarecording"
	"github.com/sarchlab/pufsim/monitoring"
	"github.com/sarchlab/pufsim/sweep"
	"github.com/sarchlab/pufsim/tracing"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate many devices across a grid of operating conditions.",
	Long: `sweep enrolls every device of the configuration at every point of ` +
		`the sweep grid, runs a health check, and records one row per ` +
		`device and point into a SQLite database.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		noRecord, _ := cmd.Flags().GetBool("no-record")
		withMonitor, _ := cmd.Flags().GetBool("monitor")
		open, _ := cmd.Flags().GetBool("open")

		if cmd.Flags().Changed("workers") {
			cfg.Sweep.Workers, _ = cmd.Flags().GetInt("workers")
		}

		b := sweep.MakeBuilder()
		if cfg.Sweep.Workers > 0 {
			b = b.WithWorkers(cfg.Sweep.Workers)
		}

		counter := tracing.NewOutcomeCounter()
		b = b.WithCounter(counter)

		if !noRecord {
			recorder, err := datarecording.New(cfg.Sweep.Record)
			dieOnErr(err)
			defer recorder.Close()

			b = b.WithRecorder(recorder, cfg.Sweep.Table)
		}

		if withMonitor || open {
			monitor := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
			monitor.RegisterCounter("sweep", counter)
			b = b.WithMonitor(monitor)

			startMonitor(monitor, open)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := b.Build().Run(ctx, cfg.SweepSetup(), cfg.SweepPoints())
		dieOnErr(err)

		printf("%-12s %-9s %7s %8s %6s %7s %6s %7s %10s %10s %10s %8s\n",
			"stability", "storage", "hours", "temp", "volt", "aging",
			"rounds", "errored", "mean", "std", "worst", "stable")

		for _, s := range sweep.Summarize(results) {
			printf("%-12s %-9s %7.0f %8.1f %6.2f %7.4f %6d %7d "+
				"%10.5f %10.5f %10.5f %8.1f\n",
				s.Point.Stability, s.Point.StoragePattern, s.Point.AgingHours,
				s.Point.Temperature, s.Point.VoltageRatio, s.Point.AgingFactor,
				s.Point.PreTestRounds, s.Errored, s.MeanErrorRate,
				s.StdDevErrorRate, s.WorstErrorRate, s.MeanStableCells)
		}

		counts := counter.Counts()
		printf("\n%d queries, %d corrected, %d uncorrectable\n",
			counts.Queries, counts.Corrected, counts.Uncorrectable)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Int("workers", 0, "concurrent jobs, overrides the config")
	sweepCmd.Flags().Bool("no-record", false, "do not record results")
	sweepCmd.Flags().Bool("monitor", false, "serve the monitoring API")
	sweepCmd.Flags().Bool("open", false,
		"serve the monitoring API and open it in a browser")
}
