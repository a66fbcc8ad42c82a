package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/monitoring"
	"github.com/sarchlab/pufsim/tracing"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Enroll a PUF and serve it on the monitoring API.",
	Long: `monitor enrolls a PUF from the configuration and keeps serving ` +
		`it until interrupted. Health checks can be triggered through ` +
		`/api/controller/{name}/health.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		open, _ := cmd.Flags().GetBool("open")
		profile, _ := cmd.Flags().GetDuration("profile-duration")

		c, err := cfg.NewController()
		dieOnErr(err)

		counter := tracing.NewOutcomeCounter()
		tracing.CollectTrace(c, counter)

		monitor := monitoring.NewMonitor().
			WithPortNumber(cfg.MonitorPort).
			WithProfileDuration(profile)
		monitor.RegisterController(c)
		monitor.RegisterCounter(c.Name(), counter)

		startMonitor(monitor, open)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		<-ctx.Done()
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Bool("open", false, "open the API in a browser")
	monitorCmd.Flags().Duration("profile-duration", time.Second,
		"CPU profiling window of /api/profile")
}

func startMonitor(m *monitoring.Monitor, open bool) {
	url, err := m.StartServer()
	dieOnErr(err)

	if !open {
		return
	}

	if err := browser.OpenURL(url + "/api/list_controllers"); err != nil {
		log.Printf("cannot open a browser: %v", err)
	}
}
