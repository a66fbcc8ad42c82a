package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/puf"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Enroll a PUF and run a built-in self-test.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		cond := conditionsFromFlags(cmd, cfg.Health.Conditions)

		trials := cfg.Health.Trials
		if cmd.Flags().Changed("trials") {
			trials, _ = cmd.Flags().GetInt("trials")
		}

		corrected := cfg.Health.Corrected
		if cmd.Flags().Changed("corrected") {
			corrected, _ = cmd.Flags().GetBool("corrected")
		}

		c, err := cfg.NewController()
		dieOnErr(err)

		report, err := c.CheckHealth(cond, trials, corrected)
		dieOnErr(err)

		printReport(report)
	},
}

var ageCmd = &cobra.Command{
	Use:   "age",
	Short: "Enroll a PUF, age it, and run a built-in self-test.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		cond := conditionsFromFlags(cmd, cfg.Health.Conditions)
		hours, _ := cmd.Flags().GetFloat64("hours")
		stress, _ := cmd.Flags().GetFloat64("stress-temperature")
		steps, _ := cmd.Flags().GetInt("steps")

		c, err := cfg.NewController()
		dieOnErr(err)

		if steps < 1 {
			steps = 1
		}

		for i := 0; i < steps; i++ {
			drifted, err := c.SimulateAging(hours/float64(steps), stress)
			dieOnErr(err)

			report, err := c.CheckHealth(cond, cfg.Health.Trials,
				cfg.Health.Corrected)
			dieOnErr(err)

			printf("%8.0fh  drifted=%-5d stability=%.4f mean=%.4f max=%.4f %s\n",
				report.AgeHours, drifted, report.MeanStability,
				report.MeanErrorRate, report.MaxErrorRate, report.Status)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(ageCmd)

	addConditionFlags(healthCmd)
	healthCmd.Flags().Int("trials", 0, "number of queries, overrides the config")
	healthCmd.Flags().Bool("corrected", false,
		"measure the corrected instead of the raw response")

	addConditionFlags(ageCmd)
	ageCmd.Flags().Float64("hours", 1000, "total operating hours")
	ageCmd.Flags().Float64("stress-temperature", 85,
		"temperature during operation in degrees Celsius")
	ageCmd.Flags().Int("steps", 10, "number of health checks along the way")
}

func printReport(r puf.HealthReport) {
	printf("conditions:     %s\n", r.Conditions)
	printf("trials:         %d (corrected=%t)\n", r.Trials, r.Corrected)
	printf("mean error:     %.5f\n", r.MeanErrorRate)
	printf("std dev:        %.5f\n", r.StdDevErrorRate)
	printf("max error:      %.5f\n", r.MaxErrorRate)
	printf("decode failure: %d\n", r.DecodeFailures)
	printf("age:            %.0fh\n", r.AgeHours)
	printf("mean stability: %.4f\n", r.MeanStability)
	printf("status:         %s\n", r.Status)
}
