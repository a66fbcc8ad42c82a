// Package cmd provides the command-line interface of pufsim.
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pufsim/config"
	"github.com/sarchlab/pufsim/sram"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pufsim",
	Short: "pufsim simulates SRAM physical unclonable functions.",
	Long: `pufsim fabricates simulated SRAM arrays, enrolls them with ` +
		`burn-in masking and error-correcting helper data, and evaluates ` +
		`how reliably the response is reconstructed under noise, ` +
		`temperature, voltage and aging.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"YAML configuration file")
	rootCmd.PersistentFlags().StringSlice("env", []string{".env"},
		".env files with PUFSIM_* overrides")
	addStabilityFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env")

	c, err := config.LoadAll(path, envFiles...)
	dieOnErr(err)

	dieOnErr(applyStabilityFlags(cmd.Flags(), c))

	return c
}

func addStabilityFlags(flags *pflag.FlagSet) {
	flags.String("stability", "",
		`cell stability, for example "beta(8,2)" or "fixed(1)"`)
	flags.String("storage-pattern", "",
		"data held while aging: static, random or optimized")
}

// applyStabilityFlags overrides the configuration with the stability flags
// that were set and validates the result.
func applyStabilityFlags(flags *pflag.FlagSet, c *config.Config) error {
	if !flags.Changed("stability") && !flags.Changed("storage-pattern") {
		return nil
	}

	if flags.Changed("stability") {
		text, _ := flags.GetString("stability")

		s, err := sram.ParseStability(text)
		if err != nil {
			return err
		}

		c.Array.Stability = s
	}

	if flags.Changed("storage-pattern") {
		pattern, _ := flags.GetString("storage-pattern")
		c.Aging.StoragePattern = sram.StoragePattern(pattern)
	}

	return c.Validate()
}

// addConditionFlags registers the flags read by conditionsFromFlags.
func addConditionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("temperature", sram.NominalTemperature,
		"ambient temperature in degrees Celsius")
	cmd.Flags().Float64("voltage-ratio", sram.NominalVoltageRatio,
		"supply voltage relative to nominal")
	cmd.Flags().Float64("aging", -1,
		"flip probability at nominal conditions, negative uses the config")
}

func conditionsFromFlags(cmd *cobra.Command, base sram.Conditions) sram.Conditions {
	c := base

	if cmd.Flags().Changed("temperature") {
		c.Temperature, _ = cmd.Flags().GetFloat64("temperature")
	}

	if cmd.Flags().Changed("voltage-ratio") {
		c.VoltageRatio, _ = cmd.Flags().GetFloat64("voltage-ratio")
	}

	if aging, _ := cmd.Flags().GetFloat64("aging"); aging >= 0 {
		c.AgingFactor = aging
	}

	return c
}

func dieOnErr(err error) {
	if err != nil {
		log.Printf("Error: %v", err)
		atexit.Exit(1)
	}
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
