package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
)

var automotiveCmd = &cobra.Command{
	Use:   "automotive",
	Short: "Enroll a PUF with the automotive burn-in and BCH profile.",
	Run: func(cmd *cobra.Command, args []string) {
		opts := puf.DefaultAutomotiveOptions()
		opts.NumCells, _ = cmd.Flags().GetInt("cells")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")
		opts.T, _ = cmd.Flags().GetInt("t")
		opts.BurnInRounds, _ = cmd.Flags().GetInt("rounds")
		trials, _ := cmd.Flags().GetInt("trials")

		c, err := puf.NewAutomotive(opts)
		dieOnErr(err)

		printController(c)
		printf("\n")

		cond := conditionsFromFlags(cmd, sram.Nominal(opts.BaseNoise))
		report, err := c.CheckHealth(cond, trials, true)
		dieOnErr(err)

		printReport(report)
	},
}

func init() {
	rootCmd.AddCommand(automotiveCmd)

	d := puf.DefaultAutomotiveOptions()
	automotiveCmd.Flags().Int("cells", d.NumCells, "number of SRAM cells")
	automotiveCmd.Flags().Uint64("seed", d.Seed, "fabrication seed")
	automotiveCmd.Flags().IntP("t", "t", d.T, "number of correctable errors")
	automotiveCmd.Flags().Int("rounds", d.BurnInRounds, "burn-in power-ups")
	automotiveCmd.Flags().Int("trials", 100, "self-test queries")
	addConditionFlags(automotiveCmd)
}
