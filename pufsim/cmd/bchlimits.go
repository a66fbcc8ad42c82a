package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/ecc/bch"
)

var bchLimitsCmd = &cobra.Command{
	Use:   "bch-limits",
	Short: "List the largest BCH codes each field degree supports.",
	Run: func(cmd *cobra.Command, args []string) {
		t, _ := cmd.Flags().GetInt("t")
		minM, _ := cmd.Flags().GetInt("min-m")
		maxM, _ := cmd.Flags().GetInt("max-m")
		k, _ := cmd.Flags().GetInt("k")

		for m := max(minM, bch.MinM); m <= min(maxM, bch.MaxM); m++ {
			l, err := bch.LimitsFor(m, t)
			if err != nil {
				printf("m=%d t=%d: %v\n", m, t, err)
				continue
			}

			fits := ""
			if k > 0 && k <= l.MaxDataBits {
				fits = "  fits k"
			}

			printf("%s%s\n", l, fits)
		}
	},
}

func init() {
	rootCmd.AddCommand(bchLimitsCmd)

	bchLimitsCmd.Flags().IntP("t", "t", 10, "number of correctable errors")
	bchLimitsCmd.Flags().Int("min-m", bch.MinM, "smallest field degree")
	bchLimitsCmd.Flags().Int("max-m", bch.MaxM, "largest field degree")
	bchLimitsCmd.Flags().Int("k", 0, "mark the fields that fit k data bits")
}
