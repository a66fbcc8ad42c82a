package cmd

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pufsim/datarecording"
	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/tracing"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a PUF and print its golden response and helper data.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		c, err := cfg.NewController()
		dieOnErr(err)

		printController(c)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Enroll a PUF and reconstruct its response repeatedly.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		count, _ := cmd.Flags().GetInt("count")
		cond := conditionsFromFlags(cmd, cfg.Health.Conditions)

		c, err := cfg.NewController()
		dieOnErr(err)

		counter := tracing.NewOutcomeCounter()
		tracing.CollectTrace(c, counter)

		if record, _ := cmd.Flags().GetBool("record"); record {
			recorder, err := datarecording.New("")
			dieOnErr(err)
			defer recorder.Close()

			tracer, err := tracing.NewDBTracer(recorder, "queries")
			dieOnErr(err)
			tracing.CollectTrace(c, tracer)
		}

		golden, _ := c.Golden()

		for i := 0; i < count; i++ {
			q, err := c.GetResponse(cond)
			dieOnErr(err)

			match := q.OK() && q.Bits.Equal(golden)
			printf("%4d  %-13s corrected=%-3d match=%t\n",
				i, q.Outcome, q.CorrectedErrors, match)
		}

		counts := counter.Counts()
		printf("\n%s: %d queries at %s, %d raw bit errors, "+
			"failure rate %.4f\n",
			c.Name(), counts.Queries, cond, counts.RawBitErrors,
			counts.FailureRate())
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntP("count", "n", 10, "number of queries")
	queryCmd.Flags().Bool("record", false, "record every query into SQLite")
	addConditionFlags(queryCmd)
}

func printController(c *puf.Controller) {
	golden, _ := c.Golden()
	helper, _ := c.HelperData()
	mask, _ := c.Mask()

	printf("name:         %s\n", c.Name())
	printf("seed:         %d\n", c.Seed())
	printf("cells:        %d\n", c.Array().Len())
	printf("stable cells: %d\n", mask.CountStable())

	if codec := c.Codec(); codec != nil {
		printf("codec:        %s\n", codec.Name())
	} else {
		printf("codec:        none\n")
	}

	printf("golden:       %s\n", hex.EncodeToString(golden.Pack()))

	if helper != nil {
		printf("helper data:  %s\n", hex.EncodeToString(helper.Pack()))
	}
}
