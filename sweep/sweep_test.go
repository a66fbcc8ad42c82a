package sweep

import (
	"context"
	"math"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pufsim/datarecording"
	"github.com/sarchlab/pufsim/monitoring"
	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/tracing"
)

var _ = Describe("Grid", func() {
	It("should default empty dimensions to nominal values", func() {
		points := Grid{}.Points()

		Expect(points).To(Equal([]Point{{
			Temperature:  sram.NominalTemperature,
			VoltageRatio: sram.NominalVoltageRatio,
		}}))
	})

	It("should form the Cartesian product", func() {
		g := Grid{
			Temperatures:  []float64{-40, 25, 125},
			VoltageRatios: []float64{0.9, 1.1},
			AgingFactors:  []float64{0.01},
			PreTestRounds: []int{0, 10},
		}

		points := g.Points()

		Expect(points).To(HaveLen(12))
		Expect(points[0]).To(Equal(Point{
			Temperature: -40, VoltageRatio: 0.9, AgingFactor: 0.01,
		}))
		Expect(points[1].Temperature).To(Equal(25.0))
		Expect(points[11]).To(Equal(Point{
			Temperature: 125, VoltageRatio: 1.1, AgingFactor: 0.01,
			PreTestRounds: 10,
		}))
	})

	It("should sweep stability and aging outside the conditions", func() {
		g := Grid{
			Temperatures:    []float64{25, 85},
			Stabilities:     []sram.Stability{sram.FixedStability(1), {}},
			AgingHours:      []float64{0, 1000},
			StoragePatterns: []sram.StoragePattern{sram.StorageStatic},
		}
		Expect(g.Validate()).To(Succeed())

		points := g.Points()

		Expect(points).To(HaveLen(8))
		Expect(points[0].Stability).To(Equal(sram.FixedStability(1)))
		Expect(points[1].Temperature).To(Equal(85.0))
		Expect(points[2].AgingHours).To(Equal(1000.0))
		Expect(points[7].Stability).To(Equal(sram.Stability{}))
		Expect(points[7].StoragePattern).To(Equal(sram.StorageStatic))
	})

	It("should reject unknown stabilities and storage patterns", func() {
		bad := Grid{Stabilities: []sram.Stability{{Kind: "gamma"}}}
		Expect(bad.Validate()).To(MatchError(sram.ErrInvalidStability))

		bad = Grid{StoragePatterns: []sram.StoragePattern{"striped"}}
		Expect(bad.Validate()).To(MatchError(sram.ErrInvalidStoragePattern))

		bad = Grid{AgingHours: []float64{-1}}
		Expect(bad.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Runner", func() {
	var (
		setup  Setup
		points []Point
	)

	BeforeEach(func() {
		setup = Setup{
			NumCells: 512,
			Devices:  3,
			BaseSeed: 100,
			Trials:   20,
		}

		points = Grid{
			Temperatures: []float64{25, 85},
			AgingFactors: []float64{0.02},
			Stabilities:  []sram.Stability{sram.FixedStability(1)},
		}.Points()
	})

	It("should produce the same results for any number of workers", func() {
		serial, err := MakeBuilder().WithWorkers(1).Build().
			Run(context.Background(), setup, points)
		Expect(err).NotTo(HaveOccurred())

		parallel, err := MakeBuilder().WithWorkers(4).Build().
			Run(context.Background(), setup, points)
		Expect(err).NotTo(HaveOccurred())

		Expect(serial).To(HaveLen(6))
		Expect(parallel).To(Equal(serial))
	})

	It("should measure the noise of each point", func() {
		results, err := MakeBuilder().Build().
			Run(context.Background(), setup, points)
		Expect(err).NotTo(HaveOccurred())

		for _, r := range results {
			Expect(r.Error).To(BeEmpty())
			Expect(r.StableCells).To(Equal(512))
			Expect(r.Seed).To(Equal(100 + uint64(r.Device)))
		}

		summaries := Summarize(results)
		Expect(summaries).To(HaveLen(2))
		Expect(summaries[0].Devices).To(Equal(3))
		Expect(summaries[0].MeanErrorRate).To(BeNumerically("~", 0.02, 0.005))
		Expect(summaries[1].MeanErrorRate).To(BeNumerically("~", 0.08, 0.01))
		Expect(summaries[0].MeanStableCells).To(Equal(512.0))
	})

	It("should see unstable cells and storage aging", func() {
		points = Grid{
			Stabilities:     []sram.Stability{sram.FixedStability(1), {}},
			AgingHours:      []float64{0, 2000},
			StoragePatterns: []sram.StoragePattern{sram.StorageStatic},
		}.Points()

		results, err := MakeBuilder().Build().
			Run(context.Background(), setup, points)
		Expect(err).NotTo(HaveOccurred())

		summaries := Summarize(results)
		Expect(summaries).To(HaveLen(4))

		ideal, idealAged := summaries[0], summaries[1]
		beta, betaAged := summaries[2], summaries[3]

		Expect(ideal.Point.Stability).To(Equal(sram.FixedStability(1)))
		Expect(beta.Point.Stability).To(Equal(sram.DefaultStability()))
		Expect(betaAged.Point.StoragePattern).To(Equal(sram.StorageStatic))

		Expect(ideal.MeanErrorRate).To(BeZero())
		Expect(ideal.MeanStability).To(Equal(1.0))
		Expect(idealAged.MeanStability).
			To(BeNumerically("~", 1-0.1*math.Sqrt(2), 1e-9))
		Expect(idealAged.MeanErrorRate).To(BeNumerically(">", 0.05))

		Expect(beta.MeanStability).To(BeNumerically("~", 0.8, 0.03))
		Expect(beta.MeanErrorRate).To(BeNumerically("~", 0.17, 0.03))
		Expect(betaAged.MeanErrorRate).
			To(BeNumerically(">", beta.MeanErrorRate))
	})

	It("should report failing jobs without aborting", func() {
		setup.Stress = sram.Nominal(0.5)
		points = []Point{
			{Temperature: 25, VoltageRatio: 1},
			{Temperature: 25, VoltageRatio: 1, PreTestRounds: 60},
		}

		results, err := MakeBuilder().Build().
			Run(context.Background(), setup, points)

		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Error).To(BeEmpty())
		Expect(results[3].Error).To(ContainSubstring("no stable cells"))

		summaries := Summarize(results)
		Expect(summaries[1].Errored).To(Equal(3))
		Expect(summaries[1].MeanErrorRate).To(BeZero())
	})

	It("should correct errors when a codec is configured", func() {
		setup.NumCells = 1013
		setup.Corrected = true
		setup.Codec = puf.HammingFactory(true)
		points = []Point{{
			Temperature:  25,
			VoltageRatio: 1,
			AgingFactor:  0.0002,
			Stability:    sram.FixedStability(1),
		}}

		counter := tracing.NewOutcomeCounter()

		results, err := MakeBuilder().WithCounter(counter).Build().
			Run(context.Background(), setup, points)

		Expect(err).NotTo(HaveOccurred())
		Expect(counter.Counts().Queries).To(Equal(uint64(3 * 20)))
		Expect(counter.Counts().Corrected).To(BeNumerically(">", 0))
		Expect(Summarize(results)[0].MeanErrorRate).To(BeNumerically("<", 0.0002))
	})

	It("should record results and show progress", func() {
		path := filepath.Join(GinkgoT().TempDir(), "sweep")
		recorder, err := datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer recorder.Close()

		monitor := monitoring.NewMonitor()

		results, err := MakeBuilder().
			WithRecorder(recorder, "results").
			WithMonitor(monitor).
			Build().
			Run(context.Background(), setup, points)
		Expect(err).NotTo(HaveOccurred())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		Expect(reader.MapTable("results", Result{})).To(Succeed())

		rows, total, err := reader.Query(context.Background(), "results",
			datarecording.QueryParams{OrderBy: "Job"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(len(results)))
		Expect(*rows[0].(*Result)).To(Equal(results[0]))
	})

	It("should stop on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := MakeBuilder().WithWorkers(1).Build().Run(ctx, setup, points)

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should reject an invalid setup", func() {
		setup.Trials = 0

		_, err := MakeBuilder().Build().Run(context.Background(), setup, points)

		Expect(err).To(HaveOccurred())
	})
})
