package sram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/exp/rand"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/sram"
)

var _ = Describe("Array", func() {
	It("should reject arrays without cells", func() {
		_, err := sram.NewArray(0, rand.New(rand.NewSource(1)))
		Expect(err).To(MatchError(sram.ErrInvalidSize))

		_, err = sram.Fabricate(sram.Shape{Rows: 4, Cols: -1}, 0.5,
			sram.DefaultStability(), rand.New(rand.NewSource(1)))
		Expect(err).To(MatchError(sram.ErrInvalidSize))
	})

	It("should reject an invalid ones bias", func() {
		_, err := sram.Fabricate(sram.Shape{Rows: 1, Cols: 8}, 1.5,
			sram.DefaultStability(), rand.New(rand.NewSource(1)))

		Expect(err).To(MatchError(sram.ErrInvalidProbability))
	})

	It("should fabricate the same array from the same seed", func() {
		a, err := sram.NewArray(256, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		b, err := sram.NewArray(256, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Preferred()).To(Equal(b.Preferred()))
	})

	It("should fabricate roughly balanced cells", func() {
		a, err := sram.NewArray(4096, rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())

		ones := a.Preferred().OnesCount()
		Expect(ones).To(BeNumerically("~", 2048, 200))
	})

	It("should honor the ones bias", func() {
		a, err := sram.Fabricate(sram.Shape{Rows: 64, Cols: 64}, 1,
			sram.FixedStability(1), rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Len()).To(Equal(4096))
		Expect(a.Shape()).To(Equal(sram.Shape{Rows: 64, Cols: 64}))
		Expect(a.Preferred().OnesCount()).To(Equal(4096))
	})

	It("should return the preferred values when powered up without noise", func() {
		a, err := sram.NewArray(128, rand.New(rand.NewSource(9)))
		Expect(err).NotTo(HaveOccurred())

		r, err := a.PowerUp(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(a.Preferred()))
		Expect(a.Read()).To(Equal(r))
	})

	It("should return the complement when every cell flips", func() {
		pref := bitstring.MustFromString("0110")
		a, err := sram.FromPreferred(pref, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())

		r, err := a.PowerUp(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.String()).To(Equal("1001"))
	})

	It("should flip about a fraction p of the cells", func() {
		a, err := sram.NewArray(10000, rand.New(rand.NewSource(5)))
		Expect(err).NotTo(HaveOccurred())

		r, err := a.PowerUp(0.1)
		Expect(err).NotTo(HaveOccurred())

		d, _ := bitstring.Distance(r, a.Preferred())
		Expect(d).To(BeNumerically("~", 1000, 150))
	})

	It("should reject flip probabilities outside [0, 1]", func() {
		a, _ := sram.NewArray(8, rand.New(rand.NewSource(1)))

		_, err := a.PowerUp(-0.1)
		Expect(err).To(MatchError(sram.ErrInvalidProbability))

		_, err = a.Age(2)
		Expect(err).To(MatchError(sram.ErrInvalidProbability))
	})

	It("should permanently change preferred values when aged", func() {
		pref := bitstring.MustFromString("00000000")
		a, _ := sram.FromPreferred(pref, rand.New(rand.NewSource(1)))

		drifted, err := a.Age(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(drifted).To(Equal(8))
		Expect(a.Preferred().String()).To(Equal("11111111"))

		r, _ := a.PowerUp(0)
		Expect(r.String()).To(Equal("11111111"))
	})

	It("should reject an invalid stability distribution", func() {
		_, err := sram.Fabricate(sram.Shape{Rows: 1, Cols: 8}, 0.5,
			sram.BetaStability(0, 2), rand.New(rand.NewSource(1)))

		Expect(err).To(MatchError(sram.ErrInvalidStability))
	})

	It("should draw cell stabilities from Beta(8, 2) by default", func() {
		a, err := sram.Fabricate(sram.Shape{Rows: 1, Cols: 20000}, 0.5,
			sram.Stability{}, rand.New(rand.NewSource(13)))
		Expect(err).NotTo(HaveOccurred())

		low := 0
		for i := 0; i < a.Len(); i++ {
			s := a.Cell(i).Stability()
			Expect(s).To(BeNumerically(">=", 0))
			Expect(s).To(BeNumerically("<=", 1))
			if s < 0.5 {
				low++
			}
		}

		Expect(a.MeanStability()).To(BeNumerically("~", 0.8, 0.01))
		// P(s < 0.5) is about 0.0195 for Beta(8, 2).
		Expect(low).To(BeNumerically("~", 390, 90))
	})

	It("should give every cell a fixed stability", func() {
		a, err := sram.Fabricate(sram.Shape{Rows: 4, Cols: 4}, 0.5,
			sram.FixedStability(0.6), rand.New(rand.NewSource(13)))
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < a.Len(); i++ {
			Expect(a.Cell(i).Stability()).To(Equal(0.6))
		}
	})

	It("should flip unstable cells more often", func() {
		cells := make([]sram.Cell, 0, 8000)
		for i := 0; i < 4000; i++ {
			stable, _ := sram.NewCellWithStability(0, 1)
			shaky, _ := sram.NewCellWithStability(0, 0.6)
			cells = append(cells, stable, shaky)
		}

		a, err := sram.FromCells(cells, rand.New(rand.NewSource(21)))
		Expect(err).NotTo(HaveOccurred())

		r, err := a.PowerUp(0.05)
		Expect(err).NotTo(HaveOccurred())

		stableFlips, shakyFlips := 0, 0
		for i, v := range r {
			switch {
			case v == 1 && i%2 == 0:
				stableFlips++
			case v == 1:
				shakyFlips++
			}
		}

		Expect(stableFlips).To(BeNumerically("~", 200, 50))
		Expect(shakyFlips).To(BeNumerically("~", 1000, 100))
	})

	It("should shift the effective stability of every cell", func() {
		c, _ := sram.NewCellWithStability(1, 0.9)
		a, _ := sram.FromCells([]sram.Cell{c, c}, rand.New(rand.NewSource(1)))

		a.SetStabilityShift(-0.3)
		Expect(a.StabilityShift()).To(Equal(-0.3))
		Expect(a.EffectiveStability(0)).To(BeNumerically("~", 0.6, 1e-12))

		a.SetStabilityShift(0.5)
		Expect(a.EffectiveStability(1)).To(Equal(1.0))
		Expect(a.Cell(1).Stability()).To(Equal(0.9))
	})

	It("should combine stability through the configured flip model", func() {
		c, _ := sram.NewCellWithStability(0, 0)
		cells := make([]sram.Cell, 4000)
		for i := range cells {
			cells[i] = c
		}

		a, _ := sram.FromCells(cells, rand.New(rand.NewSource(4)))
		a.SetFlipModel(sram.ExponentialFlipModel{})

		r, err := a.PowerUp(0.5)
		Expect(err).NotTo(HaveOccurred())

		// 1 - 0.5 * 0.5 under the exponential model.
		Expect(r.OnesCount()).To(BeNumerically("~", 3000, 120))
	})
})
