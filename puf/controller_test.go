package puf

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/ecc/hamming"
	"github.com/sarchlab/pufsim/hooking"
	"github.com/sarchlab/pufsim/sram"
)

var _ = Describe("Builder", func() {
	It("should build an uninitialized controller", func() {
		c, err := MakeBuilder().WithShape(32, 32).WithSeed(3).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.State()).To(Equal(StateUninitialized))
		Expect(c.Array().Len()).To(Equal(1024))
		Expect(c.Array().Shape()).To(Equal(sram.Shape{Rows: 32, Cols: 32}))
		Expect(c.Seed()).To(Equal(uint64(3)))
		Expect(c.Name()).To(HavePrefix("PUF"))
	})

	It("should reject arrays without cells", func() {
		_, err := MakeBuilder().WithNumCells(0).Build()

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject a bad shape", func() {
		_, err := MakeBuilder().WithShape(-1, 8).Build()

		Expect(err).To(MatchError(ErrConfiguration))
	})

	It("should reject a ones bias outside [0, 1]", func() {
		_, err := MakeBuilder().WithOnesBias(1.5).Build()

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(err).To(MatchError(sram.ErrInvalidProbability))
	})

	It("should panic without a flip model", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithFlipModel(nil).Build()
		}).To(Panic())
	})

	It("should reject an invalid stability", func() {
		_, err := MakeBuilder().WithStability(sram.FixedStability(1.5)).Build()

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(err).To(MatchError(sram.ErrInvalidStability))
	})

	It("should reject an unknown storage pattern", func() {
		profile := sram.DefaultAgingProfile()
		profile.StoragePattern = "striped"

		_, err := MakeBuilder().WithAgingProfile(profile).Build()

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(err).To(MatchError(sram.ErrInvalidStoragePattern))
	})

	It("should draw cell stabilities from Beta(8, 2) by default", func() {
		c, err := MakeBuilder().WithNumCells(8192).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Array().MeanStability()).To(BeNumerically("~", 0.8, 0.01))
	})

	It("should fabricate the same array for the same seed", func() {
		a, _ := MakeBuilder().WithSeed(9).Build()
		b, _ := MakeBuilder().WithSeed(9).Build()

		Expect(a.Array().Preferred()).To(Equal(b.Array().Preferred()))
	})
})

var _ = Describe("Controller lifecycle", func() {
	var c *Controller

	BeforeEach(func() {
		var err error
		c, err = MakeBuilder().WithNumCells(256).Build()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should refuse queries before enrollment", func() {
		_, err := c.GetResponse(sram.Nominal(0))
		Expect(err).To(MatchError(ErrNotEnrolled))

		_, err = c.RawResponse(sram.Nominal(0))
		Expect(err).To(MatchError(ErrNotEnrolled))

		_, err = c.CheckHealth(sram.Nominal(0), 10, false)
		Expect(err).To(MatchError(ErrNotEnrolled))

		_, err = c.Golden()
		Expect(err).To(MatchError(ErrNotEnrolled))

		_, err = c.HelperData()
		Expect(err).To(MatchError(ErrNotEnrolled))

		_, err = c.Mask()
		Expect(err).To(MatchError(ErrNotEnrolled))
	})

	It("should refuse a second enrollment", func() {
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		golden, _ := c.Golden()

		err := c.Enroll(DefaultEnrollSpec())

		Expect(err).To(MatchError(ErrAlreadyEnrolled))
		again, _ := c.Golden()
		Expect(again).To(Equal(golden))
	})

	It("should stay uninitialized after a failed enrollment", func() {
		spec := DefaultEnrollSpec()
		spec.PreTestRounds = -1

		err := c.Enroll(spec)

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(c.State()).To(Equal(StateUninitialized))
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		Expect(c.State()).To(Equal(StateEnrolled))
	})

	It("should reject invalid conditions", func() {
		spec := DefaultEnrollSpec()
		spec.Nominal.AgingFactor = 2

		Expect(c.Enroll(spec)).To(MatchError(ErrConfiguration))

		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())

		_, err := c.GetResponse(sram.Nominal(-0.1))
		Expect(err).To(MatchError(ErrConfiguration))
	})

	It("should fail when burn-in masks every cell", func() {
		spec := DefaultEnrollSpec()
		spec.PreTestRounds = 50
		spec.Stress = sram.Nominal(0.5)

		err := c.Enroll(spec)

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(c.State()).To(Equal(StateUninitialized))
	})

	It("should hand out copies", func() {
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())

		golden, _ := c.Golden()
		golden.Flip(0)

		again, _ := c.Golden()
		Expect(again).NotTo(Equal(golden))

		helper, err := c.HelperData()
		Expect(err).NotTo(HaveOccurred())
		Expect(helper).To(BeNil())
	})
})

var _ = Describe("Controller without codec", func() {
	It("should reproduce the golden response exactly without noise", func() {
		c, err := MakeBuilder().
			WithNumCells(1024).
			WithSeed(5).
			WithStability(sram.FixedStability(1)).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())

		golden, _ := c.Golden()
		Expect(golden).To(HaveLen(1024))
		Expect(golden).To(Equal(c.Array().Preferred()))

		for i := 0; i < 50; i++ {
			resp, err := c.GetResponse(sram.Nominal(0))

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Decoded).To(BeFalse())
			Expect(resp.Bits).To(Equal(golden))
		}
	})

	It("should shorten the response to the stable cells", func() {
		c, _ := MakeBuilder().
			WithNumCells(2048).
			WithStability(sram.FixedStability(1)).
			Build()

		spec := DefaultEnrollSpec()
		spec.PreTestRounds = 10
		spec.Stress = sram.Conditions{
			AgingFactor: 0.02, Temperature: 125, VoltageRatio: 1.2,
		}

		Expect(c.Enroll(spec)).To(Succeed())

		mask, _ := c.Mask()
		golden, _ := c.Golden()
		Expect(mask.Len()).To(Equal(2048))
		Expect(golden).To(HaveLen(mask.CountStable()))
		Expect(mask.CountStable()).To(BeNumerically("<", 2048))
		Expect(mask.CountStable()).To(BeNumerically(">", 0))

		raw, err := c.RawResponse(sram.Nominal(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(Equal(golden))
	})
})

var _ = Describe("Controller with a mocked codec", func() {
	var (
		mockCtrl *gomock.Controller
		codec    *MockCodec
		c        *Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		codec = NewMockCodec(mockCtrl)
		codec.EXPECT().Name().Return("mock").AnyTimes()

		var err error
		c, err = MakeBuilder().WithNumCells(64).WithCodec(codec).Build()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fail fast when k does not match the response", func() {
		codec.EXPECT().DataLen().Return(100).AnyTimes()

		err := c.Enroll(DefaultEnrollSpec())

		var ce *ConfigurationError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Field).To(Equal("codec"))
		Expect(err).To(MatchError(ecc.ErrLengthMismatch))
		Expect(c.State()).To(Equal(StateUninitialized))

		_, err = c.Golden()
		Expect(err).To(MatchError(ErrNotEnrolled))
	})

	It("should store helper data and report decode failures as data", func() {
		helper := bitstring.MustFromString("101")
		codec.EXPECT().DataLen().Return(64).AnyTimes()
		codec.EXPECT().GenerateHelperData(gomock.Any()).Return(helper, nil)

		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		golden, _ := c.Golden()

		codec.EXPECT().
			Correct(gomock.Any(), helper).
			Return(ecc.Failed(ecc.ErrTooManyErrors), nil)

		resp, err := c.GetResponse(sram.Nominal(0.3))

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeFalse())
		Expect(resp.Decoded).To(BeTrue())
		Expect(resp.Outcome).To(Equal(ecc.OutcomeUncorrectable))
		Expect(resp.Bits).To(BeNil())
		Expect(resp.Reason).To(MatchError(ecc.ErrTooManyErrors))

		again, _ := c.Golden()
		Expect(again).To(Equal(golden))
		storedHelper, _ := c.HelperData()
		Expect(storedHelper).To(Equal(helper))
	})

	It("should pass corrections through", func() {
		codec.EXPECT().DataLen().Return(64).AnyTimes()
		codec.EXPECT().GenerateHelperData(gomock.Any()).Return(bitstring.New(7), nil)
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		golden, _ := c.Golden()

		codec.EXPECT().
			Correct(gomock.Any(), gomock.Any()).
			Return(ecc.Succeeded(golden.Clone(), 2), nil)

		resp, err := c.GetResponse(sram.Nominal(0.01))

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(ecc.OutcomeCorrected))
		Expect(resp.CorrectedErrors).To(Equal(2))
		Expect(resp.Bits).To(Equal(golden))
	})

	It("should build the codec from a factory at enrollment", func() {
		var askedK int

		c, _ = MakeBuilder().
			WithNumCells(64).
			WithCodecFactory(func(k int) (ecc.Codec, error) {
				askedK = k
				codec.EXPECT().DataLen().Return(k).AnyTimes()
				codec.EXPECT().GenerateHelperData(gomock.Any()).Return(bitstring.New(7), nil)

				return codec, nil
			}).
			Build()

		Expect(c.Codec()).To(BeNil())
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		Expect(askedK).To(Equal(64))
		Expect(c.Codec()).To(BeIdenticalTo(codec))
	})
})

var _ = Describe("Controller with Hamming correction", func() {
	It("should correct single errors in a 1024-bit response", func() {
		c, err := MakeBuilder().
			WithNumCells(1024).
			WithSeed(11).
			WithStability(sram.FixedStability(1)).
			WithCodecFactory(HammingFactory(true)).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		Expect(c.Codec().Name()).To(Equal("hamming-ext(1024)"))

		golden, _ := c.Golden()
		Expect(golden).To(HaveLen(1024))
		helper, _ := c.HelperData()
		Expect(helper).To(HaveLen(hamming.RedundantBits(1024) + 1))

		cond := sram.Nominal(1.0 / 1024)

		const trials = 400
		rawMatches, correctedMatches, failures, doubles := 0, 0, 0, 0

		for i := 0; i < trials; i++ {
			raw, err := c.RawResponse(cond)
			Expect(err).NotTo(HaveOccurred())
			if raw.Equal(golden) {
				rawMatches++
			}

			resp, err := c.GetResponse(cond)
			Expect(err).NotTo(HaveOccurred())

			switch {
			case !resp.OK():
				failures++
				if errors.Is(resp.Reason, ecc.ErrDoubleError) {
					doubles++
				}
				// Three flips can point past the last codeword position.
				Expect(resp.Reason).To(Or(
					MatchError(ecc.ErrDoubleError),
					MatchError(ecc.ErrUncorrectable)))
			case resp.Bits.Equal(golden):
				correctedMatches++
			}
		}

		Expect(float64(correctedMatches) / trials).To(BeNumerically(">", 0.65))
		Expect(float64(rawMatches) / trials).To(BeNumerically("<", 0.5))
		Expect(correctedMatches).To(BeNumerically(">", rawMatches))
		Expect(failures).To(BeNumerically(">", 0))
		Expect(doubles).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Hooks", func() {
	It("should report enrollment, queries, health checks, and aging", func() {
		c, _ := MakeBuilder().WithNumCells(128).Build()

		counts := make(map[*hooking.HookPos]int)
		var queries []Query

		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			counts[ctx.Pos]++

			if q, ok := ctx.Item.(Query); ok {
				queries = append(queries, q)
			}
		}))

		Expect(c.Enroll(DefaultEnrollSpec())).To(Succeed())
		_, _ = c.GetResponse(sram.Nominal(0.1))
		_, _ = c.RawResponse(sram.Nominal(0.1))
		_, _ = c.CheckHealth(sram.Nominal(0.1), 3, false)
		_, _ = c.SimulateAging(10, 85)

		Expect(counts[hooking.HookPosEnrolled]).To(Equal(1))
		Expect(counts[hooking.HookPosQuery]).To(Equal(5))
		Expect(counts[hooking.HookPosHealthChecked]).To(Equal(1))
		Expect(counts[hooking.HookPosAged]).To(Equal(1))
		Expect(queries[0].FlipProbability).To(BeNumerically("~", 0.1, 1e-12))
		Expect(queries[0].Raw).To(HaveLen(128))
	})
})
