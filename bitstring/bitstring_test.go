package bitstring_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pufsim/bitstring"
)

var _ = Describe("BitString", func() {
	It("should parse and render", func() {
		b, err := bitstring.FromString("10110")

		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(bitstring.BitString{1, 0, 1, 1, 0}))
		Expect(b.String()).To(Equal("10110"))
		Expect(b.OnesCount()).To(Equal(3))
	})

	It("should reject non-binary characters", func() {
		_, err := bitstring.FromString("1021")

		Expect(err).To(MatchError(bitstring.ErrInvalidBit))
	})

	It("should reject non-binary values on validate", func() {
		b := bitstring.BitString{0, 1, 2}

		Expect(b.Validate()).To(MatchError(bitstring.ErrInvalidBit))
	})

	It("should clone without sharing storage", func() {
		b := bitstring.MustFromString("0101")
		c := b.Clone()
		c.Flip(0)

		Expect(b.String()).To(Equal("0101"))
		Expect(c.String()).To(Equal("1101"))
	})

	It("should compute distance and error rate", func() {
		a := bitstring.MustFromString("00001111")
		b := bitstring.MustFromString("00011110")

		d, err := bitstring.Distance(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(2))

		r, err := bitstring.ErrorRate(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeNumerically("~", 0.25))
	})

	It("should refuse to compare different lengths", func() {
		_, err := bitstring.Distance(
			bitstring.MustFromString("01"), bitstring.MustFromString("011"))

		Expect(err).To(HaveOccurred())
	})

	It("should pack MSB first and unpack back", func() {
		b := bitstring.MustFromString("1000000011")

		packed := b.Pack()
		Expect(packed).To(Equal([]byte{0x80, 0xC0}))

		unpacked, err := bitstring.Unpack(packed, len(b))
		Expect(err).NotTo(HaveOccurred())
		Expect(unpacked.Equal(b)).To(BeTrue())
	})

	It("should refuse to unpack more bits than available", func() {
		_, err := bitstring.Unpack([]byte{0xFF}, 9)

		Expect(err).To(HaveOccurred())
	})
})
