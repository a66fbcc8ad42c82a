package sram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/sram"
)

var _ = Describe("Mask", func() {
	It("should keep every bit when all cells are stable", func() {
		m := sram.AllStable(6)
		full := bitstring.MustFromString("101100")

		out, err := m.Project(full)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(full))
		Expect(m.CountStable()).To(Equal(6))
	})

	It("should project in order and match the stable count", func() {
		m := sram.NewMask([]bool{true, false, true, true, false, true})
		full := bitstring.MustFromString("100110")

		out, err := m.Project(full)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("1010"))
		Expect(out).To(HaveLen(m.CountStable()))
	})

	It("should refuse responses of the wrong length", func() {
		_, err := sram.AllStable(4).Project(bitstring.New(5))

		Expect(err).To(HaveOccurred())
	})

	It("should not expose its storage", func() {
		flags := []bool{true, true}
		m := sram.NewMask(flags)
		flags[0] = false

		Expect(m.IsStable(0)).To(BeTrue())

		out := m.Flags()
		out[1] = false
		Expect(m.IsStable(1)).To(BeTrue())
	})
})
