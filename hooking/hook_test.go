package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	positions []*HookPos
}

func (h *countingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

var _ = Describe("HookableBase", func() {
	var base *HookableBase

	BeforeEach(func() {
		base = NewHookableBase()
	})

	It("should invoke hooks in registration order", func() {
		var order []string

		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "a") }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "b") }))

		base.InvokeHook(HookCtx{Domain: base, Pos: HookPosQuery})

		Expect(order).To(Equal([]string{"a", "b"}))
		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should pass the context through", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		base.InvokeHook(HookCtx{Domain: base, Pos: HookPosEnrolled})
		base.InvokeHook(HookCtx{Domain: base, Pos: HookPosAged, Item: 3})

		Expect(h.positions).To(Equal([]*HookPos{HookPosEnrolled, HookPosAged}))
		Expect(base.Hooks()).To(HaveLen(1))
	})

	It("should panic on a duplicated hook", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})
})
