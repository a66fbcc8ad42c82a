// Package tracing observes PUF controllers through hooks. Tracers count query
// outcomes or record every query for offline analysis.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/pufsim/hooking"
	"github.com/sarchlab/pufsim/puf"
)

// NamedHookable is a hookable object with a name.
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

// A Tracer is told about every query of the controllers it traces.
type Tracer interface {
	TraceQuery(domain string, q puf.Query)
}

// AgingTracer is implemented by tracers that also follow permanent drift.
type AgingTracer interface {
	TraceAging(domain string, drifted int)
}

// CollectTrace attaches tracer to domain. Attaching the same tracer twice
// panics.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		h, ok := hook.(*traceHook)
		if ok && h.t == tracer {
			panic(fmt.Sprintf("domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer, domain: domain.Name()})
}

type traceHook struct {
	t      Tracer
	domain string
}

func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hooking.HookPosQuery:
		h.t.TraceQuery(h.domain, ctx.Item.(puf.Query))
	case hooking.HookPosAged:
		if at, ok := h.t.(AgingTracer); ok {
			at.TraceAging(h.domain, ctx.Item.(int))
		}
	}
}
