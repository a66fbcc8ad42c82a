// Package hooking lets observers attach to the lifecycle of PUF controllers
// and sweeps without the observed code knowing who is listening.
package hooking

// HookPos names a point where hooks fire.
type HookPos struct {
	Name string
}

// Positions raised by PUF controllers.
var (
	// HookPosEnrolled fires after a successful enrollment. Item is the
	// golden response.
	HookPosEnrolled = &HookPos{Name: "Enrolled"}

	// HookPosQuery fires after every response query. Item is the query
	// record.
	HookPosQuery = &HookPos{Name: "Query"}

	// HookPosAged fires after permanent drift was applied. Item is the
	// number of drifted cells.
	HookPosAged = &HookPos{Name: "Aged"}

	// HookPosHealthChecked fires after a health check. Item is the report.
	HookPosHealthChecked = &HookPos{Name: "HealthChecked"}
)

// HookCtx describes the site where a hook fires.
type HookCtx struct {
	// Domain is the object raising the hook.
	Domain Hookable

	Pos *HookPos

	// Item is the primary subject of the hook.
	Item any

	// Detail holds optional extra data and may be nil.
	Detail any
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are registered before the domain
	// is used and cannot be removed.
	AcceptHook(hook Hook)

	NumHooks() int

	Hooks() []Hook

	InvokeHook(ctx HookCtx)
}

// Hook is invoked by a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements the bookkeeping half of Hookable.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase with no hooks.
func NewHookableBase() *HookableBase {
	return &HookableBase{hookList: make([]Hook, 0)}
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns the registered hooks.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if sameHook(existing, hook) {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// sameHook compares hooks by identity. HookFunc values are not comparable and
// are always treated as distinct.
func sameHook(a, b Hook) bool {
	if _, ok := a.(HookFunc); ok {
		return false
	}

	if _, ok := b.(HookFunc); ok {
		return false
	}

	return a == b
}

// InvokeHook calls every registered hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
