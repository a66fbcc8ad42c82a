// Package idgen hands out identifiers for controllers, sweep jobs, and
// recording sessions.
package idgen

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator generates IDs.
type Generator interface {
	Generate() string
}

var (
	mu           sync.Mutex
	instantiated bool
	generator    Generator
)

// UseSequential makes Get return a generator that counts up from 1. IDs are
// reproducible across runs as long as they are requested in the same order.
func UseSequential() {
	use(NewSequential(""))
}

// UseParallel makes Get return an xid-based generator. IDs are globally
// unique but not reproducible.
func UseParallel() {
	use(NewParallel())
}

func use(g Generator) {
	mu.Lock()
	defer mu.Unlock()

	if instantiated {
		log.Panic("cannot change id generator type after using it")
	}

	generator = g
	instantiated = true
}

// Get returns the process-wide generator, defaulting to the sequential one.
func Get() Generator {
	mu.Lock()
	defer mu.Unlock()

	if !instantiated {
		generator = NewSequential("")
		instantiated = true
	}

	return generator
}

// NewSequential creates a generator producing prefix1, prefix2, ...
func NewSequential(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix}
}

type sequentialGenerator struct {
	prefix string
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.nextID, 1)
	return g.prefix + strconv.FormatUint(n, 10)
}

// NewParallel creates an xid-based generator that is safe to share.
func NewParallel() Generator {
	return parallelGenerator{}
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}
