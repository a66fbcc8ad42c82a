package puf

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/sarchlab/pufsim/burnin"
	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/hooking"
	"github.com/sarchlab/pufsim/idgen"
	"github.com/sarchlab/pufsim/sram"
)

// Builder creates PUF controllers.
type Builder struct {
	shape        sram.Shape
	seed         uint64
	onesBias     float64
	stability    sram.Stability
	flipModel    sram.FlipModel
	agingProfile sram.AgingProfile
	codec        codecSource
	name         string
	verbose      bool
}

// MakeBuilder creates a builder for an unbiased 1024-cell array with
// Beta(8, 2) cell stability and without error correction.
func MakeBuilder() Builder {
	return Builder{
		shape:        sram.Shape{Rows: 1, Cols: 1024},
		seed:         1,
		onesBias:     0.5,
		stability:    sram.DefaultStability(),
		flipModel:    sram.DefaultFlipModel(),
		agingProfile: sram.DefaultAgingProfile(),
	}
}

// WithNumCells sets the number of cells, organized as a single row.
func (b Builder) WithNumCells(n int) Builder {
	b.shape = sram.Shape{Rows: 1, Cols: n}
	return b
}

// WithShape sets the rows and columns of the array.
func (b Builder) WithShape(rows, cols int) Builder {
	b.shape = sram.Shape{Rows: rows, Cols: cols}
	return b
}

// WithSeed sets the seed of the array's random source. Controllers built with
// the same seed and parameters behave identically.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithOnesBias sets the probability that a fabricated cell prefers 1.
func (b Builder) WithOnesBias(p float64) Builder {
	b.onesBias = p
	return b
}

// WithStability sets the distribution of cell stabilities. Use
// sram.FixedStability(1) for ideal cells that flip only under the conditions.
func (b Builder) WithStability(s sram.Stability) Builder {
	b.stability = s
	return b
}

// WithFlipModel sets how conditions map to flip probabilities.
func (b Builder) WithFlipModel(m sram.FlipModel) Builder {
	b.flipModel = m
	return b
}

// WithAgingProfile sets how operating hours turn into permanent drift.
func (b Builder) WithAgingProfile(p sram.AgingProfile) Builder {
	b.agingProfile = p
	return b
}

// WithCodec sets a codec built for a known response length.
func (b Builder) WithCodec(c ecc.Codec) Builder {
	b.codec = codecSource{codec: c}
	return b
}

// WithCodecFactory defers building the codec to enrollment, when the number
// of stable cells is known.
func (b Builder) WithCodecFactory(f CodecFactory) Builder {
	b.codec = codecSource{factory: f}
	return b
}

// WithName sets the controller name. A generated name is used otherwise.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithVerboseBurnIn logs the outcome of burn-in.
func (b Builder) WithVerboseBurnIn() Builder {
	b.verbose = true
	return b
}

// Build fabricates the array and creates an uninitialized controller.
func (b Builder) Build() (*Controller, error) {
	b.flipModelMustBeGiven()

	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(b.seed))

	array, err := sram.Fabricate(b.shape, b.onesBias, b.stability, rng)
	if err != nil {
		return nil, configError("array", err)
	}

	array.SetFlipModel(b.flipModel)

	id := idgen.Get().Generate()
	name := b.name
	if name == "" {
		name = "PUF" + id
	}

	c := &Controller{
		HookableBase: hooking.NewHookableBase(),
		id:           id,
		name:         name,
		seed:         b.seed,
		array:        array,
		flipModel:    b.flipModel,
		agingProfile: b.agingProfile,
		engine:       burnin.Engine{Verbose: b.verbose},
		codecSource:  b.codec,
	}

	return c, nil
}

func (b Builder) flipModelMustBeGiven() {
	if b.flipModel == nil {
		panic("flip model is not given")
	}
}

func (b Builder) parametersMustBeValid() error {
	if b.shape.Rows <= 0 || b.shape.Cols <= 0 {
		return configErrorf("shape", "%dx%d, need at least one cell",
			b.shape.Rows, b.shape.Cols)
	}

	if b.onesBias < 0 || b.onesBias > 1 || math.IsNaN(b.onesBias) {
		return configError("ones bias", fmt.Errorf("%v: %w",
			b.onesBias, sram.ErrInvalidProbability))
	}

	if err := b.stability.Validate(); err != nil {
		return configError("stability", err)
	}

	if err := b.agingProfile.Validate(); err != nil {
		return configError("aging profile", err)
	}

	return nil
}
