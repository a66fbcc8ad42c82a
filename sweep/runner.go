// Package sweep evaluates many independent PUF controllers across a grid of
// operating conditions in parallel.
//
// Every job fabricates its own controller from a seed derived from the
// device index, so results do not depend on scheduling or the number of
// workers.
package sweep

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/sarchlab/pufsim/datarecording"
	"github.com/sarchlab/pufsim/monitoring"
	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/tracing"
)

// Setup describes the devices evaluated at every point.
type Setup struct {
	NumCells int

	// Devices is the number of independently fabricated devices per point.
	// Device d uses seed BaseSeed + d at every point.
	Devices  int
	BaseSeed uint64

	// Trials is the number of queries per health check.
	Trials    int
	Corrected bool

	// Stress is the burn-in condition for points with pre-test rounds. The
	// zero value means nominal conditions without noise.
	Stress sram.Conditions

	// Codec builds the codec once the stable cell count is known. Nil means
	// no error correction.
	Codec puf.CodecFactory

	// FlipModel defaults to sram.DefaultFlipModel.
	FlipModel sram.FlipModel

	// AgingProfile applies to points with aging hours. The zero value means
	// sram.DefaultAgingProfile. The storage pattern of the point overrides
	// the one of the profile.
	AgingProfile sram.AgingProfile

	// AgingTemperature is the operating temperature of the aging hours. The
	// zero value means nominal temperature.
	AgingTemperature float64
}

func (s Setup) validate() error {
	if s.NumCells <= 0 {
		return fmt.Errorf("sweep: %d cells, need at least one", s.NumCells)
	}

	if s.Devices <= 0 {
		return fmt.Errorf("sweep: %d devices, need at least one", s.Devices)
	}

	if s.Trials <= 0 {
		return fmt.Errorf("sweep: %d trials, need at least one", s.Trials)
	}

	return nil
}

// Result is the outcome of one job. It is flat so that it can be recorded
// as a table row.
type Result struct {
	Job    int
	Device int
	Seed   uint64

	Temperature    float64
	VoltageRatio   float64
	AgingFactor    float64
	PreTestRounds  int
	Stability      string
	AgingHours     float64
	StoragePattern string

	StableCells     int
	MeanStability   float64
	MeanErrorRate   float64
	StdDevErrorRate float64
	MaxErrorRate    float64
	DecodeFailures  int
	Status          string

	// Error is set when the job could not be evaluated, for example because
	// burn-in left no stable cells.
	Error string
}

// Point returns the sweep point of the result. The stability and the storage
// pattern come back in their resolved form.
func (r Result) Point() Point {
	stability, err := sram.ParseStability(r.Stability)
	if err != nil {
		stability = sram.Stability{}
	}

	return Point{
		Temperature:    r.Temperature,
		VoltageRatio:   r.VoltageRatio,
		AgingFactor:    r.AgingFactor,
		PreTestRounds:  r.PreTestRounds,
		Stability:      stability,
		AgingHours:     r.AgingHours,
		StoragePattern: sram.StoragePattern(r.StoragePattern),
	}
}

// Runner executes sweeps on a bounded pool of workers.
type Runner struct {
	workers  int
	recorder datarecording.Recorder
	table    string
	monitor  *monitoring.Monitor
	counter  *tracing.OutcomeCounter
}

// Builder creates Runners.
type Builder struct {
	workers  int
	recorder datarecording.Recorder
	table    string
	monitor  *monitoring.Monitor
	counter  *tracing.OutcomeCounter
}

// MakeBuilder creates a builder with one worker per available CPU.
func MakeBuilder() Builder {
	return Builder{
		workers: runtime.GOMAXPROCS(0),
		table:   "sweep_results",
	}
}

// WithWorkers sets the number of concurrent jobs.
func (b Builder) WithWorkers(n int) Builder {
	b.workers = n
	return b
}

// WithRecorder records every result into the given table.
func (b Builder) WithRecorder(r datarecording.Recorder, table string) Builder {
	b.recorder = r
	b.table = table

	return b
}

// WithMonitor shows the progress of the sweep on a monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithCounter attaches an outcome counter to every controller.
func (b Builder) WithCounter(c *tracing.OutcomeCounter) Builder {
	b.counter = c
	return b
}

// Build creates the runner.
func (b Builder) Build() *Runner {
	if b.workers <= 0 {
		panic("number of workers must be positive")
	}

	return &Runner{
		workers:  b.workers,
		recorder: b.recorder,
		table:    b.table,
		monitor:  b.monitor,
		counter:  b.counter,
	}
}

type job struct {
	index  int
	device int
	point  Point
}

// Run evaluates every device at every point and returns the results in job
// order. A failing job is reported in its Result. Run returns an error only
// for an invalid setup, a cancelled context, or a recording failure.
func (r *Runner) Run(
	ctx context.Context,
	setup Setup,
	points []Point,
) ([]Result, error) {
	if err := setup.validate(); err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(points)*setup.Devices)
	for _, p := range points {
		for d := 0; d < setup.Devices; d++ {
			jobs = append(jobs, job{index: len(jobs), device: d, point: p})
		}
	}

	var bar *monitoring.ProgressBar
	if r.monitor != nil {
		bar = r.monitor.CreateProgressBar("sweep", uint64(len(jobs)))
		defer r.monitor.CompleteProgressBar(bar)
	}

	results := make([]Result, len(jobs))
	queue := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range queue {
				if bar != nil {
					bar.IncrementInProgress(1)
				}

				results[j.index] = r.evaluate(setup, j)

				if bar != nil {
					bar.MoveInProgressToFinished(1, results[j.index].Error != "")
				}
			}
		}()
	}

	cancelled := false

dispatch:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		case queue <- j:
		}
	}

	close(queue)
	wg.Wait()

	if cancelled {
		return nil, ctx.Err()
	}

	if err := r.record(results); err != nil {
		return results, err
	}

	return results, nil
}

func (r *Runner) evaluate(setup Setup, j job) Result {
	seed := setup.BaseSeed + uint64(j.device)
	res := Result{
		Job:            j.index,
		Device:         j.device,
		Seed:           seed,
		Temperature:    j.point.Temperature,
		VoltageRatio:   j.point.VoltageRatio,
		AgingFactor:    j.point.AgingFactor,
		PreTestRounds:  j.point.PreTestRounds,
		Stability:      j.point.Stability.String(),
		AgingHours:     j.point.AgingHours,
		StoragePattern: string(j.point.StoragePattern.Resolved()),
	}

	c, err := r.buildController(setup, j.point, seed)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	spec := puf.DefaultEnrollSpec()
	spec.PreTestRounds = j.point.PreTestRounds
	if setup.Stress != (sram.Conditions{}) {
		spec.Stress = setup.Stress
	}

	if err := c.Enroll(spec); err != nil {
		res.Error = err.Error()
		return res
	}

	golden, _ := c.Golden()
	res.StableCells = len(golden)

	if j.point.AgingHours > 0 {
		temperature := setup.AgingTemperature
		if temperature == 0 {
			temperature = sram.NominalTemperature
		}

		if _, err := c.SimulateAging(j.point.AgingHours, temperature); err != nil {
			res.Error = err.Error()
			return res
		}
	}

	report, err := c.CheckHealth(j.point.Conditions(), setup.Trials, setup.Corrected)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.MeanStability = report.MeanStability
	res.MeanErrorRate = report.MeanErrorRate
	res.StdDevErrorRate = report.StdDevErrorRate
	res.MaxErrorRate = report.MaxErrorRate
	res.DecodeFailures = report.DecodeFailures
	res.Status = report.Status.String()

	return res
}

func (r *Runner) buildController(
	setup Setup,
	p Point,
	seed uint64,
) (*puf.Controller, error) {
	profile := setup.AgingProfile
	if profile == (sram.AgingProfile{}) {
		profile = sram.DefaultAgingProfile()
	}

	if p.StoragePattern != "" {
		profile.StoragePattern = p.StoragePattern
	}

	b := puf.MakeBuilder().
		WithNumCells(setup.NumCells).
		WithSeed(seed).
		WithStability(p.Stability.Resolved()).
		WithAgingProfile(profile)

	if setup.FlipModel != nil {
		b = b.WithFlipModel(setup.FlipModel)
	}

	if setup.Codec != nil {
		b = b.WithCodecFactory(setup.Codec)
	}

	c, err := b.Build()
	if err != nil {
		return nil, err
	}

	if r.counter != nil {
		tracing.CollectTrace(c, r.counter)
	}

	return c, nil
}

func (r *Runner) record(results []Result) error {
	if r.recorder == nil {
		return nil
	}

	if err := r.recorder.CreateTable(r.table, Result{}); err != nil {
		return err
	}

	for _, res := range results {
		if err := r.recorder.InsertData(r.table, res); err != nil {
			return err
		}
	}

	if err := r.recorder.Flush(); err != nil {
		return err
	}

	log.Printf("sweep: recorded %d results into %s", len(results), r.table)

	return nil
}
