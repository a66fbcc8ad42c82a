package sweep

import (
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the devices evaluated at one point.
type Summary struct {
	Point Point

	Devices int

	// Errored counts jobs that could not be evaluated. They are excluded
	// from the statistics.
	Errored int

	MeanErrorRate   float64
	StdDevErrorRate float64
	WorstErrorRate  float64
	MeanStableCells float64
	MeanStability   float64
	DecodeFailures  int
}

// Summarize groups results by point, in order of first appearance.
func Summarize(results []Result) []Summary {
	var order []Point

	groups := make(map[Point][]Result)
	for _, r := range results {
		p := r.Point()
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}

		groups[p] = append(groups[p], r)
	}

	summaries := make([]Summary, 0, len(order))
	for _, p := range order {
		summaries = append(summaries, summarizePoint(p, groups[p]))
	}

	return summaries
}

func summarizePoint(p Point, results []Result) Summary {
	s := Summary{Point: p, Devices: len(results)}

	var rates, stable, stability []float64
	for _, r := range results {
		if r.Error != "" {
			s.Errored++
			continue
		}

		rates = append(rates, r.MeanErrorRate)
		stable = append(stable, float64(r.StableCells))
		stability = append(stability, r.MeanStability)
		s.DecodeFailures += r.DecodeFailures

		if r.MaxErrorRate > s.WorstErrorRate {
			s.WorstErrorRate = r.MaxErrorRate
		}
	}

	switch len(rates) {
	case 0:
	case 1:
		s.MeanErrorRate = rates[0]
		s.MeanStableCells = stable[0]
		s.MeanStability = stability[0]
	default:
		s.MeanErrorRate, s.StdDevErrorRate = stat.MeanStdDev(rates, nil)
		s.MeanStableCells = stat.Mean(stable, nil)
		s.MeanStability = stat.Mean(stability, nil)
	}

	return s
}
