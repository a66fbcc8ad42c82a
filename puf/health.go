package puf

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/pufsim/bitstring"
	"github.com/sarchlab/pufsim/hooking"
	"github.com/sarchlab/pufsim/sram"
)

// HealthStatus grades a health check.
type HealthStatus int

// Health grades, from best to worst.
const (
	HealthOK HealthStatus = iota
	HealthWarning
	HealthFailure
)

// Bit error rates above which a device is graded as warning or failure.
const (
	WarningThreshold = 0.10
	FailureThreshold = 0.25
)

func (s HealthStatus) String() string {
	switch s {
	case HealthOK:
		return "OK"
	case HealthWarning:
		return "WARNING"
	case HealthFailure:
		return "CRITICAL_FAILURE"
	default:
		return fmt.Sprintf("HealthStatus(%d)", int(s))
	}
}

// GradeErrorRate maps a bit error rate to a health status.
func GradeErrorRate(ber float64) HealthStatus {
	switch {
	case ber > FailureThreshold:
		return HealthFailure
	case ber > WarningThreshold:
		return HealthWarning
	default:
		return HealthOK
	}
}

// HealthReport summarizes repeated queries against the golden response.
type HealthReport struct {
	Conditions sram.Conditions
	Trials     int

	// Corrected tells whether the error rates were measured after error
	// correction.
	Corrected bool

	// MeanErrorRate is the mean fraction of bits that differ from the golden
	// response.
	MeanErrorRate   float64
	StdDevErrorRate float64
	MaxErrorRate    float64

	// DecodeFailures counts queries the codec could not correct. Their
	// error rate is measured on the raw response.
	DecodeFailures int

	Status   HealthStatus
	AgeHours float64

	// MeanStability is the average effective cell stability at the time of
	// the check.
	MeanStability float64
}

// Passed reports whether the device is still usable.
func (r HealthReport) Passed() bool {
	return r.Status != HealthFailure
}

// CheckHealth queries the controller trials times and compares every
// response with the golden response. With corrected set, responses go
// through the codec first.
func (c *Controller) CheckHealth(
	cond sram.Conditions,
	trials int,
	corrected bool,
) (HealthReport, error) {
	if c.state != StateEnrolled {
		return HealthReport{}, ErrNotEnrolled
	}

	if trials <= 0 {
		return HealthReport{}, configErrorf("trials", "%d, need at least one",
			trials)
	}

	report := HealthReport{
		Conditions: cond,
		Trials:     trials,
		Corrected:  corrected,
		AgeHours:   c.ageHours,

		MeanStability: c.array.MeanStability(),
	}

	rates := make([]float64, trials)
	for i := range rates {
		q, err := c.query(cond, corrected)
		if err != nil {
			return HealthReport{}, err
		}

		bits := q.Response.Bits
		if !q.Response.OK() {
			report.DecodeFailures++
			bits = q.Raw
		}

		rate, err := bitstring.ErrorRate(bits, c.golden)
		if err != nil {
			return HealthReport{}, err
		}

		rates[i] = rate
		if rate > report.MaxErrorRate {
			report.MaxErrorRate = rate
		}
	}

	if trials == 1 {
		report.MeanErrorRate = rates[0]
	} else {
		report.MeanErrorRate, report.StdDevErrorRate = stat.MeanStdDev(rates, nil)
	}

	report.Status = GradeErrorRate(report.MeanErrorRate)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosHealthChecked,
		Item:   report,
	})

	return report, nil
}
