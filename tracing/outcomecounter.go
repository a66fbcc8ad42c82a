package tracing

import (
	"sync"

	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/puf"
)

// OutcomeCounts is a snapshot of an OutcomeCounter.
type OutcomeCounts struct {
	Queries       uint64
	Uncoded       uint64
	Clean         uint64
	Corrected     uint64
	Uncorrectable uint64

	// RawBitErrors is the total number of raw bits that differed from the
	// golden response.
	RawBitErrors uint64

	// CorrectedBits is the total number of bits fixed by codecs.
	CorrectedBits uint64

	// Drifted is the total number of cells that drifted permanently.
	Drifted uint64
}

// FailureRate returns the fraction of decoded queries that could not be
// corrected.
func (c OutcomeCounts) FailureRate() float64 {
	decoded := c.Clean + c.Corrected + c.Uncorrectable
	if decoded == 0 {
		return 0
	}

	return float64(c.Uncorrectable) / float64(decoded)
}

// OutcomeCounter counts query outcomes. It can be shared by many
// controllers.
type OutcomeCounter struct {
	lock   sync.Mutex
	counts OutcomeCounts
}

// NewOutcomeCounter creates an empty counter.
func NewOutcomeCounter() *OutcomeCounter {
	return &OutcomeCounter{}
}

// TraceQuery counts one query.
func (t *OutcomeCounter) TraceQuery(_ string, q puf.Query) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts.Queries++
	t.counts.RawBitErrors += uint64(q.RawErrors)

	if !q.Response.Decoded {
		t.counts.Uncoded++
		return
	}

	switch q.Response.Outcome {
	case ecc.OutcomeClean:
		t.counts.Clean++
	case ecc.OutcomeCorrected:
		t.counts.Corrected++
		t.counts.CorrectedBits += uint64(q.Response.CorrectedErrors)
	case ecc.OutcomeUncorrectable:
		t.counts.Uncorrectable++
	}
}

// TraceAging counts drifted cells.
func (t *OutcomeCounter) TraceAging(_ string, drifted int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts.Drifted += uint64(drifted)
}

// Counts returns a snapshot of the counts.
func (t *OutcomeCounter) Counts() OutcomeCounts {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts
}
