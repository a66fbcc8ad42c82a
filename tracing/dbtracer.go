package tracing

import (
	"log"
	"sync/atomic"

	"github.com/sarchlab/pufsim/datarecording"
	"github.com/sarchlab/pufsim/puf"
)

type queryRow struct {
	Seq             uint64
	Controller      string
	Temperature     float64
	VoltageRatio    float64
	AgingFactor     float64
	FlipProbability float64
	ResponseBits    int
	RawErrors       int
	Decoded         bool
	Outcome         string
	CorrectedErrors int
}

// DBTracer writes every query as a row of a table.
type DBTracer struct {
	recorder datarecording.Recorder
	table    string
	seq      uint64
}

// NewDBTracer creates the table and returns a tracer writing into it.
func NewDBTracer(
	recorder datarecording.Recorder,
	table string,
) (*DBTracer, error) {
	if err := recorder.CreateTable(table, queryRow{}); err != nil {
		return nil, err
	}

	return &DBTracer{recorder: recorder, table: table}, nil
}

// TraceQuery records q. Recording errors are logged since hooks cannot fail.
func (t *DBTracer) TraceQuery(domain string, q puf.Query) {
	row := queryRow{
		Seq:             atomic.AddUint64(&t.seq, 1),
		Controller:      domain,
		Temperature:     q.Conditions.Temperature,
		VoltageRatio:    q.Conditions.VoltageRatio,
		AgingFactor:     q.Conditions.AgingFactor,
		FlipProbability: q.FlipProbability,
		ResponseBits:    len(q.Raw),
		RawErrors:       q.RawErrors,
		Decoded:         q.Response.Decoded,
		Outcome:         q.Response.Outcome.String(),
		CorrectedErrors: q.Response.CorrectedErrors,
	}

	if err := t.recorder.InsertData(t.table, row); err != nil {
		log.Printf("tracing: %v", err)
	}
}
