// Package monitoring serves the state of running PUF controllers and sweeps
// over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pufsim/idgen"
	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/tracing"
)

// Monitor exposes registered controllers, progress bars, and outcome counters
// through a JSON API.
//
// Registered controllers are driven by the monitor's health endpoint. They
// must not be used by other goroutines while the server runs.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration

	lock         sync.Mutex
	controllers  []*puf.Controller
	counters     map[string]*tracing.OutcomeCounter
	progressBars []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		counters:        make(map[string]*tracing.OutcomeCounter),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithProfileDuration sets how long the profile endpoint samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterController makes a controller visible to the monitor.
func (m *Monitor) RegisterController(c *puf.Controller) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.controllers = append(m.controllers, c)
}

// RegisterCounter publishes an outcome counter under a name.
func (m *Monitor) RegisterCounter(name string, c *tracing.OutcomeCounter) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.counters[name] = c
}

// CreateProgressBar creates a progress bar shown by the monitor.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        idgen.Get().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar stops showing a progress bar.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.lock.Lock()
	defer m.lock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			bars = append(bars, b)
		}
	}

	m.progressBars = bars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_controllers", m.listControllers)
	r.HandleFunc("/api/controller/{name}", m.controllerDetails)
	r.HandleFunc("/api/controller/{name}/health", m.controllerHealth)
	r.HandleFunc("/api/counters", m.listCounters)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer serves the monitor in the background and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	addr := ":0"
	if m.portNumber > 1000 {
		addr = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring PUF simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	return url, nil
}

func (m *Monitor) listControllers(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.controllers))
	for _, c := range m.controllers {
		names = append(names, c.Name())
	}
	m.lock.Unlock()

	writeJSON(w, names)
}

func (m *Monitor) findControllerOr404(
	w http.ResponseWriter,
	name string,
) *puf.Controller {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, c := range m.controllers {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Controller not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) controllerDetails(w http.ResponseWriter, r *http.Request) {
	c := m.findControllerOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(c)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type healthRsp struct {
	Controller     string  `json:"controller"`
	Trials         int     `json:"trials"`
	Corrected      bool    `json:"corrected"`
	MeanErrorRate  float64 `json:"mean_error_rate"`
	StdDevRate     float64 `json:"std_dev_error_rate"`
	MaxErrorRate   float64 `json:"max_error_rate"`
	DecodeFailures int     `json:"decode_failures"`
	Status         string  `json:"status"`
	AgeHours       float64 `json:"age_hours"`
	MeanStability  float64 `json:"mean_stability"`
}

func (m *Monitor) controllerHealth(w http.ResponseWriter, r *http.Request) {
	c := m.findControllerOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	cond, trials, corrected, err := parseHealthParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.lock.Lock()
	report, err := c.CheckHealth(cond, trials, corrected)
	m.lock.Unlock()

	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, healthRsp{
		Controller:     c.Name(),
		Trials:         report.Trials,
		Corrected:      report.Corrected,
		MeanErrorRate:  report.MeanErrorRate,
		StdDevRate:     report.StdDevErrorRate,
		MaxErrorRate:   report.MaxErrorRate,
		DecodeFailures: report.DecodeFailures,
		Status:         report.Status.String(),
		AgeHours:       report.AgeHours,
		MeanStability:  report.MeanStability,
	})
}

// maxHealthTrials bounds a health check over HTTP. The check holds the
// monitor lock for its whole duration.
const maxHealthTrials = 10000

func parseHealthParams(
	r *http.Request,
) (cond sram.Conditions, trials int, corrected bool, err error) {
	cond = sram.Nominal(0)
	trials = 100
	q := r.URL.Query()

	floats := map[string]*float64{
		"temperature":   &cond.Temperature,
		"voltage_ratio": &cond.VoltageRatio,
		"aging_factor":  &cond.AgingFactor,
	}

	for key, dst := range floats {
		if s := q.Get(key); s != "" {
			if *dst, err = strconv.ParseFloat(s, 64); err != nil {
				return cond, 0, false, fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	if s := q.Get("trials"); s != "" {
		if trials, err = strconv.Atoi(s); err != nil {
			return cond, 0, false, fmt.Errorf("trials: %w", err)
		}

		if trials < 1 || trials > maxHealthTrials {
			return cond, 0, false, fmt.Errorf("trials: %d is outside [1, %d]",
				trials, maxHealthTrials)
		}
	}

	if s := q.Get("corrected"); s != "" {
		if corrected, err = strconv.ParseBool(s); err != nil {
			return cond, 0, false, fmt.Errorf("corrected: %w", err)
		}
	}

	return cond, trials, corrected, nil
}

type counterRsp struct {
	Name string `json:"name"`
	tracing.OutcomeCounts
	FailureRate float64 `json:"failure_rate"`
}

func (m *Monitor) listCounters(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := make([]counterRsp, 0, len(m.counters))
	for name, c := range m.counters {
		counts := c.Counts()
		rsp = append(rsp, counterRsp{
			Name:          name,
			OutcomeCounts: counts,
			FailureRate:   counts.FailureRate(),
		})
	}
	m.lock.Unlock()

	sort.Slice(rsp, func(i, j int) bool { return rsp[i].Name < rsp[j].Name })

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	bars := make([]ProgressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.lock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	p, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := p.CPUPercent()
	dieOnErr(err)

	memory, err := p.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
