package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pufsim/puf"
	"github.com/sarchlab/pufsim/sram"
	"github.com/sarchlab/pufsim/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		c      *puf.Controller
		server *httptest.Server
	)

	get := func(path string) (int, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, body
	}

	BeforeEach(func() {
		var err error
		c, err = puf.MakeBuilder().
			WithNumCells(512).
			WithName("dut").
			WithStability(sram.FixedStability(1)).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Enroll(puf.DefaultEnrollSpec())).To(Succeed())

		m = NewMonitor().WithProfileDuration(50 * time.Millisecond)
		m.RegisterController(c)
		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should list controllers", func() {
		code, body := get("/api/list_controllers")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`["dut"]`))
	})

	It("should serialize a controller", func() {
		code, body := get("/api/controller/dut")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should return 404 for unknown controllers", func() {
		code, _ := get("/api/controller/nobody")
		Expect(code).To(Equal(http.StatusNotFound))

		code, _ = get("/api/controller/nobody/health")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should run a health check", func() {
		code, body := get("/api/controller/dut/health?aging_factor=0.3&trials=10")
		Expect(code).To(Equal(http.StatusOK))

		var rsp healthRsp
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.Trials).To(Equal(10))
		Expect(rsp.MeanErrorRate).To(BeNumerically("~", 0.3, 0.05))
		Expect(rsp.Status).To(Equal(puf.HealthFailure.String()))
		Expect(rsp.MeanStability).To(Equal(1.0))
	})

	It("should reject malformed health parameters", func() {
		code, _ := get("/api/controller/dut/health?temperature=hot")
		Expect(code).To(Equal(http.StatusBadRequest))

		code, _ = get("/api/controller/dut/health?trials=0")
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should cap the number of health trials", func() {
		code, body := get("/api/controller/dut/health?trials=10001")
		Expect(code).To(Equal(http.StatusBadRequest))
		Expect(string(body)).To(ContainSubstring("10000"))

		code, _ = get("/api/controller/dut/health?trials=10000&aging_factor=0")
		Expect(code).To(Equal(http.StatusOK))
	})

	It("should report conflicts from the controller", func() {
		spare, err := puf.MakeBuilder().WithNumCells(8).WithName("spare").Build()
		Expect(err).NotTo(HaveOccurred())
		m.RegisterController(spare)

		code, _ := get("/api/controller/spare/health")
		Expect(code).To(Equal(http.StatusConflict))
	})

	It("should show progress bars until completed", func() {
		bar := m.CreateProgressBar("sweep", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2, false)
		bar.MoveInProgressToFinished(1, true)

		_, body := get("/api/progress")
		var bars []ProgressSnapshot
		Expect(json.Unmarshal(body, &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].Failed).To(Equal(uint64(1)))
		Expect(bars[0].InProgress).To(BeZero())

		m.CompleteProgressBar(bar)

		_, body = get("/api/progress")
		Expect(body).To(MatchJSON(`[]`))
	})

	It("should publish counters", func() {
		counter := tracing.NewOutcomeCounter()
		tracing.CollectTrace(c, counter)
		m.RegisterCounter("dut", counter)

		_, err := c.GetResponse(sram.Nominal(0.1))
		Expect(err).NotTo(HaveOccurred())

		_, body := get("/api/counters")
		var rsp []counterRsp
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("dut"))
		Expect(rsp[0].Queries).To(Equal(uint64(1)))
	})

	It("should report resources", func() {
		code, body := get("/api/resource")
		Expect(code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		code, body := get("/api/profile")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})
})
