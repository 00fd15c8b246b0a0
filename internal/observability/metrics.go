package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inkrelay"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	bytesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "bytes_ingested_total",
			Help:      "Bytes read from the transport into the frame window.",
		},
		[]string{"session"},
	)
	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Extracted frames by opcode and outcome.",
		},
		[]string{"session", "opcode", "outcome"},
	)
	responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "responses_total",
			Help:      "Responses written back to the host.",
		},
		[]string{"session", "opcode", "success"},
	)
	imageDraws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blobstore",
			Name:      "draws_total",
			Help:      "Image draw requests by result.",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bytesIngested, frames, responses, imageDraws)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordBytesIngested(session string, n int) {
	RegisterMetrics()
	bytesIngested.WithLabelValues(session).Add(float64(n))
}

func RecordFrame(session, opcode, outcome string) {
	RegisterMetrics()
	frames.WithLabelValues(session, opcode, outcome).Inc()
}

func RecordResponse(session, opcode string, success bool) {
	RegisterMetrics()
	responses.WithLabelValues(session, opcode, strconv.FormatBool(success)).Inc()
}

func RecordImageDraw(result int) {
	RegisterMetrics()
	imageDraws.WithLabelValues(strconv.Itoa(result)).Inc()
}
