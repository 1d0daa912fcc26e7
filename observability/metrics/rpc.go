package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics tracks request volume, failures and latency of the JSON-RPC
// surface, labelled by method.
type RPCMetrics struct {
	requests  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttled prometheus.Counter
}

var (
	rpcOnce     sync.Once
	rpcRegistry *RPCMetrics
)

// RPC returns the process-wide RPC metrics, registering them on first use.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ewill_rpc_requests_total",
				Help: "Count of JSON-RPC requests by method.",
			}, []string{"method"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ewill_rpc_failures_total",
				Help: "Count of failed JSON-RPC requests by method and error kind.",
			}, []string{"method", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "ewill_rpc_request_seconds",
				Help:    "JSON-RPC request handling latency by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
			throttled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ewill_rpc_throttled_total",
				Help: "Count of requests rejected by the rate limiter.",
			}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.failures,
			rpcRegistry.latency,
			rpcRegistry.throttled,
		)
	})
	return rpcRegistry
}

func (m *RPCMetrics) ObserveRequest(method string, took time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method).Inc()
	m.latency.WithLabelValues(method).Observe(took.Seconds())
}

func (m *RPCMetrics) ObserveFailure(method, kind string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	if kind == "" {
		kind = "unknown"
	}
	m.failures.WithLabelValues(method, kind).Inc()
}

func (m *RPCMetrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}
