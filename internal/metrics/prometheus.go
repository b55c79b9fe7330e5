package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records rota activity in Prometheus. It satisfies period.Metrics.
type Collector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	operations       *prometheus.CounterVec
	periodsGenerated prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	wsClients        prometheus.Gauge
}

// NewPrometheus creates a collector registered on reg (prometheus.DefaultRegisterer
// if nil) under namespace ("flatrota" if empty). Metrics are registered lazily
// on first use.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "flatrota"
	}
	return &Collector{reg: reg, namespace: namespace}
}

func (c *Collector) ensureRegistered() {
	c.once.Do(func() {
		c.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "periods",
			Name:      "operations_total",
			Help:      "Period operations by name and outcome kind.",
		}, []string{"op", "result"})

		c.periodsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "periods",
			Name:      "generated_total",
			Help:      "Periods persisted by successful generation runs.",
		})

		c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"})

		c.httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"route"})

		c.wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		})

		c.reg.MustRegister(c.operations)
		c.reg.MustRegister(c.periodsGenerated)
		c.reg.MustRegister(c.httpRequests)
		c.reg.MustRegister(c.httpLatency)
		c.reg.MustRegister(c.wsClients)
	})
}

// Operation counts one finished period operation.
func (c *Collector) Operation(op, result string) {
	c.ensureRegistered()
	c.operations.WithLabelValues(op, result).Inc()
}

// PeriodsGenerated adds n freshly stored periods.
func (c *Collector) PeriodsGenerated(n int) {
	c.ensureRegistered()
	c.periodsGenerated.Add(float64(n))
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.ensureRegistered()
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// SetWebsocketClients sets the connected websocket client count.
func (c *Collector) SetWebsocketClients(n int) {
	c.ensureRegistered()
	c.wsClients.Set(float64(n))
}
