package metrics

import (
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DefaultLabels .
	DefaultLabels = []string{"host"}

	// MetricPortErrors counts failed port operations by operation.
	MetricPortErrors = "zvm_agent_port_errors_total"

	mu   sync.RWMutex
	metr *Metrics
)

// Setup registers the agent counters and the given collectors on the default registry.
func Setup(hn string, cols ...prometheus.Collector) error {
	m := New(hn, prometheus.DefaultRegisterer)
	if err := m.RegisterCounter(MetricPortErrors, "failed port operations", []string{"op"}); err != nil {
		return err
	}
	for _, col := range cols {
		if err := prometheus.Register(col); err != nil {
			return errors.Wrap(err, "")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	metr = m
	return nil
}

// Metrics .
type Metrics struct {
	host       string
	reg        prometheus.Registerer
	collectors map[string]prometheus.Collector
}

// New .
func New(host string, reg prometheus.Registerer) *Metrics {
	return &Metrics{
		host:       host,
		reg:        reg,
		collectors: map[string]prometheus.Collector{},
	}
}

// RegisterCounter .
func (m *Metrics) RegisterCounter(name, desc string, labels []string) error {
	var col = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: desc,
		},
		mergeLabels(labels),
	)

	if err := m.reg.Register(col); err != nil {
		return errors.Wrap(err, "")
	}
	m.collectors[name] = col

	return nil
}

// RegisterGauge .
func (m *Metrics) RegisterGauge(name, desc string, labels []string) error {
	var col = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: desc,
		},
		mergeLabels(labels),
	)

	if err := m.reg.Register(col); err != nil {
		return errors.Wrap(err, "")
	}
	m.collectors[name] = col

	return nil
}

// Incr .
func (m *Metrics) Incr(name string, labels map[string]string) error {
	var collector, exists = m.collectors[name]
	if !exists {
		return errors.Errorf("collector %s not found", name)
	}

	labels = m.appendLabel(labels, "host", m.host)
	switch col := collector.(type) {
	case *prometheus.GaugeVec:
		col.With(labels).Inc()
	case *prometheus.CounterVec:
		col.With(labels).Inc()
	default:
		return errors.Errorf("collector %s is not counter or gauge", name)
	}

	return nil
}

// Store .
func (m *Metrics) Store(name string, value float64, labels map[string]string) error {
	var collector, exists = m.collectors[name]
	if !exists {
		return errors.Errorf("collector %s not found", name)
	}

	labels = m.appendLabel(labels, "host", m.host)
	switch col := collector.(type) {
	case *prometheus.GaugeVec:
		col.With(labels).Set(value)
	default:
		return errors.Errorf("collector %s is not gauge", name)
	}

	return nil
}

func (m *Metrics) appendLabel(labels map[string]string, key, value string) map[string]string {
	if labels != nil {
		labels[key] = value
	} else {
		labels = map[string]string{key: value}
	}
	return labels
}

func mergeLabels(labels []string) []string {
	merged := append([]string{}, labels...)
	for _, l := range DefaultLabels {
		found := false
		for _, x := range labels {
			found = found || x == l
		}
		if !found {
			merged = append(merged, l)
		}
	}
	return merged
}

// Handler .
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncrPortError counts a failed port operation. It is a no-op before Setup.
func IncrPortError(op string) {
	_ = Incr(MetricPortErrors, map[string]string{"op": op})
}

// Incr .
func Incr(name string, labels map[string]string) error {
	mu.RLock()
	defer mu.RUnlock()
	if metr == nil {
		return nil
	}
	return metr.Incr(name, labels)
}
