package agent

import (
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"github.com/projecteru2/core/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

var (
	xcatConnectedDesc = prometheus.NewDesc(
		prometheus.BuildFQName("zvm", "agent", "xcat_connected"),
		"Whether the last xCAT poll succeeded.",
		[]string{"host"},
		nil)
	portBoundDesc = prometheus.NewDesc(
		prometheus.BuildFQName("zvm", "agent", "port_bound"),
		"1 if the port is coupled and up, 0 if it is only granted.",
		[]string{"port", "switch", "userid", "vlan"},
		nil)
	rebuildTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName("zvm", "agent", "rebuild_total"),
		"Number of port map rebuilds after a z/VM restart.",
		[]string{"host"},
		nil)
)

type portStatus struct {
	binding *zvm.PortBinding
	up      bool
}

// MetricsCollector .
type MetricsCollector struct {
	host          string
	portCache     *cache.Cache
	xcatConnected atomic.Bool
	rebuilds      atomic.Uint64
}

func newMetricsCollector(host string) *MetricsCollector {
	return &MetricsCollector{
		host:      host,
		portCache: cache.New(cache.NoExpiration, 0),
	}
}

// GetMetricsCollector .
func (m *Manager) GetMetricsCollector() *MetricsCollector {
	return m.mCol
}

func (e *MetricsCollector) setPort(b *zvm.PortBinding, up bool) {
	e.portCache.Set(b.PortID, &portStatus{binding: b, up: up}, cache.NoExpiration)
}

func (e *MetricsCollector) delPort(id string) {
	e.portCache.Delete(id)
}

func (e *MetricsCollector) resetPorts(bindings map[string]*zvm.PortBinding) {
	e.portCache.Flush()
	for _, b := range bindings {
		e.setPort(b, true)
	}
}

// Describe .
func (e *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- xcatConnectedDesc
	ch <- portBoundDesc
	ch <- rebuildTotalDesc
}

// Collect .
func (e *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	logger := log.WithFunc("agent.MetricsCollector.Collect")
	for id, v := range e.portCache.Items() {
		st, _ := v.Object.(*portStatus)
		if st == nil || st.binding == nil {
			logger.Warnf(context.TODO(), "[BUG] port status of %s can't be nil here", id)
			continue
		}
		bound := 0
		if st.up {
			bound = 1
		}
		ch <- prometheus.MustNewConstMetric(
			portBoundDesc,
			prometheus.GaugeValue,
			float64(bound),
			st.binding.PortID,
			st.binding.Switch,
			st.binding.UserID,
			st.binding.VLAN,
		)
	}

	connected := 0
	if e.xcatConnected.Load() {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(xcatConnectedDesc, prometheus.GaugeValue, float64(connected), e.host)
	ch <- prometheus.MustNewConstMetric(rebuildTotalDesc, prometheus.CounterValue, float64(e.rebuilds.Load()), e.host)
}
