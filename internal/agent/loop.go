package agent

import (
	"context"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/utils"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

type loopState int

const (
	statePolling loopState = iota
	stateConnectivityLost
)

func (s loopState) String() string {
	if s == stateConnectivityLost {
		return "connectivity-lost"
	}
	return "polling"
}

// loop runs one reconcile cycle every polling interval. A cycle that takes
// longer than the interval is followed by the next one right away.
func (m *Manager) loop(ctx context.Context) {
	logger := log.WithFunc("agent.loop").WithField("zhcp", m.zhcp)
	interval := m.config.PollingInterval.Duration()
	logger.Infof(ctx, "polling xCAT every %s", interval)

	for {
		start := time.Now()
		m.cycle(ctx)

		elapsed := time.Since(start)
		if elapsed < interval {
			if !utils.Sleep(ctx, interval-elapsed) {
				logger.Info(ctx, "context canceled, stop polling")
				return
			}
			continue
		}
		logger.Debugf(ctx, "looping iteration exceeded interval, took %s", elapsed)
		if ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) cycle(ctx context.Context) {
	logger := log.WithFunc("agent.cycle")

	added, removed, err := m.diff(ctx)
	if err != nil {
		if terrors.IsConnectionFailure(err) {
			logger.Errorf(ctx, err, "lost connection to xCAT")
		} else {
			logger.Error(ctx, err, "error in xCAT DB query loop")
		}
		return
	}
	if len(added) < 1 && len(removed) < 1 {
		return
	}

	logger.Infof(ctx, "devices change, added %v, removed %v", added, removed)
	m.treatDevicesAdded(ctx, added)
	m.treatDevicesRemoved(ctx, removed)
}

// diff compares the ports xCAT lists for the zHCP node with the ones seen by
// the previous cycle. The first successful diff only records what exists.
func (m *Manager) diff(ctx context.Context) (added, removed []string, err error) {
	rows, err := m.accessor.ListNICBindings(ctx, m.zhcp)
	if err != nil {
		if terrors.IsConnectionFailure(err) {
			m.setState(ctx, stateConnectivityLost)
		}
		return nil, nil, err
	}
	m.setState(ctx, statePolling)

	current := mapset.NewSet[string]()
	for _, row := range rows {
		current.Add(row.Port)
	}

	if !m.primed {
		m.primed = true
		m.registered = current
		log.WithFunc("agent.diff").Infof(ctx, "%d existing ports found", current.Cardinality())
		return nil, nil, nil
	}
	if current.Equal(m.registered) {
		return nil, nil, nil
	}

	added = current.Difference(m.registered).ToSlice()
	removed = m.registered.Difference(current).ToSlice()
	sort.Strings(added)
	sort.Strings(removed)
	m.registered = current
	return added, removed, nil
}

// setState wakes the restart monitor when xCAT becomes reachable again.
func (m *Manager) setState(ctx context.Context, next loopState) {
	m.mCol.xcatConnected.Store(next == statePolling)
	if m.state == next {
		return
	}
	prev := m.state
	m.state = next
	log.WithFunc("agent.setState").Infof(ctx, "loop state %s -> %s", prev, next)
	if prev == stateConnectivityLost && next == statePolling {
		m.kick()
	}
}
