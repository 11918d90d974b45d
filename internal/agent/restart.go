package agent

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"
	"github.com/samber/lo"

	"github.com/openstack-archive/networking-zvm/internal/zvm"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// kick wakes the monitor. Pending triggers coalesce.
func (m *Manager) kick() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// monitor reacts to triggers until ctx is done. A configuration error stops
// it and the whole agent.
func (m *Manager) monitor(ctx context.Context) {
	logger := log.WithFunc("agent.monitor")
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "context canceled, stop monitoring")
			return
		case <-m.trigger:
			err := m.handleRestart(ctx)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return
			default:
				m.fail(err)
				return
			}
		}
	}
}

// handleRestart rebuilds until it succeeds, retrying every retry_delay.
// Only a configuration error or ctx ends it early.
func (m *Manager) handleRestart(ctx context.Context) error {
	logger := log.WithFunc("agent.handleRestart")
	bo := backoff.WithContext(backoff.NewConstantBackOff(m.config.Monitor.RetryDelay.Duration()), ctx)

	return backoff.Retry(func() error {
		logger.Info(ctx, "try to reinitialize network")
		err := m.rebuild(ctx)
		switch {
		case err == nil:
			return nil
		case terrors.IsConfiguration(err):
			return backoff.Permanent(err)
		default:
			logger.Errorf(ctx, err, "failed to handle restart, try again in %s", m.config.Monitor.RetryDelay)
			return err
		}
	}, bo)
}

// rebuild compares both fingerprints with the last seen ones. A new xCAT
// fingerprint means the management network has to be checked again, a new
// z/VM fingerprint means every vswitch grant is gone.
func (m *Manager) rebuild(ctx context.Context) error {
	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()

	fp, err := m.accessor.QueryFingerprint(ctx, zvm.TargetXCAT)
	if err != nil {
		return err
	}
	if fp != m.xcatFP {
		if err := m.initXCATMgt(ctx); err != nil {
			return err
		}
		m.xcatFP = fp
	}

	fp, err = m.accessor.QueryFingerprint(ctx, zvm.TargetZVM)
	if err != nil {
		return err
	}
	if fp == m.zvmFP {
		return nil
	}

	bindings, err := m.accessor.BulkRegrant(ctx, m.config.XCAT.MaxRegrantBatch)
	if bindings != nil {
		m.ports.Replace(bindings)
		m.mCol.resetPorts(bindings)
		m.mCol.rebuilds.Add(1)
		logger := log.WithFunc("agent.rebuild")
		logger.Infof(ctx, "port map rebuilt with %d ports", len(bindings))
		logger.Debugf(ctx, "rebuilt ports %v", lo.Map(m.ports.Snapshot(), func(b *zvm.PortBinding, _ int) string {
			return b.PortID + "@" + b.Switch
		}))
	}
	if err != nil {
		return err
	}
	m.zvmFP = fp
	return nil
}

// initXCATMgt wires the xCAT node into the first flat network, which is how
// it reaches every guest.
func (m *Manager) initXCATMgt(ctx context.Context) error {
	logger := log.WithFunc("agent.initXCATMgt")
	ip, mask := m.config.XCAT.MgtIP, m.config.XCAT.MgtMask
	if len(ip) < 1 || len(mask) < 1 {
		logger.Info(ctx, "management IP is not configured, skip xCAT management network")
		return nil
	}
	vswitch, ok := m.vswitches.MgtVswitch()
	if !ok {
		return terrors.Newf(terrors.ErrConfiguration, "can not find xCAT management network, a flat network is required by xCAT")
	}
	logger.Infof(ctx, "xCAT management network on %s, created by this agent: %v", vswitch, m.vswitches.Managed(vswitch))
	if err := m.accessor.CreateMgtNetwork(ctx, ip, mask, vswitch); err != nil {
		return errors.Wrap(err, "init xCAT management network")
	}
	return nil
}
