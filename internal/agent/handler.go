package agent

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/metrics"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/internal/utils"
)

var _ rpc.Handler = (*Manager)(nil)

// PortUpdate couples or decouples a known port following its admin state.
// Ports which aren't coupled to any NIC are ignored.
func (m *Manager) PortUpdate(ctx context.Context, port *rpc.Port) {
	logger := log.WithFunc("agent.PortUpdate").WithField("port", port.ID)
	logger.Debugf(ctx, "port update received, admin_state_up %v", port.AdminStateUp)

	binding, ok := m.ports.Get(port.ID)
	if !ok {
		return
	}
	free, ok := m.busy.Acquire(port.ID)
	if !ok {
		logger.Warnf(ctx, "port is being reconciled, skip the update")
		return
	}
	defer free()

	// entries are shared with the loop, so they are replaced, never changed in place
	updated := *binding
	updated.AdminStateUp = port.AdminStateUp
	if port.AdminStateUp {
		vdev, err := m.accessor.Couple(ctx, binding.Switch, port.ID, binding.UserID)
		if len(vdev) < 1 {
			logger.Error(ctx, err, "failed to couple port")
			metrics.IncrPortError("port_update")
			return
		}
		if err != nil {
			logger.Warnf(ctx, "port coupled in directory only: %s", err)
			metrics.IncrPortError("live_couple")
		}
		updated.VDev = vdev
		m.ports.Set(port.ID, &updated)
		m.mCol.setPort(&updated, true)
		if err := m.plugin.UpdateDeviceUp(ctx, port.ID, m.agentID, m.config.Host); err != nil {
			logger.Error(ctx, err, "failed to set device up")
		}
	} else {
		if err := m.accessor.Decouple(ctx, binding); err != nil {
			logger.Error(ctx, err, "failed to decouple port")
			metrics.IncrPortError("port_update")
			return
		}
		m.ports.Set(port.ID, &updated)
		m.mCol.setPort(&updated, false)
		if err := m.plugin.UpdateDeviceDown(ctx, port.ID, m.agentID, m.config.Host); err != nil {
			logger.Error(ctx, err, "failed to set device down")
		}
	}

	user, err := m.accessor.ZHCPUserID(ctx)
	if err != nil {
		logger.Error(ctx, err, "failed to get zHCP userid")
		return
	}
	if err := m.accessor.PutUserDirectOnline(ctx, user); err != nil {
		logger.Error(ctx, err, "failed to put user direct online")
	}
}

// NetworkDelete .
func (m *Manager) NetworkDelete(ctx context.Context, networkID string) {
	log.WithFunc("agent.NetworkDelete").Infof(ctx, "network delete received, UUID: %s", networkID)
}

// watch keeps a notification stream open, reconnecting after retry_delay.
func (m *Manager) watch(ctx context.Context) {
	logger := log.WithFunc("agent.watch").WithField("host", m.config.Host)
	for {
		err := m.plugin.Watch(ctx, m.config.Host, m)
		if ctx.Err() != nil {
			logger.Info(ctx, "context canceled, stop watching")
			return
		}
		if err != nil {
			logger.Error(ctx, err, "notification stream broken, will retry")
		}
		if !utils.Sleep(ctx, m.config.Monitor.RetryDelay.Duration()) {
			return
		}
	}
}
