package agent

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/metrics"
	"github.com/openstack-archive/networking-zvm/internal/network"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

func (m *Manager) treatDevicesAdded(ctx context.Context, devices []string) {
	for _, device := range devices {
		logger := log.WithFunc("agent.treatDevicesAdded").WithField("port", device).WithField("host", m.config.Host)
		logger.Infof(ctx, "adding port %s", device)

		details, err := m.plugin.GetDeviceDetails(ctx, device, m.agentID)
		if err != nil {
			logger.Warnf(ctx, "unable to get port details for %s: %s", device, err)
			metrics.IncrPortError("get_device_details")
			continue
		}
		if !details.Known() {
			logger.Warnf(ctx, "device %s not defined on the control plane", device)
			continue
		}

		free, ok := m.busy.Wait(ctx, device)
		if !ok {
			return
		}
		err = m.addDevice(ctx, device, details)
		free()
		if err != nil {
			logger.Errorf(ctx, err, "can not add device %s", device)
			metrics.IncrPortError("add")
		}
	}
}

func (m *Manager) addDevice(ctx context.Context, device string, details *rpc.DeviceDetails) error {
	logger := log.WithFunc("agent.addDevice").WithField("port", details.PortID)

	ident, err := m.accessor.ResolveGuestIdentity(ctx, details.PortID)
	if err != nil {
		return err
	}

	vswitch := details.PhysicalNetwork
	vlan := ""
	if details.NetworkType == network.VLANType {
		vlan = details.SegmentationID
	}

	if err := m.accessor.Grant(ctx, vswitch, ident.UserID); err != nil {
		return errors.Wrapf(err, "grant %s to %s", ident.UserID, vswitch)
	}

	binding := &zvm.PortBinding{
		PortID:       device,
		NodeName:     ident.Node,
		UserID:       ident.UserID,
		Switch:       vswitch,
		VLAN:         vlan,
		AdminStateUp: details.AdminStateUp,
	}
	if details.AdminStateUp {
		vdev, err := m.accessor.Couple(ctx, vswitch, details.PortID, ident.UserID)
		switch {
		case err != nil && len(vdev) < 1:
			return err
		case err != nil:
			// the directory holds the couple, the guest gets it on next boot
			logger.Warnf(ctx, "port coupled in directory only: %s", err)
			metrics.IncrPortError("live_couple")
		}
		binding.VDev = vdev
	}
	// from here on the port has to be in the map, or its removal can't revoke the user
	m.ports.Set(device, binding)
	m.mCol.setPort(binding, details.AdminStateUp)

	if details.AdminStateUp && details.NetworkType == network.VLANType {
		logger.Infof(ctx, "binding VLAN %s", vlan)
		if err := m.accessor.SetVLAN(ctx, vlan, details.PortID, vswitch); err != nil {
			return err
		}
	}

	// no rollback if this fails
	if err := m.accessor.UpdateSwitchTable(ctx, details.PortID, vswitch, vlan); err != nil {
		logger.Warnf(ctx, "failed to update switch table: %s", err)
		metrics.IncrPortError("update_switch_table")
	}

	if details.AdminStateUp {
		logger.Infof(ctx, "setting status for %s to UP", device)
		return m.plugin.UpdateDeviceUp(ctx, device, m.agentID, m.config.Host)
	}
	logger.Infof(ctx, "setting status for %s to DOWN", device)
	return m.plugin.UpdateDeviceDown(ctx, device, m.agentID, m.config.Host)
}

func (m *Manager) treatDevicesRemoved(ctx context.Context, devices []string) {
	for _, device := range devices {
		logger := log.WithFunc("agent.treatDevicesRemoved").WithField("port", device).WithField("host", m.config.Host)
		logger.Infof(ctx, "removing port %s", device)

		binding, ok := m.ports.Get(device)
		if !ok {
			logger.Warnf(ctx, "can't find port %s in zvm agent", device)
			continue
		}
		free, ok := m.busy.Wait(ctx, device)
		if !ok {
			return
		}
		err := m.removeDevice(ctx, binding)
		free()
		if err != nil {
			logger.Errorf(ctx, err, "removing port %s failed", device)
			metrics.IncrPortError("remove")
		}
	}
}

// removeDevice revokes the user even if the NIC can't be decoupled, z/VM
// uncouples it on revoke anyway. A failed revoke or down notification keeps
// the entry.
func (m *Manager) removeDevice(ctx context.Context, binding *zvm.PortBinding) error {
	if len(binding.Switch) > 0 {
		if err := m.accessor.Decouple(ctx, binding); err != nil {
			log.WithFunc("agent.removeDevice").WithField("port", binding.PortID).Warnf(ctx, "decouple failed, revoke anyway: %s", err)
			metrics.IncrPortError("decouple")
		}
		if err := m.accessor.Revoke(ctx, binding.Switch, binding.UserID); err != nil {
			return errors.Wrapf(err, "revoke %s from %s", binding.UserID, binding.Switch)
		}
	}
	if err := m.plugin.UpdateDeviceDown(ctx, binding.PortID, m.agentID, m.config.Host); err != nil {
		return err
	}
	m.ports.Del(binding.PortID)
	m.mCol.delPort(binding.PortID)
	return nil
}
