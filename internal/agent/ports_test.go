package agent

import (
	"context"
	"testing"

	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
	"github.com/openstack-archive/networking-zvm/pkg/test/assert"
	"github.com/openstack-archive/networking-zvm/pkg/test/mock"
)

func vlanPort(id string, up bool) *rpc.Port {
	return &rpc.Port{
		ID:              id,
		NetworkID:       "net-1",
		NetworkType:     "vlan",
		PhysicalNetwork: "VSW1",
		SegmentationID:  "12",
		AdminStateUp:    up,
	}
}

func TestAddDeviceUpVLAN(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", vlanPort("p1", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "VSW1", "USER1").Return(nil).Run(tm.record("grant")).Once()
	tm.acc.On("Couple", mock.Anything, "VSW1", "p1", "USER1").Return("1000", nil).Run(tm.record("couple")).Once()
	tm.acc.On("SetVLAN", mock.Anything, "12", "p1", "VSW1").Return(nil).Run(tm.record("set_vlan")).Once()
	tm.acc.On("UpdateSwitchTable", mock.Anything, "p1", "VSW1", "12").Return(nil).Run(tm.record("switch_table")).Once()
	tm.plugin.On("UpdateDeviceUp", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Run(tm.record("up")).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	assert.Equal(t, []string{"grant", "couple", "set_vlan", "switch_table", "up"}, tm.recorded())
	b, ok := tm.ports.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, &zvm.PortBinding{
		PortID:       "p1",
		NodeName:     "vm1",
		UserID:       "USER1",
		Switch:       "VSW1",
		VLAN:         "12",
		VDev:         "1000",
		AdminStateUp: true,
	}, b)
}

func TestAddDeviceDownFlat(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	port := &rpc.Port{ID: "p1", NetworkType: "flat", PhysicalNetwork: "XCATVSW2", SegmentationID: "7"}
	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", port), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "XCATVSW2", "USER1").Return(nil).Once()
	tm.acc.On("UpdateSwitchTable", mock.Anything, "p1", "XCATVSW2", "").Return(nil).Once()
	tm.plugin.On("UpdateDeviceDown", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	b, ok := tm.ports.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, "", b.VLAN)
	assert.False(t, b.AdminStateUp)
	tm.acc.AssertNotCalled(t, "Couple", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddDeviceSkipsUnusable(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(nil, terrors.ErrConnectionFailure).Once()
	tm.plugin.On("GetDeviceDetails", mock.Anything, "p2", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p2", nil), nil).Once()
	tm.plugin.On("GetDeviceDetails", mock.Anything, "p3", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p3", vlanPort("p3", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p3").Return(nil, terrors.ErrInvalidData).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1", "p2", "p3"})

	assert.Equal(t, 0, tm.ports.Len())
	tm.acc.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddDeviceSwitchTableFailureIsNotFatal(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", vlanPort("p1", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "VSW1", "USER1").Return(nil).Once()
	tm.acc.On("Couple", mock.Anything, "VSW1", "p1", "USER1").Return("1000", nil).Once()
	tm.acc.On("SetVLAN", mock.Anything, "12", "p1", "VSW1").Return(nil).Once()
	tm.acc.On("UpdateSwitchTable", mock.Anything, "p1", "VSW1", "12").Return(terrors.ErrRequestFailure).Once()
	tm.plugin.On("UpdateDeviceUp", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	_, ok := tm.ports.Get("p1")
	assert.True(t, ok)
}

func TestAddDeviceCoupleFailureStops(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", vlanPort("p1", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "VSW1", "USER1").Return(nil).Once()
	// nothing was coupled, not even in the directory
	tm.acc.On("Couple", mock.Anything, "VSW1", "p1", "USER1").Return("", terrors.ErrRequestFailure).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	_, ok := tm.ports.Get("p1")
	assert.False(t, ok)
	tm.acc.AssertNotCalled(t, "SetVLAN", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tm.plugin.AssertNotCalled(t, "UpdateDeviceUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddDeviceLiveCoupleFailure(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", vlanPort("p1", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "VSW1", "USER1").Return(nil).Once()
	tm.acc.On("Couple", mock.Anything, "VSW1", "p1", "USER1").Return("1000", terrors.ErrRequestFailure).Once()
	tm.acc.On("SetVLAN", mock.Anything, "12", "p1", "VSW1").Return(nil).Once()
	tm.acc.On("UpdateSwitchTable", mock.Anything, "p1", "VSW1", "12").Return(nil).Once()
	tm.plugin.On("UpdateDeviceUp", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	b, ok := tm.ports.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, "1000", b.VDev)
}

func TestAddDeviceSetVLANFailureKeepsPort(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.plugin.On("GetDeviceDetails", mock.Anything, "p1", "zvm_agent_zhcp").Return(rpc.NewDeviceDetails("p1", vlanPort("p1", true)), nil).Once()
	tm.acc.On("ResolveGuestIdentity", mock.Anything, "p1").Return(&zvm.GuestIdentity{Node: "vm1", UserID: "USER1"}, nil).Once()
	tm.acc.On("Grant", mock.Anything, "VSW1", "USER1").Return(nil).Once()
	tm.acc.On("Couple", mock.Anything, "VSW1", "p1", "USER1").Return("1000", nil).Once()
	tm.acc.On("SetVLAN", mock.Anything, "12", "p1", "VSW1").Return(terrors.ErrRequestFailure).Once()

	tm.treatDevicesAdded(context.Background(), []string{"p1"})

	// still known, so a later removal revokes USER1
	b, ok := tm.ports.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, "USER1", b.UserID)
	tm.plugin.AssertNotCalled(t, "UpdateDeviceUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveDevice(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.ports.Set("p1", &zvm.PortBinding{PortID: "p1", UserID: "USER1", Switch: "VSW1", VLAN: "12"})
	tm.ports.Set("p2", &zvm.PortBinding{PortID: "p2", UserID: "USER2"})

	p1, _ := tm.ports.Get("p1")
	tm.acc.On("Decouple", mock.Anything, p1).Return(nil).Run(tm.record("decouple")).Once()
	tm.acc.On("Revoke", mock.Anything, "VSW1", "USER1").Return(nil).Run(tm.record("revoke")).Once()
	tm.plugin.On("UpdateDeviceDown", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Run(tm.record("down")).Once()
	tm.plugin.On("UpdateDeviceDown", mock.Anything, "p2", "zvm_agent_zhcp", "host1").Return(nil).Once()

	tm.treatDevicesRemoved(context.Background(), []string{"p1", "p2", "p9"})

	assert.Equal(t, []string{"decouple", "revoke", "down"}, tm.recorded())
	assert.Equal(t, 0, tm.ports.Len())
}

func TestRemoveDeviceDecoupleFailure(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.ports.Set("p1", &zvm.PortBinding{PortID: "p1", UserID: "USER1", Switch: "VSW1"})
	tm.acc.On("Decouple", mock.Anything, mock.MatchedBy(func(b *zvm.PortBinding) bool {
		return b.PortID == "p1"
	})).Return(terrors.ErrInvalidData).Run(tm.record("decouple")).Once()
	tm.acc.On("Revoke", mock.Anything, "VSW1", "USER1").Return(nil).Run(tm.record("revoke")).Once()
	tm.plugin.On("UpdateDeviceDown", mock.Anything, "p1", "zvm_agent_zhcp", "host1").Return(nil).Run(tm.record("down")).Once()

	tm.treatDevicesRemoved(context.Background(), []string{"p1"})

	assert.Equal(t, []string{"decouple", "revoke", "down"}, tm.recorded())
	assert.Equal(t, 0, tm.ports.Len())
}

func TestRemoveDeviceKeepsEntryOnFailure(t *testing.T) {
	tm := newTestManager(t, nil)
	defer tm.assertExpectations(t)

	tm.ports.Set("p1", &zvm.PortBinding{PortID: "p1", UserID: "USER1", Switch: "VSW1", VDev: "1000"})
	tm.acc.On("Decouple", mock.Anything, mock.Anything).Return(terrors.ErrConnectionFailure).Once()
	tm.acc.On("Revoke", mock.Anything, "VSW1", "USER1").Return(terrors.ErrConnectionFailure).Once()

	tm.treatDevicesRemoved(context.Background(), []string{"p1"})

	_, ok := tm.ports.Get("p1")
	assert.True(t, ok)
	tm.plugin.AssertNotCalled(t, "UpdateDeviceDown", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
