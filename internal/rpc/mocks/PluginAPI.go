package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openstack-archive/networking-zvm/internal/rpc"
)

// PluginAPI is a mock of rpc.PluginAPI.
type PluginAPI struct {
	mock.Mock
}

var _ rpc.PluginAPI = (*PluginAPI)(nil)

// GetDeviceDetails .
func (_m *PluginAPI) GetDeviceDetails(ctx context.Context, deviceID, agentID string) (*rpc.DeviceDetails, error) {
	ret := _m.Called(ctx, deviceID, agentID)
	var r0 *rpc.DeviceDetails
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*rpc.DeviceDetails)
	}
	return r0, ret.Error(1)
}

// UpdateDeviceUp .
func (_m *PluginAPI) UpdateDeviceUp(ctx context.Context, deviceID, agentID, host string) error {
	return _m.Called(ctx, deviceID, agentID, host).Error(0)
}

// UpdateDeviceDown .
func (_m *PluginAPI) UpdateDeviceDown(ctx context.Context, deviceID, agentID, host string) error {
	return _m.Called(ctx, deviceID, agentID, host).Error(0)
}

// ReportState .
func (_m *PluginAPI) ReportState(ctx context.Context, state *rpc.AgentState) error {
	return _m.Called(ctx, state).Error(0)
}

// Watch .
func (_m *PluginAPI) Watch(ctx context.Context, host string, h rpc.Handler) error {
	ret := _m.Called(ctx, host, h)
	if rf, ok := ret.Get(0).(func(context.Context, string, rpc.Handler) error); ok {
		return rf(ctx, host, h)
	}
	return ret.Error(0)
}
