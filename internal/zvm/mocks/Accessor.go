package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

// Accessor is a mock of zvm.Accessor.
type Accessor struct {
	mock.Mock
}

var _ zvm.Accessor = (*Accessor)(nil)

// ListNICBindings .
func (_m *Accessor) ListNICBindings(ctx context.Context, host string) ([]*zvm.SwitchRow, error) {
	ret := _m.Called(ctx, host)
	var r0 []*zvm.SwitchRow
	if rf, ok := ret.Get(0).(func(context.Context, string) []*zvm.SwitchRow); ok {
		r0 = rf(ctx, host)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*zvm.SwitchRow)
	}
	return r0, ret.Error(1)
}

// ResolveGuestIdentity .
func (_m *Accessor) ResolveGuestIdentity(ctx context.Context, portID string) (*zvm.GuestIdentity, error) {
	ret := _m.Called(ctx, portID)
	var r0 *zvm.GuestIdentity
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*zvm.GuestIdentity)
	}
	return r0, ret.Error(1)
}

// Couple .
func (_m *Accessor) Couple(ctx context.Context, vswitch, portID, userID string) (string, error) {
	ret := _m.Called(ctx, vswitch, portID, userID)
	return ret.String(0), ret.Error(1)
}

// Decouple .
func (_m *Accessor) Decouple(ctx context.Context, b *zvm.PortBinding) error {
	return _m.Called(ctx, b).Error(0)
}

// SetVLAN .
func (_m *Accessor) SetVLAN(ctx context.Context, vlanID, portID, vswitch string) error {
	return _m.Called(ctx, vlanID, portID, vswitch).Error(0)
}

// Grant .
func (_m *Accessor) Grant(ctx context.Context, vswitch, userID string) error {
	return _m.Called(ctx, vswitch, userID).Error(0)
}

// Revoke .
func (_m *Accessor) Revoke(ctx context.Context, vswitch, userID string) error {
	return _m.Called(ctx, vswitch, userID).Error(0)
}

// QueryFingerprint .
func (_m *Accessor) QueryFingerprint(ctx context.Context, target zvm.Target) (zvm.Fingerprint, error) {
	ret := _m.Called(ctx, target)
	var r0 zvm.Fingerprint
	switch v := ret.Get(0).(type) {
	case zvm.Fingerprint:
		r0 = v
	case string:
		r0 = zvm.Fingerprint(v)
	}
	return r0, ret.Error(1)
}

// BulkRegrant .
func (_m *Accessor) BulkRegrant(ctx context.Context, maxBatch int) (map[string]*zvm.PortBinding, error) {
	ret := _m.Called(ctx, maxBatch)
	var r0 map[string]*zvm.PortBinding
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]*zvm.PortBinding)
	}
	return r0, ret.Error(1)
}

// UpdateSwitchTable .
func (_m *Accessor) UpdateSwitchTable(ctx context.Context, portID, vswitch, vlanID string) error {
	return _m.Called(ctx, portID, vswitch, vlanID).Error(0)
}

// PutUserDirectOnline .
func (_m *Accessor) PutUserDirectOnline(ctx context.Context, userID string) error {
	return _m.Called(ctx, userID).Error(0)
}

// ZHCPUserID .
func (_m *Accessor) ZHCPUserID(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}

// CreateMgtNetwork .
func (_m *Accessor) CreateMgtNetwork(ctx context.Context, ip, mask, vswitch string) error {
	return _m.Called(ctx, ip, mask, vswitch).Error(0)
}

// QueryVswitch .
func (_m *Accessor) QueryVswitch(ctx context.Context, name string) (bool, error) {
	ret := _m.Called(ctx, name)
	return ret.Bool(0), ret.Error(1)
}

// CreateVswitch .
func (_m *Accessor) CreateVswitch(ctx context.Context, name, rdev, vid string) error {
	return _m.Called(ctx, name, rdev, vid).Error(0)
}

// XCATVersion .
func (_m *Accessor) XCATVersion(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}
