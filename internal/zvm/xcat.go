package zvm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/xcat"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	tableSwitch = "switch"
	tableZVM    = "zvm"
	tableSite   = "site"
	tableHosts  = "hosts"
)

// XCAT implements Accessor on top of the xCAT REST API.
type XCAT struct {
	cli  Protocol
	zhcp string

	mu       sync.Mutex
	xcatNode string
	zhcpUser string
}

// NewXCAT .
func NewXCAT(cli Protocol, zhcpNodename string) *XCAT {
	return &XCAT{
		cli:  cli,
		zhcp: zhcpNodename,
	}
}

// ListNICBindings returns the switch table rows which belong to host.
func (x *XCAT) ListNICBindings(ctx context.Context, host string) ([]*SwitchRow, error) {
	lines, err := x.cli.ReadTable(ctx, tableSwitch, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dump switch table")
	}

	var rows []*SwitchRow
	for _, line := range stripHeader(lines) {
		row, err := DecodeSwitchRow(line)
		if err != nil {
			return nil, err
		}
		if row.Comments == host {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ResolveGuestIdentity maps a port to its xCAT node, then the node to its z/VM userid.
func (x *XCAT) ResolveGuestIdentity(ctx context.Context, portID string) (*GuestIdentity, error) {
	node, err := x.nicSetting(ctx, portID, "node")
	if err != nil {
		return nil, errors.Wrapf(err, "get node of port %s", portID)
	}
	userID, err := x.userIDFromNode(ctx, node)
	if err != nil {
		return nil, errors.Wrapf(err, "get userid of port %s", portID)
	}
	return &GuestIdentity{Node: node, UserID: userID}, nil
}

// ZHCPUserID .
func (x *XCAT) ZHCPUserID(ctx context.Context) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.zhcpUser) > 0 {
		return x.zhcpUser, nil
	}
	user, err := x.userIDFromNode(ctx, x.zhcp)
	if err != nil {
		return "", errors.Wrapf(err, "get userid of zHCP %s", x.zhcp)
	}
	x.zhcpUser = user
	return user, nil
}

// XCATNodeName resolves the node name of the xCAT management node itself.
func (x *XCAT) XCATNodeName(ctx context.Context) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.xcatNode) > 0 {
		return x.xcatNode, nil
	}
	ip, err := x.lookup(ctx, tableSite, &xcat.Filter{Column: "key", Value: "master", Attribute: "value"})
	if err != nil {
		return "", errors.Wrap(err, "get xCAT master ip")
	}
	node, err := x.lookup(ctx, tableHosts, &xcat.Filter{Column: "ip", Value: ip, Attribute: "node"})
	if err != nil {
		return "", errors.Wrapf(err, "get xCAT node of %s", ip)
	}
	x.xcatNode = node
	return node, nil
}

// Couple attaches the NIC of the port to vswitch, first in the user directory,
// then in the running guest. A failed live step leaves the directory change in place.
func (x *XCAT) Couple(ctx context.Context, vswitch, portID, userID string) (string, error) {
	logger := log.WithFunc("zvm.XCAT.Couple").WithField("port", portID).WithField("userid", userID)

	vdev, err := x.nicSetting(ctx, portID, "interface")
	if err != nil {
		return "", errors.Wrapf(err, "get vdev of port %s", portID)
	}

	if err := x.smcli(ctx, "Virtual_Network_Adapter_Connect_Vswitch_DM -T %s -v %s -n %s", userID, vdev, vswitch); err != nil {
		return "", errors.Wrapf(err, "couple %s to %s in directory", vdev, vswitch)
	}
	if err := x.smcli(ctx, "Virtual_Network_Adapter_Connect_Vswitch -T %s -v %s -n %s", userID, vdev, vswitch); err != nil {
		logger.Warnf(ctx, "live couple of %s to %s failed, the guest picks it up on next boot: %s", vdev, vswitch, err)
		return vdev, errors.Wrapf(err, "couple %s to %s in active guest", vdev, vswitch)
	}

	logger.Infof(ctx, "coupled vdev %s to %s", vdev, vswitch)
	return vdev, nil
}

// Decouple is the mirror of Couple. It uses the vdev recorded in b, the
// switch table is only asked when there is none.
func (x *XCAT) Decouple(ctx context.Context, b *PortBinding) error {
	logger := log.WithFunc("zvm.XCAT.Decouple").WithField("port", b.PortID).WithField("userid", b.UserID)

	vdev := b.VDev
	if len(vdev) < 1 {
		var err error
		if vdev, err = x.nicSetting(ctx, b.PortID, "interface"); err != nil {
			return errors.Wrapf(err, "get vdev of port %s", b.PortID)
		}
	}

	if err := x.smcli(ctx, "Virtual_Network_Adapter_Disconnect_DM -T %s -v %s", b.UserID, vdev); err != nil {
		return errors.Wrapf(err, "decouple %s in directory", vdev)
	}
	if err := x.smcli(ctx, "Virtual_Network_Adapter_Disconnect -T %s -v %s", b.UserID, vdev); err != nil {
		logger.Warnf(ctx, "live decouple of %s failed: %s", vdev, err)
		return errors.Wrapf(err, "decouple %s in active guest", vdev)
	}

	logger.Infof(ctx, "decoupled vdev %s from %s", vdev, b.Switch)
	return nil
}

// SetVLAN grants the owner of the port access to vswitch with the given VLAN id.
func (x *XCAT) SetVLAN(ctx context.Context, vlanID, portID, vswitch string) error {
	ident, err := x.ResolveGuestIdentity(ctx, portID)
	if err != nil {
		return err
	}
	if len(ident.UserID) < 1 {
		return terrors.Newf(terrors.ErrInvalidData, "port %s has no userid", portID)
	}
	return x.smcli(ctx, "Virtual_Network_Vswitch_Set_Extended -T %s -k grant_userid=%s -k switch_name=%s -k user_vlan_id=%s",
		ident.UserID, ident.UserID, vswitch, vlanID)
}

// Grant .
func (x *XCAT) Grant(ctx context.Context, vswitch, userID string) error {
	log.WithFunc("zvm.XCAT.Grant").Infof(ctx, "grant %s to %s", userID, vswitch)
	return x.smcli(ctx, "Virtual_Network_Vswitch_Set_Extended -T %s -k switch_name=%s -k grant_userid=%s", userID, vswitch, userID)
}

// Revoke .
func (x *XCAT) Revoke(ctx context.Context, vswitch, userID string) error {
	log.WithFunc("zvm.XCAT.Revoke").Infof(ctx, "revoke %s from %s", userID, vswitch)
	return x.smcli(ctx, "Virtual_Network_Vswitch_Set_Extended -T %s -k switch_name=%s -k revoke_userid=%s", userID, vswitch, userID)
}

// PutUserDirectOnline makes pending directory changes of userID effective.
func (x *XCAT) PutUserDirectOnline(ctx context.Context, userID string) error {
	return x.smcli(ctx, "Static_Image_Changes_Immediate_DM -T %s", userID)
}

// UpdateSwitchTable writes the switch and VLAN of a port back to xCAT.
func (x *XCAT) UpdateSwitchTable(ctx context.Context, portID, vswitch, vlanID string) error {
	spec := fmt.Sprintf("port=%s switch.switch=%s switch.vlan=%s", portID, vswitch, vlanID)
	if _, err := x.cli.MutateTable(ctx, tableSwitch, spec); err != nil {
		return errors.Wrapf(err, "update switch table for port %s", portID)
	}
	return nil
}

// XCATVersion .
func (x *XCAT) XCATVersion(ctx context.Context) (string, error) {
	return x.cli.Version(ctx)
}

func (x *XCAT) nicSetting(ctx context.Context, portID, attribute string) (string, error) {
	return x.lookup(ctx, tableSwitch, &xcat.Filter{Column: "port", Value: portID, Attribute: attribute})
}

func (x *XCAT) userIDFromNode(ctx context.Context, node string) (string, error) {
	return x.lookup(ctx, tableZVM, &xcat.Filter{Column: "node", Value: node, Attribute: "userid"})
}

// lookup reads exactly one non-empty value.
func (x *XCAT) lookup(ctx context.Context, table string, f *xcat.Filter) (string, error) {
	rows, err := x.cli.ReadTable(ctx, table, f)
	switch {
	case terrors.IsMalformedResponse(err):
		// an empty read means no such row
		return "", terrors.Mark(errors.Wrapf(err, "%s %s=%s", table, f.Column, f.Value), terrors.ErrInvalidData)
	case err != nil:
		return "", err
	case len(rows) == 0:
		return "", terrors.Newf(terrors.ErrInvalidData, "%s has no row with %s=%s", table, f.Column, f.Value)
	case len(rows) > 1:
		return "", terrors.Newf(terrors.ErrInvalidData, "%s has %d rows with %s=%s", table, len(rows), f.Column, f.Value)
	}

	val := strings.Trim(strings.TrimSpace(rows[0]), `"`)
	if len(val) < 1 {
		return "", terrors.Newf(terrors.ErrInvalidData, "%s has an empty %s for %s=%s", table, f.Attribute, f.Column, f.Value)
	}
	return val, nil
}

func (x *XCAT) smcli(ctx context.Context, format string, args ...any) error {
	_, err := x.cli.RunCommand(ctx, x.zhcp, smcli+" "+fmt.Sprintf(format, args...))
	return err
}
