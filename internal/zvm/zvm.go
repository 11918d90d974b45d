package zvm

import (
	"context"

	"github.com/openstack-archive/networking-zvm/internal/xcat"
)

const smcli = "/opt/zhcp/bin/smcli"

// Fingerprint is an opaque uptime marker of a managed node.
// Only raw equality is meaningful.
type Fingerprint string

// Target selects whose fingerprint is read.
type Target int

const (
	// TargetXCAT is the xCAT management node.
	TargetXCAT Target = iota
	// TargetZVM is the z/VM hypervisor behind zHCP.
	TargetZVM
)

func (t Target) String() string {
	if t == TargetXCAT {
		return "xcat"
	}
	return "zvm"
}

// PortBinding is one virtual NIC attachment. VDev is the NIC device number,
// kept so the NIC can be decoupled after its switch row is gone.
type PortBinding struct {
	PortID       string
	NodeName     string
	UserID       string
	Switch       string
	VLAN         string
	VDev         string
	AdminStateUp bool
}

// GuestIdentity is the result of the port -> node -> userid lookup.
type GuestIdentity struct {
	Node   string
	UserID string
}

// Protocol is what the accessor needs from the xCAT client.
type Protocol interface {
	ReadTable(ctx context.Context, table string, filter *xcat.Filter) ([]string, error)
	RunCommand(ctx context.Context, node, command string) (*xcat.Envelope, error)
	MutateTable(ctx context.Context, table, rowSpec string) (*xcat.Envelope, error)
	Version(ctx context.Context) (string, error)
}

// Accessor exposes z/VM network operations.
type Accessor interface {
	ListNICBindings(ctx context.Context, host string) ([]*SwitchRow, error)
	ResolveGuestIdentity(ctx context.Context, portID string) (*GuestIdentity, error)
	Couple(ctx context.Context, vswitch, portID, userID string) (string, error)
	Decouple(ctx context.Context, b *PortBinding) error
	SetVLAN(ctx context.Context, vlanID, portID, vswitch string) error
	Grant(ctx context.Context, vswitch, userID string) error
	Revoke(ctx context.Context, vswitch, userID string) error
	QueryFingerprint(ctx context.Context, target Target) (Fingerprint, error)
	BulkRegrant(ctx context.Context, maxBatch int) (map[string]*PortBinding, error)

	UpdateSwitchTable(ctx context.Context, portID, vswitch, vlanID string) error
	PutUserDirectOnline(ctx context.Context, userID string) error
	ZHCPUserID(ctx context.Context) (string, error)
	CreateMgtNetwork(ctx context.Context, ip, mask, vswitch string) error
	QueryVswitch(ctx context.Context, name string) (bool, error)
	CreateVswitch(ctx context.Context, name, rdev, vid string) error
	XCATVersion(ctx context.Context) (string, error)
}
