package zvm

import (
	"context"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// smcli answers a query for an undefined vswitch with rc 212, rs 40.
var vswitchNotFound = regexp.MustCompile(`(?is)return code:\s*212\b.*reason code:\s*40\b`)

// QueryVswitch reports whether the vswitch is already defined on z/VM.
// Only the not found answer means false, any other failure is returned.
func (x *XCAT) QueryVswitch(ctx context.Context, name string) (bool, error) {
	user, err := x.ZHCPUserID(ctx)
	if err != nil {
		return false, err
	}

	env, err := x.cli.RunCommand(ctx, x.zhcp, smcli+" Virtual_Network_Vswitch_Query -T "+user+" -s "+name)
	switch {
	case terrors.IsRequestFailure(err) && vswitchNotFound.MatchString(err.Error()):
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, "query vswitch %s", name)
	}
	if code := env.Code(); len(code) > 0 && code != "0" {
		if vswitchNotFound.MatchString(env.Output() + "\n" + env.Errors()) {
			return false, nil
		}
		return false, terrors.Newf(terrors.ErrRequestFailure, "query vswitch %s: error code %s: %s", name, code, env.Output())
	}
	return true, nil
}

// CreateVswitch defines a layer 2 QDIO vswitch. vid is either the first VLAN
// id of the physical network or UNAWARE.
func (x *XCAT) CreateVswitch(ctx context.Context, name, rdev, vid string) error {
	user, err := x.ZHCPUserID(ctx)
	if err != nil {
		return err
	}

	cmd := smcli + " Virtual_Network_Vswitch_Create -T " + user + " -n " + name
	if len(rdev) > 0 {
		cmd += " -r " + rdev
	}
	cmd += " -c 1 -q 8 -e 0 -t 2 -v " + vid + " -p 1 -u 1 -G 2 -V 1"

	if _, err := x.cli.RunCommand(ctx, x.zhcp, cmd); err != nil {
		return errors.Wrapf(err, "create vswitch %s", name)
	}
	log.WithFunc("zvm.XCAT.CreateVswitch").Infof(ctx, "vswitch %s created, vid %s", name, vid)
	return nil
}
