package zvm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	mgtNICQuery  = "vmcp q v nic 800"
	mgtIfconfig  = "/sbin/ifconfig enccw0.0.0800"
	nicNotExists = "does not exist"
)

var (
	mgtVswitchRegexp = regexp.MustCompile(`VSWITCH:\s+SYSTEM\s+(\S+)`)
	mgtInetRegexp    = regexp.MustCompile(`inet\s+(?:addr:)?([0-9.]+)`)
)

// CreateMgtNetwork makes sure the xCAT node owns a NIC 0800 on vswitch with ip.
// An existing NIC coupled elsewhere or carrying another address is a
// configuration error, it is never reconfigured.
func (x *XCAT) CreateMgtNetwork(ctx context.Context, ip, mask, vswitch string) error {
	logger := log.WithFunc("zvm.XCAT.CreateMgtNetwork").WithField("vswitch", vswitch).WithField("ip", ip)

	node, err := x.XCATNodeName(ctx)
	if err != nil {
		return err
	}

	env, err := x.cli.RunCommand(ctx, node, mgtNICQuery)
	var out string
	switch {
	case err != nil && terrors.IsRequestFailure(err) && strings.Contains(err.Error(), nicNotExists):
		out = nicNotExists
	case err != nil:
		return errors.Wrap(err, "query management NIC")
	default:
		out = env.Output()
	}

	if strings.Contains(out, nicNotExists) {
		cmd := fmt.Sprintf("vmcp define nic 0800 type qdio\n"+
			"vmcp couple 0800 system %s\n"+
			"/usr/bin/perl /usr/sbin/sspqeth2.pl -a %s -d 0800 0801 0802 -e enccw0.0.0800 -m %s -g %s",
			vswitch, ip, mask, ip)
		if _, err := x.cli.RunCommand(ctx, node, cmd); err != nil {
			return errors.Wrap(err, "define management NIC")
		}
		logger.Infof(ctx, "management NIC 0800 defined on %s", node)
		return nil
	}

	match := mgtVswitchRegexp.FindStringSubmatch(out)
	if len(match) < 2 || !strings.EqualFold(match[1], vswitch) {
		return terrors.Newf(terrors.ErrConfiguration, "management NIC 0800 of %s is not coupled to %s: %q", node, vswitch, out)
	}

	env, err = x.cli.RunCommand(ctx, node, mgtIfconfig)
	if err != nil {
		return errors.Wrap(err, "query management address")
	}
	inet := mgtInetRegexp.FindStringSubmatch(env.Output())
	if len(inet) < 2 || inet[1] != ip {
		return terrors.Newf(terrors.ErrConfiguration, "management NIC 0800 of %s doesn't carry %s", node, ip)
	}

	logger.Debugf(ctx, "management NIC 0800 is ready on %s", node)
	return nil
}
