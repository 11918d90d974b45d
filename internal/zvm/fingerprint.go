package zvm

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	uptimeCommand = `date -d "$(awk -F. '{print $1}' /proc/uptime) second ago" +"%Y-%m-%d %H:%M:%S"`
	iplMarker     = "The z/VM CP IPL time: "
)

// QueryFingerprint reads the boot time of the target, which changes on every restart.
func (x *XCAT) QueryFingerprint(ctx context.Context, target Target) (Fingerprint, error) {
	switch target {
	case TargetXCAT:
		return x.xcatUptime(ctx)
	case TargetZVM:
		return x.zvmIPLTime(ctx)
	default:
		return "", errors.Newf("unknown fingerprint target %d", target)
	}
}

func (x *XCAT) xcatUptime(ctx context.Context) (Fingerprint, error) {
	node, err := x.XCATNodeName(ctx)
	if err != nil {
		return "", err
	}
	env, err := x.cli.RunCommand(ctx, node, uptimeCommand)
	if err != nil {
		return "", errors.Wrap(err, "query xCAT uptime")
	}

	out := strings.TrimSpace(firstLine(env.Output()))
	// xdsh prefixes every line with "node: "
	out = strings.TrimSpace(strings.TrimPrefix(out, node+":"))
	if len(out) < 1 {
		return "", terrors.Newf(terrors.ErrInvalidData, "empty xCAT uptime")
	}
	return Fingerprint(out), nil
}

func (x *XCAT) zvmIPLTime(ctx context.Context) (Fingerprint, error) {
	env, err := x.cli.RunCommand(ctx, x.zhcp, smcli+" System_Info_Query")
	if err != nil {
		return "", errors.Wrap(err, "query z/VM IPL time")
	}

	for _, line := range strings.Split(env.Output(), "\n") {
		idx := strings.Index(line, iplMarker)
		if idx < 0 {
			continue
		}
		if ipl := strings.TrimSpace(line[idx+len(iplMarker):]); len(ipl) > 0 {
			return Fingerprint(ipl), nil
		}
	}
	return "", terrors.Newf(terrors.ErrInvalidData, "no IPL time in System_Info_Query output")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
