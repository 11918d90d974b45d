package zvm

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"
	"github.com/samber/lo"
)

const (
	minVLAN = 1
	maxVLAN = 4094
)

// BulkRegrant grants every guest of the zHCP node access to its vswitch again.
// z/VM forgets vswitch grants when it is re-IPLed, so this runs after every
// z/VM restart. The rebuilt bindings are returned even if some batches failed,
// together with the combined batch errors.
func (x *XCAT) BulkRegrant(ctx context.Context, maxBatch int) (map[string]*PortBinding, error) {
	logger := log.WithFunc("zvm.XCAT.BulkRegrant").WithField("zhcp", x.zhcp)

	bindings, err := x.collectBindings(ctx)
	if err != nil {
		return nil, err
	}

	ids := lo.Keys(bindings)
	sort.Strings(ids)
	lines := lo.Map(ids, func(id string, _ int) string {
		return grantLine(ctx, bindings[id])
	})

	if maxBatch < 1 {
		maxBatch = 1
	}

	var errs error
	for i, batch := range lo.Chunk(lines, maxBatch) {
		if err := x.runGrantScript(ctx, batch); err != nil {
			logger.Warnf(ctx, "grant batch %d of %d users failed: %s", i, len(batch), err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "grant batch %d", i))
		}
	}

	logger.Infof(ctx, "regranted %d users in batches of %d", len(lines), maxBatch)
	return bindings, errs
}

// collectBindings cross-references the switch table with the zvm table.
func (x *XCAT) collectBindings(ctx context.Context) (map[string]*PortBinding, error) {
	logger := log.WithFunc("zvm.XCAT.collectBindings")

	rows, err := x.ListNICBindings(ctx, x.zhcp)
	if err != nil {
		return nil, err
	}

	users, err := x.cli.ReadTable(ctx, tableZVM, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dump zvm table")
	}
	userIDs := map[string]string{}
	for _, line := range stripHeader(users) {
		row, err := DecodeUserRow(line)
		if err != nil {
			logger.Warnf(ctx, "skip zvm row: %s", err)
			continue
		}
		userIDs[row.Node] = row.UserID
	}

	bindings := map[string]*PortBinding{}
	for _, row := range rows {
		userID := userIDs[row.Node]
		if len(userID) < 1 || len(row.Switch) < 1 {
			logger.Infof(ctx, "garbage port found, port id: %s", row.Port)
			continue
		}
		bindings[row.Port] = &PortBinding{
			PortID:   row.Port,
			NodeName: row.Node,
			UserID:   userID,
			Switch:   row.Switch,
			VLAN:     row.VLAN,
			VDev:     row.Interface,
		}
	}
	return bindings, nil
}

func grantLine(ctx context.Context, b *PortBinding) string {
	line := fmt.Sprintf("%s Virtual_Network_Vswitch_Set_Extended -T %s -k switch_name=%s -k grant_userid=%s",
		smcli, b.UserID, b.Switch, b.UserID)
	if vid, ok := parseVLAN(ctx, b); ok {
		line += fmt.Sprintf(" -k user_vlan_id=%d", vid)
	}
	return line
}

// parseVLAN reports whether the binding carries a usable VLAN tag.
func parseVLAN(ctx context.Context, b *PortBinding) (int, bool) {
	raw := strings.TrimSpace(b.VLAN)
	if len(raw) < 1 {
		return 0, false
	}
	vid, err := strconv.Atoi(raw)
	if err != nil || vid < minVLAN || vid > maxVLAN {
		log.WithFunc("zvm.parseVLAN").Warnf(ctx, "unknown vlan %q for user %s, grant it untagged", b.VLAN, b.UserID)
		return 0, false
	}
	return vid, true
}

func (x *XCAT) runGrantScript(ctx context.Context, lines []string) error {
	script := fmt.Sprintf("echo -e \"#!/bin/sh\n%s\" > grant.sh", strings.Join(lines, "\n"))
	if _, err := x.cli.RunCommand(ctx, x.zhcp, script); err != nil {
		return errors.Wrap(err, "write grant.sh")
	}
	if _, err := x.cli.RunCommand(ctx, x.zhcp, "sh grant.sh;rm -f grant.sh"); err != nil {
		return errors.Wrap(err, "run grant.sh")
	}
	return nil
}
