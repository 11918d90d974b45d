package network

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

// Vswitches is the set of physical networks the agent serves.
type Vswitches struct {
	mapping Mapping
	flat    []string
	// created by the agent, the others belong to the admin
	managed mapset.Set[string]
}

// Setup parses the network mapping and creates every vswitch which doesn't exist yet.
// A vswitch that already exists is owned by the admin or the system and is left alone.
func Setup(ctx context.Context, accessor zvm.Accessor, cfg *configs.Config) (*Vswitches, error) {
	logger := log.WithFunc("network.Setup")

	mapping, err := ParseMapping(cfg.Network.NetworkVLANRanges, cfg.Network.FlatNetworks)
	if err != nil {
		return nil, err
	}

	v := &Vswitches{
		mapping: mapping,
		flat:    cfg.Network.FlatNetworks,
		managed: mapset.NewSet[string](),
	}

	for _, name := range mapping.Names() {
		exists, err := accessor.QueryVswitch(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "query vswitch %s", name)
		}
		if exists {
			logger.Infof(ctx, "vswitch %s is pre-created by admin or system, skip it", name)
			continue
		}

		if err := accessor.CreateVswitch(ctx, name, cfg.RdevList(name), mapping.VID(name)); err != nil {
			return nil, err
		}
		v.managed.Add(strings.ToUpper(name))
	}

	return v, nil
}

// Mapping .
func (v *Vswitches) Mapping() Mapping {
	return v.mapping
}

// Managed reports whether the agent created the vswitch.
func (v *Vswitches) Managed(name string) bool {
	return v.managed.Contains(strings.ToUpper(name))
}

// MgtVswitch returns the first flat network, which carries the xCAT management traffic.
func (v *Vswitches) MgtVswitch() (string, bool) {
	for _, name := range v.flat {
		if name = strings.TrimSpace(name); len(name) > 0 {
			return name, true
		}
	}
	return "", false
}
