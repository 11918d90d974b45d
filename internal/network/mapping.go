package network

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// VLANRange is an inclusive range of VLAN ids.
type VLANRange struct {
	Min int
	Max int
}

// MarshalJSON encodes the range as a [min, max] pair.
func (r VLANRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

// Mapping maps a physical network, which is also the vswitch name, to its VLAN ranges.
// Flat networks have no range.
type Mapping map[string][]VLANRange

// ParseMapping parses "physnet" and "physnet:min:max" entries.
func ParseMapping(entries ...[]string) (Mapping, error) {
	m := Mapping{}
	for _, entry := range lo.Flatten(entries) {
		entry = strings.TrimSpace(entry)
		if len(entry) < 1 {
			continue
		}

		parts := strings.Split(entry, ":")
		name := strings.TrimSpace(parts[0])
		if len(name) < 1 {
			return nil, terrors.Newf(terrors.ErrConfiguration, "missing physical network in %q", entry)
		}

		switch len(parts) {
		case 1:
			if _, ok := m[name]; !ok {
				m[name] = []VLANRange{}
			}
		case 3:
			r, err := parseRange(entry, parts[1], parts[2])
			if err != nil {
				return nil, err
			}
			m[name] = append(m[name], r)
		default:
			return nil, terrors.Newf(terrors.ErrConfiguration, "invalid network entry %q", entry)
		}
	}
	return m, nil
}

func parseRange(entry, low, high string) (VLANRange, error) {
	minID, err := strconv.Atoi(strings.TrimSpace(low))
	if err != nil {
		return VLANRange{}, terrors.Newf(terrors.ErrConfiguration, "invalid VLAN min in %q", entry)
	}
	maxID, err := strconv.Atoi(strings.TrimSpace(high))
	if err != nil {
		return VLANRange{}, terrors.Newf(terrors.ErrConfiguration, "invalid VLAN max in %q", entry)
	}
	if minID < minVID || maxID > maxVID || minID > maxID {
		return VLANRange{}, terrors.Newf(terrors.ErrConfiguration, "VLAN range of %q is out of [%d, %d]", entry, minVID, maxVID)
	}
	return VLANRange{Min: minID, Max: maxID}, nil
}

// Names returns the sorted physical network names.
func (m Mapping) Names() []string {
	names := lo.Keys(m)
	sort.Strings(names)
	return names
}

// VID is the VLAN id a new vswitch is created with.
func (m Mapping) VID(name string) string {
	ranges := m[name]
	if len(ranges) < 1 {
		return UnawareVID
	}
	return strconv.Itoa(ranges[0].Min)
}
