package agent

import (
	"sort"
	"sync"

	"github.com/alphadose/haxmap"

	"github.com/openstack-archive/networking-zvm/internal/zvm"
)

// PortMap holds the ports this agent has bound. The loop changes single
// entries, the restart monitor swaps the whole content.
type PortMap struct {
	mu sync.RWMutex
	m  *haxmap.Map[string, *zvm.PortBinding]
}

// NewPortMap .
func NewPortMap() *PortMap {
	return &PortMap{m: haxmap.New[string, *zvm.PortBinding]()}
}

// Get .
func (p *PortMap) Get(id string) (*zvm.PortBinding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m.Get(id)
}

// Set .
func (p *PortMap) Set(id string, b *zvm.PortBinding) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.m.Set(id, b)
}

// Del .
func (p *PortMap) Del(id string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.m.Del(id)
}

// Len .
func (p *PortMap) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(p.m.Len())
}

// Replace drops every entry and loads bindings instead.
func (p *PortMap) Replace(bindings map[string]*zvm.PortBinding) {
	fresh := haxmap.New[string, *zvm.PortBinding]()
	for id, b := range bindings {
		fresh.Set(id, b)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.m = fresh
}

// Snapshot returns the bindings sorted by port id.
func (p *PortMap) Snapshot() []*zvm.PortBinding {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var bindings []*zvm.PortBinding
	p.m.ForEach(func(_ string, b *zvm.PortBinding) bool {
		bindings = append(bindings, b)
		return true
	})
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].PortID < bindings[j].PortID
	})
	return bindings
}
