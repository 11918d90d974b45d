package zvm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openstack-archive/networking-zvm/internal/xcat"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// fakeProtocol serves canned tables and records every command.
type fakeProtocol struct {
	sync.Mutex
	tables    map[string][]string
	outputs   map[string]string
	errorCode string
	cmdErr    func(node, cmd string) error
	version   string
	reads     []string
	cmds      []string
	mutations []string
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{
		tables:  map[string][]string{},
		outputs: map[string]string{},
	}
}

func tableKey(table string, f *xcat.Filter) string {
	if f == nil {
		return table
	}
	return fmt.Sprintf("%s|%s=%s|%s", table, f.Column, f.Value, f.Attribute)
}

func (p *fakeProtocol) ReadTable(_ context.Context, table string, f *xcat.Filter) ([]string, error) {
	p.Lock()
	defer p.Unlock()
	key := tableKey(table, f)
	p.reads = append(p.reads, key)
	rows, ok := p.tables[key]
	if !ok {
		return nil, terrors.Newf(terrors.ErrMalformedResponse, "xCAT returned no data")
	}
	return rows, nil
}

func (p *fakeProtocol) RunCommand(_ context.Context, node, cmd string) (*xcat.Envelope, error) {
	p.Lock()
	defer p.Unlock()
	p.cmds = append(p.cmds, node+": "+cmd)
	if p.cmdErr != nil {
		if err := p.cmdErr(node, cmd); err != nil {
			return nil, err
		}
	}
	for key, out := range p.outputs {
		if strings.Contains(cmd, key) {
			env := &xcat.Envelope{Data: [][]string{strings.Split(out, "\n")}}
			if len(p.errorCode) > 0 {
				env.ErrorCode = [][]string{{p.errorCode}}
			}
			return env, nil
		}
	}
	return &xcat.Envelope{}, nil
}

func (p *fakeProtocol) MutateTable(_ context.Context, table, rowSpec string) (*xcat.Envelope, error) {
	p.Lock()
	defer p.Unlock()
	p.mutations = append(p.mutations, table+": "+rowSpec)
	return &xcat.Envelope{}, nil
}

func (p *fakeProtocol) Version(context.Context) (string, error) {
	return p.version, nil
}

func (p *fakeProtocol) commands() []string {
	p.Lock()
	defer p.Unlock()
	return append([]string{}, p.cmds...)
}

// withPort registers the lookups of one port.
func (p *fakeProtocol) withPort(port, node, userID, vdev string) {
	p.tables[tableKey(tableSwitch, &xcat.Filter{Column: "port", Value: port, Attribute: "node"})] = []string{node}
	p.tables[tableKey(tableSwitch, &xcat.Filter{Column: "port", Value: port, Attribute: "interface"})] = []string{vdev}
	p.tables[tableKey(tableZVM, &xcat.Filter{Column: "node", Value: node, Attribute: "userid"})] = []string{userID}
}
