package etcd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
	"github.com/openstack-archive/networking-zvm/pkg/test/assert"
)

type recorder struct {
	sync.Mutex
	ports    []*rpc.Port
	networks []string
}

func (r *recorder) PortUpdate(_ context.Context, port *rpc.Port) {
	r.Lock()
	defer r.Unlock()
	r.ports = append(r.ports, port)
}

func (r *recorder) NetworkDelete(_ context.Context, networkID string) {
	r.Lock()
	defer r.Unlock()
	r.networks = append(r.networks, networkID)
}

func (r *recorder) counts() (int, int) {
	r.Lock()
	defer r.Unlock()
	return len(r.ports), len(r.networks)
}

func TestKeys(t *testing.T) {
	k := newKeys("/networking-zvm/v1/")
	assert.Equal(t, "/networking-zvm/v1/ports/p1", k.port("p1"))
	assert.Equal(t, "/networking-zvm/v1/devices/host1/p1", k.device("host1", "p1"))
	assert.Equal(t, "/networking-zvm/v1/agents/host1", k.agent("host1"))

	dir, id, ok := k.split("/networking-zvm/v1/ports/p1")
	assert.True(t, ok)
	assert.Equal(t, portsDir, dir)
	assert.Equal(t, "p1", id)

	_, _, ok = k.split("/networking-zvm/v1/devices/host1/p1")
	assert.False(t, ok)
	_, _, ok = k.split("/other/ports/p1")
	assert.False(t, ok)
	_, _, ok = k.split("/networking-zvm/v1/ports/")
	assert.False(t, ok)
}

func TestDecodeWeaklyTyped(t *testing.T) {
	var port rpc.Port
	assert.NilErr(t, decode([]byte(`{"id":"p1","network_type":"vlan","segmentation_id":100,"admin_state_up":"true","extra":{"a":1}}`), &port))
	assert.Equal(t, rpc.Port{ID: "p1", NetworkType: "vlan", SegmentationID: "100", AdminStateUp: true}, port)

	port = rpc.Port{}
	assert.NilErr(t, decode([]byte(`{"id":"p2","segmentation_id":null,"admin_state_up":false}`), &port))
	assert.Equal(t, "", port.SegmentationID)
	assert.False(t, port.AdminStateUp)

	err := decode([]byte(`[1,2]`), &port)
	assert.True(t, terrors.IsMalformedResponse(err))

	err = decode([]byte(`{"admin_state_up":"maybe"}`), &port)
	assert.True(t, terrors.IsInvalidData(err))
}

func TestDispatch(t *testing.T) {
	e := NewWithClient(nil, "/zvm", time.Minute)
	r := &recorder{}
	ctx := context.Background()

	e.dispatch(ctx, "/zvm/ports/p1", []byte(`{"admin_state_up":true}`), false, r)
	e.dispatch(ctx, "/zvm/ports/p1", nil, true, r)
	e.dispatch(ctx, "/zvm/ports/p2", []byte(`garbage`), false, r)
	e.dispatch(ctx, "/zvm/networks/n1", nil, true, r)
	e.dispatch(ctx, "/zvm/networks/n2", []byte(`{}`), false, r)
	e.dispatch(ctx, "/zvm/devices/host/p1", []byte(`{}`), false, r)

	assert.Len(t, r.ports, 1)
	assert.Equal(t, &rpc.Port{ID: "p1", AdminStateUp: true}, r.ports[0])
	assert.Equal(t, []string{"n1"}, r.networks)
}

func TestNewDeviceDetails(t *testing.T) {
	d := rpc.NewDeviceDetails("p1", nil)
	assert.False(t, d.Known())
	assert.Equal(t, "p1", d.Device)

	d = rpc.NewDeviceDetails("p1", &rpc.Port{NetworkType: "flat", AdminStateUp: true})
	assert.True(t, d.Known())
	assert.Equal(t, "p1", d.PortID)
}

func newRealEtcd(t *testing.T) *Etcd {
	cfg, err := configs.New()
	assert.NilErr(t, err)
	cfg.Etcd.Endpoints = []string{"127.0.0.1:2379"}
	cfg.Etcd.Prefix = fmt.Sprintf("/networking-zvm-dev/%d", time.Now().UnixNano())
	cfg.ReportInterval = configs.Duration(time.Second)

	e, err := New(cfg)
	assert.NilErr(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRealEtcdDevices(t *testing.T) {
	if os.Getenv("REAL_TEST") != "1" {
		return
	}

	e := newRealEtcd(t)
	ctx := context.Background()

	d, err := e.GetDeviceDetails(ctx, "p1", "zvm_agent_zhcp")
	assert.NilErr(t, err)
	assert.False(t, d.Known())

	_, err = e.cli.Put(ctx, e.keys.port("p1"), `{"network_id":"n1","network_type":"vlan","segmentation_id":"10","admin_state_up":true}`)
	assert.NilErr(t, err)
	d, err = e.GetDeviceDetails(ctx, "p1", "zvm_agent_zhcp")
	assert.NilErr(t, err)
	assert.True(t, d.Known())
	assert.Equal(t, "10", d.SegmentationID)

	assert.NilErr(t, e.UpdateDeviceUp(ctx, "p1", "zvm_agent_zhcp", "host1"))
	resp, err := e.cli.Get(ctx, e.keys.device("host1", "p1"))
	assert.NilErr(t, err)
	assert.Equal(t, `{"status":"up","agent_id":"zvm_agent_zhcp","host":"host1"}`, string(resp.Kvs[0].Value))

	assert.NilErr(t, e.ReportState(ctx, &rpc.AgentState{Host: "host1", StartFlag: true}))
	assert.NilErr(t, e.ReportState(ctx, &rpc.AgentState{Host: "host1"}))
	resp, err = e.cli.Get(ctx, e.keys.agent("host1"))
	assert.NilErr(t, err)
	assert.True(t, resp.Kvs[0].Lease != 0)
}

func TestRealEtcdWatch(t *testing.T) {
	if os.Getenv("REAL_TEST") != "1" {
		return
	}

	e := newRealEtcd(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &recorder{}
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, "host1", r) }()
	time.Sleep(200 * time.Millisecond)

	_, err := e.cli.Put(ctx, e.keys.port("p1"), `{"admin_state_up":false}`)
	assert.NilErr(t, err)
	_, err = e.cli.Put(ctx, e.keys.root()+"networks/n1", `{}`)
	assert.NilErr(t, err)
	_, err = e.cli.Delete(ctx, e.keys.root()+"networks/n1")
	assert.NilErr(t, err)

	for i := 0; i < 50; i++ {
		if p, n := r.counts(); p == 1 && n == 1 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	p, n := r.counts()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, n)

	cancel()
	assert.Err(t, <-done)
}
