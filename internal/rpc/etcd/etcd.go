package etcd

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/projecteru2/core/log"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
)

// Etcd implements rpc.PluginAPI on top of an etcd cluster.
type Etcd struct {
	sync.Mutex
	cli   *clientv3.Client
	keys  keys
	ttl   time.Duration
	lease clientv3.LeaseID
}

// New .
func New(cfg *configs.Config) (*Etcd, error) {
	etcdcnf, err := cfg.NewEtcdConfig()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	cli, err := clientv3.New(etcdcnf)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	return NewWithClient(cli, cfg.Etcd.Prefix, cfg.AgentStateTTL()), nil
}

// NewWithClient .
func NewWithClient(cli *clientv3.Client, prefix string, ttl time.Duration) *Etcd {
	return &Etcd{
		cli:  cli,
		keys: newKeys(prefix),
		ttl:  ttl,
	}
}

// GetDeviceDetails .
func (e *Etcd) GetDeviceDetails(ctx context.Context, deviceID, agentID string) (*rpc.DeviceDetails, error) {
	resp, err := e.cli.Get(ctx, e.keys.port(deviceID))
	switch {
	case err != nil:
		return nil, errors.Wrapf(err, "get port %s", deviceID)
	case resp.Count < 1:
		log.WithFunc("etcd.GetDeviceDetails").WithField("agent", agentID).Debugf(ctx, "device %s is unknown", deviceID)
		return rpc.NewDeviceDetails(deviceID, nil), nil
	}

	var port rpc.Port
	if err := decode(resp.Kvs[0].Value, &port); err != nil {
		return nil, errors.Wrapf(err, "port %s", deviceID)
	}
	return rpc.NewDeviceDetails(deviceID, &port), nil
}

// UpdateDeviceUp .
func (e *Etcd) UpdateDeviceUp(ctx context.Context, deviceID, agentID, host string) error {
	return e.putStatus(ctx, deviceID, rpc.DeviceStatus{Status: rpc.DeviceUp, AgentID: agentID, Host: host})
}

// UpdateDeviceDown .
func (e *Etcd) UpdateDeviceDown(ctx context.Context, deviceID, agentID, host string) error {
	return e.putStatus(ctx, deviceID, rpc.DeviceStatus{Status: rpc.DeviceDown, AgentID: agentID, Host: host})
}

func (e *Etcd) putStatus(ctx context.Context, deviceID string, status rpc.DeviceStatus) error {
	val, err := encode(status)
	if err != nil {
		return err
	}
	if _, err := e.cli.Put(ctx, e.keys.device(status.Host, deviceID), val); err != nil {
		return errors.Wrapf(err, "set device %s %s", deviceID, status.Status)
	}
	return nil
}

// ReportState writes the agent state under a lease, so a dead agent
// disappears after the TTL.
func (e *Etcd) ReportState(ctx context.Context, state *rpc.AgentState) error {
	val, err := encode(state)
	if err != nil {
		return err
	}

	var opts []clientv3.OpOption
	if e.ttl > 0 {
		lease, err := e.keepLease(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, clientv3.WithLease(lease))
	}

	if _, err := e.cli.Put(ctx, e.keys.agent(state.Host), val, opts...); err != nil {
		return errors.Wrapf(err, "report state of %s", state.Host)
	}
	return nil
}

func (e *Etcd) keepLease(ctx context.Context) (clientv3.LeaseID, error) {
	e.Lock()
	defer e.Unlock()

	if e.lease != clientv3.NoLease {
		_, err := e.cli.KeepAliveOnce(ctx, e.lease)
		if err == nil {
			return e.lease, nil
		}
		log.WithFunc("etcd.keepLease").Warnf(ctx, "lease %x is gone, grant a new one: %s", e.lease, err)
	}

	ttl := int64(e.ttl / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	resp, err := e.cli.Grant(ctx, ttl)
	if err != nil {
		return clientv3.NoLease, errors.Wrap(err, "grant lease")
	}
	e.lease = resp.ID
	return e.lease, nil
}

// Watch turns PUT events under ports/ into port updates and DELETE events
// under networks/ into network deletions.
func (e *Etcd) Watch(ctx context.Context, host string, h rpc.Handler) error {
	logger := log.WithFunc("etcd.Watch").WithField("host", host)
	logger.Infof(ctx, "watching %s", e.keys.root())

	wch := e.cli.Watch(clientv3.WithRequireLeader(ctx), e.keys.root(), clientv3.WithPrefix())
	for resp := range wch {
		if err := resp.Err(); err != nil {
			return errors.Wrap(err, "watch")
		}
		for _, ev := range resp.Events {
			e.dispatch(ctx, string(ev.Kv.Key), ev.Kv.Value, ev.Type == clientv3.EventTypeDelete, h)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("watch channel closed")
}

func (e *Etcd) dispatch(ctx context.Context, key string, value []byte, deleted bool, h rpc.Handler) {
	dir, id, ok := e.keys.split(key)
	if !ok {
		return
	}

	switch {
	case dir == portsDir && !deleted:
		var port rpc.Port
		if err := decode(value, &port); err != nil {
			log.WithFunc("etcd.dispatch").Warnf(ctx, "skip update of port %s: %s", id, err)
			return
		}
		if len(port.ID) < 1 {
			port.ID = id
		}
		h.PortUpdate(ctx, &port)
	case dir == networksDir && deleted:
		h.NetworkDelete(ctx, id)
	}
}

// Close .
func (e *Etcd) Close() error {
	e.Lock()
	defer e.Unlock()
	return e.cli.Close()
}
