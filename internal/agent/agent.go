package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/projecteru2/core/log"
	"github.com/robfig/cron/v3"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/network"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/internal/utils"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

// Manager binds the NICs listed in xCAT to their vswitches and keeps the
// control plane informed.
type Manager struct {
	config    *configs.Config
	accessor  zvm.Accessor
	plugin    rpc.PluginAPI
	vswitches *network.Vswitches

	agentID string
	zhcp    string
	ports   *PortMap
	// a port is worked on by one goroutine at a time
	busy *utils.GroupCAS

	// owned by the loop goroutine
	registered mapset.Set[string]
	primed     bool
	state      loopState

	// held while rebuilding
	monitorMu sync.Mutex
	xcatFP    zvm.Fingerprint
	zvmFP     zvm.Fingerprint

	trigger chan struct{}
	fatal   chan error
	cron    *cron.Cron

	startFlag atomic.Bool
	mCol      *MetricsCollector
}

// NewManager .
func NewManager(config *configs.Config, accessor zvm.Accessor, plugin rpc.PluginAPI, vswitches *network.Vswitches) (*Manager, error) {
	if vswitches == nil {
		return nil, terrors.Newf(terrors.ErrConfiguration, "no vswitch mapping")
	}
	zhcp := config.XCAT.ZHCPNodename
	m := &Manager{
		config:     config,
		accessor:   accessor,
		plugin:     plugin,
		vswitches:  vswitches,
		agentID:    "zvm_agent_" + zhcp,
		zhcp:       zhcp,
		ports:      NewPortMap(),
		busy:       utils.NewGroupCAS(),
		registered: mapset.NewSet[string](),
		trigger:    make(chan struct{}, 1),
		fatal:      make(chan error, 1),
		cron:       cron.New(),
		mCol:       newMetricsCollector(config.Host),
	}
	m.startFlag.Store(true)

	if interval := config.Monitor.Interval.Duration(); interval > 0 {
		if _, err := m.cron.AddFunc("@every "+interval.String(), m.kick); err != nil {
			return nil, terrors.Mark(errors.Wrapf(err, "schedule monitor every %s", interval), terrors.ErrConfiguration)
		}
	}
	return m, nil
}

// AgentID .
func (m *Manager) AgentID() string {
	return m.agentID
}

// Run blocks until ctx is done or a fatal error shows up. The xCAT version
// gate and the first restart rebuild finish before any loop starts.
func (m *Manager) Run(ctx context.Context) error {
	logger := log.WithFunc("agent.Run").WithField("zhcp", m.zhcp)

	if err := m.checkXCATVersion(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if err := m.handleRestart(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	m.cron.Start()
	defer m.cron.Stop()

	m.submit(ctx, "heartbeat", m.heartbeat)
	m.submit(ctx, "monitor", m.monitor)
	m.submit(ctx, "watch", m.watch)
	m.submit(ctx, "loop", m.loop)
	logger.Infof(ctx, "z/VM agent initialized, now running")

	select {
	case <-ctx.Done():
		logger.Info(ctx, "exiting")
		return nil
	case err := <-m.fatal:
		logger.Error(ctx, err, "fatal error, exiting")
		return err
	}
}

func (m *Manager) submit(ctx context.Context, name string, f func(context.Context)) {
	if err := utils.Pool.Submit(func() { f(ctx) }); err != nil {
		m.fail(errors.Wrapf(err, "start %s", name))
	}
}

// fail hands err to Run, only the first one counts.
func (m *Manager) fail(err error) {
	select {
	case m.fatal <- err:
	default:
	}
}
