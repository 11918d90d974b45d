package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openstack-archive/networking-zvm/configs"
	"github.com/openstack-archive/networking-zvm/internal/network"
	"github.com/openstack-archive/networking-zvm/internal/rpc"
	rpcmocks "github.com/openstack-archive/networking-zvm/internal/rpc/mocks"
	"github.com/openstack-archive/networking-zvm/internal/zvm"
	"github.com/openstack-archive/networking-zvm/internal/zvm/mocks"
	"github.com/openstack-archive/networking-zvm/pkg/terrors"
	"github.com/openstack-archive/networking-zvm/pkg/test/assert"
	"github.com/openstack-archive/networking-zvm/pkg/test/mock"
)

type testManager struct {
	*Manager
	acc    *mocks.Accessor
	plugin *rpcmocks.PluginAPI

	mu    sync.Mutex
	calls []string
}

func newTestConfig(t *testing.T) *configs.Config {
	cfg, err := configs.New()
	assert.NilErr(t, err)
	cfg.Host = "host1"
	cfg.XCAT.ZHCPNodename = "zhcp"
	cfg.Network.FlatNetworks = []string{"xcatvsw2"}
	cfg.Network.NetworkVLANRanges = []string{"vsw1:10:20"}
	cfg.Monitor.RetryDelay = configs.Duration(10 * time.Millisecond)
	cfg.Monitor.Interval = 0
	cfg.PollingInterval = configs.Duration(20 * time.Millisecond)
	return cfg
}

func newTestVswitches(t *testing.T, cfg *configs.Config) *network.Vswitches {
	setup := &mocks.Accessor{}
	setup.On("QueryVswitch", mock.Anything, mock.Anything).Return(true, nil)
	v, err := network.Setup(context.Background(), setup, cfg)
	assert.NilErr(t, err)
	return v
}

func newTestManager(t *testing.T, cfg *configs.Config) *testManager {
	if cfg == nil {
		cfg = newTestConfig(t)
	}
	tm := &testManager{
		acc:    &mocks.Accessor{},
		plugin: &rpcmocks.PluginAPI{},
	}
	m, err := NewManager(cfg, tm.acc, tm.plugin, newTestVswitches(t, cfg))
	assert.NilErr(t, err)
	tm.Manager = m
	return tm
}

// record returns a Run func which appends name to the call log.
func (tm *testManager) record(name string) func(mock.Arguments) {
	return func(mock.Arguments) {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		tm.calls = append(tm.calls, name)
	}
}

func (tm *testManager) recorded() []string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return append([]string{}, tm.calls...)
}

func (tm *testManager) assertExpectations(t *testing.T) {
	tm.acc.AssertExpectations(t)
	tm.plugin.AssertExpectations(t)
}

func rows(ports ...string) []*zvm.SwitchRow {
	var rs []*zvm.SwitchRow
	for _, p := range ports {
		rs = append(rs, &zvm.SwitchRow{Port: p, Comments: "zhcp"})
	}
	return rs
}

func TestNewManager(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := NewManager(cfg, &mocks.Accessor{}, &rpcmocks.PluginAPI{}, nil)
	assert.True(t, terrors.IsConfiguration(err))

	tm := newTestManager(t, cfg)
	assert.Equal(t, "zvm_agent_zhcp", tm.AgentID())
	assert.Equal(t, 0, tm.ports.Len())
	assert.True(t, tm.startFlag.Load())

	cfg.Monitor.Interval = configs.Duration(10 * time.Minute)
	_, err = NewManager(cfg, &mocks.Accessor{}, &rpcmocks.PluginAPI{}, newTestVswitches(t, cfg))
	assert.NilErr(t, err)
}

func TestRunStopsOnConfigurationError(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Network.FlatNetworks = nil
	cfg.XCAT.MgtIP = "10.1.0.1"
	cfg.XCAT.MgtMask = "255.255.0.0"
	tm := newTestManager(t, cfg)
	defer tm.assertExpectations(t)

	tm.acc.On("XCATVersion", mock.Anything).Return("2.8.3.16", nil).Once()
	tm.acc.On("QueryFingerprint", mock.Anything, zvm.TargetXCAT).Return(zvm.Fingerprint("x1"), nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tm.Run(ctx)
	assert.True(t, terrors.IsConfiguration(err))
}

func TestRunUntilCanceled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ReportInterval = configs.Duration(time.Hour)
	tm := newTestManager(t, cfg)

	tm.acc.On("XCATVersion", mock.Anything).Return("2.9", nil).Once()
	tm.acc.On("QueryFingerprint", mock.Anything, zvm.TargetXCAT).Return(zvm.Fingerprint("x1"), nil)
	tm.acc.On("QueryFingerprint", mock.Anything, zvm.TargetZVM).Return(zvm.Fingerprint("z1"), nil)
	tm.acc.On("BulkRegrant", mock.Anything, 1000).Return(map[string]*zvm.PortBinding{}, nil).Once()
	tm.acc.On("ListNICBindings", mock.Anything, "zhcp").Return(rows("p1"), nil)
	tm.plugin.On("ReportState", mock.Anything, mock.Anything).Return(nil)
	tm.plugin.On("Watch", mock.Anything, "host1", mock.Anything).Return(func(ctx context.Context, _ string, _ rpc.Handler) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NilErr(t, tm.Run(ctx))
}
