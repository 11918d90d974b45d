package agent

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/openstack-archive/networking-zvm/internal/rpc"
	"github.com/openstack-archive/networking-zvm/internal/utils"
)

// heartbeat reports the agent state every report_interval. 0 disables it.
func (m *Manager) heartbeat(ctx context.Context) {
	interval := m.config.ReportInterval.Duration()
	if interval <= 0 {
		return
	}
	logger := log.WithFunc("agent.heartbeat").WithField("host", m.config.Host)
	report := func() {
		if err := utils.Pool.Submit(func() { m.reportState(ctx) }); err != nil {
			logger.Error(ctx, err, "failed to submit state report")
		}
	}
	report()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			report()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) agentState() *rpc.AgentState {
	return &rpc.AgentState{
		Binary: rpc.AgentBinary,
		Host:   m.config.Host,
		Topic:  m.config.Topic,
		Configurations: map[string]any{
			"vswitch_mappings": m.vswitches.Mapping(),
		},
		AgentType: rpc.AgentType,
		StartFlag: m.startFlag.Load(),
	}
}

// reportState sends start_flag until the first report gets through.
func (m *Manager) reportState(ctx context.Context) {
	logger := log.WithFunc("agent.reportState").WithField("host", m.config.Host)
	logger.Debug(ctx, "report begins")
	defer logger.Debug(ctx, "report ends")

	state := m.agentState()
	var err error
	utils.WithTimeout(ctx, m.config.GracefulTimeout.Duration(), func(ctx context.Context) {
		err = m.plugin.ReportState(ctx, state)
	})
	if err != nil {
		logger.Error(ctx, err, "failed reporting state")
		return
	}
	m.startFlag.Store(false)
}
