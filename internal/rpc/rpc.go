package rpc

import "context"

// PluginAPI is the control plane as the agent sees it.
type PluginAPI interface {
	GetDeviceDetails(ctx context.Context, deviceID, agentID string) (*DeviceDetails, error)
	UpdateDeviceUp(ctx context.Context, deviceID, agentID, host string) error
	UpdateDeviceDown(ctx context.Context, deviceID, agentID, host string) error
	ReportState(ctx context.Context, state *AgentState) error
	// Watch delivers notifications to h until ctx is done or the stream breaks.
	Watch(ctx context.Context, host string, h Handler) error
}

// Handler consumes inbound notifications.
type Handler interface {
	PortUpdate(ctx context.Context, port *Port)
	NetworkDelete(ctx context.Context, networkID string)
}
