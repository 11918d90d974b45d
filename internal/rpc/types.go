package rpc

const (
	// DeviceUp .
	DeviceUp = "up"
	// DeviceDown .
	DeviceDown = "down"

	// AgentBinary .
	AgentBinary = "neutron-zvm-agent"
	// AgentType .
	AgentType = "z/VM agent"
)

// Port is what the control plane stores for a port. It is the payload of
// port_update notifications as well.
type Port struct {
	ID              string `json:"id" mapstructure:"id"`
	NetworkID       string `json:"network_id" mapstructure:"network_id"`
	NetworkType     string `json:"network_type" mapstructure:"network_type"`
	PhysicalNetwork string `json:"physical_network" mapstructure:"physical_network"`
	SegmentationID  string `json:"segmentation_id" mapstructure:"segmentation_id"`
	AdminStateUp    bool   `json:"admin_state_up" mapstructure:"admin_state_up"`
	MACAddress      string `json:"mac_address" mapstructure:"mac_address"`
}

// DeviceDetails answers get_device_details. An unknown device has an empty PortID.
type DeviceDetails struct {
	Device          string `json:"device"`
	PortID          string `json:"port_id"`
	NetworkID       string `json:"network_id"`
	NetworkType     string `json:"network_type"`
	PhysicalNetwork string `json:"physical_network"`
	SegmentationID  string `json:"segmentation_id"`
	AdminStateUp    bool   `json:"admin_state_up"`
	MACAddress      string `json:"mac_address"`
}

// Known .
func (d *DeviceDetails) Known() bool {
	return d != nil && len(d.PortID) > 0
}

// NewDeviceDetails .
func NewDeviceDetails(device string, port *Port) *DeviceDetails {
	d := &DeviceDetails{Device: device}
	if port == nil {
		return d
	}
	d.PortID = port.ID
	if len(d.PortID) < 1 {
		d.PortID = device
	}
	d.NetworkID = port.NetworkID
	d.NetworkType = port.NetworkType
	d.PhysicalNetwork = port.PhysicalNetwork
	d.SegmentationID = port.SegmentationID
	d.AdminStateUp = port.AdminStateUp
	d.MACAddress = port.MACAddress
	return d
}

// DeviceStatus is written back by the agent.
type DeviceStatus struct {
	Status  string `json:"status"`
	AgentID string `json:"agent_id"`
	Host    string `json:"host"`
}

// AgentState is the heartbeat payload.
type AgentState struct {
	Binary         string         `json:"binary"`
	Host           string         `json:"host"`
	Topic          string         `json:"topic"`
	Configurations map[string]any `json:"configurations"`
	AgentType      string         `json:"agent_type"`
	StartFlag      bool           `json:"start_flag,omitempty"`
}
