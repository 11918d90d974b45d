package network

const (
	// FlatType .
	FlatType = "flat"
	// VLANType .
	VLANType = "vlan"

	// UnawareVID creates a vswitch which doesn't tag frames.
	UnawareVID = "UNAWARE"

	minVID = 1
	maxVID = 4094
)
