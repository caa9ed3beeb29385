// Package network converges the network adapters of a UTM virtual machine to
// a declared set.
//
// Adapters 0 and 1 are reserved base adapters (shared NAT and the emulated
// VLAN used for SSH port forwarding). Every other adapter is rebuilt from the
// configuration on each run: all additional adapters are removed, then each
// declared network is added back in order.
package network

import "strconv"

// Entry types accepted in configuration.
const (
	TypePrivateNetwork = "private_network"
	TypePublicNetwork  = "public_network"
	TypeForwardedPort  = "forwarded_port"
)

// Kind is the kind of a declared attachment.
type Kind string

const (
	KindPrivate Kind = TypePrivateNetwork
	KindPublic  Kind = TypePublicNetwork
)

// Mode is the adapter mode handed to the argument builder.
type Mode string

const (
	ModeHostOnly Mode = "host_only"
	ModeBridged  Mode = "bridged"
	ModeInternal Mode = "internal"

	// Base adapter modes.
	ModeShared   Mode = "shared"
	ModeEmulated Mode = "emulated"
)

// Reserved adapter layout.
const (
	SharedAdapterIndex   = 0
	EmulatedAdapterIndex = 1
	FirstAdditionalIndex = 2
)

// DefaultNetmask is applied when a static IP has no netmask.
const DefaultNetmask = "255.255.255.0"

// MACAuto asks for a generated MAC address.
const MACAuto = "auto"

// Entry is one network declaration as it appears in configuration.
type Entry struct {
	Type    string
	Options map[string]any
}

// Descriptor is a normalized network attachment ready to be turned into
// device arguments.
type Descriptor struct {
	AdapterIndex    int    `yaml:"adapter" json:"adapter"`
	Kind            Kind   `yaml:"type" json:"type"`
	Mode            Mode   `yaml:"mode" json:"mode"`
	IP              string `yaml:"ip,omitempty" json:"ip,omitempty"`
	Netmask         string `yaml:"netmask,omitempty" json:"netmask,omitempty"`
	DHCP            bool   `yaml:"dhcp" json:"dhcp"`
	BridgeInterface string `yaml:"bridge,omitempty" json:"bridge,omitempty"`
	MAC             string `yaml:"mac,omitempty" json:"mac,omitempty"`
	DeviceType      string `yaml:"device_type,omitempty" json:"device_type,omitempty"`
}

// NetID returns the QEMU id for the descriptor's adapter.
func (d Descriptor) NetID() string {
	return NetID(d.AdapterIndex)
}

// NetID returns the QEMU id ("net<index>") correlating a netdev with its device.
func NetID(index int) string {
	return "net" + strconv.Itoa(index)
}

// IsReserved reports whether netID belongs to a base adapter.
func IsReserved(netID string) bool {
	return netID == NetID(SharedAdapterIndex) || netID == NetID(EmulatedAdapterIndex)
}

// AdapterRecord is the observed state of one adapter.
type AdapterRecord struct {
	NetID         string
	NetdevPresent bool
	DevicePresent bool
}

// Complete reports whether both halves of the adapter exist. Anything else is
// treated as absent.
func (r AdapterRecord) Complete() bool {
	return r.NetdevPresent && r.DevicePresent
}
