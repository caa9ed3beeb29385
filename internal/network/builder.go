package network

import "fmt"

// Builder defaults.
const (
	DefaultBridgeInterface = "en0"

	DeviceTypeVirtio = "virtio-net-pci"
	DeviceTypeE1000  = "e1000"
)

// Builder produces the netdev/device argument pair for one adapter.
type Builder struct {
	// DefaultBridge is used for bridged adapters without a bridge interface.
	DefaultBridge string

	// NewMAC generates MAC addresses. Defaults to RandomMAC.
	NewMAC func() (string, error)
}

// NewBuilder creates a builder. An empty defaultBridge means "en0".
func NewBuilder(defaultBridge string) *Builder {
	if defaultBridge == "" {
		defaultBridge = DefaultBridgeInterface
	}
	return &Builder{
		DefaultBridge: defaultBridge,
		NewMAC:        RandomMAC,
	}
}

// Backend maps a mode to its vmnet backend name.
func Backend(mode Mode) string {
	switch mode {
	case ModeHostOnly, ModeInternal:
		return "host"
	case ModeBridged:
		return "bridged"
	case ModeEmulated:
		return "emulated"
	default:
		return "shared"
	}
}

// Build returns the arguments for adapter netID in mode. d may be nil for
// base adapters.
//
//	-netdev vmnet-<backend>,id=<netID>[,ifname=<iface>]
//	-device <deviceType>,mac=<mac>,netdev=<netID>
func (b *Builder) Build(netID string, mode Mode, d *Descriptor) (netdev, device string, err error) {
	var opts Descriptor
	if d != nil {
		opts = *d
	}

	mac := opts.MAC
	if mac == "" || mac == MACAuto {
		newMAC := b.NewMAC
		if newMAC == nil {
			newMAC = RandomMAC
		}
		if mac, err = newMAC(); err != nil {
			return "", "", err
		}
	}

	netdev = fmt.Sprintf("-netdev vmnet-%s,id=%s", Backend(mode), netID)
	if mode == ModeBridged {
		iface := opts.BridgeInterface
		if iface == "" {
			iface = b.DefaultBridge
		}
		if iface == "" {
			iface = DefaultBridgeInterface
		}
		netdev += ",ifname=" + iface
	}

	deviceType := opts.DeviceType
	if deviceType == "" {
		deviceType = DeviceTypeE1000
		if mode == ModeBridged {
			deviceType = DeviceTypeVirtio
		}
	}
	device = fmt.Sprintf("-device %s,mac=%s,netdev=%s", deviceType, mac, netID)

	return netdev, device, nil
}
