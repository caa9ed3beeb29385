// Package hypervisor provides the control channel to UTM virtual machines.
// Every read and write goes through automation scripts executed by a Runner,
// one command at a time.
package hypervisor

import "context"

// Driver is the main interface for talking to a UTM front end.
// Version-specific strategies satisfy this interface.
type Driver interface {
	Query
	Mutate
	Info() Info
	// Capabilities returns what features the selected UTM version supports.
	Capabilities() Capabilities
}

// Query reads hypervisor-applied VM configuration. The returned text is the
// raw script output; callers are expected to parse it immediately.
type Query interface {
	// NetworkArguments returns the custom QEMU network argument dump.
	NetworkArguments(ctx context.Context, vmID string) (string, error)

	// NetworkInterfaces returns the native network interface listing.
	// Empty when the strategy has no native interface support.
	NetworkInterfaces(ctx context.Context, vmID string) (string, error)
}

// Mutate changes the custom QEMU arguments of a VM. Both calls take a batch;
// a failure means the final state is unknown.
type Mutate interface {
	AddArguments(ctx context.Context, vmID string, args []string) error
	RemoveArguments(ctx context.Context, vmID string, args []string) error
}

// Capabilities describes driver feature support.
// Used for early validation before touching the VM.
type Capabilities struct {
	CustomArguments  bool // QEMU additional arguments can be read and edited
	NativeInterfaces bool // UTM's own network interface list is readable
	Export           bool // VM export via script
}

// Info contains driver metadata.
type Info struct {
	Name    string // strategy name, e.g. "utm46"
	Version string // UTM version the strategy was selected for
}
