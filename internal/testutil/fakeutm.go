package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	netdevIDPattern = regexp.MustCompile(`^-netdev \S*?id=([^,\s]+)`)
	deviceIDPattern = regexp.MustCompile(`^-device .*netdev=([^,\s]+)`)
)

// FakeUTM is an in-memory UTM VM. It renders the same text the read scripts
// produce and applies add/remove batches to its argument list, matching
// removals on the literal argument text.
type FakeUTM struct {
	mu sync.Mutex

	// Args are the VM's custom QEMU arguments, in order.
	Args []string
	// Native lists UTM native interfaces, index to type.
	Native map[int]string

	AddCalls    [][]string
	RemoveCalls [][]string
	ReadCalls   int

	// Errors injected per method name ("NetworkArguments", "NetworkInterfaces",
	// "AddArguments", "RemoveArguments").
	Errors map[string]error
}

// NewFakeUTM creates a fake VM holding args.
func NewFakeUTM(args ...string) *FakeUTM {
	return &FakeUTM{Args: append([]string(nil), args...)}
}

// AdapterArgs returns a canonical argument pair for netID.
func AdapterArgs(netID, backend string) []string {
	return []string{
		fmt.Sprintf("-netdev vmnet-%s,id=%s", backend, netID),
		fmt.Sprintf("-device e1000,mac=02:00:00:00:00:00,netdev=%s", netID),
	}
}

// NetworkArguments renders netdev/device markers followed by the raw
// "Arg N:" lines.
func (f *FakeUTM) NetworkArguments(ctx context.Context, vmID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ReadCalls++
	if err := f.Errors["NetworkArguments"]; err != nil {
		return "", err
	}

	var b strings.Builder
	for _, arg := range f.Args {
		if m := netdevIDPattern.FindStringSubmatch(arg); m != nil {
			fmt.Fprintf(&b, "netdev:%s\n", m[1])
		} else if m := deviceIDPattern.FindStringSubmatch(arg); m != nil {
			fmt.Fprintf(&b, "device:%s\n", m[1])
		}
	}
	for i, arg := range f.Args {
		fmt.Fprintf(&b, "Arg %d: %s\n", i, arg)
	}
	return b.String(), nil
}

// NetworkInterfaces renders "nic<N>,<type>" lines.
func (f *FakeUTM) NetworkInterfaces(ctx context.Context, vmID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.Errors["NetworkInterfaces"]; err != nil {
		return "", err
	}

	idx := make([]int, 0, len(f.Native))
	for i := range f.Native {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	var b strings.Builder
	for _, i := range idx {
		fmt.Fprintf(&b, "nic%d,%s\n", i, f.Native[i])
	}
	return b.String(), nil
}

// AddArguments appends args.
func (f *FakeUTM) AddArguments(ctx context.Context, vmID string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AddCalls = append(f.AddCalls, append([]string(nil), args...))
	if err := f.Errors["AddArguments"]; err != nil {
		return err
	}
	f.Args = append(f.Args, args...)
	return nil
}

// RemoveArguments drops every argument equal to one of args.
func (f *FakeUTM) RemoveArguments(ctx context.Context, vmID string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RemoveCalls = append(f.RemoveCalls, append([]string(nil), args...))
	if err := f.Errors["RemoveArguments"]; err != nil {
		return err
	}

	drop := make(map[string]bool, len(args))
	for _, a := range args {
		drop[a] = true
	}
	kept := f.Args[:0]
	for _, a := range f.Args {
		if !drop[a] {
			kept = append(kept, a)
		}
	}
	f.Args = kept
	return nil
}

// Mutations returns the number of add and remove calls received.
func (f *FakeUTM) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.AddCalls) + len(f.RemoveCalls)
}

// NetIDs returns the sorted ids of adapters whose netdev and device are both
// present.
func (f *FakeUTM) NetIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	netdevs := make(map[string]bool)
	devices := make(map[string]bool)
	for _, arg := range f.Args {
		if m := netdevIDPattern.FindStringSubmatch(arg); m != nil {
			netdevs[m[1]] = true
		} else if m := deviceIDPattern.FindStringSubmatch(arg); m != nil {
			devices[m[1]] = true
		}
	}

	var ids []string
	for id := range netdevs {
		if devices[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
