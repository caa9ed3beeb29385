package network

import (
	"fmt"
	"strings"
)

// providerScope prefixes option keys that only apply to this provider,
// e.g. "utm__mac" overrides "mac".
const providerScope = "utm"

// CompileReport lists entries that were retained but produced no descriptor.
type CompileReport struct {
	Dropped []Entry
}

// Compile turns configuration entries into descriptors. It never fails.
//
// Forwarded ports are filtered out. Every other entry takes the next adapter
// index starting at 2, in order. Entries of an unsupported type consume their
// index but are dropped silently; use CompileWithReport to see them.
func Compile(entries []Entry) []Descriptor {
	descriptors, _ := CompileWithReport(entries)
	return descriptors
}

// CompileWithReport is Compile plus the list of dropped entries.
func CompileWithReport(entries []Entry) ([]Descriptor, CompileReport) {
	var (
		descriptors []Descriptor
		report      CompileReport
	)
	index := FirstAdditionalIndex

	for _, e := range entries {
		if e.Type == TypeForwardedPort {
			continue
		}

		opts := ScopedOverride(e.Options, providerScope)

		switch e.Type {
		case TypePrivateNetwork:
			descriptors = append(descriptors, compilePrivate(index, opts))
		case TypePublicNetwork:
			descriptors = append(descriptors, compilePublic(index, opts))
		default:
			report.Dropped = append(report.Dropped, e)
		}

		index++
	}

	return descriptors, report
}

func compilePrivate(index int, opts map[string]any) Descriptor {
	d := Descriptor{
		AdapterIndex: index,
		Kind:         KindPrivate,
		Mode:         privateMode(opts),
	}
	applyAddressing(&d, opts)
	applyHardware(&d, opts)
	return d
}

func compilePublic(index int, opts map[string]any) Descriptor {
	d := Descriptor{
		AdapterIndex: index,
		Kind:         KindPublic,
		Mode:         ModeBridged,
	}
	applyHardware(&d, opts)
	applyAddressing(&d, opts)
	return d
}

// privateMode picks the mode for a private network. Every branch currently
// ends in host-only; internal is not reachable from configuration.
func privateMode(opts map[string]any) Mode {
	if _, ok := stringOption(opts, "bridge"); ok {
		return ModeHostOnly
	}
	if t, _ := stringOption(opts, "type"); t == "dhcp" {
		return ModeHostOnly
	}
	return ModeHostOnly
}

func applyAddressing(d *Descriptor, opts map[string]any) {
	ip, ok := stringOption(opts, "ip")
	if !ok {
		d.DHCP = true
		return
	}
	d.IP = ip
	d.Netmask = DefaultNetmask
	if mask, ok := stringOption(opts, "netmask"); ok {
		d.Netmask = mask
	}
	d.DHCP = false
}

func applyHardware(d *Descriptor, opts map[string]any) {
	if bridge, ok := stringOption(opts, "bridge"); ok {
		d.BridgeInterface = bridge
	}
	if mac, ok := stringOption(opts, "mac"); ok {
		d.MAC = mac
	}
	if dt, ok := stringOption(opts, "device_type"); ok {
		d.DeviceType = dt
	}
}

// ScopedOverride returns a copy of opts where every "<scope>__<key>" entry
// replaces "<key>". Keys scoped to other providers are left as they are.
func ScopedOverride(opts map[string]any, scope string) map[string]any {
	out := make(map[string]any, len(opts))
	prefix := scope + "__"
	for k, v := range opts {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	for k, v := range opts {
		if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
			out[name] = v
		}
	}
	return out
}

// stringOption reads opts[key] as a string. Missing, nil and empty values
// count as unset.
func stringOption(opts map[string]any, key string) (string, bool) {
	v, ok := opts[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
