package network

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Querier reads raw adapter state from the hypervisor.
type Querier interface {
	NetworkArguments(ctx context.Context, vmID string) (string, error)
	NetworkInterfaces(ctx context.Context, vmID string) (string, error)
}

var (
	rawArgLine    = regexp.MustCompile(`^Arg \d+: (.+)$`)
	nativeNICLine = regexp.MustCompile(`^nic(\d+),(.+?)$`)
)

// StateReader turns the hypervisor's text dumps into typed records.
type StateReader struct {
	q      Querier
	logger *zap.Logger
}

// NewStateReader creates a reader on top of q.
func NewStateReader(q Querier, logger *zap.Logger) *StateReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateReader{q: q, logger: logger}
}

// ListAdapters returns the adapters found in the custom argument dump, keyed
// by net id.
func (r *StateReader) ListAdapters(ctx context.Context, vmID string) (map[string]AdapterRecord, error) {
	out, err := r.q.NetworkArguments(ctx, vmID)
	if err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}
	adapters := ParseAdapters(out)
	for id, rec := range adapters {
		if !rec.Complete() {
			r.logger.Debug("partial adapter treated as absent",
				zap.String("vm", vmID),
				zap.String("net_id", id),
				zap.Bool("netdev", rec.NetdevPresent),
				zap.Bool("device", rec.DevicePresent),
			)
		}
	}
	return adapters, nil
}

// ListRawArguments returns the exact text of every custom argument, in order.
// Removal has to quote these strings verbatim.
func (r *StateReader) ListRawArguments(ctx context.Context, vmID string) ([]string, error) {
	out, err := r.q.NetworkArguments(ctx, vmID)
	if err != nil {
		return nil, fmt.Errorf("list raw arguments: %w", err)
	}
	return ParseRawArguments(out), nil
}

// ListNativeInterfaces returns adapters configured through UTM's own
// interface list, index to type.
func (r *StateReader) ListNativeInterfaces(ctx context.Context, vmID string) (map[int]string, error) {
	out, err := r.q.NetworkInterfaces(ctx, vmID)
	if err != nil {
		return nil, fmt.Errorf("list native interfaces: %w", err)
	}
	return ParseNativeInterfaces(out), nil
}

// ParseAdapters reads "netdev:<id>" and "device:<id>" lines.
func ParseAdapters(out string) map[string]AdapterRecord {
	adapters := make(map[string]AdapterRecord)
	eachLine(out, func(line string) {
		var (
			id     string
			netdev bool
		)
		switch {
		case strings.HasPrefix(line, "netdev:"):
			id, netdev = markerID(line, "netdev:"), true
		case strings.HasPrefix(line, "device:"):
			id = markerID(line, "device:")
		default:
			return
		}
		if id == "" {
			return
		}
		rec := adapters[id]
		rec.NetID = id
		if netdev {
			rec.NetdevPresent = true
		} else {
			rec.DevicePresent = true
		}
		adapters[id] = rec
	})
	return adapters
}

// ParseRawArguments reads "Arg <n>: <text>" lines.
func ParseRawArguments(out string) []string {
	var args []string
	eachLine(out, func(line string) {
		if m := rawArgLine.FindStringSubmatch(line); m != nil {
			args = append(args, m[1])
		}
	})
	return args
}

// ParseNativeInterfaces reads "nic<n>,<type>" lines.
func ParseNativeInterfaces(out string) map[int]string {
	nics := make(map[int]string)
	eachLine(out, func(line string) {
		m := nativeNICLine.FindStringSubmatch(line)
		if m == nil {
			return
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		nics[idx] = m[2]
	})
	return nics
}

// markerID extracts the id following marker, up to the next colon.
func markerID(line, marker string) string {
	rest := strings.TrimPrefix(line, marker)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func eachLine(out string, fn func(line string)) {
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			fn(line)
		}
	}
}
