package hypervisor

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// strategy is the fully specified behavior of one UTM release line.
type strategy struct {
	name       string
	minVersion string
	caps       Capabilities
}

// strategies is ordered newest first; the first entry whose minVersion is
// not above the detected version wins.
var strategies = []strategy{
	{
		name:       "utm46",
		minVersion: "v4.6.0",
		caps: Capabilities{
			CustomArguments:  true,
			NativeInterfaces: true,
			Export:           true,
		},
	},
	{
		name:       "utm45",
		minVersion: "v4.5.0",
		caps: Capabilities{
			CustomArguments:  true,
			NativeInterfaces: true,
			Export:           false,
		},
	},
}

// NormalizeVersion turns "4.6", "4.6.1" or "v4.6.1" into a canonical
// semantic version ("v4.6.1").
func NormalizeVersion(version string) (string, error) {
	v := strings.TrimSpace(version)
	if v == "" {
		return "", ErrInvalidVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return semver.Canonical(v), nil
}

// New creates a driver for the given UTM version.
func New(cfg Config) (Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	version, err := NormalizeVersion(cfg.Version)
	if err != nil {
		return nil, err
	}

	for _, s := range strategies {
		if semver.Compare(version, s.minVersion) >= 0 {
			return &scriptDriver{
				strategy:   s,
				version:    version,
				scriptsDir: cfg.ScriptsDir,
				osascript:  cfg.Osascript,
				runner:     cfg.Runner,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
}
