package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/javanstorm/utmnet/internal/network"
	"github.com/spf13/viper"
)

// Config holds all utmnet configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// UTM configures the hypervisor control channel.
	UTM UTMConfig `mapstructure:"utm"`

	// Network configures adapter reconciliation.
	Network NetworkConfig `mapstructure:"network"`

	// Machines is the VM inventory.
	Machines []Machine `mapstructure:"machines"`
}

// UTMConfig selects and locates the UTM driver.
type UTMConfig struct {
	// Version of the installed UTM, used to pick the driver strategy.
	Version string `mapstructure:"version"`

	// ScriptsDir holds the AppleScript automation scripts.
	ScriptsDir string `mapstructure:"scripts_dir"`

	// Osascript is the AppleScript interpreter.
	Osascript string `mapstructure:"osascript"`
}

// NetworkConfig tunes adapter reconciliation.
type NetworkConfig struct {
	// DefaultBridge is the host interface for bridged adapters without one.
	DefaultBridge string `mapstructure:"default_bridge"`

	// Match selects how raw arguments are matched for removal:
	// "exact" (id boundaries) or "substring" (legacy containment).
	Match string `mapstructure:"match"`
}

// Machine is one VM and its declared networks.
type Machine struct {
	Name     string         `mapstructure:"name"`
	ID       string         `mapstructure:"id"`
	Networks []NetworkEntry `mapstructure:"networks"`
}

// NetworkEntry is a single network declaration.
type NetworkEntry struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// Entries converts the machine's declarations for the network compiler.
func (m Machine) Entries() []network.Entry {
	entries := make([]network.Entry, 0, len(m.Networks))
	for _, n := range m.Networks {
		entries = append(entries, network.Entry{Type: n.Type, Options: n.Options})
	}
	return entries
}

// ErrMachineNotFound is returned by FindMachine.
var ErrMachineNotFound = errors.New("config: machine not found")

// FindMachine looks a machine up by name or id.
func (c *Config) FindMachine(nameOrID string) (*Machine, error) {
	for i := range c.Machines {
		m := &c.Machines[i]
		if m.Name == nameOrID || strings.EqualFold(m.ID, nameOrID) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMachineNotFound, nameOrID)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	paths, err := GetPaths()
	if err != nil {
		// Fallback if we can't determine home directory
		paths = &Paths{
			DataDir: "/tmp/utmnet",
		}
	}

	return &Config{
		LogLevel: "info",
		UTM: UTMConfig{
			Version:    "4.6.0",
			ScriptsDir: paths.ScriptsDir(),
			Osascript:  "osascript",
		},
		Network: NetworkConfig{
			DefaultBridge: network.DefaultBridgeInterface,
			Match:         network.MatchExact,
		},
	}
}

// Global holds the loaded configuration.
var Global *Config

// Load reads configuration from file, environment, and defaults into Global.
// An empty configFile searches the data and config directories.
func Load(configFile string) error {
	cfg, used, err := read(viper.New(), configFile)
	if err != nil {
		return err
	}
	Global = cfg
	configFileUsed = used
	return nil
}

var configFileUsed string

// ConfigFileUsed returns the path of the config file being used, if any.
func ConfigFileUsed() string {
	return configFileUsed
}

func read(v *viper.Viper, configFile string) (*Config, string, error) {
	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("utm.version", defaults.UTM.Version)
	v.SetDefault("utm.scripts_dir", defaults.UTM.ScriptsDir)
	v.SetDefault("utm.osascript", defaults.UTM.Osascript)
	v.SetDefault("network.default_bridge", defaults.Network.DefaultBridge)
	v.SetDefault("network.match", defaults.Network.Match)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		paths, err := GetPaths()
		if err != nil {
			return nil, "", fmt.Errorf("failed to determine paths: %w", err)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(paths.DataDir)
		v.AddConfigPath(paths.ConfigDir)
	}

	// Environment variable support: UTMNET_LOG_LEVEL, UTMNET_UTM_VERSION, etc.
	v.SetEnvPrefix("UTMNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK - we use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}
