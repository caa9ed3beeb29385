// Package cli provides the command-line interface for utmnet.
package cli

import (
	"fmt"

	"github.com/javanstorm/utmnet/internal/config"
	"github.com/javanstorm/utmnet/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	debugMode  bool

	// logger is built from the loaded config before any command runs.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "utmnet",
	Short: "utmnet - network adapters for UTM virtual machines",
	Long: `utmnet keeps the QEMU network adapters of UTM virtual machines in line
with a declared configuration.

Adapters 0 (shared NAT) and 1 (emulated, used for SSH port forwarding) are
always present. Every other adapter is rebuilt from the machine's declared
networks each time 'utmnet network sync' runs.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		switch cmd.Name() {
		case "version", "completion":
			return nil
		}
		if err := config.Load(configFile); err != nil {
			return err
		}
		l, err := newLogger(config.Global.LogLevel, debugMode)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: search ~/.utmnet and the platform config dir)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "suppress progress output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(machinesCmd)
	rootCmd.AddCommand(configCmd)
}
