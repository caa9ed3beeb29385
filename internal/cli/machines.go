package cli

import (
	"fmt"

	"github.com/javanstorm/utmnet/internal/config"
	"github.com/javanstorm/utmnet/internal/network"
	"github.com/spf13/cobra"
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List configured machines",
	RunE:  runMachines,
}

func runMachines(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Global
	if cfg == nil || len(cfg.Machines) == 0 {
		fmt.Fprintln(out, "No machines configured.")
		return nil
	}

	fmt.Fprintf(out, "%-16s %-38s %s\n", "NAME", "ID", "NETWORKS")
	for _, m := range cfg.Machines {
		descriptors, report := network.CompileWithReport(m.Entries())
		networks := fmt.Sprintf("%d", len(descriptors))
		if n := len(report.Dropped); n > 0 {
			networks += fmt.Sprintf(" (%d ignored)", n)
		}
		fmt.Fprintf(out, "%-16s %-38s %s\n", m.Name, m.ID, networks)
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file and directories in use",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configPathCmd)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("get paths: %w", err)
	}

	used := config.ConfigFileUsed()
	if used == "" {
		used = "(none, using defaults)"
	}
	scripts := paths.ScriptsDir()
	if config.Global != nil {
		scripts = config.Global.UTM.ScriptsDir
	}

	fmt.Fprintf(out, "Config file: %s\n", used)
	fmt.Fprintf(out, "Config dir:  %s\n", paths.ConfigDir)
	fmt.Fprintf(out, "Data dir:    %s\n", paths.DataDir)
	fmt.Fprintf(out, "Scripts dir: %s\n", scripts)
	return nil
}
