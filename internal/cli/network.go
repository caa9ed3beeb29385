package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/javanstorm/utmnet/internal/metrics"
	"github.com/javanstorm/utmnet/internal/network"
	"github.com/javanstorm/utmnet/internal/timing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect and reconcile network adapters",
	Long: `Inspect and reconcile the QEMU network adapters of a configured machine.

The machine argument is a machine name or UTM UUID from the configuration.`,
}

var networkSyncCmd = &cobra.Command{
	Use:   "sync <machine>",
	Short: "Converge adapters to the declared networks",
	Long: `Ensure the base adapters exist, remove every additional adapter and add
the declared networks back in order.

With no declared networks only the base adapters are ensured; existing
additional adapters are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runNetworkSync,
}

var networkPlanCmd = &cobra.Command{
	Use:   "plan <machine>",
	Short: "Show the compiled networks and the arguments sync would add",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkPlan,
}

var networkListCmd = &cobra.Command{
	Use:   "list <machine>",
	Short: "List the adapters currently configured in UTM",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkList,
}

var networkClearCmd = &cobra.Command{
	Use:   "clear <machine>",
	Short: "Remove every adapter except the base adapters",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkClear,
}

var (
	syncTimeout     time.Duration
	syncTiming      bool
	syncMetricsFile string
)

func init() {
	networkSyncCmd.Flags().DurationVar(&syncTimeout, "timeout", 2*time.Minute, "abort the sync after this long (0 disables)")
	networkSyncCmd.Flags().BoolVar(&syncTiming, "timing", false, "print per-phase timing")
	networkSyncCmd.Flags().StringVar(&syncMetricsFile, "metrics-textfile", "", "write Prometheus metrics to this file")

	networkCmd.AddCommand(networkSyncCmd)
	networkCmd.AddCommand(networkPlanCmd)
	networkCmd.AddCommand(networkListCmd)
	networkCmd.AddCommand(networkClearCmd)
}

func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func runNetworkSync(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	s, err := openSession(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, syncTimeout)
	defer cancel()

	var timer *timing.Timer
	if syncTiming {
		timer = timing.New()
	}

	descriptors := network.Compile(s.machine.Entries())
	res, err := s.reconciler(newProgress(out), timer).Reconcile(ctx, s.machine.ID, descriptors)

	if syncMetricsFile != "" {
		if merr := writeMetrics(syncMetricsFile, s.machine.Name, res, err); merr != nil {
			logger.Warn("failed to write metrics", zap.String("path", syncMetricsFile), zap.Error(merr))
		}
	}
	if err != nil {
		return fmt.Errorf("sync %s: %w", s.machine.Name, err)
	}

	fields := []zap.Field{
		zapMachine(s.machine),
		zap.Int("desired", res.Desired),
		zap.Strings("added", res.Added),
		zap.Int("removed", len(res.Removed)),
	}
	if timer != nil {
		fields = append(fields, timer.Fields()...)
	}
	logger.Info("network sync complete", fields...)

	if !quietMode {
		fmt.Fprintf(out, "%s: %d network(s) declared, %d adapter(s) added, %d argument(s) removed\n",
			s.machine.Name, res.Desired, len(res.Added), len(res.Removed))
	}
	if timer != nil {
		timer.Report(out)
	}
	return nil
}

func writeMetrics(path, machine string, res *network.Result, runErr error) error {
	rec, err := metrics.New()
	if err != nil {
		return err
	}
	rec.Observe(machine, res, runErr)
	return rec.WriteTextfile(path)
}

// planMAC stands in for generated MAC addresses in plan output.
const planMAC = "<random>"

type planOutput struct {
	Machine   string               `yaml:"machine"`
	ID        string               `yaml:"id"`
	Networks  []network.Descriptor `yaml:"networks"`
	Arguments []plannedAdapter     `yaml:"arguments"`
}

type plannedAdapter struct {
	NetID  string `yaml:"net_id"`
	Netdev string `yaml:"netdev"`
	Device string `yaml:"device"`
}

func runNetworkPlan(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	plan, err := buildPlan(s, network.Compile(s.machine.Entries()))
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}

// buildPlan predicts the arguments a sync would produce for descriptors,
// base adapters first.
func buildPlan(s *session, descriptors []network.Descriptor) (*planOutput, error) {
	builder := network.NewBuilder(s.cfg.Network.DefaultBridge)
	builder.NewMAC = func() (string, error) { return planMAC, nil }

	plan := &planOutput{
		Machine:   s.machine.Name,
		ID:        s.machine.ID,
		Networks:  descriptors,
		Arguments: []plannedAdapter{},
	}
	if plan.Networks == nil {
		plan.Networks = []network.Descriptor{}
	}

	add := func(index int, mode network.Mode, d *network.Descriptor) error {
		netID := network.NetID(index)
		netdev, device, err := builder.Build(netID, mode, d)
		if err != nil {
			return fmt.Errorf("build %s: %w", netID, err)
		}
		plan.Arguments = append(plan.Arguments, plannedAdapter{NetID: netID, Netdev: netdev, Device: device})
		return nil
	}

	if err := add(network.SharedAdapterIndex, network.ModeShared, nil); err != nil {
		return nil, err
	}
	if err := add(network.EmulatedAdapterIndex, network.ModeEmulated, nil); err != nil {
		return nil, err
	}
	for i := range descriptors {
		d := &descriptors[i]
		if err := add(d.AdapterIndex, d.Mode, d); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func runNetworkList(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, syncTimeout)
	defer cancel()

	reader := s.reconciler(nil, nil).Reader()
	adapters, err := reader.ListAdapters(ctx, s.machine.ID)
	if err != nil {
		return fmt.Errorf("list adapters: %w", err)
	}
	native, err := reader.ListNativeInterfaces(ctx, s.machine.ID)
	if err != nil {
		return fmt.Errorf("list native interfaces: %w", err)
	}

	printAdapters(cmd.OutOrStdout(), s.machine.Name, adapters, native)
	return nil
}

func printAdapters(w io.Writer, machine string, adapters map[string]network.AdapterRecord, native map[int]string) {
	fmt.Fprintf(w, "Machine: %s\n\n", machine)

	fmt.Fprintln(w, "QEMU adapters:")
	if len(adapters) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, id := range sortNetIDs(adapters) {
		rec := adapters[id]
		state := "complete"
		switch {
		case !rec.NetdevPresent:
			state = "partial (no netdev)"
		case !rec.DevicePresent:
			state = "partial (no device)"
		}
		marker := ""
		if network.IsReserved(id) {
			marker = " [base]"
		}
		fmt.Fprintf(w, "  %-6s %s%s\n", id, state, marker)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Native interfaces:")
	if len(native) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	indexes := make([]int, 0, len(native))
	for i := range native {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		fmt.Fprintf(w, "  nic%d   %s\n", i, native[i])
	}
}

// sortNetIDs orders ids by adapter index, so net10 follows net9.
func sortNetIDs(adapters map[string]network.AdapterRecord) []string {
	ids := make([]string, 0, len(adapters))
	for id := range adapters {
		ids = append(ids, id)
	}
	index := func(id string) int {
		n, err := strconv.Atoi(strings.TrimPrefix(id, "net"))
		if err != nil {
			return -1
		}
		return n
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := index(ids[i]), index(ids[j])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

func runNetworkClear(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, syncTimeout)
	defer cancel()

	removed, err := s.reconciler(newProgress(cmd.OutOrStdout()), nil).ClearAdditionalAdapters(ctx, s.machine.ID)
	if err != nil {
		return err
	}
	if !quietMode {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d argument(s)\n", s.machine.Name, len(removed))
	}
	return nil
}
