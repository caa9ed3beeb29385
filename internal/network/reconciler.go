package network

import (
	"context"
	"fmt"
	"sort"

	"github.com/javanstorm/utmnet/internal/timing"
	"go.uber.org/zap"
)

// Mutator changes the custom arguments of a VM in batches.
type Mutator interface {
	AddArguments(ctx context.Context, vmID string, args []string) error
	RemoveArguments(ctx context.Context, vmID string, args []string) error
}

// Channel is the single control channel to the hypervisor.
type Channel interface {
	Querier
	Mutator
}

// Progress receives human-readable status lines. It never affects control
// flow.
type Progress interface {
	Output(msg string)
	Detail(msg string)
}

type nopProgress struct{}

func (nopProgress) Output(string) {}
func (nopProgress) Detail(string) {}

// baseAdapters are ensured on every run, in this order.
var baseAdapters = []struct {
	index int
	mode  Mode
}{
	{SharedAdapterIndex, ModeShared},
	{EmulatedAdapterIndex, ModeEmulated},
}

// ReconcilerConfig holds the collaborators of a Reconciler. Zero values get
// defaults.
type ReconcilerConfig struct {
	Builder  *Builder
	Matcher  ArgumentMatcher
	Logger   *zap.Logger
	Progress Progress

	// Timer, when set, gets a mark after each phase.
	Timer *timing.Timer
}

// Reconciler converges a VM's adapters. It keeps no state between calls; all
// decisions are made on state read during the call.
type Reconciler struct {
	reader   *StateReader
	mutator  Mutator
	builder  *Builder
	matcher  ArgumentMatcher
	logger   *zap.Logger
	progress Progress
	timer    *timing.Timer
}

// NewReconciler creates a reconciler that talks to ch.
func NewReconciler(ch Channel, cfg ReconcilerConfig) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Builder == nil {
		cfg.Builder = NewBuilder("")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = ExactMatcher{}
	}
	if cfg.Progress == nil {
		cfg.Progress = nopProgress{}
	}
	return &Reconciler{
		reader:   NewStateReader(ch, cfg.Logger),
		mutator:  ch,
		builder:  cfg.Builder,
		matcher:  cfg.Matcher,
		logger:   cfg.Logger,
		progress: cfg.Progress,
		timer:    cfg.Timer,
	}
}

// Reader exposes the state reader used by the reconciler.
func (r *Reconciler) Reader() *StateReader {
	return r.reader
}

// Result summarizes one Reconcile call.
type Result struct {
	// Added lists net ids whose argument pair was added.
	Added []string
	// Removed lists the raw arguments removed by the clear step.
	Removed []string
	// Skipped lists net ids that were already present.
	Skipped []string
	// Desired is the number of compiled descriptors.
	Desired int
}

// Mutations returns the number of mutation calls the run issued.
func (res *Result) Mutations() int {
	n := len(res.Added)
	if len(res.Removed) > 0 {
		n++
	}
	return n
}

// Reconcile makes the VM's adapters equal to the base adapters plus
// descriptors. Base adapters are always ensured. With at least one
// descriptor, every additional adapter is removed first and the descriptors
// are added back in order.
func (r *Reconciler) Reconcile(ctx context.Context, vmID string, descriptors []Descriptor) (*Result, error) {
	res := &Result{Desired: len(descriptors)}

	r.progress.Detail("Ensuring base network adapters exist...")
	if err := r.ensureBase(ctx, vmID, res); err != nil {
		return res, err
	}
	r.mark("base")

	if len(descriptors) == 0 {
		return res, nil
	}

	r.progress.Output("Configuring and enabling network interfaces...")

	removed, err := r.ClearAdditionalAdapters(ctx, vmID)
	res.Removed = removed
	if err != nil {
		return res, err
	}
	r.mark("clear")

	for i := range descriptors {
		d := &descriptors[i]
		r.progress.Detail(fmt.Sprintf("Adapter %d: %s", d.AdapterIndex+1, d.Kind))

		added, err := r.AddAdapter(ctx, vmID, d.AdapterIndex, d.Mode, d)
		if err != nil {
			return res, err
		}
		if added {
			res.Added = append(res.Added, d.NetID())
		} else {
			res.Skipped = append(res.Skipped, d.NetID())
		}
	}
	r.mark("add")

	return res, nil
}

// EnsureBaseAdapters adds the shared (0) and emulated (1) adapters if they
// are missing. An adapter counts as present when its argument pair is
// complete or when UTM lists it as a native interface.
func (r *Reconciler) EnsureBaseAdapters(ctx context.Context, vmID string) error {
	return r.ensureBase(ctx, vmID, &Result{})
}

func (r *Reconciler) ensureBase(ctx context.Context, vmID string, res *Result) error {
	log := r.logger.With(zap.String("vm", vmID))

	existing, err := r.reader.ListAdapters(ctx, vmID)
	if err != nil {
		return fmt.Errorf("ensure base adapters: %w", err)
	}

	var native map[int]string
	for _, base := range baseAdapters {
		netID := NetID(base.index)
		if existing[netID].Complete() {
			log.Debug("base adapter already exists", zap.String("net_id", netID))
			res.Skipped = append(res.Skipped, netID)
			continue
		}

		if native == nil {
			native, err = r.reader.ListNativeInterfaces(ctx, vmID)
			if err != nil {
				return fmt.Errorf("ensure base adapters: %w", err)
			}
		}
		if typ, ok := native[base.index]; ok {
			log.Debug("base adapter exists as native interface",
				zap.Int("adapter", base.index), zap.String("type", typ))
			res.Skipped = append(res.Skipped, netID)
			continue
		}

		if err := r.add(ctx, vmID, netID, base.mode, nil); err != nil {
			return fmt.Errorf("ensure base adapter %s: %w", netID, err)
		}
		res.Added = append(res.Added, netID)
	}
	return nil
}

// ClearAdditionalAdapters removes every adapter except net0 and net1 in one
// batched call and returns the removed arguments. Nothing is called when
// there is nothing to remove.
func (r *Reconciler) ClearAdditionalAdapters(ctx context.Context, vmID string) ([]string, error) {
	log := r.logger.With(zap.String("vm", vmID))

	existing, err := r.reader.ListAdapters(ctx, vmID)
	if err != nil {
		return nil, fmt.Errorf("clear additional adapters: %w", err)
	}

	var toRemove []string
	for id := range existing {
		if !IsReserved(id) {
			toRemove = append(toRemove, id)
		}
	}
	if len(toRemove) == 0 {
		log.Info("no additional network adapters to remove")
		return nil, nil
	}
	sort.Strings(toRemove)
	log.Info("removing additional network adapters", zap.Strings("net_ids", toRemove))

	raw, err := r.reader.ListRawArguments(ctx, vmID)
	if err != nil {
		return nil, fmt.Errorf("clear additional adapters: %w", err)
	}

	args := selectArguments(r.matcher, raw, toRemove)
	if len(args) == 0 {
		log.Warn("no raw arguments matched the adapters to remove", zap.Strings("net_ids", toRemove))
		return nil, nil
	}

	log.Debug("removing arguments", zap.Strings("args", args))
	if err := r.mutator.RemoveArguments(ctx, vmID, args); err != nil {
		return nil, fmt.Errorf("clear additional adapters: %w", err)
	}
	log.Info("cleared additional network adapters", zap.Int("count", len(args)))
	return args, nil
}

// AddAdapter adds adapter index in mode unless its argument pair is already
// complete. It reports whether an addition was issued.
func (r *Reconciler) AddAdapter(ctx context.Context, vmID string, index int, mode Mode, d *Descriptor) (bool, error) {
	netID := NetID(index)

	existing, err := r.reader.ListAdapters(ctx, vmID)
	if err != nil {
		return false, fmt.Errorf("add adapter %s: %w", netID, err)
	}
	if existing[netID].Complete() {
		r.logger.Info("network adapter already exists, skipping",
			zap.String("vm", vmID), zap.String("net_id", netID))
		return false, nil
	}

	if err := r.add(ctx, vmID, netID, mode, d); err != nil {
		return false, fmt.Errorf("add adapter %s: %w", netID, err)
	}
	return true, nil
}

func (r *Reconciler) add(ctx context.Context, vmID, netID string, mode Mode, d *Descriptor) error {
	netdev, device, err := r.builder.Build(netID, mode, d)
	if err != nil {
		return err
	}

	r.logger.Info("adding network adapter",
		zap.String("vm", vmID),
		zap.String("net_id", netID),
		zap.String("mode", string(mode)),
		zap.Strings("args", []string{netdev, device}),
	)
	return r.mutator.AddArguments(ctx, vmID, []string{netdev, device})
}

func (r *Reconciler) mark(phase string) {
	if r.timer != nil {
		r.timer.Mark(phase)
	}
}
