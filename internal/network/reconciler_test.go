package network

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/javanstorm/utmnet/internal/testutil"
	"github.com/javanstorm/utmnet/internal/timing"
)

// recordingProgress collects progress lines.
type recordingProgress struct {
	lines []string
}

func (p *recordingProgress) Output(msg string) { p.lines = append(p.lines, "==> "+msg) }
func (p *recordingProgress) Detail(msg string) { p.lines = append(p.lines, "    "+msg) }

func newTestReconciler(t *testing.T, fake *testutil.FakeUTM) *Reconciler {
	t.Helper()
	return NewReconciler(fake, ReconcilerConfig{Logger: testutil.Logger(t)})
}

func baseArgs() []string {
	return append(testutil.AdapterArgs("net0", "shared"), testutil.AdapterArgs("net1", "emulated")...)
}

func TestEnsureBaseAdaptersOnEmptyVM(t *testing.T) {
	fake := testutil.NewFakeUTM()
	r := newTestReconciler(t, fake)

	if err := r.EnsureBaseAdapters(context.Background(), testutil.TestVMID); err != nil {
		t.Fatalf("EnsureBaseAdapters: %v", err)
	}

	if len(fake.AddCalls) != 2 {
		t.Fatalf("got %d add calls, want 2", len(fake.AddCalls))
	}
	if !strings.HasPrefix(fake.AddCalls[0][0], "-netdev vmnet-shared,id=net0") {
		t.Errorf("first add = %q, want shared net0", fake.AddCalls[0])
	}
	if !strings.HasPrefix(fake.AddCalls[1][0], "-netdev vmnet-emulated,id=net1") {
		t.Errorf("second add = %q, want emulated net1", fake.AddCalls[1])
	}
	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1"}) {
		t.Errorf("NetIDs() = %v", got)
	}
}

func TestEnsureBaseAdaptersIsIdempotent(t *testing.T) {
	fake := testutil.NewFakeUTM()
	r := newTestReconciler(t, fake)
	ctx := context.Background()

	if err := r.EnsureBaseAdapters(ctx, testutil.TestVMID); err != nil {
		t.Fatalf("first EnsureBaseAdapters: %v", err)
	}
	before := fake.Mutations()

	if err := r.EnsureBaseAdapters(ctx, testutil.TestVMID); err != nil {
		t.Fatalf("second EnsureBaseAdapters: %v", err)
	}
	if after := fake.Mutations(); after != before {
		t.Errorf("second call issued %d mutations, want 0", after-before)
	}
}

func TestEnsureBaseAdaptersNativeFallback(t *testing.T) {
	fake := testutil.NewFakeUTM()
	fake.Native = map[int]string{0: "shared", 1: "emulated"}
	r := newTestReconciler(t, fake)

	if err := r.EnsureBaseAdapters(context.Background(), testutil.TestVMID); err != nil {
		t.Fatalf("EnsureBaseAdapters: %v", err)
	}
	if fake.Mutations() != 0 {
		t.Errorf("native interfaces present, got %d mutations, want 0", fake.Mutations())
	}
}

func TestEnsureBaseAdaptersRecreatesPartialAdapter(t *testing.T) {
	// net0 is complete, net1 has a netdev but no device.
	fake := testutil.NewFakeUTM(append(testutil.AdapterArgs("net0", "shared"), "-netdev vmnet-emulated,id=net1")...)
	r := newTestReconciler(t, fake)

	if err := r.EnsureBaseAdapters(context.Background(), testutil.TestVMID); err != nil {
		t.Fatalf("EnsureBaseAdapters: %v", err)
	}
	if len(fake.AddCalls) != 1 {
		t.Fatalf("got %d add calls, want 1", len(fake.AddCalls))
	}
	if len(fake.AddCalls[0]) != 2 || !strings.Contains(fake.AddCalls[0][0], "id=net1") {
		t.Errorf("add call = %q, want a full net1 pair", fake.AddCalls[0])
	}
}

func TestClearAdditionalAdaptersNothingToRemove(t *testing.T) {
	fake := testutil.NewFakeUTM(baseArgs()...)
	r := newTestReconciler(t, fake)

	removed, err := r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ClearAdditionalAdapters: %v", err)
	}
	if len(removed) != 0 || len(fake.RemoveCalls) != 0 {
		t.Errorf("removed %q with %d calls, want nothing", removed, len(fake.RemoveCalls))
	}
	if fake.ReadCalls != 1 {
		t.Errorf("read %d times, want 1 (no raw re-read when nothing to remove)", fake.ReadCalls)
	}
}

func TestClearAdditionalAdaptersSingleBatch(t *testing.T) {
	args := baseArgs()
	args = append(args, testutil.AdapterArgs("net5", "host")...)
	args = append(args, testutil.AdapterArgs("net7", "bridged")...)
	fake := testutil.NewFakeUTM(args...)
	r := newTestReconciler(t, fake)

	removed, err := r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ClearAdditionalAdapters: %v", err)
	}
	if len(fake.RemoveCalls) != 1 {
		t.Fatalf("got %d remove calls, want 1", len(fake.RemoveCalls))
	}
	if len(removed) != 4 {
		t.Errorf("removed %d args, want 4: %q", len(removed), removed)
	}
	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1"}) {
		t.Errorf("NetIDs() after clear = %v", got)
	}
}

func TestClearAdditionalAdaptersExactBoundary(t *testing.T) {
	// Removing net10 must leave net1 alone.
	args := baseArgs()
	args = append(args, testutil.AdapterArgs("net10", "host")...)
	fake := testutil.NewFakeUTM(args...)
	r := newTestReconciler(t, fake)

	if _, err := r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID); err != nil {
		t.Fatalf("ClearAdditionalAdapters: %v", err)
	}
	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1"}) {
		t.Errorf("NetIDs() = %v, want base adapters only", got)
	}
	for _, arg := range fake.RemoveCalls[0] {
		if !strings.Contains(arg, "net10") {
			t.Errorf("removed %q, which does not belong to net10", arg)
		}
	}
}

func TestClearAdditionalAdaptersSubstringLegacy(t *testing.T) {
	share := "-fsdev local,id=share0,path=/Users/dev/net2-data"
	args := append(baseArgs(), testutil.AdapterArgs("net2", "host")...)
	args = append(args, share)

	// Legacy matching removes any argument mentioning the id.
	legacy := testutil.NewFakeUTM(args...)
	r := NewReconciler(legacy, ReconcilerConfig{Matcher: SubstringMatcher{}, Logger: testutil.Logger(t)})
	removed, err := r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ClearAdditionalAdapters: %v", err)
	}
	if len(removed) != 3 || removed[2] != share {
		t.Errorf("substring removed %q, want both net2 lines and the share", removed)
	}

	// Exact matching leaves the unrelated argument in place.
	exact := testutil.NewFakeUTM(args...)
	r = newTestReconciler(t, exact)
	removed, err = r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ClearAdditionalAdapters: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("exact removed %q, want the two net2 lines", removed)
	}
	if exact.Args[len(exact.Args)-1] != share {
		t.Errorf("share argument was removed: %q", exact.Args)
	}
}

func TestClearAdditionalAdaptersRemoveFailure(t *testing.T) {
	boom := errors.New("remove failed")
	args := append(baseArgs(), testutil.AdapterArgs("net4", "host")...)
	fake := testutil.NewFakeUTM(args...)
	fake.Errors = map[string]error{"RemoveArguments": boom}
	r := newTestReconciler(t, fake)

	_, err := r.ClearAdditionalAdapters(context.Background(), testutil.TestVMID)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
}

func TestAddAdapterTwiceAddsOnce(t *testing.T) {
	fake := testutil.NewFakeUTM(baseArgs()...)
	r := newTestReconciler(t, fake)
	ctx := context.Background()
	d := Compile([]Entry{{Type: TypePrivateNetwork, Options: map[string]any{"ip": "192.168.1.50"}}})[0]

	added, err := r.AddAdapter(ctx, testutil.TestVMID, d.AdapterIndex, d.Mode, &d)
	if err != nil || !added {
		t.Fatalf("first AddAdapter = %v, %v; want true, nil", added, err)
	}
	added, err = r.AddAdapter(ctx, testutil.TestVMID, d.AdapterIndex, d.Mode, &d)
	if err != nil || added {
		t.Fatalf("second AddAdapter = %v, %v; want false, nil", added, err)
	}

	if len(fake.AddCalls) != 1 {
		t.Errorf("got %d add calls, want 1", len(fake.AddCalls))
	}
	if len(fake.AddCalls[0]) != 2 {
		t.Errorf("add batch = %q, want netdev and device together", fake.AddCalls[0])
	}
}

func TestReconcileConvergesFromStaleState(t *testing.T) {
	args := baseArgs()
	args = append(args, testutil.AdapterArgs("net5", "host")...)
	args = append(args, testutil.AdapterArgs("net7", "bridged")...)
	fake := testutil.NewFakeUTM(args...)
	progress := &recordingProgress{}
	timer := timing.New()
	r := NewReconciler(fake, ReconcilerConfig{Logger: testutil.Logger(t), Progress: progress, Timer: timer})

	descriptors := Compile([]Entry{
		{Type: TypePrivateNetwork, Options: map[string]any{"ip": "192.168.1.50"}},
		{Type: TypeForwardedPort},
		{Type: TypePublicNetwork, Options: map[string]any{"bridge": "en1"}},
	})

	res, err := r.Reconcile(context.Background(), testutil.TestVMID, descriptors)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1", "net2", "net3"}) {
		t.Errorf("NetIDs() = %v, want [net0 net1 net2 net3]", got)
	}
	if !reflect.DeepEqual(res.Added, []string{"net2", "net3"}) {
		t.Errorf("Added = %v", res.Added)
	}
	if len(res.Removed) != 4 {
		t.Errorf("Removed = %q, want 4 lines", res.Removed)
	}
	if res.Desired != 2 {
		t.Errorf("Desired = %d, want 2", res.Desired)
	}
	if res.Mutations() != 3 {
		t.Errorf("Mutations() = %d, want 3 (one remove, two adds)", res.Mutations())
	}

	if len(timer.Phases()) != 3 {
		t.Errorf("timer phases = %+v, want base, clear, add", timer.Phases())
	}
	wantProgress := []string{
		"    Ensuring base network adapters exist...",
		"==> Configuring and enabling network interfaces...",
		"    Adapter 3: private_network",
		"    Adapter 4: public_network",
	}
	if !reflect.DeepEqual(progress.lines, wantProgress) {
		t.Errorf("progress = %q\nwant %q", progress.lines, wantProgress)
	}
}

func TestReconcileRerunRebuildsAdditionalAdapters(t *testing.T) {
	fake := testutil.NewFakeUTM()
	r := newTestReconciler(t, fake)
	ctx := context.Background()
	descriptors := Compile([]Entry{{Type: TypePrivateNetwork}})

	if _, err := r.Reconcile(ctx, testutil.TestVMID, descriptors); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	res, err := r.Reconcile(ctx, testutil.TestVMID, descriptors)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	// Clean slate: net2 is removed and added again, base adapters untouched.
	if len(res.Removed) != 2 || !reflect.DeepEqual(res.Added, []string{"net2"}) {
		t.Errorf("second run Removed=%q Added=%v", res.Removed, res.Added)
	}
	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1", "net2"}) {
		t.Errorf("NetIDs() = %v", got)
	}
}

func TestReconcileWithoutDescriptorsOnlyEnsuresBase(t *testing.T) {
	args := append(baseArgs(), testutil.AdapterArgs("net4", "host")...)
	fake := testutil.NewFakeUTM(args...)
	r := newTestReconciler(t, fake)

	res, err := r.Reconcile(context.Background(), testutil.TestVMID, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if fake.Mutations() != 0 {
		t.Errorf("got %d mutations, want 0", fake.Mutations())
	}
	// Without declared networks, existing extra adapters are left alone.
	if got := fake.NetIDs(); !reflect.DeepEqual(got, []string{"net0", "net1", "net4"}) {
		t.Errorf("NetIDs() = %v", got)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"net0", "net1"}) {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestReconcileStopsOnAddFailure(t *testing.T) {
	boom := errors.New("add failed")
	fake := testutil.NewFakeUTM(baseArgs()...)
	fake.Errors = map[string]error{"AddArguments": boom}
	r := newTestReconciler(t, fake)

	descriptors := Compile([]Entry{{Type: TypePrivateNetwork}, {Type: TypePrivateNetwork}})
	_, err := r.Reconcile(context.Background(), testutil.TestVMID, descriptors)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if len(fake.AddCalls) != 1 {
		t.Errorf("got %d add attempts, want 1 (abort on first failure)", len(fake.AddCalls))
	}
}

func TestReconcileReadFailure(t *testing.T) {
	boom := errors.New("script missing")
	fake := testutil.NewFakeUTM()
	fake.Errors = map[string]error{"NetworkArguments": boom}
	r := newTestReconciler(t, fake)

	_, err := r.Reconcile(context.Background(), testutil.TestVMID, Compile([]Entry{{Type: TypePrivateNetwork}}))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if fake.Mutations() != 0 {
		t.Errorf("got %d mutations after a failed read, want 0", fake.Mutations())
	}
}
