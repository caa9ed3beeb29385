package network

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/javanstorm/utmnet/internal/testutil"
)

const sampleDump = `netdev:net0
device:net0
netdev:net1
device:net2
netdev:net2
netdev:net5
something else entirely
Arg 0: -netdev vmnet-shared,id=net0
Arg 1: -device e1000,mac=02:11:22:33:44:55,netdev=net0
Arg 2: -netdev vmnet-emulated,id=net1
  Arg 3: -device virtio-net-pci,mac=02:aa:bb:cc:dd:ee,netdev=net2
`

func TestParseAdapters(t *testing.T) {
	got := ParseAdapters(sampleDump)

	want := map[string]AdapterRecord{
		"net0": {NetID: "net0", NetdevPresent: true, DevicePresent: true},
		"net1": {NetID: "net1", NetdevPresent: true},
		"net2": {NetID: "net2", NetdevPresent: true, DevicePresent: true},
		"net5": {NetID: "net5", NetdevPresent: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseAdapters = %+v\nwant %+v", got, want)
	}
	if got["net1"].Complete() {
		t.Error("net1 has no device and must not be complete")
	}
	if !got["net2"].Complete() {
		t.Error("net2 device listed before netdev must still be complete")
	}
}

func TestParseAdaptersIgnoresEmptyIDs(t *testing.T) {
	got := ParseAdapters("netdev:\ndevice:   \n")
	if len(got) != 0 {
		t.Errorf("ParseAdapters = %v, want empty", got)
	}
}

func TestParseRawArguments(t *testing.T) {
	got := ParseRawArguments(sampleDump)
	want := []string{
		"-netdev vmnet-shared,id=net0",
		"-device e1000,mac=02:11:22:33:44:55,netdev=net0",
		"-netdev vmnet-emulated,id=net1",
		"-device virtio-net-pci,mac=02:aa:bb:cc:dd:ee,netdev=net2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRawArguments = %q\nwant %q", got, want)
	}
}

func TestParseNativeInterfaces(t *testing.T) {
	got := ParseNativeInterfaces("nic0,shared\nnic1,emulated\nnicX,bad\nnoise\n")
	want := map[int]string{0: "shared", 1: "emulated"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseNativeInterfaces = %v, want %v", got, want)
	}
}

func TestStateReaderPropagatesErrors(t *testing.T) {
	boom := errors.New("osascript exploded")
	fake := testutil.NewFakeUTM()
	fake.Errors = map[string]error{"NetworkArguments": boom, "NetworkInterfaces": boom}
	r := NewStateReader(fake, testutil.Logger(t))
	ctx := context.Background()

	if _, err := r.ListAdapters(ctx, testutil.TestVMID); !errors.Is(err, boom) {
		t.Errorf("ListAdapters error = %v, want wrapped boom", err)
	}
	if _, err := r.ListRawArguments(ctx, testutil.TestVMID); !errors.Is(err, boom) {
		t.Errorf("ListRawArguments error = %v, want wrapped boom", err)
	}
	if _, err := r.ListNativeInterfaces(ctx, testutil.TestVMID); !errors.Is(err, boom) {
		t.Errorf("ListNativeInterfaces error = %v, want wrapped boom", err)
	}
}

func TestStateReaderAgainstFake(t *testing.T) {
	fake := testutil.NewFakeUTM(testutil.AdapterArgs("net2", "host")...)
	fake.Args = append(fake.Args, "-netdev vmnet-host,id=net7")
	r := NewStateReader(fake, nil)

	adapters, err := r.ListAdapters(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ListAdapters: %v", err)
	}
	if !adapters["net2"].Complete() {
		t.Error("net2 should be complete")
	}
	if adapters["net7"].Complete() || !adapters["net7"].NetdevPresent {
		t.Errorf("net7 = %+v, want netdev only", adapters["net7"])
	}

	raw, err := r.ListRawArguments(context.Background(), testutil.TestVMID)
	if err != nil {
		t.Fatalf("ListRawArguments: %v", err)
	}
	if !reflect.DeepEqual(raw, fake.Args) {
		t.Errorf("raw = %q, want %q", raw, fake.Args)
	}
}
