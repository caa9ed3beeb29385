package hypervisor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Automation scripts shipped alongside the tool.
const (
	scriptReadNetworkArgs     = "read_qemu_network_adapters.applescript"
	scriptReadInterfaces      = "read_network_interfaces.applescript"
	scriptAddAdditionalArgs   = "add_qemu_additional_args.applescript"
	scriptRemoveAdditionalArg = "remove_qemu_additional_args.applescript"
)

// scriptDriver implements Driver by running UTM AppleScripts.
type scriptDriver struct {
	strategy   strategy
	version    string
	scriptsDir string
	osascript  string
	runner     Runner
}

func (d *scriptDriver) Info() Info {
	return Info{
		Name:    d.strategy.name,
		Version: d.version,
	}
}

func (d *scriptDriver) Capabilities() Capabilities {
	return d.strategy.caps
}

func (d *scriptDriver) NetworkArguments(ctx context.Context, vmID string) (string, error) {
	if err := d.requireCustomArgs(vmID); err != nil {
		return "", err
	}
	out, err := d.runScript(ctx, scriptReadNetworkArgs, vmID)
	if err != nil {
		return "", fmt.Errorf("read network arguments: %w", err)
	}
	return out, nil
}

func (d *scriptDriver) NetworkInterfaces(ctx context.Context, vmID string) (string, error) {
	if err := ValidateVMID(vmID); err != nil {
		return "", err
	}
	if !d.strategy.caps.NativeInterfaces {
		return "", nil
	}
	out, err := d.runScript(ctx, scriptReadInterfaces, vmID)
	if err != nil {
		return "", fmt.Errorf("read network interfaces: %w", err)
	}
	return out, nil
}

func (d *scriptDriver) AddArguments(ctx context.Context, vmID string, args []string) error {
	if err := d.requireCustomArgs(vmID); err != nil {
		return err
	}
	if len(args) == 0 {
		return ErrEmptyArguments
	}
	if _, err := d.runScript(ctx, scriptAddAdditionalArgs, vmID, append([]string{"--args"}, args...)...); err != nil {
		return fmt.Errorf("add arguments: %w", err)
	}
	return nil
}

func (d *scriptDriver) RemoveArguments(ctx context.Context, vmID string, args []string) error {
	if err := d.requireCustomArgs(vmID); err != nil {
		return err
	}
	if len(args) == 0 {
		return ErrEmptyArguments
	}
	if _, err := d.runScript(ctx, scriptRemoveAdditionalArg, vmID, append([]string{"--args"}, args...)...); err != nil {
		return fmt.Errorf("remove arguments: %w", err)
	}
	return nil
}

func (d *scriptDriver) requireCustomArgs(vmID string) error {
	if err := ValidateVMID(vmID); err != nil {
		return err
	}
	if !d.strategy.caps.CustomArguments {
		return ErrCustomArgumentsUnsupported
	}
	return nil
}

// runScript executes `osascript <scriptsDir>/<script> <vmID> [args...]`.
func (d *scriptDriver) runScript(ctx context.Context, script, vmID string, args ...string) (string, error) {
	cmd := append([]string{filepath.Join(d.scriptsDir, script), vmID}, args...)
	return d.runner.Run(ctx, d.osascript, cmd...)
}

// ValidateVMID checks that vmID is a UTM UUID.
func ValidateVMID(vmID string) error {
	if _, err := uuid.Parse(vmID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidVMID, vmID)
	}
	return nil
}
