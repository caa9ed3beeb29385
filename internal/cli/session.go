package cli

import (
	"fmt"
	"io"

	"github.com/javanstorm/utmnet/internal/config"
	"github.com/javanstorm/utmnet/internal/network"
	"github.com/javanstorm/utmnet/internal/timing"
	"github.com/javanstorm/utmnet/pkg/hypervisor"
)

// openDriver creates the hypervisor driver. Tests replace it.
var openDriver = hypervisor.New

// session is everything a network command needs for one machine.
type session struct {
	cfg     *config.Config
	machine *config.Machine
	driver  hypervisor.Driver
	matcher network.ArgumentMatcher
}

// openSession resolves the machine, creates the driver and validates the
// machine against it. Warnings are written to warn; fatal problems fail.
func openSession(name string, warn io.Writer) (*session, error) {
	cfg := config.Global
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	machine, err := cfg.FindMachine(name)
	if err != nil {
		return nil, err
	}

	driver, err := openDriver(hypervisor.Config{
		Version:    cfg.UTM.Version,
		ScriptsDir: cfg.UTM.ScriptsDir,
		Osascript:  cfg.UTM.Osascript,
	})
	if err != nil {
		return nil, fmt.Errorf("create UTM driver: %w", err)
	}

	errs := append(config.ValidateNetwork(cfg.Network), config.ValidateMachine(machine, driver.Capabilities())...)
	if len(errs) > 0 {
		fmt.Fprint(warn, config.FormatValidationErrors(errs))
	}
	if config.HasFatal(errs) {
		return nil, fmt.Errorf("machine %q has configuration errors", machine.Name)
	}

	matcher, err := network.NewMatcher(cfg.Network.Match)
	if err != nil {
		return nil, err
	}

	info := driver.Info()
	logger.Debug("opened UTM session",
		zapMachine(machine),
		zapDriver(info),
	)

	return &session{
		cfg:     cfg,
		machine: machine,
		driver:  driver,
		matcher: matcher,
	}, nil
}

// reconciler builds a reconciler for the session.
func (s *session) reconciler(progress network.Progress, timer *timing.Timer) *network.Reconciler {
	return network.NewReconciler(s.driver, network.ReconcilerConfig{
		Builder:  network.NewBuilder(s.cfg.Network.DefaultBridge),
		Matcher:  s.matcher,
		Logger:   logger.With(zapMachine(s.machine)),
		Progress: progress,
		Timer:    timer,
	})
}
