package cli

import (
	"fmt"

	"github.com/javanstorm/utmnet/internal/config"
	"github.com/javanstorm/utmnet/pkg/hypervisor"
	"go.uber.org/zap"
)

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays clean.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
		}
		cfg = zap.NewProductionConfig()
		cfg.Level = lvl
		cfg.Encoding = "console"
		cfg.DisableStacktrace = true
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func zapMachine(m *config.Machine) zap.Field {
	return zap.String("machine", m.Name)
}

func zapDriver(info hypervisor.Info) zap.Field {
	return zap.String("driver", info.Name+" "+info.Version)
}
