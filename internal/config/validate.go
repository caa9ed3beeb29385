package config

import (
	"fmt"
	"strings"

	"github.com/javanstorm/utmnet/internal/network"
	"github.com/javanstorm/utmnet/pkg/hypervisor"
)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = will be ignored
}

// ValidateMachine checks a machine declaration against driver capabilities.
// Unsupported network types are warnings: they are dropped, never rejected.
func ValidateMachine(m *Machine, caps hypervisor.Capabilities) []ValidationError {
	var errors []ValidationError

	if err := hypervisor.ValidateVMID(m.ID); err != nil {
		errors = append(errors, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("machine %q has no valid UTM UUID (%q)", m.Name, m.ID),
			Fatal:   true,
		})
	}

	if !caps.CustomArguments {
		errors = append(errors, ValidationError{
			Field:   "utm.version",
			Message: "this UTM version cannot edit QEMU arguments; network adapters can't be managed",
			Fatal:   true,
		})
	}

	_, report := network.CompileWithReport(m.Entries())
	for _, e := range report.Dropped {
		errors = append(errors, ValidationError{
			Field:   "networks",
			Message: fmt.Sprintf("unsupported network type %q is ignored", e.Type),
			Fatal:   false,
		})
	}

	return errors
}

// ValidateNetwork checks the network section.
func ValidateNetwork(n NetworkConfig) []ValidationError {
	var errors []ValidationError
	if _, err := network.NewMatcher(n.Match); err != nil {
		errors = append(errors, ValidationError{
			Field:   "network.match",
			Message: err.Error(),
			Fatal:   true,
		})
	}
	return errors
}

// HasFatal reports whether any error is fatal.
func HasFatal(errors []ValidationError) bool {
	for _, e := range errors {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration warnings:\n")
	for _, e := range errors {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}
