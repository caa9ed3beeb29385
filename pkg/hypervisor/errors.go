package hypervisor

import "errors"

// Configuration errors
var (
	ErrInvalidVersion     = errors.New("hypervisor: UTM version is not a valid version string")
	ErrUnsupportedVersion = errors.New("hypervisor: UTM version is not supported (need 4.5 or later)")
	ErrMissingScriptsDir  = errors.New("hypervisor: scripts directory is required")
	ErrInvalidVMID        = errors.New("hypervisor: VM id must be a UTM UUID")
)

// Runtime errors
var (
	ErrCustomArgumentsUnsupported = errors.New("hypervisor: custom QEMU arguments not supported by this UTM version")
	ErrEmptyArguments             = errors.New("hypervisor: argument batch is empty")
)
