package hypervisor

// Config holds driver construction parameters.
type Config struct {
	// Version is the UTM version, e.g. "4.6.0" or "v4.5".
	Version string

	// ScriptsDir is the directory holding the automation scripts.
	ScriptsDir string

	// Osascript is the interpreter used to run AppleScript files.
	// Defaults to "osascript".
	Osascript string

	// Runner executes commands. Defaults to ExecRunner.
	Runner Runner
}

// Validate performs basic validation of the configuration.
func (c *Config) Validate() error {
	if c.ScriptsDir == "" {
		return ErrMissingScriptsDir
	}
	if c.Osascript == "" {
		c.Osascript = "osascript"
	}
	if c.Runner == nil {
		c.Runner = ExecRunner{}
	}
	return nil
}
