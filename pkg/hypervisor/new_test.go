package hypervisor

import (
	"errors"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"major minor", "4.6", "v4.6.0", false},
		{"full", "4.5.2", "v4.5.2", false},
		{"prefixed", "v4.6.1", "v4.6.1", false},
		{"whitespace", " 4.6.0\n", "v4.6.0", false},
		{"empty", "", "", true},
		{"garbage", "latest", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVersion(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVersion) {
					t.Fatalf("NormalizeVersion(%q) error = %v, want ErrInvalidVersion", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeVersion(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	tests := []struct {
		version  string
		wantName string
		wantCaps Capabilities
	}{
		{"4.5", "utm45", Capabilities{CustomArguments: true, NativeInterfaces: true}},
		{"4.5.4", "utm45", Capabilities{CustomArguments: true, NativeInterfaces: true}},
		{"4.6.0", "utm46", Capabilities{CustomArguments: true, NativeInterfaces: true, Export: true}},
		{"5.0.0", "utm46", Capabilities{CustomArguments: true, NativeInterfaces: true, Export: true}},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			drv, err := New(Config{Version: tt.version, ScriptsDir: "/scripts", Runner: &recordingRunner{}})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := drv.Info().Name; got != tt.wantName {
				t.Errorf("Info().Name = %q, want %q", got, tt.wantName)
			}
			if got := drv.Capabilities(); got != tt.wantCaps {
				t.Errorf("Capabilities() = %+v, want %+v", got, tt.wantCaps)
			}
		})
	}
}

func TestNewRejectsOldVersion(t *testing.T) {
	_, err := New(Config{Version: "4.4.9", ScriptsDir: "/scripts"})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("New(4.4.9) error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestNewRequiresScriptsDir(t *testing.T) {
	_, err := New(Config{Version: "4.6"})
	if !errors.Is(err, ErrMissingScriptsDir) {
		t.Fatalf("New without scripts dir error = %v, want ErrMissingScriptsDir", err)
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{Version: "4.6", ScriptsDir: "/scripts"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Osascript != "osascript" {
		t.Errorf("Osascript = %q, want osascript", cfg.Osascript)
	}
	if _, ok := cfg.Runner.(ExecRunner); !ok {
		t.Errorf("Runner = %T, want ExecRunner", cfg.Runner)
	}
}
