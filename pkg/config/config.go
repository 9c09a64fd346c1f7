// Package config loads semby settings from a TOML file.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"semby/pkg/asm"
	"semby/pkg/vm"
)

type Assembler struct {
	StrictJumps  bool `toml:"strict_jumps"`
	SourceMapped bool `toml:"source_mapped"`
	StrictSyntax bool `toml:"strict_syntax"`
}

type Machine struct {
	MemorySize int    `toml:"memory_size"`
	Trace      bool   `toml:"trace"`
	Reraise    bool   `toml:"reraise"`
	TraceDir   string `toml:"trace_dir"`
}

// Config is the full settings file.
type Config struct {
	Assembler Assembler `toml:"assembler"`
	Machine   Machine   `toml:"machine"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Assembler: Assembler{StrictJumps: true},
		Machine: Machine{
			MemorySize: vm.DefaultMemorySize,
			TraceDir:   ".",
		},
	}
}

// Load reads path on top of the defaults. Keys not present in the file keep
// their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks values that TOML decoding cannot.
func (c Config) Validate() error {
	if c.Machine.MemorySize <= 0 {
		return errors.Errorf("memory_size must be positive, got %d", c.Machine.MemorySize)
	}
	return nil
}

// AsmOptions converts the assembler section.
func (c Config) AsmOptions() asm.Options {
	return asm.Options{
		StrictJumps:  c.Assembler.StrictJumps,
		SourceMapped: c.Assembler.SourceMapped,
		StrictSyntax: c.Assembler.StrictSyntax,
	}
}

// VMOptions converts the machine section. Output streams and logger are
// left for the caller.
func (c Config) VMOptions() vm.Options {
	return vm.Options{
		MemorySize: c.Machine.MemorySize,
		Trace:      c.Machine.Trace,
		Reraise:    c.Machine.Reraise,
		TraceDir:   c.Machine.TraceDir,
	}
}
