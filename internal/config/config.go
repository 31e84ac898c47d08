// Package config provides layered configuration loading: defaults, then an
// optional YAML file, then PERFRUN_* environment overrides. Command-line
// flags are applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/perfrun/perfrun/internal/constants"
)

// Config holds the settings that shape every profiling cycle.
type Config struct {
	// PerfBin is the profiler binary to invoke.
	PerfBin string `yaml:"perf_bin"`
	// PerfOpts is the default option string passed to perf record.
	PerfOpts string `yaml:"perf_opts"`
	// OutputDir receives generated artifact names. Explicitly supplied
	// paths are used verbatim and bypass it.
	OutputDir string `yaml:"output_dir"`
	// Report enables the textual report stage by default.
	Report bool `yaml:"report"`
	// Flamegraph enables the stack-dump stage by default.
	Flamegraph bool `yaml:"flamegraph"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
	// Logfile, when set, receives JSON logs instead of stderr.
	Logfile string `yaml:"logfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PerfBin:   constants.DefaultPerfBin,
		PerfOpts:  constants.DefaultPerfOpts,
		OutputDir: ".",
	}
}

// DefaultPath returns ~/.perfrun/config.yaml, falling back to a path under
// the working directory when no home directory can be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(constants.DefaultDir, constants.ConfigFile)
	}
	return filepath.Join(home, constants.DefaultDir, constants.ConfigFile)
}

// Load resolves configuration in layers. When path is empty the default
// location is consulted and may be absent; an explicitly given path must
// exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	//nolint:gosec // G304: Path is the operator's config file.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// The default location is optional.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MergeFromEnv applies PERFRUN_* environment overrides onto cfg.
func MergeFromEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("PERFRUN_PERF_BIN"); ok {
		cfg.PerfBin = v
	}
	if v, ok := os.LookupEnv("PERFRUN_PERF_OPTS"); ok {
		cfg.PerfOpts = v
	}
	if v, ok := os.LookupEnv("PERFRUN_OUTPUT_DIR"); ok {
		cfg.OutputDir = v
	}
	if v, ok := os.LookupEnv("PERFRUN_LOGFILE"); ok {
		cfg.Logfile = v
	}

	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"PERFRUN_REPORT", &cfg.Report},
		{"PERFRUN_FLAMEGRAPH", &cfg.Flamegraph},
		{"PERFRUN_VERBOSE", &cfg.Verbose},
	} {
		v, ok := os.LookupEnv(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", b.name, err)
		}
		*b.dst = parsed
	}

	return nil
}
