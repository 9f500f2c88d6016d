package config

import (
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Producer sources understood by the host program.
const (
	SourceNative  = "native"
	SourceSample  = "sample"
	SourceIPC     = "ipc"
	SourceParquet = "parquet"
	SourceTable   = "table"
)

// Environment variables overlaid on top of the config file.
const (
	EnvSource      = "HUDI_SOURCE"
	EnvPath        = "HUDI_PATH"
	EnvLibPath     = "HUDI_BRIDGE_LIB"
	EnvLogLevel    = "HUDI_LOG_LEVEL"
	EnvMetricsFile = "HUDI_METRICS_FILE"
	EnvOptions     = "HUDI_OPTIONS"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config drives which producer the host program calls and how it reports.
type Config struct {
	// Source selects the producer: native, sample, ipc, parquet or table.
	Source string `yaml:"source"`

	// Path is the file (ipc, parquet) or base URI (table) to read.
	// Ignored by the sample and native producers.
	Path string `yaml:"path"`

	// LibPath points at the native bridge library. Empty falls back to
	// HUDI_BRIDGE_LIB and then the executable's directory.
	LibPath string `yaml:"lib_path"`

	// Options are forwarded to the producer as read options.
	Options map[string]string `yaml:"options"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	// MetricsFile, when set, receives a Prometheus text dump on exit.
	MetricsFile string `yaml:"metrics_file"`

	// Async reads through the future-returning API.
	Async bool `yaml:"async"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Source:   SourceSample,
		Options:  map[string]string{},
		LogLevel: "warn",
	}
}

// Load builds a Config from defaults, the optional YAML file at path, any
// .env file in the working directory, and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := LoadEnv(&cfg, ".env"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file into cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open config file %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrapf(err, "failed to decode config file %s", path)
	}
	return nil
}

// LoadEnv loads the given dotenv files (missing ones are skipped) and then
// overlays the HUDI_* environment variables on cfg.
func LoadEnv(cfg *Config, dotenvFiles ...string) error {
	for _, p := range dotenvFiles {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "failed to load %s", p)
		}
	}

	if v := os.Getenv(EnvSource); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv(EnvPath); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv(EnvLibPath); v != "" {
		cfg.LibPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv(EnvOptions); v != "" {
		opts, err := ParseOptions(strings.Split(v, ","))
		if err != nil {
			return errors.Wrap(err, EnvOptions)
		}
		cfg.MergeOptions(opts)
	}
	return nil
}

// ParseOptions parses key=value pairs.
func ParseOptions(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Wrapf(ErrInvalidConfig, "option %q is not key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// MergeOptions copies opts over cfg.Options.
func (c *Config) MergeOptions(opts map[string]string) {
	if c.Options == nil {
		c.Options = make(map[string]string, len(opts))
	}
	for k, v := range opts {
		c.Options[k] = v
	}
}

// OptionPairs returns the options sorted by key, the order they are
// handed to producers in.
func (c Config) OptionPairs() [][2]string {
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, c.Options[k]})
	}
	return out
}

// Validate checks that the source is known and has what it needs.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSample, SourceNative:
	case SourceIPC, SourceParquet, SourceTable:
		if c.Path == "" {
			return errors.Wrapf(ErrInvalidConfig, "source %q requires a path", c.Source)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown source %q", c.Source)
	}
	return nil
}
