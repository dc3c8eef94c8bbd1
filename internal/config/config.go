// Package config loads and validates besselect configuration.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/besselect/internal/allowlist"
	"git.home.luguber.info/inful/besselect/internal/foundation"
	"git.home.luguber.info/inful/besselect/internal/selector"
)

// Selector modes.
const (
	ModeAspect      = "aspect"
	ModeExtraAction = "extra_action"
)

// Stream source kinds.
const (
	SourceFile = "file"
	SourceTail = "tail"
	SourceNATS = "nats"
)

// Config is the root configuration.
type Config struct {
	Selector SelectorConfig `yaml:"selector"`
	Stream   StreamConfig   `yaml:"stream"`
	Index    IndexConfig    `yaml:"index"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SelectorConfig describes which selector to run and its matching policy.
type SelectorConfig struct {
	// Mode selects the correlator: "aspect" or "extra_action".
	Mode string `yaml:"mode"`

	// Aspect mode allowlists. FileNames and OutputGroups match nothing
	// when empty; TargetAspects matches everything when empty.
	FileNames     []string `yaml:"file_names"`
	OutputGroups  []string `yaml:"output_groups"`
	TargetAspects []string `yaml:"target_aspects"`

	// Extra-action mode filters. ActionTypes is an explicit set (empty
	// selects every successful action); ActionPattern is a single regex
	// (empty selects nothing). At most one may be set.
	ActionTypes   []string `yaml:"action_types"`
	ActionPattern string   `yaml:"action_pattern"`
}

// StreamConfig describes where build events come from.
type StreamConfig struct {
	// Source is one of "file", "tail" or "nats".
	Source string     `yaml:"source"`
	Path   string     `yaml:"path"`
	NATS   NATSConfig `yaml:"nats"`
}

// NATSConfig configures the NATS event source.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// IndexConfig configures the artifact index.
type IndexConfig struct {
	// Path is the SQLite database file; empty disables indexing.
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, foundation.ConfigurationError("configuration file not found").
			WithContext(foundation.Fields{"path": configPath}).
			Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, foundation.ConfigurationError("failed to read config file").
			WithCause(err).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, foundation.ConfigurationError("failed to unmarshal config").
			WithCause(err).
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Selector.Mode == "" {
		c.Selector.Mode = ModeAspect
	}
	if c.Stream.Source == "" {
		c.Stream.Source = SourceFile
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9477"
	}
}

func (c *Config) validate() error {
	switch c.Selector.Mode {
	case ModeAspect, ModeExtraAction:
	default:
		return foundation.ConfigurationError("unknown selector mode").
			WithContext(foundation.Fields{"mode": c.Selector.Mode}).
			Build()
	}
	if len(c.Selector.ActionTypes) > 0 && c.Selector.ActionPattern != "" {
		return foundation.ConfigurationError("action_types and action_pattern are mutually exclusive").Build()
	}

	switch c.Stream.Source {
	case SourceFile, SourceTail:
		// Path may also arrive as a CLI argument; checked at runtime.
	case SourceNATS:
		if c.Stream.NATS.URL == "" || c.Stream.NATS.Subject == "" {
			return foundation.ConfigurationError("nats source requires url and subject").Build()
		}
	default:
		return foundation.ConfigurationError("unknown stream source").
			WithContext(foundation.Fields{"source": c.Stream.Source}).
			Build()
	}
	return nil
}

// BuildSelector constructs the configured selector. Allowlist patterns are
// compiled here so configuration mistakes surface before any event is
// processed.
func (c SelectorConfig) BuildSelector() (selector.Selector, error) {
	switch c.Mode {
	case ModeExtraAction:
		if c.ActionPattern != "" {
			pattern, err := regexp.Compile(c.ActionPattern)
			if err != nil {
				return nil, foundation.ConfigurationError("invalid action pattern").
					WithCause(err).
					WithContext(foundation.Fields{"pattern": c.ActionPattern}).
					Build()
			}
			return selector.NewExtraActionPatternSelector(pattern), nil
		}
		return selector.NewExtraActionSelector(c.ActionTypes...), nil

	case ModeAspect, "":
		options, err := selector.DefaultAspectOptions()
		if err != nil {
			return nil, err
		}
		if len(c.FileNames) > 0 {
			if options.FileNameAllowlist, err = allowlist.Build(c.FileNames); err != nil {
				return nil, err
			}
		}
		if len(c.OutputGroups) > 0 {
			if options.OutputGroupAllowlist, err = allowlist.Build(c.OutputGroups); err != nil {
				return nil, err
			}
		}
		if len(c.TargetAspects) > 0 {
			if options.TargetAspectAllowlist, err = allowlist.Build(c.TargetAspects); err != nil {
				return nil, err
			}
		}
		return selector.NewAspectSelector(options), nil

	default:
		return nil, foundation.ConfigurationError("unknown selector mode").
			WithContext(foundation.Fields{"mode": c.Mode}).
			Build()
	}
}

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundation.ConfigurationError("configuration file already exists (use --force to overwrite)").
			WithContext(foundation.Fields{"path": configPath}).
			Build()
	}

	example := Config{
		Selector: SelectorConfig{
			Mode:          ModeAspect,
			FileNames:     []string{`.*\.kzip`},
			OutputGroups:  []string{`kythe_compilation_unit`},
			TargetAspects: []string{`.*%extract_kzip_.*`},
		},
		Stream: StreamConfig{
			Source: SourceFile,
			Path:   "bazel-events.json",
		},
		Index: IndexConfig{
			Path: "artifacts.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9477",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return foundation.InternalError("failed to marshal example config").
			WithCause(err).
			Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return foundation.ConfigurationError("failed to write config file").
			WithCause(err).
			Build()
	}
	return nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	envPaths := []string{".env", ".env.local"}

	var lastErr error
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			lastErr = err
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
