// Package config loads and writes the .unroll.yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/unroll/internal/eval"
	"github.com/gnoswap-labs/unroll/internal/types"
)

// DefaultPath is used when no configuration file is named.
const DefaultPath = ".unroll.yaml"

var (
	ErrVersionMismatch = errors.New("tool version does not satisfy the configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

// RuleConfig overrides the severity of one issue rule. SeverityOff drops
// the rule's issues from reports. A rule without a severity keeps its
// default.
type RuleConfig struct {
	Severity *types.Severity `yaml:"severity,omitempty"`
}

// RuleSeverity returns a RuleConfig setting severity.
func RuleSeverity(severity types.Severity) RuleConfig {
	return RuleConfig{Severity: &severity}
}

// Config is the content of a configuration file.
type Config struct {
	Name string `yaml:"name"`
	// Require is a semver constraint the running tool must satisfy.
	Require     string                `yaml:"require,omitempty"`
	MaxSteps    int                   `yaml:"max_steps,omitempty"`
	Concurrency int                   `yaml:"concurrency,omitempty"`
	Scopes      []string              `yaml:"scopes,omitempty"`
	LogLevel    string                `yaml:"log_level,omitempty"`
	Rules       map[string]RuleConfig `yaml:"rules,omitempty"`
}

// Default returns the configuration written by `unroll init`.
func Default() Config {
	return Config{
		Name:     "unroll",
		MaxSteps: eval.DefaultMaxSteps,
		LogLevel: "info",
		Rules:    map[string]RuleConfig{},
	}
}

// Load reads the configuration file at path. Fields the file leaves out
// keep their Default values.
func Load(path string) (Config, error) {
	config := Default()

	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return config, nil
}

// LoadOrDefault behaves like Load but returns the default configuration
// when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// Write stores config at path, replacing any existing file.
func Write(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

// Validate checks config for values the tool cannot honor. version is the
// running tool version; builds without a semantic version skip the
// Require check.
func (c Config) Validate(version string) error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalid)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Require == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Require)
	if err != nil {
		return fmt.Errorf("%w: require %q: %v", ErrInvalid, c.Require, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: version %s, required %s", ErrVersionMismatch, v, c.Require)
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return lvl, nil
}

// Severity returns the configured severity for rule, or def when the rule
// is not configured.
func (c Config) Severity(rule string, def types.Severity) types.Severity {
	if r, ok := c.Rules[rule]; ok && r.Severity != nil {
		return *r.Severity
	}
	return def
}
