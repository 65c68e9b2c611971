// Package config loads the YAML run configuration and resolves it into
// immutable per-target values. Defaults declared in the run scope are merged
// into each target by an explicit field-level merge; the target always wins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gh2csv/gh2csv/internal/export"
	"github.com/gh2csv/gh2csv/internal/filter"
)

const (
	// EnvToken is the environment variable consulted when a target carries
	// no token of its own.
	EnvToken = "GH2CSV_GITHUB_TOKEN"

	// DefaultHistoryPath is where run history is kept unless configured.
	DefaultHistoryPath = "gh2csv_history.db"
)

// ConfigurationError reports a target that cannot be resolved into a runnable
// configuration. It is raised before any fetch is attempted.
type ConfigurationError struct {
	Target string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("target %q: %s", e.Target, e.Reason)
}

// StringList is a YAML sequence whose entries are read as their literal
// scalar text, so number filters may mix bare integers and range strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a sequence", value.Line)
	}
	out := make([]string, 0, len(value.Content))
	for _, n := range value.Content {
		if n.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: expected a scalar entry", n.Line)
		}
		out = append(out, n.Value)
	}
	*l = out
	return nil
}

// FilterConfig is the YAML shape of a target's filter stages.
type FilterConfig struct {
	State   string     `yaml:"state"`
	Numbers StringList `yaml:"numbers"`
	Labels  StringList `yaml:"labels"`
	Strings StringList `yaml:"strings"`
}

func (f *FilterConfig) spec() *filter.Spec {
	if f == nil {
		return nil
	}
	return &filter.Spec{
		State:   f.State,
		Numbers: f.Numbers,
		Labels:  f.Labels,
		Strings: f.Strings,
	}
}

// IOConfig holds output settings. All fields are optional at the target
// level; missing ones inherit from the run scope.
type IOConfig struct {
	OutPath          string   `yaml:"out_path"`
	OutEncoding      string   `yaml:"out_encoding"`
	OutBasenameComps []string `yaml:"out_basename_comps"`
	OutColumns       []string `yaml:"out_columns"`
	UTCOffset        *int     `yaml:"utc_offset"`
}

// ScheduleConfig controls repeated invocation of the whole pipeline.
type ScheduleConfig struct {
	Enable bool          `yaml:"enable"`
	Every  time.Duration `yaml:"every"`
	At     string        `yaml:"at"` // "HH:MM", runs daily at that time
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// RunConfig is the shared run scope: which targets are active, output
// defaults, and process-level concerns.
type RunConfig struct {
	ActiveTargets []string       `yaml:"active_targets"`
	IO            IOConfig       `yaml:"io"`
	Schedule      ScheduleConfig `yaml:"schedule"`
	Metrics       MetricsConfig  `yaml:"metrics"`
	HistoryPath   string         `yaml:"history_path"`
}

// TargetConfig is one configured repository/feature pair.
type TargetConfig struct {
	Owner      string        `yaml:"owner"`
	Repo       string        `yaml:"repo"`
	Feature    string        `yaml:"feature"`
	Private    bool          `yaml:"is_private"`
	Token      string        `yaml:"token"`
	API        string        `yaml:"api"` // "rest" (default) or "graphql"
	TimeSeries bool          `yaml:"is_time_series"`
	Filters    *FilterConfig `yaml:"filters"`
	IO         *IOConfig     `yaml:"io"`
}

// Config is the loaded configuration file.
type Config struct {
	Run     RunConfig               `yaml:"run"`
	Targets map[string]TargetConfig `yaml:"targets"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Run.HistoryPath == "" {
		cfg.Run.HistoryPath = DefaultHistoryPath
	}

	return &cfg, nil
}

// Dump renders the loaded configuration back as YAML, for --echo.
func (c *Config) Dump() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// Target is the immutable resolved configuration for one target.
type Target struct {
	Name       string
	Owner      string
	Repo       string
	Feature    string
	Token      string
	API        string
	TimeSeries bool
	Filters    *filter.Spec
	Columns    []export.Column
	OutDir     string
	OutFile    string
	Encoding   string
	UTCOffset  int
}

// Resolve merges the run-scope defaults into the named target and validates
// the result. Token and column problems surface here, before any fetch.
func (c *Config) Resolve(name string) (*Target, error) {
	tc, ok := c.Targets[name]
	if !ok {
		return nil, &ConfigurationError{Target: name, Reason: "not defined in configuration"}
	}
	if tc.Owner == "" || tc.Repo == "" {
		return nil, &ConfigurationError{Target: name, Reason: "owner and repo are required"}
	}

	t := &Target{
		Name:       name,
		Owner:      tc.Owner,
		Repo:       tc.Repo,
		Feature:    tc.Feature,
		Token:      tc.Token,
		API:        tc.API,
		TimeSeries: tc.TimeSeries,
		Filters:    tc.Filters.spec(),
	}
	if t.Feature == "" {
		t.Feature = "issues"
	}
	if t.API == "" {
		t.API = "rest"
	}
	if t.API != "rest" && t.API != "graphql" {
		return nil, &ConfigurationError{Target: name, Reason: fmt.Sprintf("unknown api %q", t.API)}
	}

	if t.Token == "" {
		t.Token = os.Getenv(EnvToken)
	}
	if tc.Private && t.Token == "" {
		return nil, &ConfigurationError{
			Target: name,
			Reason: fmt.Sprintf("is_private is set but no token is configured (set token or %s)", EnvToken),
		}
	}
	if t.API == "graphql" && t.Token == "" {
		return nil, &ConfigurationError{Target: name, Reason: "the graphql api requires a token"}
	}

	io := mergeIO(c.Run.IO, tc.IO)
	if len(io.OutColumns) == 0 {
		return nil, &ConfigurationError{Target: name, Reason: "no output columns configured"}
	}
	t.Columns = export.ParseColumns(io.OutColumns)
	t.Encoding = io.OutEncoding
	if io.UTCOffset != nil {
		t.UTCOffset = *io.UTCOffset
	}

	t.OutDir = expandPath(io.OutPath)
	if t.OutDir == "" {
		t.OutDir = "."
	}

	comps := io.OutBasenameComps
	if len(comps) == 0 {
		comps = []string{"repo", "feature"}
	}
	parts := make([]string, 0, len(comps))
	for _, comp := range comps {
		v, err := t.component(comp)
		if err != nil {
			return nil, &ConfigurationError{Target: name, Reason: err.Error()}
		}
		parts = append(parts, v)
	}
	t.OutFile = filepath.Join(t.OutDir, strings.Join(parts, "_")+".csv")

	return t, nil
}

func (t *Target) component(name string) (string, error) {
	switch name {
	case "name":
		return t.Name, nil
	case "owner":
		return t.Owner, nil
	case "repo":
		return t.Repo, nil
	case "feature":
		return t.Feature, nil
	}
	return "", fmt.Errorf("unknown basename component %q", name)
}

// mergeIO overlays the target's io settings on the run-scope defaults,
// field by field. The target wins wherever it says anything.
func mergeIO(run IOConfig, target *IOConfig) IOConfig {
	out := run
	if target == nil {
		return out
	}
	if target.OutPath != "" {
		out.OutPath = target.OutPath
	}
	if target.OutEncoding != "" {
		out.OutEncoding = target.OutEncoding
	}
	if len(target.OutBasenameComps) > 0 {
		out.OutBasenameComps = target.OutBasenameComps
	}
	if len(target.OutColumns) > 0 {
		out.OutColumns = target.OutColumns
	}
	if target.UTCOffset != nil {
		out.UTCOffset = target.UTCOffset
	}
	return out
}

// expandPath expands $VAR references and normalizes Windows path separators.
func expandPath(path string) string {
	return strings.ReplaceAll(os.ExpandEnv(path), `\`, "/")
}
