// Package config provides YAML configuration parsing for Beacon.
//
// This package enables running Beacon as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Acme Status
//	port: 8080
//	refresh_interval: 5s
//
//	auth:
//	  reporter_token: ${BEACON_REPORTER_TOKEN}
//
//	plugins:
//	  webhooks:
//	    - name: ops
//	      url: https://hooks.example.com/load
//	      only_sick: true
//
//	probes:
//	  - id: api
//	    label: API
//	    nodes:
//	      - id: worker-1
//	        mode: push
//	        replicas: [r1, r2]
//	      - id: gateway
//	        mode: local
//	    grids:
//	      - mode: push
//	        id_template: "edge-{{.region}}"
//	        dimensions:
//	          region: [eu, us]
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = 8080
	defaultRefreshInterval = 5 * time.Second

	// minRefreshInterval keeps the status sweep from spinning.
	minRefreshInterval = 1 * time.Second
)

// Config is the root configuration structure for Beacon.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Beacon" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// RefreshInterval is the time between status sweeps that turn silent
	// replicas dead. Defaults to 5s, must be at least 1s.
	RefreshInterval Duration `yaml:"refresh_interval"`

	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Auth       AuthConfig       `yaml:"auth"`
	Plugins    PluginsConfig    `yaml:"plugins"`

	// Probes lists every probe and its nodes.
	Probes []ProbeConfig `yaml:"probes"`
}

// ThresholdsConfig controls status derivation. Zero values keep the defaults.
type ThresholdsConfig struct {
	CPUSickAbove   float64  `yaml:"cpu_sick_above"`
	RAMSickAbove   float64  `yaml:"ram_sick_above"`
	PushDeadDelay  Duration `yaml:"push_dead_delay"`
	LocalDeadDelay Duration `yaml:"local_dead_delay"`
}

// AuthConfig holds the shared tokens. Values support environment variable
// substitution; an empty token leaves the route group open.
type AuthConfig struct {
	ReporterToken string `yaml:"reporter_token"`
	ManagerToken  string `yaml:"manager_token"`
}

// PluginsConfig configures forward value dispatch.
type PluginsConfig struct {
	// MaxConcurrency is the number of dispatch workers. Defaults to 4.
	MaxConcurrency int `yaml:"max_concurrency"`
	// QueueSize bounds pending forward values. Defaults to 256.
	QueueSize int             `yaml:"queue_size"`
	Webhooks  []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines a webhook receiving forward values.
type WebhookConfig struct {
	Name string `yaml:"name"`

	// URL supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout is the request timeout. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Headers values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// OnlySick skips forward values of healthy replicas.
	OnlySick bool `yaml:"only_sick"`
}

// ProbeConfig defines a probe.
type ProbeConfig struct {
	ID    string       `yaml:"id"`
	Label string       `yaml:"label"`
	Nodes []NodeConfig `yaml:"nodes"`

	// Grids generate nodes from an id template, after the explicit nodes.
	Grids []GridConfig `yaml:"grids"`
}

// GridConfig generates nodes using cartesian product expansion.
//
// Example YAML:
//
//	grids:
//	  - mode: push
//	    id_template: "worker-{{.region}}-{{.slot}}"
//	    label: Worker
//	    dimensions:
//	      region: [eu, us]
//	      slot: ["1", "2"]
type GridConfig struct {
	Mode       string              `yaml:"mode"`
	IDTemplate string              `yaml:"id_template"`
	Label      string              `yaml:"label"`
	Dimensions map[string][]string `yaml:"dimensions"`
	Replicas   []string            `yaml:"replicas"`
}

// NodeConfig defines a node of a probe.
type NodeConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`

	// Mode is "push" (load reports) or "local" (health reports).
	Mode string `yaml:"mode"`

	// Replicas lists replica ids that may be flushed before they report.
	Replicas []string `yaml:"replicas"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment so they are visible to ${VAR} expansion. Variables that are
// already set are not overridden.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in auth tokens, webhook URLs and webhook
// header values. Defaults are applied for Port (8080) and RefreshInterval (5s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = Duration(defaultRefreshInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.RefreshInterval.Duration() < minRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %s, got %s", minRefreshInterval, c.RefreshInterval.Duration())
	}

	if err := c.Thresholds.validate(); err != nil {
		return err
	}

	var err error
	if c.Auth.ReporterToken, err = expandEnvVars(c.Auth.ReporterToken); err != nil {
		return fmt.Errorf("auth.reporter_token: %w", err)
	}
	if c.Auth.ManagerToken, err = expandEnvVars(c.Auth.ManagerToken); err != nil {
		return fmt.Errorf("auth.manager_token: %w", err)
	}

	if err := c.Plugins.expandAndValidate(); err != nil {
		return err
	}

	if len(c.Probes) == 0 {
		return errors.New("at least one probe must be defined")
	}
	seen := make(map[string]struct{}, len(c.Probes))
	for i := range c.Probes {
		p := &c.Probes[i]
		if err := p.validate(i); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("probes[%d] (%s): duplicate probe id", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return nil
}

func (t ThresholdsConfig) validate() error {
	if t.CPUSickAbove < 0 {
		return fmt.Errorf("thresholds.cpu_sick_above cannot be negative, got %g", t.CPUSickAbove)
	}
	if t.RAMSickAbove < 0 {
		return fmt.Errorf("thresholds.ram_sick_above cannot be negative, got %g", t.RAMSickAbove)
	}
	if t.PushDeadDelay < 0 {
		return fmt.Errorf("thresholds.push_dead_delay cannot be negative, got %s", t.PushDeadDelay.Duration())
	}
	if t.LocalDeadDelay < 0 {
		return fmt.Errorf("thresholds.local_dead_delay cannot be negative, got %s", t.LocalDeadDelay.Duration())
	}
	return nil
}

func (p *PluginsConfig) expandAndValidate() error {
	if p.MaxConcurrency < 0 {
		return fmt.Errorf("plugins.max_concurrency cannot be negative, got %d", p.MaxConcurrency)
	}
	if p.QueueSize < 0 {
		return fmt.Errorf("plugins.queue_size cannot be negative, got %d", p.QueueSize)
	}

	seen := make(map[string]struct{}, len(p.Webhooks))
	for i := range p.Webhooks {
		wh := &p.Webhooks[i]

		if wh.Name == "" {
			return fmt.Errorf("plugins.webhooks[%d]: name is required", i)
		}
		if _, dup := seen[wh.Name]; dup {
			return fmt.Errorf("plugins.webhooks[%d] (%s): duplicate webhook name", i, wh.Name)
		}
		seen[wh.Name] = struct{}{}

		if wh.URL == "" {
			return fmt.Errorf("plugins.webhooks[%d] (%s): url is required", i, wh.Name)
		}
		expanded, err := expandEnvVars(wh.URL)
		if err != nil {
			return fmt.Errorf("plugins.webhooks[%d] (%s): url: %w", i, wh.Name, err)
		}
		wh.URL = expanded

		parsedURL, err := url.Parse(wh.URL)
		if err != nil {
			return fmt.Errorf("plugins.webhooks[%d] (%s): invalid url: %w", i, wh.Name, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("plugins.webhooks[%d] (%s): url scheme must be http or https, got %q", i, wh.Name, parsedURL.Scheme)
		}

		for k, v := range wh.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("plugins.webhooks[%d] (%s): headers[%s]: %w", i, wh.Name, k, err)
			}
			wh.Headers[k] = expanded
		}

		if wh.Timeout != 0 && wh.Timeout.Duration() < 100*time.Millisecond {
			return fmt.Errorf("plugins.webhooks[%d] (%s): timeout must be at least 100ms if specified, got %s",
				i, wh.Name, wh.Timeout.Duration())
		}
	}
	return nil
}

func (p *ProbeConfig) validate(i int) error {
	if p.ID == "" {
		return fmt.Errorf("probes[%d]: id is required", i)
	}
	if len(p.Nodes) == 0 && len(p.Grids) == 0 {
		return fmt.Errorf("probes[%d] (%s): at least one node or grid is required", i, p.ID)
	}

	seen := make(map[string]struct{}, len(p.Nodes))
	for j, n := range p.Nodes {
		if n.ID == "" {
			return fmt.Errorf("probes[%d] (%s).nodes[%d]: id is required", i, p.ID, j)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("probes[%d] (%s).nodes[%d] (%s): duplicate node id", i, p.ID, j, n.ID)
		}
		seen[n.ID] = struct{}{}

		if n.Mode != "push" && n.Mode != "local" {
			return fmt.Errorf("probes[%d] (%s).nodes[%d] (%s): mode must be push or local, got %q", i, p.ID, j, n.ID, n.Mode)
		}

		replicas := make(map[string]struct{}, len(n.Replicas))
		for _, r := range n.Replicas {
			if r == "" {
				return fmt.Errorf("probes[%d] (%s).nodes[%d] (%s): replica id cannot be empty", i, p.ID, j, n.ID)
			}
			if _, dup := replicas[r]; dup {
				return fmt.Errorf("probes[%d] (%s).nodes[%d] (%s): duplicate replica %q", i, p.ID, j, n.ID, r)
			}
			replicas[r] = struct{}{}
		}
	}

	for j, g := range p.Grids {
		if g.Mode != "push" && g.Mode != "local" {
			return fmt.Errorf("probes[%d] (%s).grids[%d]: mode must be push or local, got %q", i, p.ID, j, g.Mode)
		}
		if g.IDTemplate == "" {
			return fmt.Errorf("probes[%d] (%s).grids[%d]: id_template is required", i, p.ID, j)
		}
		if len(g.Dimensions) == 0 {
			return fmt.Errorf("probes[%d] (%s).grids[%d]: at least one dimension is required", i, p.ID, j)
		}
	}
	return nil
}
