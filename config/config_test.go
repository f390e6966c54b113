package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalProbes = `
probes:
  - id: api
    nodes:
      - id: worker-1
        mode: push
`

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(minimalProbes))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.RefreshInterval.Duration() != 5*time.Second {
		t.Errorf("RefreshInterval = %v, want 5s", cfg.RefreshInterval.Duration())
	}
	if len(cfg.Probes) != 1 {
		t.Errorf("len(Probes) = %d, want 1", len(cfg.Probes))
	}
}

func TestParse_FullConfig(t *testing.T) {
	t.Setenv("TEST_REPORTER_TOKEN", "rep-secret")
	t.Setenv("TEST_HOOK_TOKEN", "hook-secret")

	yaml := `
title: Acme Status
port: 9090
refresh_interval: 2s
thresholds:
  cpu_sick_above: 0.8
  ram_sick_above: 0.95
  push_dead_delay: 30s
  local_dead_delay: 1m
auth:
  reporter_token: ${TEST_REPORTER_TOKEN}
  manager_token: ${UNSET_MANAGER_TOKEN:-admin}
plugins:
  max_concurrency: 2
  queue_size: 16
  webhooks:
    - name: ops
      url: https://hooks.example.com/load
      timeout: 3s
      headers:
        Authorization: Bearer ${TEST_HOOK_TOKEN}
      only_sick: true
probes:
  - id: api
    label: Public API
    nodes:
      - id: worker-1
        label: Worker 1
        mode: push
        replicas: [r1, r2]
      - id: gateway
        mode: local
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Acme Status" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Acme Status")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RefreshInterval.Duration() != 2*time.Second {
		t.Errorf("RefreshInterval = %v, want 2s", cfg.RefreshInterval.Duration())
	}

	th := cfg.Thresholds
	if th.CPUSickAbove != 0.8 || th.RAMSickAbove != 0.95 {
		t.Errorf("load thresholds = %v/%v, want 0.8/0.95", th.CPUSickAbove, th.RAMSickAbove)
	}
	if th.PushDeadDelay.Duration() != 30*time.Second || th.LocalDeadDelay.Duration() != time.Minute {
		t.Errorf("dead delays = %v/%v, want 30s/1m", th.PushDeadDelay.Duration(), th.LocalDeadDelay.Duration())
	}

	if cfg.Auth.ReporterToken != "rep-secret" {
		t.Errorf("ReporterToken = %q, want %q", cfg.Auth.ReporterToken, "rep-secret")
	}
	if cfg.Auth.ManagerToken != "admin" {
		t.Errorf("ManagerToken = %q, want %q", cfg.Auth.ManagerToken, "admin")
	}

	if cfg.Plugins.MaxConcurrency != 2 || cfg.Plugins.QueueSize != 16 {
		t.Errorf("plugins = %+v", cfg.Plugins)
	}
	wh := cfg.Plugins.Webhooks[0]
	if wh.Headers["Authorization"] != "Bearer hook-secret" {
		t.Errorf("Headers[Authorization] = %q, want 'Bearer hook-secret'", wh.Headers["Authorization"])
	}
	if wh.Timeout.Duration() != 3*time.Second || !wh.OnlySick {
		t.Errorf("webhook = %+v", wh)
	}

	p := cfg.Probes[0]
	if p.Label != "Public API" || len(p.Nodes) != 2 {
		t.Fatalf("probe = %+v", p)
	}
	if p.Nodes[0].Mode != "push" || len(p.Nodes[0].Replicas) != 2 {
		t.Errorf("nodes[0] = %+v", p.Nodes[0])
	}
}

func TestParse_EnvVarInWebhookURL(t *testing.T) {
	t.Setenv("TEST_HOOK_HOST", "hooks.test.com")

	yaml := `
plugins:
  webhooks:
    - name: ops
      url: https://${TEST_HOOK_HOST}/load
` + minimalProbes

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Plugins.Webhooks[0].URL != "https://hooks.test.com/load" {
		t.Errorf("URL = %q, want https://hooks.test.com/load", cfg.Plugins.Webhooks[0].URL)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	// MISSING_TOKEN_VAR is expected to not exist in the environment
	yaml := `
auth:
  reporter_token: ${MISSING_TOKEN_VAR}
` + minimalProbes

	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_TOKEN_VAR") {
		t.Errorf("error should mention MISSING_TOKEN_VAR: %v", err)
	}
	if !strings.Contains(err.Error(), "auth.reporter_token") {
		t.Errorf("error should mention the field: %v", err)
	}
}

func TestParse_GridConfig(t *testing.T) {
	yaml := `
probes:
  - id: api
    grids:
      - mode: push
        id_template: "worker-{{.region}}"
        label: Worker
        replicas: [r1]
        dimensions:
          region: [eu, us]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	g := cfg.Probes[0].Grids[0]
	if g.IDTemplate != "worker-{{.region}}" {
		t.Errorf("IDTemplate = %q", g.IDTemplate)
	}
	if len(g.Dimensions["region"]) != 2 {
		t.Errorf("Dimensions = %v", g.Dimensions)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "no probes",
			yaml:        `port: 8080`,
			wantErrLike: "at least one probe",
		},
		{
			name:        "port out of range",
			yaml:        "port: 70000\n" + minimalProbes,
			wantErrLike: "port must be between",
		},
		{
			name:        "refresh too short",
			yaml:        "refresh_interval: 500ms\n" + minimalProbes,
			wantErrLike: "refresh_interval must be at least 1s",
		},
		{
			name:        "negative cpu threshold",
			yaml:        "thresholds:\n  cpu_sick_above: -0.5\n" + minimalProbes,
			wantErrLike: "cpu_sick_above cannot be negative",
		},
		{
			name:        "negative dead delay",
			yaml:        "thresholds:\n  local_dead_delay: -1s\n" + minimalProbes,
			wantErrLike: "local_dead_delay cannot be negative",
		},
		{
			name:        "negative concurrency",
			yaml:        "plugins:\n  max_concurrency: -1\n" + minimalProbes,
			wantErrLike: "max_concurrency cannot be negative",
		},
		{
			name: "probe missing id",
			yaml: `
probes:
  - nodes:
      - id: w
        mode: push
`,
			wantErrLike: "probes[0]: id is required",
		},
		{
			name: "probe without nodes",
			yaml: `
probes:
  - id: api
`,
			wantErrLike: "at least one node or grid",
		},
		{
			name: "duplicate probe",
			yaml: minimalProbes + `
  - id: api
    nodes:
      - id: w
        mode: push
`,
			wantErrLike: "duplicate probe id",
		},
		{
			name: "node missing id",
			yaml: `
probes:
  - id: api
    nodes:
      - mode: push
`,
			wantErrLike: "nodes[0]: id is required",
		},
		{
			name: "bad node mode",
			yaml: `
probes:
  - id: api
    nodes:
      - id: w
        mode: pull
`,
			wantErrLike: "mode must be push or local",
		},
		{
			name: "duplicate node",
			yaml: `
probes:
  - id: api
    nodes:
      - id: w
        mode: push
      - id: w
        mode: local
`,
			wantErrLike: "duplicate node id",
		},
		{
			name: "duplicate replica",
			yaml: `
probes:
  - id: api
    nodes:
      - id: w
        mode: push
        replicas: [r1, r1]
`,
			wantErrLike: "duplicate replica",
		},
		{
			name: "grid without template",
			yaml: `
probes:
  - id: api
    grids:
      - mode: push
        dimensions:
          region: [eu]
`,
			wantErrLike: "id_template is required",
		},
		{
			name: "grid without dimensions",
			yaml: `
probes:
  - id: api
    grids:
      - mode: local
        id_template: gw
`,
			wantErrLike: "at least one dimension",
		},
		{
			name:        "webhook missing name",
			yaml:        "plugins:\n  webhooks:\n    - url: https://example.com\n" + minimalProbes,
			wantErrLike: "name is required",
		},
		{
			name:        "webhook missing url",
			yaml:        "plugins:\n  webhooks:\n    - name: ops\n" + minimalProbes,
			wantErrLike: "url is required",
		},
		{
			name:        "webhook bad scheme",
			yaml:        "plugins:\n  webhooks:\n    - name: ops\n      url: ftp://example.com\n" + minimalProbes,
			wantErrLike: "url scheme must be http or https",
		},
		{
			name:        "webhook timeout too short",
			yaml:        "plugins:\n  webhooks:\n    - name: ops\n      url: https://example.com\n      timeout: 10ms\n" + minimalProbes,
			wantErrLike: "timeout must be at least 100ms",
		},
		{
			name: "duplicate webhook",
			yaml: `
plugins:
  webhooks:
    - name: ops
      url: https://a.example.com
    - name: ops
      url: https://b.example.com
` + minimalProbes,
			wantErrLike: "duplicate webhook name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErrLike)
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("Parse() error = %q, want containing %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("probes: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v, want YAML parse error", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("refresh_interval: soon\n" + minimalProbes))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	if err := os.WriteFile(path, []byte("title: From File\n"+minimalProbes), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Title != "From File" {
		t.Errorf("Title = %q, want %q", cfg.Title, "From File")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "BEACON_TEST_ENV_FILE_TOKEN"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	cfg, err := Parse([]byte("auth:\n  reporter_token: ${" + key + "}\n" + minimalProbes))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Auth.ReporterToken != "from-dotenv" {
		t.Errorf("ReporterToken = %q, want %q", cfg.Auth.ReporterToken, "from-dotenv")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("LoadEnvFile() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to load env file") {
		t.Errorf("error = %v", err)
	}
}
