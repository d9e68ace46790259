package dateprobe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/always-cache/date-probe/probe"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "targets:\n  - https://example.com/\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Timeout != 10*time.Second || cfg.Retries != 2 || cfg.Concurrency != 4 || cfg.Tolerance != 2*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Plan) != 4 || cfg.Plan[2].Delay != 30*time.Second || !cfg.Plan[3].Revalidate {
		t.Fatalf("unexpected default plan %+v", cfg.Plan)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
timeout: 3s
retries: 0
fastRatio: 0.25
headers:
  Cookie: a=b
store: sqlite:results.db
plan:
  - label: first
  - delay: 1m
    method: head
    bust: true
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Timeout != 3*time.Second || cfg.Retries != 0 || cfg.FastRatio != 0.25 || cfg.Headers["Cookie"] != "a=b" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Plan) != 2 || cfg.Plan[1].Delay != time.Minute || cfg.Plan[1].Method != "HEAD" || cfg.Plan[1].Label != "step-2" {
		t.Fatalf("unexpected plan %+v", cfg.Plan)
	}
	pc := cfg.ProberConfig(nil, nil)
	if pc.Client.Timeout != 3*time.Second || pc.Client.Header.Get("Cookie") != "a=b" || pc.Classify.FastRatio != 0.25 {
		t.Fatalf("unexpected prober config %+v", pc)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		content string
		field   string
		kind    probe.ConfigKind
	}{
		{"plan:\n  - method: GET\n  - method: POST\n", "plan[1].method", probe.InvalidPlan},
		{"targets:\n  - ftp://example.com\n", "targets[0]", probe.InvalidURL},
		{"fastRatio: 2\n", "fastRatio", probe.InvalidConfig},
		{"timeout: 0s\n", "timeout", probe.InvalidConfig},
		{"retries: -1\n", "retries", probe.InvalidConfig},
		{"store: redis:x\n", "store", probe.InvalidConfig},
		{"plan:\n  - revalidate: true\n", "plan[0].revalidate", probe.InvalidPlan},
	}
	for _, tt := range tests {
		_, err := LoadConfig(writeConfig(t, tt.content))
		var cerr *probe.ConfigError
		if !errors.As(err, &cerr) || cerr.Field != tt.field || cerr.Kind != tt.kind {
			t.Fatalf("%q: expected %s on %s, got %v", tt.content, tt.kind, tt.field, err)
		}
	}
	if _, err := LoadConfig(writeConfig(t, "timeout: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}
