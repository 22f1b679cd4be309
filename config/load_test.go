package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
env: production
exchange:
  host: exch.example.com
  team: TEAMSTOCKERS
adr:
  hysteresis: 7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "production" {
		t.Fatalf("env not applied: %q", cfg.Env)
	}
	if cfg.Exchange.Host != "exch.example.com" {
		t.Fatalf("host not applied: %q", cfg.Exchange.Host)
	}
	if cfg.ADR.Hysteresis != 7 {
		t.Fatalf("adr.hysteresis not applied: %d", cfg.ADR.Hysteresis)
	}
	// 未覆盖的字段保持默认值。
	if cfg.Exchange.Port != 25000 {
		t.Fatalf("default port lost: %d", cfg.Exchange.Port)
	}
	if cfg.ETF.ConvertQty != 30 {
		t.Fatalf("default etf.convertQty lost: %d", cfg.ETF.ConvertQty)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad env", "env: staging\n"},
		{"negative hysteresis", "adr:\n  hysteresis: -1\n"},
		{"bad price source", "adr:\n  priceSource: midpoint\n"},
		{"zero window", "estimator:\n  windowSize: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "env: test\n")
	t.Setenv("ETC_TEAM_NAME", "OVERRIDE")
	t.Setenv("ETC_EXCHANGE_ADDR", "prod-exch.example.com:25001")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exchange.Team != "OVERRIDE" {
		t.Fatalf("team override lost: %q", cfg.Exchange.Team)
	}
	if cfg.Exchange.Host != "prod-exch.example.com" || cfg.Exchange.Port != 25001 {
		t.Fatalf("addr override lost: %s:%d", cfg.Exchange.Host, cfg.Exchange.Port)
	}
}

func TestEnvOverridesRejectBadAddr(t *testing.T) {
	path := writeConfig(t, "env: test\n")
	t.Setenv("ETC_EXCHANGE_ADDR", "no-port-here")
	if _, err := LoadWithEnvOverrides(path); err == nil {
		t.Fatal("expected error for unparseable address")
	}
}
