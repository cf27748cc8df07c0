package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := Decode(newTestViper())
	if err != nil {
		t.Fatalf("decode defaults failed: %v", err)
	}
	if cfg.Risk.HighRiskThreshold != 70 {
		t.Fatalf("high risk threshold want 70 got %d", cfg.Risk.HighRiskThreshold)
	}
	if cfg.Quota.Timezone != "UTC" || cfg.Quota.BucketDays != 1 {
		t.Fatalf("quota bucketing defaults mismatch: %+v", cfg.Quota)
	}
	if cfg.Quota.MaxRetries != 3 {
		t.Fatalf("quota max retries want 3 got %d", cfg.Quota.MaxRetries)
	}
	if cfg.Attribution.ClickIDSource != "cookie" {
		t.Fatalf("click id source want cookie got %s", cfg.Attribution.ClickIDSource)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestDecodeYAMLOverrides(t *testing.T) {
	v := newTestViper()
	v.SetConfigType("yaml")
	raw := `
risk:
  high_risk_threshold: 55
quota:
  timezone: Europe/Berlin
  bucket_days: 7
attribution:
  click_id_source: header
`
	if err := v.ReadConfig(strings.NewReader(raw)); err != nil {
		t.Fatalf("read yaml failed: %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cfg.Risk.HighRiskThreshold != 55 {
		t.Fatalf("threshold override want 55 got %d", cfg.Risk.HighRiskThreshold)
	}
	if cfg.Risk.HostingPoints != 40 {
		t.Fatalf("untouched defaults should remain, hosting points got %d", cfg.Risk.HostingPoints)
	}
	if cfg.Quota.BucketDays != 7 || cfg.Quota.Timezone != "Europe/Berlin" {
		t.Fatalf("quota overrides mismatch: %+v", cfg.Quota)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("override config should be valid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(cfg *Config){
		"threshold": func(cfg *Config) { cfg.Risk.HighRiskThreshold = 101 },
		"bucket":    func(cfg *Config) { cfg.Quota.BucketDays = 0 },
		"timezone":  func(cfg *Config) { cfg.Quota.Timezone = "Mars/Olympus" },
		"source":    func(cfg *Config) { cfg.Attribution.ClickIDSource = "query" },
	}
	for name, mutate := range cases {
		cfg, err := Decode(newTestViper())
		if err != nil {
			t.Fatalf("decode defaults failed: %v", err)
		}
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestServerAndAuthzDefaults(t *testing.T) {
	cfg, err := Decode(newTestViper())
	if err != nil {
		t.Fatalf("decode defaults failed: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr want 0.0.0.0:8080 got %s", cfg.Server.Addr())
	}
	if cfg.Server.ReadHeaderTimeout() != 5*time.Second || cfg.Server.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("server timeouts mismatch: %+v", cfg.Server)
	}
	if !cfg.Authz.Enabled || !cfg.Authz.BootstrapBuiltin {
		t.Fatalf("authz should be enabled by default: %+v", cfg.Authz)
	}

	cfg.Server.IdleTimeoutSeconds = 0
	if cfg.Server.IdleTimeout() != 60*time.Second {
		t.Fatalf("zero idle timeout should fall back to 60s got %s", cfg.Server.IdleTimeout())
	}
}
