package config

import (
	"strings"
	"testing"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig("testdata/does-not-exist.json")
	if err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
	if cfg.Server.Name != "inspection-service" || cfg.Server.HTTPPort != 8080 {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Inspection.RecurrenceDays["routine"] != 30 {
		t.Fatalf("recurrence defaults missing: %+v", cfg.Inspection)
	}
}

func TestLoadConfigFromConsulKVRequiresKey(t *testing.T) {
	if _, err := LoadConfigFromConsulKV("localhost:8500", "  "); err == nil || !strings.Contains(err.Error(), "key is empty") {
		t.Fatalf("empty key must be rejected, got %v", err)
	}
}
