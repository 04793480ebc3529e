package config

import (
	"testing"
	"time"
)

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Hosts.HostLastSyncThreshold != 24*time.Hour {
		t.Fatalf("expected 24h sync threshold, got %v", cfg.Hosts.HostLastSyncThreshold)
	}
	if cfg.Hosts.CullingOffset != 48*time.Hour {
		t.Fatalf("expected 48h culling offset, got %v", cfg.Hosts.CullingOffset)
	}
	if cfg.Ingest.Lanes != 8 {
		t.Fatalf("expected 8 lanes, got %d", cfg.Ingest.Lanes)
	}
	if cfg.Telemetry.ServiceName == "" {
		t.Fatalf("expected default service name")
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Hosts.HostLastSyncThreshold = time.Hour
	cfg.Ingest.Lanes = 2

	cfg = cfg.withDefaults()
	if cfg.Hosts.HostLastSyncThreshold != time.Hour {
		t.Fatalf("expected explicit threshold kept, got %v", cfg.Hosts.HostLastSyncThreshold)
	}
	if cfg.Ingest.Lanes != 2 {
		t.Fatalf("expected explicit lanes kept, got %d", cfg.Ingest.Lanes)
	}
}
