package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("tifprobe-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Temporal.TaskQueue != "probe-validation" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Probe.Workflow != "tif" || cfg.Probe.Export != "excel" || cfg.Probe.BackgroundThreshold != 100 {
		t.Errorf("unexpected probe defaults %+v", cfg.Probe)
	}
	if cfg.Telemetry.ServiceName != "tifprobe-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("TIFPROBE_SERVER_PORT", "9090")
	t.Setenv("TIFPROBE_PROBE_TOLERANCE_KM", "2.5")
	t.Setenv("TIFPROBE_PROBE_MATCH_ONLY", "yes")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Probe.ToleranceKm != 2.5 || !cfg.Probe.MatchOnly {
		t.Errorf("env not applied: %+v %+v", cfg.Server, cfg.Probe)
	}
}

func TestLoad_LegacyEnvAliases(t *testing.T) {
	t.Setenv("TIF_DIRPATH", "/data/tifs")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("TARGET_SPOT_LON", "121.5654")
	t.Setenv("TARGET_SPOT_LAT", "25.0330")
	t.Setenv("VALIDATE_DIST_KM", "0.5")
	t.Setenv("FIND_MATCH_ONLY", "T")
	t.Setenv("LOG_DIRPATH", "/var/log/probe")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := cfg.Probe
	if p.InputDir != "/data/tifs" || p.OutputDir != "/data/out" {
		t.Errorf("dirs not aliased: %+v", p)
	}
	if p.TargetLon != 121.5654 || p.TargetLat != 25.0330 || p.ToleranceKm != 0.5 || !p.MatchOnly {
		t.Errorf("scan params not aliased: %+v", p)
	}
	if cfg.Log.Dir != "/var/log/probe" {
		t.Errorf("log dir = %q", cfg.Log.Dir)
	}
}

func TestLoad_PrefixedWinsOverAlias(t *testing.T) {
	t.Setenv("TIFPROBE_PROBE_OUTPUT_DIR", "/prefixed")
	t.Setenv("OUTPUT_DIR", "/legacy")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Probe.OutputDir != "/prefixed" {
		t.Errorf("output dir = %q", cfg.Probe.OutputDir)
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("FIND_MATCH_ONLY", "maybe")
	if _, err := Load("test"); err == nil || !strings.Contains(err.Error(), "probe.match_only") {
		t.Errorf("expected match_only error, got %v", err)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"y", "YES", "t", "True", "on", "1", " 1 "} {
		if b, err := ParseBool(s); err != nil || !b {
			t.Errorf("ParseBool(%q) = %v, %v", s, b, err)
		}
	}
	for _, s := range []string{"n", "No", "f", "FALSE", "off", "0"} {
		if b, err := ParseBool(s); err != nil || b {
			t.Errorf("ParseBool(%q) = %v, %v", s, b, err)
		}
	}
	if _, err := ParseBool(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1, ScanTimeout: 1},
		Probe:  ProbeConfig{TargetLon: 200, TargetLat: -95, ToleranceKm: -1, Export: "pdf"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"server.port", "database.host", "nats.url", "valkey.addr", "temporal.task_queue",
		"probe.target_lon", "probe.target_lat", "probe.tolerance_km", "probe.export", "probe.workflow",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}
