package natsadapter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

func TestSubjects(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{SubjectCompleted("tif"), "probe.scan.completed.tif"},
		{SubjectMatch("tif"), "probe.scan.match.tif"},
		{SubjectCompleted("*"), "probe.scan.completed._"},
		{SubjectMatch("a.b c"), "probe.scan.match.a_b_c"},
		{SubjectCompleted(""), "probe.scan.completed._"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestStreamConfig_CoversSubjects(t *testing.T) {
	cfg := streamConfig()
	if cfg.Name != StreamName || len(cfg.Subjects) != 1 || cfg.Subjects[0] != "probe.scan.>" {
		t.Errorf("unexpected stream config %+v", cfg)
	}
}

func TestNewMatchEvent(t *testing.T) {
	run := &domain.ScanRun{ID: "r1", Workflow: "tif", Path: "/d/a.tif", Target: domain.GeoPoint{Lon: 1, Lat: 2}}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	ev := newMatchEvent(run, domain.Sample{Level: 2, Status: domain.StatusMatch}, at)

	if ev.RunID != "r1" || ev.Sample.Level != 2 || ev.At.Location() != time.UTC {
		t.Errorf("unexpected event %+v", ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	if m["run_id"] != "r1" || m["path"] != "/d/a.tif" {
		t.Errorf("unexpected json %s", data)
	}
}
