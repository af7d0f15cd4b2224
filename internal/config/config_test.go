package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "full", raw: "02:00:00", want: TimeOfDay{Hour: 2}},
		{name: "no seconds", raw: "23:59", want: TimeOfDay{Hour: 23, Minute: 59}},
		{name: "padded", raw: " 04:30:15 ", want: TimeOfDay{Hour: 4, Minute: 30, Second: 15}},
		{name: "bad hour", raw: "24:00:00", wantErr: true},
		{name: "bad minute", raw: "02:60:00", wantErr: true},
		{name: "bad second", raw: "02:00:61", wantErr: true},
		{name: "garbage", raw: "two am", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q): expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.Maintenance.ApplicationPath = "/opt/docker-desktop/docker-desktop"
	cfg.Maintenance.ImagePath = "/var/lib/docker-desktop/docker_data.img"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := validConfig()
	cfg.Schedule.At = "25:00:00"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid schedule.at")
	}

	cfg = validConfig()
	cfg.Maintenance.ApplicationPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing application_path")
	}

	cfg = validConfig()
	cfg.Maintenance.ImagePath = "   "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing image_path")
	}

	cfg = validConfig()
	cfg.Schedule.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}

	cfg = validConfig()
	cfg.Maintenance.StepTimeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid step_timeout")
	}
}

func TestEffectiveDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	if got := cfg.PollInterval(); got != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", got)
	}
	if got := cfg.StepTimeout(); got != 30*time.Minute {
		t.Fatalf("StepTimeout = %v, want 30m", got)
	}
	if got := cfg.OutputLimit(); got != 64*1024 {
		t.Fatalf("OutputLimit = %d, want 65536", got)
	}
	if got := cfg.ServiceName(); got != "dockmaint" {
		t.Fatalf("ServiceName = %q", got)
	}
	if got := cfg.StopTimeout(); got != 10*time.Second {
		t.Fatalf("StopTimeout = %v, want 10s", got)
	}

	cfg.Maintenance.StepTimeout = "0s"
	if got := cfg.StepTimeout(); got != 0 {
		t.Fatalf("StepTimeout(0s) = %v, want 0 (disabled)", got)
	}
}

func TestManagerLoadYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "dockmaint.yaml")
	data := `
schedule:
  at: "02:00:00"
  poll_interval: "2s"
maintenance:
  application_path: "/opt/docker-desktop/docker-desktop"
  image_path: "/var/lib/docker-desktop/docker_data.img"
  step_timeout: "10m"
logging:
  level: "debug"
  console: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tod, err := cfg.TimeOfDay()
	if err != nil {
		t.Fatalf("TimeOfDay: %v", err)
	}
	if tod.Hour != 2 || tod.Minute != 0 || tod.Second != 0 {
		t.Fatalf("unexpected time of day: %+v", tod)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Fatalf("PollInterval = %v", cfg.PollInterval())
	}
	if cfg.StepTimeout() != 10*time.Minute {
		t.Fatalf("StepTimeout = %v", cfg.StepTimeout())
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get() should return the committed config")
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "dockmaint.yaml")
	data := `
schedule: { at: "02:00:00" }
maintenance:
  application_path: "/a"
  image_path: "/b"
surprise: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}
