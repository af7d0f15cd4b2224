package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the full daemon configuration.
//
// All durations are Go duration strings (e.g. "5s", "30m").
type Config struct {
	Schedule    ScheduleConfig    `json:"schedule"`
	Maintenance MaintenanceConfig `json:"maintenance"`
	Service     ServiceConfig     `json:"service,omitempty"`
	Logging     LoggingConfig     `json:"logging,omitempty"`
}

// ScheduleConfig fixes the daily run time. It is read once at startup;
// changing it requires a restart (the scheduler treats it as immutable).
type ScheduleConfig struct {
	// At is the daily run time as "HH:MM:SS" (e.g. "02:00:00").
	At string `json:"at"`
	// Timezone is an IANA TZ name (e.g. "Europe/Berlin"). Empty means local time.
	Timezone string `json:"timezone,omitempty"`
	// PollInterval bounds how long a stop request can go unnoticed while the
	// loop waits for the next run. Default "5s".
	PollInterval string `json:"poll_interval,omitempty"`
	// RunOnStart triggers one maintenance run immediately after the loop starts.
	RunOnStart bool `json:"run_on_start,omitempty"`
}

// MaintenanceConfig parameterizes the fixed five-step plan.
type MaintenanceConfig struct {
	// ApplicationPath is the managed application executable to relaunch
	// after maintenance (Docker Desktop in the original deployment).
	ApplicationPath string `json:"application_path"`
	// ImagePath is the backing disk image to optimize/compact.
	ImagePath string `json:"image_path"`
	// Elevated marks the plan as requiring elevated privilege. It is recorded
	// on each step and logged; enforcement is up to the service account.
	Elevated bool `json:"elevated,omitempty"`
	// StepTimeout caps each step's external command. "0s" disables the cap.
	// Default "30m" (the image optimization step can legitimately run long).
	StepTimeout string `json:"step_timeout,omitempty"`
	// OutputLimitKB caps captured stdout/stderr per stream. Default 64.
	OutputLimitKB int `json:"output_limit_kb,omitempty"`
	// Steps overrides individual step commands. Keys are the fixed step names
	// (prune, kill, shutdown, optimize, restart). Unset steps use the
	// platform defaults.
	Steps map[string]StepOverride `json:"steps,omitempty"`
}

// StepOverride replaces the command line of one step.
type StepOverride struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ServiceConfig controls the OS service registration and stop behavior.
type ServiceConfig struct {
	// Name is the service/unit name. Default "dockmaint".
	Name string `json:"name,omitempty"`
	// Description shows up in the service manager. Default set at install time.
	Description string `json:"description,omitempty"`
	// StopTimeout bounds how long stop() waits for the loop to exit. Default "10s".
	StopTimeout string `json:"stop_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level,omitempty"`
	Console bool           `json:"console,omitempty"`
	File    LoggingFile    `json:"file,omitempty"`
	Journal LoggingJournal `json:"journal,omitempty"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

type LoggingJournal struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// TimeOfDay is a validated wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay parses "HH:MM:SS" (seconds optional: "HH:MM").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	sec := 0
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid second in %q", s)
		}
	}
	return TimeOfDay{Hour: h, Minute: m, Second: sec}, nil
}

// Validate checks everything that must be fatal before the service reaches
// Running state: the schedule time, required paths, and duration fields.
func (c *Config) Validate() error {
	if _, err := ParseTimeOfDay(c.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at: %w", err)
	}
	if tz := strings.TrimSpace(c.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	if _, err := parseDuration("schedule.poll_interval", c.Schedule.PollInterval); err != nil {
		return err
	}
	if strings.TrimSpace(c.Maintenance.ApplicationPath) == "" {
		return fmt.Errorf("maintenance.application_path is required")
	}
	if strings.TrimSpace(c.Maintenance.ImagePath) == "" {
		return fmt.Errorf("maintenance.image_path is required")
	}
	if _, err := parseDuration("maintenance.step_timeout", c.Maintenance.StepTimeout); err != nil {
		return err
	}
	if c.Maintenance.OutputLimitKB < 0 {
		return fmt.Errorf("maintenance.output_limit_kb must be >= 0")
	}
	if _, err := parseDuration("service.stop_timeout", c.Service.StopTimeout); err != nil {
		return err
	}
	return nil
}

// TimeOfDay returns the parsed schedule time. Call Validate first.
func (c *Config) TimeOfDay() (TimeOfDay, error) {
	return ParseTimeOfDay(c.Schedule.At)
}

// Location resolves the schedule timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Schedule.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// PollInterval returns the effective wait poll interval.
func (c *Config) PollInterval() time.Duration {
	d, err := durationOr("schedule.poll_interval", c.Schedule.PollInterval, 5*time.Second)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// StepTimeout returns the effective per-step timeout (0 = unlimited).
func (c *Config) StepTimeout() time.Duration {
	d, err := parseDuration("maintenance.step_timeout", c.Maintenance.StepTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	if strings.TrimSpace(c.Maintenance.StepTimeout) == "" {
		return 30 * time.Minute
	}
	return d
}

// OutputLimit returns the per-stream capture cap in bytes.
func (c *Config) OutputLimit() int {
	kb := c.Maintenance.OutputLimitKB
	if kb <= 0 {
		kb = 64
	}
	return kb * 1024
}

// ServiceName returns the effective service/unit name.
func (c *Config) ServiceName() string {
	if n := strings.TrimSpace(c.Service.Name); n != "" {
		return n
	}
	return "dockmaint"
}

// StopTimeout returns the effective bounded stop wait.
func (c *Config) StopTimeout() time.Duration {
	d, err := durationOr("service.stop_timeout", c.Service.StopTimeout, 10*time.Second)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Default returns a config with everything optional filled in and the
// required paths left empty (validation will reject it until they are set).
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{At: "02:00:00", PollInterval: "5s"},
		Maintenance: MaintenanceConfig{
			StepTimeout:   "30m",
			OutputLimitKB: 64,
		},
		Service: ServiceConfig{Name: "dockmaint", StopTimeout: "10s"},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// parseDuration parses a duration config field. Empty means zero; negative
// values are rejected.
func parseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr parses a duration field, substituting def when the field is
// empty or zero.
func durationOr(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
