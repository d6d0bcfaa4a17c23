package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hexpi/internal/coordinator"
	"hexpi/internal/logger"
)

// TriggerKind selects the resume signal awaited while workers are paused.
type TriggerKind string

const (
	TriggerStdin TriggerKind = "stdin" // a line on standard input
	TriggerFile  TriggerKind = "file"  // a write to trigger_path
	TriggerAPI   TriggerKind = "api"   // POST /api/resume
	TriggerDelay TriggerKind = "delay" // resume_after elapses
	TriggerNone  TriggerKind = "none"  // never pause
)

// ParseTriggerKind validates a trigger name.
func ParseTriggerKind(s string) (TriggerKind, error) {
	switch k := TriggerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case TriggerStdin, TriggerFile, TriggerAPI, TriggerDelay, TriggerNone:
		return k, nil
	default:
		return "", fmt.Errorf("unknown trigger: %s", s)
	}
}

// Output formats.
const (
	FormatHex     = "hex"
	FormatDecimal = "decimal"
)

// FileConfig is the on-disk configuration layout.
type FileConfig struct {
	Run    RunSection    `yaml:"run" json:"run"`
	Pause  PauseSection  `yaml:"pause" json:"pause"`
	Log    LogSection    `yaml:"log" json:"log"`
	Server ServerSection `yaml:"server" json:"server"`
	Output OutputSection `yaml:"output" json:"output"`
}

// RunSection selects the digits to compute. Nil fields were absent from the
// file; an explicit 0 is kept.
type RunSection struct {
	Start   *int64 `yaml:"start" json:"start"`
	Count   *int64 `yaml:"count" json:"count"`
	Workers *int   `yaml:"workers" json:"workers"`
}

// PauseSection configures periodic pausing.
type PauseSection struct {
	Interval    string `yaml:"interval" json:"interval"`
	Trigger     string `yaml:"trigger" json:"trigger"`
	TriggerPath string `yaml:"trigger_path" json:"trigger_path"`
	ResumeAfter string `yaml:"resume_after" json:"resume_after"`
}

type LogSection struct {
	Level string `yaml:"level" json:"level"`
}

type ServerSection struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

type OutputSection struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"`
}

// RunConfig is the resolved configuration of one hexpi invocation.
type RunConfig struct {
	Start   int64
	Count   int64
	Workers int

	Coordinator coordinator.Config
	Trigger     TriggerKind
	TriggerPath string
	ResumeAfter time.Duration

	LogLevel logger.Level

	Server     bool
	ServerAddr string

	OutputPath   string
	OutputFormat string
}

// DefaultRunConfig returns the settings used when neither a file nor a flag
// overrides them.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Start:        0,
		Count:        64,
		Workers:      4,
		Coordinator:  coordinator.Config{PauseInterval: 5 * time.Second},
		Trigger:      TriggerStdin,
		ResumeAfter:  time.Second,
		LogLevel:     logger.LevelInfo,
		ServerAddr:   ":8080",
		OutputFormat: FormatHex,
	}
}

// LoadFile reads a YAML or JSON configuration file, chosen by extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToRunConfig applies the file's values on top of DefaultRunConfig.
func (f *FileConfig) ToRunConfig() (RunConfig, error) {
	config := DefaultRunConfig()

	if f.Run.Start != nil {
		config.Start = *f.Run.Start
	}
	if f.Run.Count != nil {
		config.Count = *f.Run.Count
	}
	if f.Run.Workers != nil {
		config.Workers = *f.Run.Workers
	}

	if f.Pause.Interval != "" {
		d, err := time.ParseDuration(f.Pause.Interval)
		if err != nil {
			return config, fmt.Errorf("invalid pause interval: %w", err)
		}
		config.Coordinator.PauseInterval = d
	}
	if f.Pause.Trigger != "" {
		kind, err := ParseTriggerKind(f.Pause.Trigger)
		if err != nil {
			return config, err
		}
		config.Trigger = kind
	}
	config.TriggerPath = f.Pause.TriggerPath
	if f.Pause.ResumeAfter != "" {
		d, err := time.ParseDuration(f.Pause.ResumeAfter)
		if err != nil {
			return config, fmt.Errorf("invalid resume_after: %w", err)
		}
		config.ResumeAfter = d
	}

	if f.Log.Level != "" {
		level, err := logger.ParseLevel(f.Log.Level)
		if err != nil {
			return config, err
		}
		config.LogLevel = level
	}

	config.Server = f.Server.Enabled
	if f.Server.Addr != "" {
		config.ServerAddr = f.Server.Addr
	}

	config.OutputPath = f.Output.Path
	if f.Output.Format != "" {
		config.OutputFormat = strings.ToLower(f.Output.Format)
	}

	return config, config.Validate()
}

// Validate checks the file for values that can never be valid.
func (f *FileConfig) Validate() error {
	if f.Run.Start != nil && *f.Run.Start < 0 {
		return fmt.Errorf("run.start must be non-negative")
	}
	if f.Run.Count != nil && *f.Run.Count < 0 {
		return fmt.Errorf("run.count must be non-negative")
	}
	if f.Run.Workers != nil && *f.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive")
	}
	if f.Pause.Trigger != "" {
		if _, err := ParseTriggerKind(f.Pause.Trigger); err != nil {
			return fmt.Errorf("pause.trigger: %w", err)
		}
	}
	return nil
}

// Validate checks a resolved configuration.
func (c RunConfig) Validate() error {
	if c.Start < 0 || c.Count < 0 {
		return fmt.Errorf("%w: start=%d count=%d", coordinator.ErrInvalidRange, c.Start, c.Count)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: %d", coordinator.ErrInvalidWorkers, c.Workers)
	}
	if c.Coordinator.PauseInterval < 0 {
		return fmt.Errorf("pause interval must be non-negative")
	}
	if c.Trigger == TriggerFile && c.TriggerPath == "" {
		return fmt.Errorf("trigger %q requires a trigger path", TriggerFile)
	}
	if c.Trigger == TriggerDelay && c.ResumeAfter < 0 {
		return fmt.Errorf("resume_after must be non-negative")
	}
	if c.OutputFormat != FormatHex && c.OutputFormat != FormatDecimal {
		return fmt.Errorf("unknown output format: %s", c.OutputFormat)
	}
	return nil
}
