// Package config loads the optional driftui.yaml of a server directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = "driftui.yaml"

// SupportedProtocol is the newest protocol version this build speaks.
// Configured versions must share its major version.
const SupportedProtocol = "v1.0.0"

// Stream kinds served on the websocket path.
const (
	StreamDocument = "document"
	StreamFigure   = "figure"
)

// Config represents the optional driftui.yaml configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Render   RenderConfig   `yaml:"render"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Log      LogConfig      `yaml:"log"`
	Demo     DemoConfig     `yaml:"demo"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr,omitempty"`
	Path         string        `yaml:"path,omitempty"`
	Stream       string        `yaml:"stream,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// RenderConfig contains render scheduling settings.
type RenderConfig struct {
	// Debounce is the minimum spacing of scheduled passes. Zero disables
	// rate limiting.
	Debounce *time.Duration `yaml:"debounce,omitempty"`
	Burst    int            `yaml:"burst,omitempty"`
	// Debug enables hook order checks.
	Debug *bool `yaml:"debug,omitempty"`
}

// ProtocolConfig pins the export protocol version.
type ProtocolConfig struct {
	Version string `yaml:"version,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// DemoConfig configures the bundled demo app.
type DemoConfig struct {
	// Table is a YAML table file, relative to the config directory. Empty
	// means a generated in-memory table.
	Table string `yaml:"table,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root   string
	Server struct {
		Addr         string        `validate:"required,hostname_port"`
		Path         string        `validate:"required,startswith=/"`
		Stream       string        `validate:"oneof=document figure"`
		WriteTimeout time.Duration `validate:"gt=0"`
	}
	Render struct {
		Debounce time.Duration `validate:"gte=0"`
		Burst    int           `validate:"gte=1"`
		Debug    bool
	}
	ProtocolVersion string `validate:"required,semver"`
	Log             struct {
		Level  string `validate:"oneof=debug info warn error"`
		Format string `validate:"oneof=text json"`
	}
	DemoTable string `validate:"omitempty,file"`
}

var validate *validator.Validate

func init() {
	v, err := newValidator()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	validate = v
}

// newValidator returns a validator with the custom rules of Resolved.
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
		return semver.IsValid(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register semver rule: %w", err)
	}
	return v, nil
}

// LoadOptional reads driftui.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads driftui.yaml (if present), applies defaults and validates
// the result.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	return cfg.Resolve(dir)
}

// Resolve applies defaults to cfg and validates the result. Relative
// paths are taken relative to dir.
func (cfg *Config) Resolve(dir string) (*Resolved, error) {
	r := &Resolved{Root: dir}

	r.Server.Addr = orDefault(cfg.Server.Addr, ":8080")
	r.Server.Path = orDefault(cfg.Server.Path, "/ws")
	r.Server.Stream = strings.ToLower(orDefault(cfg.Server.Stream, StreamDocument))
	r.Server.WriteTimeout = cfg.Server.WriteTimeout
	if r.Server.WriteTimeout == 0 {
		r.Server.WriteTimeout = 10 * time.Second
	}

	r.Render.Debounce = 16 * time.Millisecond
	if cfg.Render.Debounce != nil {
		r.Render.Debounce = *cfg.Render.Debounce
	}
	r.Render.Burst = cfg.Render.Burst
	if r.Render.Burst == 0 {
		r.Render.Burst = 1
	}
	r.Render.Debug = true
	if cfg.Render.Debug != nil {
		r.Render.Debug = *cfg.Render.Debug
	}

	r.ProtocolVersion = orDefault(cfg.Protocol.Version, SupportedProtocol)
	r.Log.Level = strings.ToLower(orDefault(cfg.Log.Level, "info"))
	r.Log.Format = strings.ToLower(orDefault(cfg.Log.Format, "text"))

	if table := strings.TrimSpace(cfg.Demo.Table); table != "" {
		if !filepath.IsAbs(table) {
			table = filepath.Join(dir, table)
		}
		r.DemoTable = table
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the resolved values.
func (r *Resolved) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid %s: %w", FileName, err)
	}
	if semver.Major(r.ProtocolVersion) != semver.Major(SupportedProtocol) {
		return fmt.Errorf("invalid %s: protocol.version %s is not compatible with %s",
			FileName, r.ProtocolVersion, SupportedProtocol)
	}
	return nil
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
