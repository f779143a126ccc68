package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Server.Path != "/ws" {
		t.Errorf("Server.Path = %q, want %q", cfg.Server.Path, "/ws")
	}
	if cfg.Server.Stream != StreamDocument {
		t.Errorf("Server.Stream = %q, want %q", cfg.Server.Stream, StreamDocument)
	}
	if cfg.Render.Debounce != 16*time.Millisecond {
		t.Errorf("Render.Debounce = %v, want 16ms", cfg.Render.Debounce)
	}
	if cfg.Render.Burst != 1 {
		t.Errorf("Render.Burst = %d, want 1", cfg.Render.Burst)
	}
	if !cfg.Render.Debug {
		t.Error("Render.Debug = false, want true")
	}
	if cfg.ProtocolVersion != SupportedProtocol {
		t.Errorf("ProtocolVersion = %q, want %q", cfg.ProtocolVersion, SupportedProtocol)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if cfg.DemoTable != "" {
		t.Errorf("DemoTable = %q, want empty", cfg.DemoTable)
	}
}

func TestResolve_File(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quotes.yaml"), []byte("columns: [sym]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, `
server:
  addr: localhost:9000
  path: /stream
  stream: Figure
render:
  debounce: 0s
  burst: 4
  debug: false
protocol:
  version: v1.2.0
log:
  level: DEBUG
  format: json
demo:
  table: quotes.yaml
`)

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Server.Addr != "localhost:9000" || cfg.Server.Path != "/stream" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Stream != StreamFigure {
		t.Errorf("Server.Stream = %q, want %q", cfg.Server.Stream, StreamFigure)
	}
	if cfg.Render.Debounce != 0 {
		t.Errorf("Render.Debounce = %v, want 0", cfg.Render.Debounce)
	}
	if cfg.Render.Burst != 4 {
		t.Errorf("Render.Burst = %d, want 4", cfg.Render.Burst)
	}
	if cfg.Render.Debug {
		t.Error("Render.Debug = true, want false")
	}
	if cfg.ProtocolVersion != "v1.2.0" {
		t.Errorf("ProtocolVersion = %q, want v1.2.0", cfg.ProtocolVersion)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if want := filepath.Join(dir, "quotes.yaml"); cfg.DemoTable != want {
		t.Errorf("DemoTable = %q, want %q", cfg.DemoTable, want)
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad addr", "server: {addr: nope}\n", "Addr"},
		{"relative path", "server: {path: ws}\n", "Path"},
		{"unknown stream", "server: {stream: chart}\n", "Stream"},
		{"negative debounce", "render: {debounce: -1s}\n", "Debounce"},
		{"bad burst", "render: {burst: -2}\n", "Burst"},
		{"not semver", "protocol: {version: \"1.0\"}\n", "ProtocolVersion"},
		{"incompatible major", "protocol: {version: v2.0.0}\n", "not compatible"},
		{"bad level", "log: {level: loud}\n", "Level"},
		{"bad format", "log: {format: xml}\n", "Format"},
		{"missing table", "demo: {table: missing.yaml}\n", "DemoTable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Resolve(dir)
			if err == nil {
				t.Fatal("Resolve() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Resolve() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadOptional_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server: [")

	if _, err := LoadOptional(dir); err == nil {
		t.Error("LoadOptional() error = nil, want parse error")
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadOptional() = nil, want empty config")
	}
}

func TestNewValidator_Semver(t *testing.T) {
	v, err := newValidator()
	if err != nil {
		t.Fatalf("newValidator() error = %v", err)
	}
	tests := []struct {
		version string
		valid   bool
	}{
		{"v1.0.0", true},
		{"v1.2", true},
		{"1.0.0", false},
		{"", false},
	}
	for _, tt := range tests {
		err := v.Var(tt.version, "semver")
		if got := err == nil; got != tt.valid {
			t.Errorf("semver(%q) valid = %v, want %v (err %v)", tt.version, got, tt.valid, err)
		}
	}
}
