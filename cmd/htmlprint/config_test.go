package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/printable/go-htmlprint/internal/yamlutil"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
input:
  path: doc.md
  title: Release Notes
  name: notes
  style: style.css
output:
  dir: dist
serve:
  addr: ":8080"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Input.Path != "doc.md" || cfg.Input.Title != "Release Notes" {
		t.Errorf("Input = %+v", cfg.Input)
	}
	if cfg.Output.Dir != "dist" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("loadConfig() error = %v, want %v", err, ErrConfigNotFound)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, "input:\n  paht: typo.md\n")
	_, err := loadConfig(path)
	if !errors.Is(err, ErrConfigParse) {
		t.Errorf("loadConfig() error = %v, want %v", err, ErrConfigParse)
	}
}

func TestMergeFlagsPrecedence(t *testing.T) {
	cfg := &Config{
		Input:  InputConfig{Path: "config.md", Title: "Config Title"},
		Output: OutputConfig{Dir: "config-out"},
	}
	cfg.mergeFlags(&cliFlags{
		inputPath: "flag.md",
		outputDir: "flag-out",
	})

	if cfg.Input.Path != "flag.md" {
		t.Errorf("Input.Path = %q, flags must win", cfg.Input.Path)
	}
	if cfg.Input.Title != "Config Title" {
		t.Errorf("Input.Title = %q, empty flags must not clobber config", cfg.Input.Title)
	}
	if cfg.Output.Dir != "flag-out" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
}

func TestDumpConfigRoundTrips(t *testing.T) {
	cfg := &Config{
		Input:  InputConfig{Path: "doc.md", Title: "Notes"},
		Output: OutputConfig{Dir: "dist"},
		Serve:  ServeConfig{Addr: ":8080"},
	}

	var buf bytes.Buffer
	if err := dumpConfig(&buf, cfg); err != nil {
		t.Fatalf("dumpConfig() error = %v", err)
	}

	var decoded Config
	if err := yamlutil.UnmarshalStrict(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("dumped config does not parse back: %v", err)
	}
	if decoded != *cfg {
		t.Errorf("round trip = %+v, want %+v", decoded, *cfg)
	}
}

func TestMergeFlagsDefaultOutputDir(t *testing.T) {
	cfg := &Config{}
	cfg.mergeFlags(&cliFlags{})
	if cfg.Output.Dir != "." {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, ".")
	}
}
