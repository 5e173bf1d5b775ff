package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/printable/go-htmlprint/internal/yamlutil"
)

// Sentinel errors for config and input handling.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrNoInput        = errors.New("no input document: pass --input or set input.path in the config")
	ErrReadInput      = errors.New("failed to read input document")
	ErrReadStyle      = errors.New("failed to read style file")
)

// Config holds file-based configuration. CLI flags override config values.
type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Serve  ServeConfig  `yaml:"serve"`
}

// InputConfig describes the source document.
type InputConfig struct {
	Path  string `yaml:"path"`  // .html or .md
	Title string `yaml:"title"` // PDF title, defaults to the file base name
	Name  string `yaml:"name"`  // download file name
	Style string `yaml:"style"` // path to a CSS file
}

// OutputConfig describes where artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServeConfig enables the websocket command endpoint.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	cfg := &Config{}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// dumpConfig writes the effective merged config as YAML, so users can see
// what flag/file precedence actually produced.
func dumpConfig(w io.Writer, cfg *Config) error {
	data, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	_, err = w.Write(data)
	return err
}

// mergeFlags overlays non-empty CLI flags onto the config; flags win.
func (c *Config) mergeFlags(f *cliFlags) {
	if f.inputPath != "" {
		c.Input.Path = f.inputPath
	}
	if f.title != "" {
		c.Input.Title = f.title
	}
	if f.name != "" {
		c.Input.Name = f.name
	}
	if f.stylePath != "" {
		c.Input.Style = f.stylePath
	}
	if f.outputDir != "" {
		c.Output.Dir = f.outputDir
	}
	if f.serveAddr != "" {
		c.Serve.Addr = f.serveAddr
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
}
