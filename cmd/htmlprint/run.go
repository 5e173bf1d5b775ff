package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	htmlprint "github.com/printable/go-htmlprint"
)

func run(flags *cliFlags) error {
	cfg := &Config{}
	if flags.configPath != "" {
		loaded, err := loadConfig(flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.mergeFlags(flags)

	if flags.dumpConfig {
		return dumpConfig(os.Stdout, cfg)
	}

	ctx := context.Background()

	if cfg.Serve.Addr != "" {
		src, err := loadSource(cfg.Input)
		if err != nil {
			return err
		}
		return serve(ctx, cfg.Serve.Addr, src, cfg.Output.Dir)
	}

	inputs := flags.extraInputs
	if cfg.Input.Path != "" {
		inputs = append([]string{cfg.Input.Path}, inputs...)
	}
	if len(inputs) == 0 {
		return ErrNoInput
	}
	if len(inputs) == 1 {
		return exportOne(ctx, htmlprint.NewSurface(), cfg.Input, inputs[0], cfg.Output.Dir, flags.verbose)
	}
	return exportBatch(ctx, cfg, inputs, flags.verbose)
}

// exportOne renders a single document and downloads it.
func exportOne(ctx context.Context, surface *htmlprint.Surface, in InputConfig, path, outputDir string, verbose bool) error {
	defer surface.Close()

	in.Path = path
	src, err := loadSource(in)
	if err != nil {
		return err
	}
	if err := surface.SetSource(ctx, src); err != nil {
		return err
	}

	exporter := htmlprint.NewExporter(surface,
		htmlprint.WithOutputDir(outputDir),
		htmlprint.WithStatusFunc(func(st htmlprint.Status) {
			if verbose && st.State != htmlprint.StateIdle {
				fmt.Fprintf(os.Stderr, "%s: %s %s\n", path, st.State, st.FileName)
			}
		}),
	)
	return exporter.Download(ctx)
}

// exportBatch renders several documents in parallel over a surface pool.
// Titles and file names derive from each input path; the shared config name
// would collide across outputs.
func exportBatch(ctx context.Context, cfg *Config, inputs []string, verbose bool) error {
	pool := htmlprint.NewSurfacePool(htmlprint.DefaultPoolSize())
	defer pool.Close()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, path := range inputs {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			surface := pool.Acquire()
			defer pool.Release(surface)

			in := InputConfig{Style: cfg.Input.Style}
			err := exportPooled(ctx, surface, in, path, cfg.Output.Dir, verbose)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", path, err)
				}
				mu.Unlock()
			}
		}(path)
	}
	wg.Wait()
	return firstErr
}

// exportPooled is exportOne without closing the surface, which stays owned
// by the pool.
func exportPooled(ctx context.Context, surface *htmlprint.Surface, in InputConfig, path, outputDir string, verbose bool) error {
	in.Path = path
	src, err := loadSource(in)
	if err != nil {
		return err
	}
	if err := surface.SetSource(ctx, src); err != nil {
		return err
	}
	exporter := htmlprint.NewExporter(surface, htmlprint.WithOutputDir(outputDir))
	if err := exporter.Download(ctx); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s: exported %s\n", path, src.PDFFileName())
	}
	return nil
}

// loadSource reads the input document (converting Markdown when needed) and
// the optional style file into a Source.
func loadSource(in InputConfig) (htmlprint.Source, error) {
	if in.Path == "" {
		return htmlprint.Source{}, ErrNoInput
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return htmlprint.Source{}, fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	content := string(data)
	switch strings.ToLower(filepath.Ext(in.Path)) {
	case ".md", ".markdown":
		content, err = htmlprint.MarkdownToHTML(content)
		if err != nil {
			return htmlprint.Source{}, err
		}
	}

	base := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
	src := htmlprint.Source{
		HTML:     content,
		Title:    in.Title,
		FileName: in.Name,
	}
	if src.Title == "" {
		src.Title = base
	}
	if src.FileName == "" {
		src.FileName = base
	}

	if in.Style != "" {
		css, err := os.ReadFile(in.Style)
		if err != nil {
			return htmlprint.Source{}, fmt.Errorf("%w: %v", ErrReadStyle, err)
		}
		src.CustomStyle = string(css)
	}
	return src, nil
}
