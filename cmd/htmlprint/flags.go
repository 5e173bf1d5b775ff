package main

import (
	flag "github.com/spf13/pflag"
)

// cliFlags holds parsed command-line flags. Positional arguments are
// additional input documents for batch export.
type cliFlags struct {
	configPath  string
	inputPath   string
	title       string
	name        string
	stylePath   string
	outputDir   string
	serveAddr   string
	verbose     bool
	showVersion bool
	dumpConfig  bool

	extraInputs []string
}

func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("htmlprint", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.StringVarP(&f.inputPath, "input", "i", "", "input document (.html or .md)")
	fs.StringVar(&f.title, "title", "", "document title")
	fs.StringVar(&f.name, "name", "", `download file name (".pdf" appended if missing)`)
	fs.StringVar(&f.stylePath, "style", "", "custom CSS file injected into the document")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for generated PDFs (default \".\")")
	fs.StringVar(&f.serveAddr, "serve", "", "listen address for the websocket command endpoint; disables one-shot export")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&f.dumpConfig, "dump-config", false, "print the effective config as YAML and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	f.extraInputs = fs.Args()
	return f, nil
}
