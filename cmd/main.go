// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"piiscope/internal/config"
	"piiscope/internal/core"
	"piiscope/internal/formatters"
	_ "piiscope/internal/formatters/csv"
	_ "piiscope/internal/formatters/json"
	_ "piiscope/internal/formatters/text"
	_ "piiscope/internal/formatters/yaml"
	"piiscope/internal/help"
	"piiscope/internal/observability"
	"piiscope/internal/ocr"
	"piiscope/internal/patterns"
	"piiscope/internal/version"
	"piiscope/internal/watcher"
	"piiscope/internal/web"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1
	exitNoFiles = 2
)

// cliFlags holds command line flag values
type cliFlags struct {
	inputFile        string
	configFile       string
	profileName      string
	listProfiles     bool
	outputFormat     string
	confidenceLevels string
	checksToRun      string
	noModel          bool
	verbose          bool
	debug            bool
	outputFile       string
	noColor          bool
	showHelp         bool
	showVersion      bool
	showMatch        bool
	recursive        bool
	quiet            bool
	ocrFiles         multiFlag
	imageFile        string
	scale            float64
	watchDir         string
	webMode          bool
	addr             string
}

// multiFlag collects a repeatable string flag
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *cliFlags) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("piiscope", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.inputFile, "file", "", "Path to the input file, directory, or glob pattern (e.g., *.pdf)")
	fs.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.profileName, "profile", "", "Profile name to use from config file")
	fs.BoolVar(&f.listProfiles, "list-profiles", false, "List available profiles")
	fs.StringVar(&f.outputFormat, "format", "", "Output format: text, json, csv, yaml (default: text)")
	fs.StringVar(&f.confidenceLevels, "confidence", "", "Confidence levels to display: high, medium, low, or combinations like 'high,medium'")
	fs.StringVar(&f.checksToRun, "checks", "", "Categories to detect, e.g. 'emails,ssns' (default: all)")
	fs.BoolVar(&f.noModel, "no-model", false, "Skip the entity model and use patterns only")
	fs.BoolVar(&f.verbose, "verbose", false, "Display detailed information for each finding")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging and a step trace")
	fs.StringVar(&f.outputFile, "output", "", "Path to output file (if not specified, output to stdout)")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&f.showHelp, "help", false, "Show help information")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	fs.BoolVar(&f.showMatch, "show-match", false, "Display the actual matched text in findings")
	fs.BoolVar(&f.recursive, "recursive", false, "Recursively scan directories")
	fs.BoolVar(&f.quiet, "quiet", false, "Suppress progress output")
	fs.Var(&f.ocrFiles, "ocr", "OCR page JSON file; repeat for multi-page documents")
	fs.StringVar(&f.imageFile, "image", "", "Page image whose EXIF resolution sets the box scale")
	fs.Float64Var(&f.scale, "scale", 0, "OCR-to-output coordinate scale (default: derived from DPI)")
	fs.StringVar(&f.watchDir, "watch", "", "Directory to watch and rescan on change")
	fs.BoolVar(&f.webMode, "web", false, "Start the HTTP API instead of scanning")
	fs.StringVar(&f.addr, "addr", "", "Listen address for --web (default from config)")
	return fs, f
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string, stderr io.Writer) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(stderr, "Using default configuration\n")
		cfg = config.Default()
	}
	return cfg
}

// resolveConfiguration applies the profile and then explicit flags on top of the config file
func resolveConfiguration(cfg *config.Config, fs *flag.FlagSet, f *cliFlags) error {
	if f.profileName != "" {
		if err := cfg.ApplyProfile(f.profileName); err != nil {
			return err
		}
	}
	if isFlagSet(fs, "format") && f.outputFormat != "" {
		cfg.Defaults.Format = strings.ToLower(f.outputFormat)
	}
	if isFlagSet(fs, "checks") && f.checksToRun != "" {
		names := strings.Split(f.checksToRun, ",")
		if !(len(names) == 1 && strings.TrimSpace(names[0]) == "all") {
			for _, n := range names {
				if _, err := patterns.ParseKind(n); err != nil {
					return fmt.Errorf("invalid --checks value: %w (available: %s)", err, strings.Join(config.Categories, ", "))
				}
			}
		}
		cfg.Detection.Categories = core.ParseCategories(names)
	}
	if f.noModel {
		cfg.Detection.UseModel = false
	}
	if f.debug {
		cfg.Defaults.Debug = true
	}
	if f.noColor {
		cfg.Defaults.NoColor = true
	}
	return config.ValidateConfig(cfg)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs, f := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	noColor := f.noColor || !isTerminal(stdout)

	if f.showHelp {
		h := help.NewSystem(stdout, noColor)
		switch topic := fs.Arg(0); topic {
		case "":
			h.ShowGeneralHelp()
		case "categories", "checks":
			h.ShowCategoriesHelp()
		default:
			if !h.ShowCategoryHelp(topic) {
				return exitError
			}
		}
		return exitOK
	}
	if f.showVersion {
		fmt.Fprintln(stdout, version.Info())
		return exitOK
	}

	cfg := loadConfiguration(f.configFile, stderr)
	if f.listProfiles {
		for _, name := range cfg.ListProfiles() {
			fmt.Fprintf(stdout, "%-16s %s\n", name, cfg.Profiles[name].Description)
		}
		return exitOK
	}
	if err := resolveConfiguration(cfg, fs, f); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	noColor = noColor || cfg.Defaults.NoColor

	level := cfg.Defaults.LogLevel
	if cfg.Defaults.Debug {
		level = "debug"
	}
	logger, err := observability.NewLogger(level, cfg.Defaults.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	var trace *observability.DebugObserver
	observer := observability.NewStandardObserver(observability.ObservabilityMetrics, logger)
	if cfg.Defaults.Debug {
		trace = observability.NewDebugObserver(stderr, logger)
		observer = trace.StandardObserver
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.ContextWithLogger(ctx, logger)

	engine, err := core.NewEngine(ctx, cfg, core.Deps{Observer: observer})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer engine.Close()

	cli := &cli{
		cfg:     cfg,
		flags:   f,
		engine:  engine,
		logger:  logger,
		trace:   trace,
		stdout:  stdout,
		stderr:  stderr,
		noColor: noColor,
	}

	switch {
	case f.webMode:
		return cli.serve(ctx)
	case f.watchDir != "":
		return cli.watch(ctx)
	case len(f.ocrFiles) > 0:
		return cli.scanOCR(ctx)
	default:
		inputs := fs.Args()
		if f.inputFile != "" {
			inputs = append([]string{f.inputFile}, inputs...)
		}
		return cli.scanFiles(ctx, inputs)
	}
}

type cli struct {
	cfg     *config.Config
	flags   *cliFlags
	engine  *core.Engine
	logger  *zap.Logger
	trace   *observability.DebugObserver
	stdout  io.Writer
	stderr  io.Writer
	noColor bool
}

func (c *cli) formatterOptions() formatters.FormatterOptions {
	var levels map[string]bool
	if l := strings.TrimSpace(c.flags.confidenceLevels); l != "" && l != "all" {
		levels = core.ParseConfidenceLevels(l)
	}
	return formatters.FormatterOptions{
		ConfidenceLevel: levels,
		Verbose:         c.flags.verbose,
		NoColor:         c.noColor || c.flags.outputFile != "",
		ShowMatch:       c.flags.showMatch,
	}
}

// emit formats results and writes them to --output or stdout
func (c *cli) emit(results []*core.Result) error {
	out, err := formatters.Export(c.cfg.Defaults.Format, results, c.formatterOptions())
	if err != nil {
		return err
	}
	if c.flags.outputFile != "" {
		if err := os.WriteFile(c.flags.outputFile, []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !c.flags.quiet {
			fmt.Fprintf(c.stderr, "Results written to %s\n", c.flags.outputFile)
		}
		return nil
	}
	_, err = io.WriteString(c.stdout, out)
	if err == nil && !strings.HasSuffix(out, "\n") {
		_, err = io.WriteString(c.stdout, "\n")
	}
	return err
}

// step opens a debug trace step when --debug is set
func (c *cli) step(component, name, subject string) func(bool, string) {
	if c.trace == nil {
		return func(bool, string) {}
	}
	return c.trace.StartStep(component, name, subject)
}

func (c *cli) scanFiles(ctx context.Context, inputs []string) int {
	if len(inputs) == 0 {
		fmt.Fprintln(c.stderr, "Error: no input files. Use --file <path> or pass paths as arguments (see --help)")
		return exitError
	}

	found, err := collectFiles(inputs, c.flags.recursive, c.engine.Supports)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitError
	}
	for _, s := range found.SkippedFiles {
		if !s.Silent && !c.flags.quiet {
			fmt.Fprintf(c.stderr, "Warning: Skipping %s: %s\n", s.Path, s.Reason)
		}
	}
	if len(found.FilesToProcess) == 0 {
		fmt.Fprintln(c.stderr, "No supported files to process")
		return exitNoFiles
	}

	var results []*core.Result
	failed := 0
	for i, path := range found.FilesToProcess {
		if ctx.Err() != nil {
			break
		}
		if !c.flags.quiet && len(found.FilesToProcess) > 1 {
			fmt.Fprintf(c.stderr, "\rScanning [%d/%d] %s", i+1, len(found.FilesToProcess), filepath.Base(path))
		}
		done := c.step("cli", "scan", path)
		res, err := c.engine.ScanFile(ctx, path)
		if err != nil {
			done(false, err.Error())
			failed++
			c.logger.Warn("scan failed", zap.String("path", path), zap.Error(err))
			continue
		}
		done(true, fmt.Sprintf("%d spans in %d pages", res.SpanCount(), len(res.Pages)))
		results = append(results, res)
	}
	if !c.flags.quiet && len(found.FilesToProcess) > 1 {
		fmt.Fprintln(c.stderr)
	}

	if err := c.emit(results); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitError
	}
	if failed > 0 {
		fmt.Fprintf(c.stderr, "%d of %d files could not be scanned\n", failed, len(found.FilesToProcess))
		return exitError
	}
	return exitOK
}

// scanOCR detects PII in OCR page files and maps it onto page boxes
func (c *cli) scanOCR(ctx context.Context) int {
	pages := make([]*ocr.Page, 0, len(c.flags.ocrFiles))
	for _, path := range c.flags.ocrFiles {
		p, err := ocr.LoadPage(path)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitError
		}
		pages = append(pages, p)
	}

	scale := c.flags.scale
	if scale <= 0 && c.flags.imageFile != "" {
		s, err := ocr.ScaleFromImage(c.flags.imageFile, c.cfg.Geometry.TargetDPI)
		if err != nil {
			c.logger.Warn("no usable resolution in image, using OCR DPI", zap.String("image", c.flags.imageFile), zap.Error(err))
		} else {
			scale = s
		}
	}

	docID := core.DocumentID(c.flags.ocrFiles[0])
	done := c.step("cli", "ocr", docID)
	res, err := c.engine.ScanOCR(ctx, docID, pages, scale)
	if err != nil {
		done(false, err.Error())
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitError
	}
	done(true, fmt.Sprintf("%d spans", res.SpanCount()))
	res.Path = c.flags.ocrFiles[0]

	if err := c.emit([]*core.Result{res}); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// watch rescans files under the watched directory until interrupted
func (c *cli) watch(ctx context.Context) int {
	rescanner := watcher.NewRescanner(ctx, c.engine, func(path string, res *core.Result, err error) {
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %s: %v\n", path, err)
			return
		}
		if err := c.emit([]*core.Result{res}); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
		}
	}, c.logger)

	w := watcher.New([]string{c.flags.watchDir}, rescanner,
		watcher.WithFilter(rescanner.Filter),
		watcher.WithRecursive(c.flags.recursive),
		watcher.WithLogger(c.logger))
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(c.stderr, "Error: failed to watch %s: %v\n", c.flags.watchDir, err)
		return exitError
	}
	defer w.Stop()

	if !c.flags.quiet {
		fmt.Fprintf(c.stderr, "Watching %s (Ctrl+C to stop)\n", c.flags.watchDir)
	}
	<-ctx.Done()
	return exitOK
}

// serve runs the HTTP API until interrupted, then drains in-flight requests
func (c *cli) serve(ctx context.Context) int {
	addr := c.cfg.Server.Addr
	if c.flags.addr != "" {
		addr = c.flags.addr
	}

	server := web.NewWebServer(c.engine, c.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("shutdown failed", zap.Error(err))
		return exitError
	}
	c.logger.Info("server stopped")
	return exitOK
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
