package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"gecko/internal/config"
	"gecko/internal/logger"
	"gecko/pkg/asm"
	"gecko/pkg/chunk"
	"gecko/pkg/color"
	"gecko/pkg/diag"
	"gecko/pkg/vm"
)

const (
	SourceExt = ".gka"
	ImageExt  = ".gkc"
)

type Runner struct {
	Help        bool   // Show help message
	Verbose     bool   // Enable verbose output
	NoColor     bool   // Disable colored output
	ShouldRun   bool   // Execute the chunk
	ShouldBuild bool   // Write a .gkc image
	Disassemble bool   // Print the instruction listing
	Trace       bool   // Log every dispatched instruction
	MaxSteps    int    // Step limit, negative means "use the configuration"
	MaxDepth    int    // Call depth limit, 0 means "use the configuration"
	SourceFile  string // Path to the .gka or .gkc input
	OutputFile  string // Path to the image written by ShouldBuild

	Stdout io.Writer // program output, os.Stdout when nil
}

// Execute loads the input, then builds, lists and runs it as requested.
// Without -c the chunk is run even if -r was not given.
func (opts *Runner) Execute() error {
	cfg, err := config.FindAndLoad(filepath.Dir(opts.SourceFile))
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	opts.apply(cfg)

	c, err := opts.Load()
	if err != nil {
		return err
	}

	if opts.Disassemble {
		opts.printListing(c)
	}

	if opts.ShouldBuild {
		out := opts.imagePath()
		if err := chunk.WriteFile(out, c); err != nil {
			return fmt.Errorf("image build failed: %w", err)
		}
		log.Info("Image written", "file", out)
	}

	if opts.ShouldRun || !opts.ShouldBuild {
		return opts.Run(c)
	}

	return nil
}

// apply merges the configuration file under the command-line flags
func (opts *Runner) apply(cfg *config.Config) {
	if cfg.Path != "" {
		log.Debug("Loaded configuration", "file", cfg.Path)
	}
	for _, key := range cfg.Unknown {
		log.Warn("Unknown configuration key", "key", key, "file", cfg.Path)
	}

	if opts.MaxSteps < 0 {
		opts.MaxSteps = cfg.Run.MaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = cfg.Run.MaxDepth
	}
	opts.Trace = opts.Trace || cfg.Run.Trace
	opts.Disassemble = opts.Disassemble || cfg.Output.Disassemble
	opts.NoColor = opts.NoColor || !cfg.Output.Color

	if opts.NoColor {
		color.EnableColor(false)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
}

// Load assembles a .gka file or decodes a .gkc image, then verifies it
func (opts *Runner) Load() (*chunk.Chunk, error) {
	log.Info("Processing file", "file", opts.SourceFile)

	if strings.EqualFold(filepath.Ext(opts.SourceFile), ImageExt) {
		c, err := chunk.ReadFile(opts.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("loading image failed: %w", err)
		}
		return c, nil
	}

	if ext := filepath.Ext(opts.SourceFile); ext != SourceExt {
		log.Warn("Reading input as assembly", "file", opts.SourceFile, "ext", ext)
	}

	input, err := os.ReadFile(opts.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	c, err := asm.Assemble(opts.SourceFile, string(input))
	if err != nil {
		return nil, fmt.Errorf("assembly failed with %d errors: %w", len(Flatten(err)), err)
	}

	if err := chunk.Verify(c); err != nil {
		return nil, err
	}

	return c, nil
}

// Run executes c against a fresh set of globals
func (opts *Runner) Run(c *chunk.Chunk) error {
	machine := vm.New(
		vm.WithWriter(opts.Stdout),
		vm.WithMaxSteps(max(opts.MaxSteps, 0)),
		vm.WithMaxDepth(opts.MaxDepth),
		vm.WithTrace(opts.Trace),
		vm.WithLogger(logger.Tracer(log.Default(), opts.Trace)),
	)

	if opts.Verbose {
		fmt.Fprintln(opts.Stdout, color.Header("Program Output"))
	}

	start := time.Now()
	err := machine.Run(c, vm.NewGlobals())
	log.Info("Run finished",
		"steps", humanize.Comma(int64(machine.Steps())),
		"elapsed", time.Since(start).Round(time.Microsecond),
		"ok", err == nil)

	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func (opts *Runner) imagePath() string {
	if opts.OutputFile != "" {
		return opts.OutputFile
	}
	return strings.TrimSuffix(opts.SourceFile, filepath.Ext(opts.SourceFile)) + ImageExt
}

// Report writes every positioned error in err's tree to w, rendered, and
// falls back to the plain message when there are none
func Report(w io.Writer, err error) {
	found := false
	for _, e := range Flatten(err) {
		if d, ok := diag.As(e); ok {
			fmt.Fprintln(w, d.Render())
			found = true
		}
	}

	if !found {
		fmt.Fprintln(w, color.BrightRedText(err.Error()))
	}
}

// Flatten expands joined errors into their leaves
func Flatten(err error) []error {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	}

	// fmt.Errorf with a single %w keeps a joined error one level down
	if inner := errors.Unwrap(err); inner != nil {
		if _, ok := inner.(interface{ Unwrap() []error }); ok {
			return Flatten(inner)
		}
	}

	return []error{err}
}
