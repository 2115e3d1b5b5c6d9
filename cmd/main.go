package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"gecko/internal/logger"
	"gecko/internal/runner"
	"gecko/pkg/color"
	"gecko/pkg/diag"
)

// Main entry point for the Gecko runtime.
func main() {
	options := runner.Runner{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.ShouldRun, "r", false, "Run the chunk (default unless -c is given)")
	flag.BoolVar(&options.ShouldBuild, "c", false, "Build a .gkc image")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Disassemble, "d", false, "Print the disassembly")
	flag.BoolVar(&options.Trace, "t", false, "Trace every executed instruction")
	flag.IntVar(&options.MaxSteps, "s", -1, "Maximum executed instructions (0 = unlimited, default from gecko.toml)")
	flag.IntVar(&options.MaxDepth, "m", 0, "Maximum call depth (default from gecko.toml)")
	flag.StringVar(&options.OutputFile, "o", "", "Output image name (default: input with .gkc)")

	flag.Parse()
	args := flag.Args()

	logger.Init(options.Verbose || options.Trace, options.NoColor)
	if options.Help {
		fmt.Printf("Usage: %s [options] <file.gka|file.gkc>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if options.NoColor {
		color.EnableColor(false)
	}

	if len(args) == 0 {
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	options.SourceFile = args[0]

	if err := options.Execute(); err != nil {
		if _, ok := diag.As(err); ok || len(runner.Flatten(err)) > 1 {
			runner.Report(os.Stderr, err)
			os.Exit(1)
		}
		log.Fatal("Run failed", "error", err)
	}
}
