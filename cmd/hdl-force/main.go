// =============================================================================
// hdl-force - Main Entry Point
// =============================================================================
//
// hdl-force lowers procedural force/release statements of elaborated
// netlists into plain assignments over shadow signals, so that a simulator
// without native force support runs them unchanged.
//
// THE PIPELINE:
//   1. CUE validator checks every netlist document against its schema
//   2. The netlist codec builds the in-memory netlist
//   3. The force pass adds shadow signals and rewrites force/release
//   4. The BLKANDNBLK lint runs over the lowered netlist
//   5. OPA evaluates the Rego rules against the fact tables
//   6. Lowered netlists are written next to their inputs
//
// WHEN INVESTIGATING A WRONG RESULT:
//   Start at the beginning of the pipeline, not the end!
//   Input schema -> decode -> force pass -> policy rules
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/robert-at-pretension-io/hdl-force/internal/config"
	"github.com/robert-at-pretension-io/hdl-force/internal/driver"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "init" {
		runInit()
		return
	}

	verbose := flag.Bool("v", false, "enable verbose output")
	flag.BoolVar(verbose, "verbose", false, "enable verbose output")
	configPath := flag.String("c", "", "config file (default: search hdl_force.json)")
	flag.StringVar(configPath, "config", "", "config file")
	jsonOutput := flag.Bool("json", false, "print the result as JSON")
	watch := flag.Bool("watch", false, "run again whenever a netlist changes")
	progress := flag.Bool("progress", false, "print per-file progress")
	trace := flag.Bool("trace", false, "print per-file progress and statistics")
	timing := flag.String("timing", "", "write timing events as JSONL to this file")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}
	root := flag.Arg(0)

	cfg, err := loadConfig(*configPath, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	d := driver.New(cfg)
	d.Verbose = *verbose
	d.JSONOutput = *jsonOutput
	d.Progress = *progress
	d.Trace = *trace
	if *timing != "" {
		d.Timing = true
		d.TimingPath = *timing
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch {
		err := d.Watch(ctx, root, driver.DefaultDebounce, func(_ *driver.Result, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	result, err := d.Run(ctx, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Failed() {
		os.Exit(1)
	}
}

func loadConfig(path, root string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: hdl-force [command] [options] <path>

Commands:
  init              Create a hdl_force.json configuration file
  <path>            Lower every netlist document under the given path

Options:
  -v, --verbose     Enable verbose output
  -c, --config      Specify config file: hdl-force -c config.json <path>
  --json            Print the result as JSON
  --watch           Run again whenever a netlist changes
  --progress        Print per-file progress
  --trace           Print per-file progress and statistics
  --timing <file>   Write timing events as JSONL
  -h, --help        Show this help message

Configuration:
  hdl-force looks for configuration in:
    1. ./hdl_force.json
    2. ./.hdl_force.json
    3. <path>/hdl_force.json
    4. ~/.config/hdl_force/config.json

  Run 'hdl-force init' to create a default configuration file.

Environment:
  HDL_FORCE_TIMING_JSONL=<file>   Write timing events to <file>
  HDL_FORCE_TIMING=1              Write timing events to <path>/timing.jsonl`)
}

func runInit() {
	configPath := config.FileName

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Netlist file patterns and output placement")
	fmt.Println("  - Rule severities and extra Rego policies")
	fmt.Println("  - Cache, verification and parallelism")
}
