package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	lower := flag.Bool("lower", false, "run the force pass before building the facts")
	passDelta := flag.String("pass-delta", "", "write the delta made by the force pass to file (implies --lower)")
	scopes := flag.String("scopes", "", "comma-separated scope names to keep")
	deltaFrom := flag.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaOut := flag.String("delta-out", "", "write delta JSON to file (requires --delta-from)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: force-facts [--lower] [--pass-delta file] [--scopes A,B] [--output file] [--delta-from prev.json --delta-out delta.json] <netlist.json>...")
		os.Exit(1)
	}

	var before, after []facts.Tables
	inputs := make(map[string]bool)
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		n, err := netlist.Decode(data, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", path, err)
			os.Exit(1)
		}
		inputs[path] = true
		before = append(before, facts.BuildTables(n, path))

		if *lower || *passDelta != "" {
			sink := diag.NewCollector()
			if _, err := force.ForceAll(n, sink, force.Options{}); err != nil && !errors.Is(err, force.ErrAlreadyLowered) {
				fmt.Fprintf(os.Stderr, "Error lowering %s: %v\n", path, err)
				os.Exit(1)
			}
			for _, d := range sink.All() {
				fmt.Fprintln(os.Stderr, d)
			}
		}
		after = append(after, facts.BuildTables(n, path))
	}

	tables := facts.Merge(after...)
	if *scopes != "" {
		keep := make(map[string]bool)
		for _, s := range strings.Split(*scopes, ",") {
			keep[strings.TrimSpace(s)] = true
		}
		tables = facts.FilterTablesByScopes(tables, keep)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing facts: %v\n", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
			os.Exit(1)
		}
	}

	if *passDelta != "" {
		delta := facts.ComputeDelta(facts.Merge(before...), facts.Merge(after...))
		if err := writeJSON(*passDelta, delta); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing pass delta: %v\n", err)
			os.Exit(1)
		}
	}

	if *deltaFrom != "" || *deltaOut != "" {
		if *deltaFrom == "" || *deltaOut == "" {
			fmt.Fprintln(os.Stderr, "Error: --delta-from and --delta-out must be used together")
			os.Exit(1)
		}
		prev, err := readTables(*deltaFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading delta-from: %v\n", err)
			os.Exit(1)
		}
		// Only the netlists given on the command line were rebuilt.
		delta := facts.FilterDeltaByFiles(facts.ComputeDelta(prev, tables), inputs)
		if err := writeJSON(*deltaOut, delta); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing delta: %v\n", err)
			os.Exit(1)
		}
	}
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
