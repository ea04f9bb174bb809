// Package main provides the instrument CLI, which rewrites functions
// annotated with //instrument: directives into instrumented equivalents.
// Usage: instrument [-o output.go] input.go
//
// The command is meant to run under go:generate, next to an annotated file
// kept out of normal builds with a //go:build ignore constraint:
//
//	//go:generate go run instrumented/cmd/instrument -o work_gen.go work.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"instrumented/internal/transform"
)

func main() {
	var output string

	flag.StringVar(&output, "o", "", "Output file (default: <input>_gen.go)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one input file is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: instrument [-o output.go] input.go")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  instrument work.go")
		fmt.Fprintln(os.Stderr, "  instrument -o work_gen.go work.go")
		os.Exit(1)
	}
	input := args[0]
	if output == "" {
		output = strings.TrimSuffix(input, ".go") + "_gen.go"
	}

	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := transform.Source(input, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(output, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
