package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/validator"
)

// runValidateCmd implements `nofate validate`. It runs the request
// validator alone, without planning or evaluation.
func runValidateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	jsonOutput := cmd.Bool("json", false, "Output the validation result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: nofate validate [--json] <bundle.json>")
		return 2
	}

	data, err := os.ReadFile(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	res, _ := validator.ValidateJSON(data)

	if *jsonOutput {
		_ = printJSON(stdout, res)
	} else {
		for _, e := range res.Errors {
			_, _ = fmt.Fprintf(stdout, "  ERROR    %s\n", e)
		}
		for _, w := range res.Warnings {
			_, _ = fmt.Fprintf(stdout, "  WARNING  %s\n", w)
		}
		if res.Valid {
			_, _ = fmt.Fprintln(stdout, "Result: VALID")
		} else {
			_, _ = fmt.Fprintf(stdout, "Result: INVALID (%d error(s))\n", len(res.Errors))
		}
	}

	if !res.Valid {
		return 1
	}
	return 0
}

// runCanonCmd implements `nofate canon`: canonical JSON on stdout, its
// content hash on stderr.
func runCanonCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: nofate canon <file.json>")
		return 2
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	canonical, err := canonicalize.Transform(data)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = stdout.Write(canonical)
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stderr, canonicalize.HashBytes(canonical))
	return 0
}
