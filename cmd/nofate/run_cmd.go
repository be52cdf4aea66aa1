package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/conformance"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// runRunCmd implements `nofate run`.
//
// Exit codes:
//
//	0 = outcome PASS
//	1 = any other outcome
//	2 = runtime error
func runRunCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		jsonOutput bool
	)
	cmd.StringVar(&configPath, "config", "", "YAML config file (overrides environment)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the harness result as JSON to stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: nofate run [--config file] [--json] <bundle.json>")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := conformance.LoadBundle(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	s, err := setup(ctx, configPath, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer s.close(context.Background())

	h, err := s.harness()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	res, err := h.Run(ctx, b)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: harness run failed: %v\n", err)
		return 2
	}

	if jsonOutput {
		if err := printJSON(stdout, res); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		printHarnessResult(stdout, res)
	}

	if res.Outcome != contracts.OutcomePass {
		return 1
	}
	return 0
}

func printHarnessResult(w io.Writer, res *contracts.HarnessResult) {
	succeeded := 0
	for _, sr := range res.SolverResults {
		if sr.Success {
			succeeded++
		}
	}

	_, _ = fmt.Fprintf(w, "No-Fate Consensus Report\n")
	_, _ = fmt.Fprintf(w, "────────────────────────\n")
	_, _ = fmt.Fprintf(w, "Run ID:      %s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Intent:      %s\n", res.IntentID)
	_, _ = fmt.Fprintf(w, "Solvers:     %d/%d succeeded\n", succeeded, len(res.SolverResults))
	_, _ = fmt.Fprintf(w, "Consensus:   %t\n", res.Consensus)
	if res.Certificate != nil {
		_, _ = fmt.Fprintf(w, "Certificate: %s\n", res.Certificate.CertificateID)
		_, _ = fmt.Fprintf(w, "Reason:      %s\n", res.Certificate.OutcomeReason)
	}

	for _, d := range res.Divergences {
		_, _ = fmt.Fprintf(w, "  divergence  %s\n", d.Field)
	}
	if res.Enforcement != nil {
		for _, v := range res.Enforcement.Violations {
			_, _ = fmt.Fprintf(w, "  %-8s    %s/%s\n", v.Severity, v.Policy, v.ViolationType)
		}
	}
	for _, e := range res.Errors {
		_, _ = fmt.Fprintf(w, "  error       %s\n", e)
	}
	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "Warnings:    %s\n", strings.Join(res.Warnings, "; "))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Outcome: %s\n", res.Outcome)
}
