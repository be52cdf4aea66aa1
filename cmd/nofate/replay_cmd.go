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
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/replay"
)

// runReplayCmd implements `nofate replay`. With --cert the bundle is
// re-run and compared to that certificate; without it the bundle is run
// twice and the two certificates are compared.
//
// Exit codes:
//
//	0 = certificates match
//	1 = mismatch
//	2 = runtime error
func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		bundlePath string
		certPath   string
		jsonOutput bool
	)
	cmd.StringVar(&configPath, "config", "", "YAML config file (overrides environment)")
	cmd.StringVar(&bundlePath, "bundle", "", "Path to the request bundle (REQUIRED)")
	cmd.StringVar(&certPath, "cert", "", "Path to the certificate to reproduce")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the replay report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if bundlePath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --bundle is required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := conformance.LoadBundle(bundlePath)
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

	var report *replay.Report
	if certPath != "" {
		cert, lerr := replay.LoadCertificate(certPath)
		if lerr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", lerr)
			return 2
		}
		report, err = replay.Verify(ctx, h, b, cert)
	} else {
		report, err = replay.Reproduce(ctx, h, b)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: replay failed: %v\n", err)
		return 2
	}

	if jsonOutput {
		_ = printJSON(stdout, report)
	} else {
		_, _ = fmt.Fprintf(stdout, "Intent:   %s\n", report.IntentID)
		_, _ = fmt.Fprintf(stdout, "Expected: %s (%s)\n", report.ExpectedHash, report.ExpectedOutcome)
		_, _ = fmt.Fprintf(stdout, "Actual:   %s (%s)\n", report.ActualHash, report.ActualOutcome)
		if len(report.Mismatches) > 0 {
			_, _ = fmt.Fprintf(stdout, "Mismatched fields: %s\n", strings.Join(report.Mismatches, ", "))
		}
		if report.Match {
			_, _ = fmt.Fprintln(stdout, "Result: MATCH")
		} else {
			_, _ = fmt.Fprintln(stdout, "Result: MISMATCH")
		}
	}

	if !report.Match {
		return 1
	}
	return 0
}
