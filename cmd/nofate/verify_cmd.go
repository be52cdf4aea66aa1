package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/certifier"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/replay"
)

// runVerifyCmd implements `nofate verify`. The certificate is checked
// against the configured genesis binding; nothing is re-evaluated.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		jsonOutput bool
	)
	cmd.StringVar(&configPath, "config", "", "YAML config file (overrides environment)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the verification report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: nofate verify [--config file] [--json] <certificate.json>")
		return 2
	}

	cert, err := replay.LoadCertificate(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	s, err := setup(context.Background(), configPath, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer s.close(context.Background())

	report := certifier.Verify(cert, s.cfg.Binding())

	if jsonOutput {
		_ = printJSON(stdout, report)
	} else {
		_, _ = fmt.Fprintf(stdout, "Certificate: %s\n", report.CertificateID)
		for _, c := range report.Checks {
			status := "PASS"
			if !c.Pass {
				status = "FAIL"
			}
			_, _ = fmt.Fprintf(stdout, "  %s  %s", status, c.Name)
			if c.Reason != "" {
				_, _ = fmt.Fprintf(stdout, "  [%s]", c.Reason)
			}
			_, _ = fmt.Fprintln(stdout)
		}
		_, _ = fmt.Fprintf(stdout, "Result: %s\n", report.Summary)
	}

	if !report.Verified {
		return 1
	}
	return 0
}
