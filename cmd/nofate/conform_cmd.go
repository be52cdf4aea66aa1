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
)

// runConformCmd implements `nofate conform`.
//
// Exit codes:
//
//	0 = no vector failed or errored
//	1 = any vector failed or errored
//	2 = runtime error
func runConformCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("conform", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		dir        string
		outputDir  string
		record     bool
		replayRun  bool
		jsonOutput bool
		vectors    multiFlag
	)
	cmd.StringVar(&configPath, "config", "", "YAML config file (overrides environment)")
	cmd.StringVar(&dir, "dir", "", "Vector set directory holding vectors/ and expected/ (REQUIRED)")
	cmd.StringVar(&outputDir, "output", "", "Write 01_SCORE.json and 00_INDEX.json here")
	cmd.BoolVar(&record, "record", false, "Write each certificate as the new expectation")
	cmd.BoolVar(&replayRun, "replay", false, "Re-run each vector and require an identical certificate")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the report as JSON to stdout")
	cmd.Var(&vectors, "vector", "Run only specific vector(s) (repeatable)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if dir == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --dir is required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	engine := conformance.NewEngine(h).WithLogger(s.logger.With("component", "conformance"))
	report, err := engine.Run(ctx, &conformance.RunOptions{
		Root:      dir,
		Filter:    []string(vectors),
		Replay:    replayRun,
		Record:    record,
		OutputDir: outputDir,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: conformance run failed: %v\n", err)
		return 2
	}

	if jsonOutput {
		_ = printJSON(stdout, report)
	} else {
		printConformanceReport(stdout, report)
	}

	if !report.Pass {
		return 1
	}
	return 0
}

func printConformanceReport(w io.Writer, report *conformance.Report) {
	_, _ = fmt.Fprintf(w, "No-Fate Conformance Report\n")
	_, _ = fmt.Fprintf(w, "──────────────────────────\n")
	_, _ = fmt.Fprintf(w, "Run ID:    %s\n", report.RunID)
	_, _ = fmt.Fprintf(w, "Timestamp: %s\n", report.Timestamp.Format("2006-01-02T15:04:05Z"))
	_, _ = fmt.Fprintf(w, "Duration:  %s\n\n", report.Duration)

	for _, v := range report.Vectors {
		_, _ = fmt.Fprintf(w, "  %-7s  %s", v.Status, v.VectorID)
		if len(v.Reasons) > 0 {
			_, _ = fmt.Fprintf(w, "  [%s]", strings.Join(v.Reasons, ", "))
		}
		if v.Recorded {
			_, _ = fmt.Fprint(w, "  (recorded)")
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w)
	result := "PASS"
	if !report.Pass {
		result = "FAIL"
	}
	_, _ = fmt.Fprintf(w, "Result: %s (%d pass, %d fail, %d skipped, %d error)\n", result,
		report.Summary[conformance.StatusPass], report.Summary[conformance.StatusFail],
		report.Summary[conformance.StatusSkipped], report.Summary[conformance.StatusError])
}

// multiFlag allows repeatable flag values (e.g. --vector a --vector b).
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
