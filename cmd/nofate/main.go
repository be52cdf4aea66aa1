package main

import (
	"fmt"
	"io"
	"os"
)

// Version is the CLI release version.
const Version = "1.0.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = pass
//	1 = fail, or any outcome other than PASS
//	2 = runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "run":
		return runRunCmd(args[2:], stdout, stderr)
	case "validate":
		return runValidateCmd(args[2:], stdout, stderr)
	case "canon":
		return runCanonCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(args[2:], stdout, stderr)
	case "conform", "conformance":
		return runConformCmd(args[2:], stdout, stderr)
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "nofate %s\n", Version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorBlue  = "\033[34m"
	ColorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sNo-Fate Consensus %s%s\n", ColorBold+ColorBlue, Version, ColorReset)
	_, _ = fmt.Fprintf(w, "%sIndependent solvers agree, or nothing is certified.%s\n", ColorGray, ColorReset)
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	_, _ = fmt.Fprintln(w, "  nofate <command> [flags] [file]")
	_, _ = fmt.Fprintln(w, "")

	printSection(w, "CERTIFICATION")
	printCommand(w, "run", "Certify a bundle through the competing solvers (--config, --json)")
	printCommand(w, "validate", "Validate a bundle without evaluating it (--json)")
	printCommand(w, "canon", "Print canonical JSON; the sha256 hash goes to stderr")

	printSection(w, "VERIFICATION")
	printCommand(w, "verify", "Check a certificate offline (--config, --json)")
	printCommand(w, "replay", "Re-run a bundle and compare to a certificate (--bundle, --cert)")
	printCommand(w, "conform", "Run conformance vectors (--dir, --record, --replay, --output)")

	printSection(w, "OTHER")
	printCommand(w, "version", "Print the version")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s%s:%s\n", ColorBold, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", name, desc)
}
