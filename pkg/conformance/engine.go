// Package conformance runs recorded test vectors through the consensus
// harness and checks each resulting certificate against its expectation.
//
// A vector set is a directory with two subdirectories:
//
//	vectors/<id>.json                 request bundle
//	expected/<id>-certificate.json    expected certificate
//
// Certificates are compared by the hash of their comparable projection, so
// expectations recorded at one time verify at any other.
package conformance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/replay"
)

const (
	VectorsDir  = "vectors"
	ExpectedDir = "expected"

	scoreFile = "01_SCORE.json"
	indexFile = "00_INDEX.json"
)

// Status is the verdict for a single vector.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
	StatusError   Status = "ERROR"
)

// VectorResult is the outcome of one vector.
type VectorResult struct {
	VectorID     string            `json:"vector_id"`
	Status       Status            `json:"status"`
	Reasons      []string          `json:"reasons"`
	Outcome      contracts.Outcome `json:"outcome,omitempty"`
	Consensus    bool              `json:"consensus"`
	ExpectedHash string            `json:"expected_hash,omitempty"`
	ActualHash   string            `json:"actual_hash,omitempty"`
	Mismatches   []string          `json:"mismatches,omitempty"`
	Recorded     bool              `json:"recorded,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
}

// Report is the top-level result of a conformance run.
type Report struct {
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Pass      bool            `json:"pass"`
	Summary   map[Status]int  `json:"summary"`
	Vectors   []*VectorResult `json:"vectors"`
	Duration  time.Duration   `json:"duration"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// RunOptions configures a conformance run.
type RunOptions struct {
	// Root holds the vectors and expected directories.
	Root string
	// Filter restricts the run to these vector ids when non-empty.
	Filter []string
	// Replay re-runs every vector and requires an identical certificate.
	Replay bool
	// Record writes each certificate as the new expectation instead of
	// comparing.
	Record bool
	// OutputDir receives 01_SCORE.json and 00_INDEX.json when set.
	OutputDir string
}

// Engine runs vector sets against a runner.
type Engine struct {
	runner replay.Runner
	clock  func() time.Time
	logger *slog.Logger
}

// NewEngine creates a conformance engine over runner.
func NewEngine(runner replay.Runner) *Engine {
	return &Engine{
		runner: runner,
		clock:  time.Now,
		logger: slog.Default().With("component", "conformance"),
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// WithLogger sets the engine's logger.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	e.logger = l
	return e
}

// Run executes every selected vector in lexical id order. It fails only
// when the vector set cannot be enumerated, the context is cancelled, or
// the report cannot be written; vector-level problems are reported per
// vector.
func (e *Engine) Run(ctx context.Context, opts *RunOptions) (*Report, error) {
	start := e.clock()
	ids, err := vectorIDs(opts.Root, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no vectors under %s", filepath.Join(opts.Root, VectorsDir))
	}

	report := &Report{
		RunID:     "conform-" + uuid.New().String(),
		Timestamp: start.UTC(),
		Pass:      true,
		Summary:   map[Status]int{},
		Vectors:   make([]*VectorResult, 0, len(ids)),
		Metadata: map[string]any{
			"replay": opts.Replay,
			"record": opts.Record,
		},
	}
	for _, id := range ids {
		vStart := e.clock()
		vr := e.runVector(ctx, opts, id)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vr.DurationMs = e.clock().Sub(vStart).Milliseconds()

		report.Vectors = append(report.Vectors, vr)
		report.Summary[vr.Status]++
		if vr.Status == StatusFail || vr.Status == StatusError {
			report.Pass = false
		}
		e.logger.DebugContext(ctx, "vector complete", "vector_id", id, "status", vr.Status, "reasons", vr.Reasons)
	}
	report.Duration = e.clock().Sub(start)

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o750); err != nil {
			return report, fmt.Errorf("create output dir: %w", err)
		}
		if err := writeScore(opts.OutputDir, report); err != nil {
			return report, fmt.Errorf("failed to write score: %w", err)
		}
		if err := writeIndex(opts.OutputDir, report.RunID, e.clock); err != nil {
			return report, fmt.Errorf("failed to write index: %w", err)
		}
	}
	return report, nil
}

func (e *Engine) runVector(ctx context.Context, opts *RunOptions, id string) *VectorResult {
	vr := &VectorResult{VectorID: id, Reasons: []string{}}
	fail := func(status Status, reason string) *VectorResult {
		vr.Status = status
		vr.Reasons = append(vr.Reasons, reason)
		return vr
	}

	b, err := LoadBundle(VectorPath(opts.Root, id))
	if err != nil {
		return fail(StatusError, ReasonVectorUnreadable)
	}

	res, err := e.runner.Run(ctx, b)
	if err != nil || res.Certificate == nil {
		return fail(StatusError, ReasonHarnessError)
	}
	vr.Outcome = res.Outcome
	vr.Consensus = res.Consensus
	if vr.ActualHash, err = replay.ComparableHash(res.Certificate); err != nil {
		return fail(StatusError, ReasonHarnessError)
	}

	if opts.Replay {
		rep, err := replay.Verify(ctx, e.runner, b, res.Certificate)
		if err != nil {
			return fail(StatusError, ReasonHarnessError)
		}
		if !rep.Match {
			vr.Mismatches = rep.Mismatches
			return fail(StatusFail, ReasonReplayHashDivergence)
		}
	}

	expPath := ExpectationPath(opts.Root, id)
	if opts.Record {
		if err := writeExpectation(expPath, res.Certificate); err != nil {
			return fail(StatusError, ReasonRecordFailed)
		}
		vr.Recorded = true
		vr.ExpectedHash = vr.ActualHash
		vr.Status = StatusPass
		return vr
	}

	expected, err := replay.LoadCertificate(expPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fail(StatusSkipped, ReasonExpectationMissing)
	case err != nil:
		return fail(StatusError, ReasonExpectationUnreadable)
	}

	cmp, err := replay.Compare(expected, res.Certificate)
	if err != nil {
		return fail(StatusError, ReasonExpectationUnreadable)
	}
	vr.ExpectedHash = cmp.ExpectedHash
	if cmp.Match {
		vr.Status = StatusPass
		return vr
	}
	vr.Status = StatusFail
	vr.Mismatches = cmp.Mismatches
	vr.Reasons = append(vr.Reasons, ReasonCertificateHashMismatch)
	if cmp.ExpectedOutcome != cmp.ActualOutcome {
		vr.Reasons = append(vr.Reasons, ReasonOutcomeMismatch)
	}
	return vr
}

// VectorPath is the request bundle path for a vector id.
func VectorPath(root, id string) string {
	return filepath.Join(root, VectorsDir, id+".json")
}

// ExpectationPath is the expected certificate path for a vector id.
func ExpectationPath(root, id string) string {
	return filepath.Join(root, ExpectedDir, id+"-certificate.json")
}

// LoadBundle reads a request bundle. Structural problems inside a
// readable bundle are left for the harness to report as INVALID_INPUT.
func LoadBundle(path string) (*contracts.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var b contracts.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

func vectorIDs(root string, filter []string) ([]string, error) {
	if len(filter) > 0 {
		ids := append([]string(nil), filter...)
		sort.Strings(ids)
		return ids, nil
	}
	matches, err := filepath.Glob(filepath.Join(root, VectorsDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func writeExpectation(path string, cert *contracts.Certificate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func writeScore(dir string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, scoreFile), data, 0o600)
}

// IndexEntry is a single artifact reference in 00_INDEX.json.
type IndexEntry struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// IndexManifest is the 00_INDEX.json structure.
type IndexManifest struct {
	RunID     string       `json:"run_id"`
	CreatedAt time.Time    `json:"created_at"`
	Entries   []IndexEntry `json:"entries"`
}

func writeIndex(dir, runID string, clock func() time.Time) error {
	var entries []IndexEntry
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		if rel == indexFile {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, IndexEntry{
			Path:      rel,
			SHA256:    canonicalize.HashBytes(data),
			SizeBytes: info.Size(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(IndexManifest{
		RunID:     runID,
		CreatedAt: clock().UTC(),
		Entries:   entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, indexFile), data, 0o600)
}
