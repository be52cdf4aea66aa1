// Package harness runs every evaluator over the same request and accepts
// a certificate only when all of them agree on it.
//
// There is no tie-break. Any evaluator failure or any divergence on a
// compared field yields an INDETERMINATE certificate synthesized from the
// request itself, and the policy enforcer has the final word on every
// result.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/certifier"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/enforcement"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/observability"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
)

const (
	HarnessID      = "nofate-competing-solvers"
	HarnessVersion = "1.0.0"

	// DefaultTimeout bounds a single evaluator invocation.
	DefaultTimeout = 30 * time.Second
)

var (
	ErrNoEvaluators       = errors.New("no evaluators configured")
	ErrDuplicateEvaluator = errors.New("duplicate evaluator id")
	ErrNilBundle          = errors.New("nil bundle")

	// ErrEvaluatorPanic wraps a recovered evaluator panic.
	ErrEvaluatorPanic = errors.New("evaluator panicked")
	// ErrNoCertificate is reported for an evaluator that returned without
	// a certificate.
	ErrNoCertificate = errors.New("evaluator returned no certificate")
)

// Harness compares evaluator certificates. It is safe for concurrent use.
type Harness struct {
	binding    contracts.GovernanceBinding
	evaluators []solver.Evaluator
	timeout    time.Duration
	parallel   bool
	limit      int
	clock      func() time.Time
	logger     *slog.Logger
	obs        *observability.Provider
	enforcer   *enforcement.Enforcer
	issuer     *certifier.Certifier
	runID      func() string
}

// Option configures a Harness.
type Option func(*Harness)

// WithTimeout bounds each evaluator invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Harness) { h.timeout = d }
}

// WithParallel runs evaluators concurrently, at most limit at a time.
// A limit of zero or less means no limit.
func WithParallel(limit int) Option {
	return func(h *Harness) {
		h.parallel = true
		h.limit = limit
	}
}

func WithClock(clock func() time.Time) Option {
	return func(h *Harness) { h.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

func WithObservability(p *observability.Provider) Option {
	return func(h *Harness) { h.obs = p }
}

// WithEnforcer replaces the enforcer built from the binding.
func WithEnforcer(e *enforcement.Enforcer) Option {
	return func(h *Harness) { h.enforcer = e }
}

func WithRunID(fn func() string) Option {
	return func(h *Harness) { h.runID = fn }
}

// New creates a harness over evaluators. Registration order decides which
// evaluator the others are compared against; it confers no other
// authority.
func New(binding contracts.GovernanceBinding, evaluators []solver.Evaluator, opts ...Option) (*Harness, error) {
	if err := enforcement.VerifyGenesisBinding(binding); err != nil {
		return nil, err
	}
	if len(evaluators) == 0 {
		return nil, ErrNoEvaluators
	}
	seen := make(map[string]bool, len(evaluators))
	for _, e := range evaluators {
		if seen[e.ID()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEvaluator, e.ID())
		}
		seen[e.ID()] = true
	}

	h := &Harness{
		binding:    binding,
		evaluators: append([]solver.Evaluator(nil), evaluators...),
		timeout:    DefaultTimeout,
		clock:      time.Now,
		logger:     slog.Default().With("component", "harness"),
		runID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.obs == nil {
		p, err := observability.New(context.Background(), &observability.Config{Enabled: false})
		if err != nil {
			return nil, err
		}
		h.obs = p
	}
	if h.enforcer == nil {
		e, err := enforcement.New(binding, enforcement.WithClock(h.clock), enforcement.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("enforcer: %w", err)
		}
		h.enforcer = e
	}
	h.issuer = certifier.New(binding, certifier.WithClock(h.clock))
	return h, nil
}

// EvaluatorIDs returns the registered evaluator ids in comparison order.
func (h *Harness) EvaluatorIDs() []string {
	ids := make([]string, len(h.evaluators))
	for i, e := range h.evaluators {
		ids[i] = e.ID()
	}
	return ids
}

type invocation struct {
	eval     *solver.Evaluation
	err      error
	duration time.Duration
}

// Run evaluates b with every evaluator and returns the consensus result.
// The only errors are a nil bundle and cancellation of ctx; every other
// abnormal condition is reported inside the result.
func (h *Harness) Run(ctx context.Context, b *contracts.Bundle) (_ *contracts.HarnessResult, err error) {
	if b == nil {
		return nil, ErrNilBundle
	}
	runID := h.runID()
	start := h.clock()

	ctx, finish := h.obs.TrackOperation(ctx, "harness.run", observability.HarnessOperation(runID, b.IntentID, string(b.Domain))...)
	defer func() { finish(err) }()

	invocations := h.invokeAll(ctx, runID, b)
	if err := ctx.Err(); err != nil {
		h.logger.WarnContext(ctx, "harness run cancelled", "run_id", runID, "intent_id", b.IntentID)
		return nil, err
	}

	res := h.assemble(runID, b, invocations)
	h.enforce(ctx, res)
	res.DurationMs = h.clock().Sub(start).Milliseconds()

	h.obs.RecordOutcome(ctx, res.Outcome.String(), res.Consensus)
	h.logger.InfoContext(ctx, "harness run complete",
		"run_id", runID,
		"intent_id", b.IntentID,
		"outcome", res.Outcome.String(),
		"consensus", res.Consensus,
		"divergences", len(res.Divergences),
	)
	return res, nil
}

func (h *Harness) invokeAll(ctx context.Context, runID string, b *contracts.Bundle) []invocation {
	out := make([]invocation, len(h.evaluators))
	if !h.parallel {
		for i, e := range h.evaluators {
			if ctx.Err() != nil {
				break
			}
			out[i] = h.invoke(ctx, runID, e, b)
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	if h.limit > 0 {
		g.SetLimit(h.limit)
	}
	for i, e := range h.evaluators {
		g.Go(func() error {
			out[i] = h.invoke(gctx, runID, e, b)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// invoke runs one evaluator on its own copy of the bundle. Errors, panics
// and timeouts all come back as a failed invocation.
func (h *Harness) invoke(ctx context.Context, runID string, e solver.Evaluator, b *contracts.Bundle) invocation {
	start := h.clock()
	ctx, finish := h.obs.TrackOperation(ctx, "solver.evaluate", observability.SolverOperation(runID, e.ID())...)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: fmt.Errorf("%w: %v", ErrEvaluatorPanic, r)}
			}
		}()
		ev, err := e.Evaluate(ctx, b.Clone())
		if err == nil && (ev == nil || ev.Certificate == nil) {
			err = ErrNoCertificate
		}
		done <- invocation{eval: ev, err: err}
	}()

	var inv invocation
	select {
	case inv = <-done:
	case <-ctx.Done():
		inv = invocation{err: fmt.Errorf("evaluator did not finish: %w", ctx.Err())}
	}
	inv.duration = h.clock().Sub(start)
	finish(inv.err)

	if inv.err != nil {
		h.logger.WarnContext(ctx, "evaluator failed", "run_id", runID, "solver_id", e.ID(), "error", inv.err)
	}
	return inv
}

func (h *Harness) assemble(runID string, b *contracts.Bundle, invocations []invocation) *contracts.HarnessResult {
	res := &contracts.HarnessResult{
		RunID:          runID,
		HarnessID:      HarnessID,
		HarnessVersion: HarnessVersion,
		IntentID:       b.IntentID,
		SolverResults:  make([]contracts.SolverResult, 0, len(invocations)),
		Divergences:    []contracts.Divergence{},
		Errors:         []string{},
		Warnings:       []string{},
	}

	var failed []string
	certs := make([]*contracts.Certificate, 0, len(invocations))
	seenWarning := map[string]bool{}
	for i, inv := range invocations {
		id := h.evaluators[i].ID()
		sr := contracts.SolverResult{
			SolverID:   id,
			Errors:     []string{},
			Warnings:   []string{},
			DurationMs: inv.duration.Milliseconds(),
		}
		if inv.err != nil {
			sr.Errors = append(sr.Errors, inv.err.Error())
			failed = append(failed, id)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, inv.err))
			res.SolverResults = append(res.SolverResults, sr)
			continue
		}
		sr.Success = true
		sr.Outcome = inv.eval.Outcome
		sr.Certificate = inv.eval.Certificate
		sr.Blueprint = inv.eval.Blueprint
		sr.Audit = inv.eval.Audit
		sr.Warnings = append(sr.Warnings, inv.eval.Warnings...)
		for _, w := range inv.eval.Warnings {
			if !seenWarning[w] {
				seenWarning[w] = true
				res.Warnings = append(res.Warnings, w)
			}
		}
		res.SolverResults = append(res.SolverResults, sr)
		certs = append(certs, inv.eval.Certificate)
	}

	if len(failed) > 0 {
		res.Outcome = contracts.OutcomeIndeterminate
		res.Errors = append(res.Errors, fmt.Sprintf("%d evaluator(s) failed to execute: %s", len(failed), strings.Join(failed, ", ")))
		res.Certificate = h.issuer.Synthesize(b, certifier.Synthesis{
			Marker:    certifier.MarkerEvaluatorFailure,
			Reason:    "evaluator failure: " + strings.Join(failed, ", "),
			Violation: certifier.ViolationSolverFailure,
		})
		return res
	}

	res.Success = true
	res.Divergences = compare(h.EvaluatorIDs(), certs)
	if len(res.Divergences) == 0 {
		res.Consensus = true
		res.Certificate = certs[0]
		res.Outcome = certs[0].Outcome
		return res
	}

	fields := make([]string, len(res.Divergences))
	for i, d := range res.Divergences {
		fields[i] = d.Field
	}
	res.Outcome = contracts.OutcomeIndeterminate
	res.Warnings = append(res.Warnings,
		"solver divergence detected, outcome forced to INDETERMINATE",
		fmt.Sprintf("found %d divergence(s): %s", len(fields), strings.Join(fields, ", ")),
	)
	res.Certificate = h.issuer.Synthesize(b, certifier.Synthesis{
		Marker:      certifier.MarkerDivergence,
		Reason:      "solver divergence on " + strings.Join(fields, ", "),
		Divergences: fields,
	})
	h.logger.Warn("solver divergence", "run_id", runID, "intent_id", b.IntentID, "fields", fields)
	return res
}

// enforce applies the policy enforcer. A CRITICAL violation replaces the
// certificate with an INDETERMINATE copy.
func (h *Harness) enforce(ctx context.Context, res *contracts.HarnessResult) {
	for _, d := range res.Divergences {
		h.obs.RecordDivergence(ctx, d.Field)
		observability.AddSpanEvent(ctx, "solver.divergence", observability.AttrDivergenceField.String(d.Field))
	}

	report := h.enforcer.EnforceAll(res)
	res.Enforcement = report
	for _, v := range report.Violations {
		h.obs.RecordViolation(ctx, string(v.Policy), v.ViolationType, string(v.Severity))
		observability.AddSpanEvent(ctx, "policy.violation",
			observability.ViolationAttributes(string(v.Policy), v.ViolationType, string(v.Severity))...)
	}
	if !report.Overrides() {
		return
	}

	critical := report.Critical()
	types := make([]string, len(critical))
	for i, v := range critical {
		types[i] = string(v.Policy) + "/" + v.ViolationType
	}
	if res.Certificate != nil {
		cert := res.Certificate.Clone()
		cert.Outcome = report.OutcomeOverride
		cert.OutcomeReason = "policy override: " + strings.Join(types, ", ")
		res.Certificate = cert
	}
	res.Outcome = report.OutcomeOverride
	res.Warnings = append(res.Warnings, "policy override: "+strings.Join(types, ", "))
}
