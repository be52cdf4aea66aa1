// Package executor runs a Blueprint against a request's facts and records
// the Audit trace.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// ErrInvalidPlan is returned when a plan cannot be executed at all.
var ErrInvalidPlan = errors.New("invalid plan")

// Executor runs plans. It holds no per-run state and is safe for concurrent use.
type Executor struct {
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the clock used for step durations.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		clock:  time.Now,
		logger: slog.Default().With("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the working state of one execution. Facts are a private copy.
type run struct {
	plan     *contracts.Blueprint
	facts    map[string]any
	evidence []string
	contract contracts.DeterminismContract

	deterministic bool
	failed        bool
	unmatched     bool
}

type stepOutput struct {
	outputs  map[string]any
	evidence []string
	errors   []string
	warnings []string
}

type stepFunc func(r *run, step contracts.BlueprintStep) stepOutput

var handlers = map[contracts.StepType]stepFunc{
	contracts.StepValidate:  validateStep,
	contracts.StepLoadRules: loadRulesStep,
	contracts.StepEvaluate:  evaluateStep,
	contracts.StepClassify:  classifyStep,
	contracts.StepCertify:   certifyStep,
}

// Execute runs every step of plan in order. Step-level problems are
// recorded in the trace; an error is returned only when the plan itself
// is unusable.
func (e *Executor) Execute(plan *contracts.Blueprint, in contracts.Inputs, dc contracts.DeterminismContract) (*contracts.Audit, error) {
	if err := checkPlan(plan); err != nil {
		return nil, err
	}

	r := &run{
		plan:          plan,
		facts:         contracts.CloneFacts(in.Facts),
		evidence:      append([]string(nil), in.EvidenceRefs...),
		contract:      dc,
		deterministic: true,
	}

	audit := &contracts.Audit{
		AuditID:         AuditID(plan.IntentID),
		BlueprintID:     plan.BlueprintID,
		IntentID:        plan.IntentID,
		StepResults:     make([]contracts.StepResult, 0, len(plan.Steps)),
		ExecutionErrors: []string{},
		AllEvidence:     []string{},
	}

	start := e.clock()
	for _, step := range plan.Steps {
		stepStart := e.clock()
		out := handlers[step.StepType](r, step)
		matched := len(out.errors) == 0 && matchExpected(step.ExpectedOutputs, out.outputs)

		if len(out.errors) > 0 {
			r.failed = true
			for _, msg := range out.errors {
				audit.ExecutionErrors = append(audit.ExecutionErrors, step.StepID+": "+msg)
			}
		} else if !matched {
			r.unmatched = true
		}
		audit.AllEvidence = append(audit.AllEvidence, out.evidence...)

		audit.StepResults = append(audit.StepResults, contracts.StepResult{
			StepID:            step.StepID,
			StepType:          step.StepType,
			StepOrder:         step.StepOrder,
			DurationMs:        e.clock().Sub(stepStart).Milliseconds(),
			ActualOutputs:     out.outputs,
			MatchedExpected:   matched,
			EvidenceCollected: nonNil(out.evidence),
			Errors:            nonNil(out.errors),
			Warnings:          nonNil(out.warnings),
		})
	}
	audit.TotalDurationMs = e.clock().Sub(start).Milliseconds()

	audit.ExecutionStatus = r.status()
	audit.EvidenceComplete = evidenceComplete(dc, in.EvidenceRefs)
	audit.Deterministic = r.deterministic

	hash, err := ReplayHash(audit)
	if err != nil {
		return nil, fmt.Errorf("replay hash: %w", err)
	}
	audit.ReplayHash = hash

	e.logger.Debug("plan executed",
		"audit_id", audit.AuditID,
		"status", audit.ExecutionStatus,
		"deterministic", audit.Deterministic,
		"evidence_complete", audit.EvidenceComplete,
	)
	return audit, nil
}

// AuditID derives the trace identifier for an intent.
func AuditID(intentID string) string {
	return "audit-" + intentID
}

func (r *run) status() contracts.ExecutionStatus {
	switch {
	case r.failed:
		return contracts.ExecutionFailure
	case r.unmatched:
		return contracts.ExecutionIndeterminate
	default:
		return contracts.ExecutionSuccess
	}
}

func checkPlan(plan *contracts.Blueprint) error {
	if plan == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	if len(plan.Steps) == 0 || plan.TotalSteps != len(plan.Steps) {
		return fmt.Errorf("%w: %d steps declared, %d present", ErrInvalidPlan, plan.TotalSteps, len(plan.Steps))
	}
	for i, step := range plan.Steps {
		if step.StepOrder != i+1 {
			return fmt.Errorf("%w: step %s out of order (%d at position %d)", ErrInvalidPlan, step.StepID, step.StepOrder, i+1)
		}
		if _, ok := handlers[step.StepType]; !ok {
			return fmt.Errorf("%w: unknown step type %q", ErrInvalidPlan, step.StepType)
		}
	}
	return nil
}

func evidenceComplete(dc contracts.DeterminismContract, refs []string) bool {
	if !dc.RequireEvidence {
		return true
	}
	if len(refs) == 0 {
		return false
	}
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return false
		}
	}
	return true
}

// matchExpected reports whether actual structurally satisfies expected.
// A list-valued expectation accepts any one of its members.
func matchExpected(expected, actual map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if options, isList := want.([]any); isList {
			if !anyEqual(options, got) {
				return false
			}
			continue
		}
		if eq, err := canonicalize.Equal(want, got); err != nil || !eq {
			return false
		}
	}
	return true
}

func anyEqual(options []any, got any) bool {
	for _, opt := range options {
		if eq, err := canonicalize.Equal(opt, got); err == nil && eq {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
