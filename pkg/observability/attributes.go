package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Semantic convention attributes for consensus runs.
var (
	AttrRunID    = attribute.Key("nofate.run.id")
	AttrIntentID = attribute.Key("nofate.intent.id")
	AttrDomain   = attribute.Key("nofate.intent.domain")

	AttrSolverID = attribute.Key("nofate.solver.id")

	AttrOutcome         = attribute.Key("nofate.outcome")
	AttrConsensus       = attribute.Key("nofate.consensus")
	AttrDivergenceField = attribute.Key("nofate.divergence.field")

	AttrPolicy            = attribute.Key("nofate.policy.name")
	AttrViolationType     = attribute.Key("nofate.policy.violation")
	AttrViolationSeverity = attribute.Key("nofate.policy.severity")
)

// HarnessOperation creates attributes for one harness run.
func HarnessOperation(runID, intentID, domain string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrIntentID.String(intentID),
		AttrDomain.String(domain),
	}
}

// SolverOperation creates attributes for one evaluator invocation.
func SolverOperation(runID, solverID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrSolverID.String(solverID),
	}
}

// ViolationAttributes creates attributes for an enforcer finding.
func ViolationAttributes(policy, violation, severity string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicy.String(policy),
		AttrViolationType.String(violation),
		AttrViolationSeverity.String(severity),
	}
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
