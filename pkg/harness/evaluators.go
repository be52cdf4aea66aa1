package harness

import (
	"context"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/functional"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/pipeline"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/procedural"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/reference"
)

// DefaultEvaluators returns the four independent evaluators in comparison
// order.
func DefaultEvaluators(cfg solver.Config) []solver.Evaluator {
	return []solver.Evaluator{
		reference.New(cfg),
		procedural.New(cfg),
		pipeline.New(cfg),
		functional.New(cfg),
	}
}

// RunCompetingSolvers evaluates b with the default evaluators. It is the
// entry point domain adapters use to obtain a certificate.
func RunCompetingSolvers(ctx context.Context, cfg solver.Config, b *contracts.Bundle, opts ...Option) (*contracts.HarnessResult, error) {
	if cfg.Clock != nil {
		opts = append([]Option{WithClock(cfg.Clock)}, opts...)
	}
	h, err := New(cfg.Binding, DefaultEvaluators(cfg), opts...)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, b)
}
