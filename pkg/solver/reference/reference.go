// Package reference is the straight-line evaluator: each pipeline stage is
// called in order from a single method.
package reference

import (
	"context"
	"fmt"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/certifier"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/executor"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/planner"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/validator"
)

const ID = "nofate-reference"

type Evaluator struct {
	exec *executor.Executor
	cert *certifier.Certifier
}

func New(cfg solver.Config) *Evaluator {
	return &Evaluator{
		exec: executor.New(),
		cert: cfg.Certifier(),
	}
}

func (e *Evaluator) ID() string { return ID }

func (e *Evaluator) Evaluate(ctx context.Context, b *contracts.Bundle) (*solver.Evaluation, error) {
	res := validator.Validate(b)
	if !res.Valid {
		cert, err := e.cert.Reject(b, res.Errors)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ID, err)
		}
		return &solver.Evaluation{
			Certificate:      cert,
			Outcome:          cert.Outcome,
			Warnings:         res.Warnings,
			ValidationErrors: res.Errors,
		}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan := planner.Plan(b.IntentID, b.Inputs.RequestedAction, b.GoverningRules.RuleHash)
	audit, err := e.exec.Execute(plan, b.Inputs, b.DeterminismContract)
	if err != nil {
		return nil, fmt.Errorf("%s: execute: %w", ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cert, err := e.cert.Certify(audit, certifier.Params{
		Domain:             b.Domain,
		Pillar:             certifier.PillarFor(b.Domain),
		RequestedAction:    b.Inputs.RequestedAction,
		SolversAgreed:      true,
		RulebookVersion:    b.GoverningRules.RulebookVersion,
		RuleHash:           b.GoverningRules.RuleHash,
		Supersedes:         b.GoverningRules.Supersedes,
		PriorVersion:       b.GoverningRules.PriorVersion,
		AuthorityProofRefs: []string{b.Authority.ProofRef},
		Contract:           b.DeterminismContract,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: certify: %w", ID, err)
	}

	warnings := append([]string{}, res.Warnings...)
	for _, s := range audit.StepResults {
		warnings = append(warnings, s.Warnings...)
	}
	return &solver.Evaluation{
		Certificate: cert,
		Blueprint:   plan,
		Audit:       audit,
		Outcome:     cert.Outcome,
		Warnings:    warnings,
	}, nil
}
