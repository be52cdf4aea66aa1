// Package functional expresses evaluation as a composition of pure
// functions. No value is shared between calls.
package functional

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

const ID = "nofate-independent-c"

type Evaluator struct {
	cfg solver.Config
}

func New(cfg solver.Config) Evaluator {
	return Evaluator{cfg: cfg}
}

func (Evaluator) ID() string { return ID }

func (e Evaluator) Evaluate(ctx context.Context, b *contracts.Bundle) (*solver.Evaluation, error) {
	return evaluate(ctx, e.cfg.Certifier(), b)
}

func evaluate(ctx context.Context, issuer *certifier.Certifier, b *contracts.Bundle) (*solver.Evaluation, error) {
	res := validator.Validate(b)
	if !res.Valid {
		return rejected(issuer, b, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := blueprint(b)
	audit, err := trace(plan, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cert, err := issuer.Certify(audit, params(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ID, err)
	}
	return &solver.Evaluation{
		Certificate: cert,
		Blueprint:   plan,
		Audit:       audit,
		Outcome:     cert.Outcome,
		Warnings:    append(append([]string{}, res.Warnings...), stepWarnings(audit)...),
	}, nil
}

func rejected(issuer *certifier.Certifier, b *contracts.Bundle, res validator.Result) (*solver.Evaluation, error) {
	cert, err := issuer.Reject(b, res.Errors)
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

func blueprint(b *contracts.Bundle) *contracts.Blueprint {
	return planner.Plan(b.IntentID, b.Inputs.RequestedAction, b.GoverningRules.RuleHash)
}

func trace(plan *contracts.Blueprint, b *contracts.Bundle) (*contracts.Audit, error) {
	return executor.New().Execute(plan, b.Inputs, b.DeterminismContract)
}

func params(b *contracts.Bundle) certifier.Params {
	return certifier.Params{
		Domain:             b.Domain,
		Pillar:             pillarOf(b.Domain),
		RequestedAction:    b.Inputs.RequestedAction,
		SolversAgreed:      true,
		RulebookVersion:    b.GoverningRules.RulebookVersion,
		RuleHash:           b.GoverningRules.RuleHash,
		Supersedes:         b.GoverningRules.Supersedes,
		PriorVersion:       b.GoverningRules.PriorVersion,
		AuthorityProofRefs: []string{b.Authority.ProofRef},
		Contract:           b.DeterminismContract,
	}
}

func pillarOf(d contracts.Domain) contracts.Pillar {
	if d == contracts.DomainTax {
		return "regulatory"
	}
	return contracts.Pillar(d)
}

func stepWarnings(a *contracts.Audit) []string {
	var out []string
	for _, s := range a.StepResults {
		out = append(out, s.Warnings...)
	}
	return out
}
