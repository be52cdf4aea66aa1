// Package procedural decomposes evaluation into one method per stage, with
// intermediate results kept on a per-call session value.
package procedural

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

const ID = "nofate-independent-a"

type Solver struct {
	exec *executor.Executor
	cert *certifier.Certifier
}

func New(cfg solver.Config) *Solver {
	return &Solver{exec: executor.New(), cert: cfg.Certifier()}
}

func (s *Solver) ID() string { return ID }

type session struct {
	bundle    *contracts.Bundle
	checked   validator.Result
	blueprint *contracts.Blueprint
	audit     *contracts.Audit
	cert      *contracts.Certificate
}

func (s *Solver) Evaluate(ctx context.Context, b *contracts.Bundle) (*solver.Evaluation, error) {
	sess := &session{bundle: b}

	if !s.validate(sess) {
		if err := s.reject(sess); err != nil {
			return nil, err
		}
		return sess.evaluation(), nil
	}
	s.plan(sess)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.execute(sess); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.certify(sess); err != nil {
		return nil, err
	}
	return sess.evaluation(), nil
}

func (s *Solver) validate(sess *session) bool {
	sess.checked = validator.Validate(sess.bundle)
	return sess.checked.Valid
}

func (s *Solver) reject(sess *session) error {
	cert, err := s.cert.Reject(sess.bundle, sess.checked.Errors)
	if err != nil {
		return fmt.Errorf("%s: reject: %w", ID, err)
	}
	sess.cert = cert
	return nil
}

func (s *Solver) plan(sess *session) {
	b := sess.bundle
	sess.blueprint = planner.Plan(b.IntentID, b.Inputs.RequestedAction, b.GoverningRules.RuleHash)
}

func (s *Solver) execute(sess *session) error {
	audit, err := s.exec.Execute(sess.blueprint, sess.bundle.Inputs, sess.bundle.DeterminismContract)
	if err != nil {
		return fmt.Errorf("%s: execute: %w", ID, err)
	}
	sess.audit = audit
	return nil
}

func (s *Solver) certify(sess *session) error {
	rules := sess.bundle.GoverningRules
	params := certifier.Params{
		Domain:          sess.bundle.Domain,
		Pillar:          pillar(sess.bundle.Domain),
		RequestedAction: sess.bundle.Inputs.RequestedAction,
		SolversAgreed:   true,
		RulebookVersion: rules.RulebookVersion,
		RuleHash:        rules.RuleHash,
		Supersedes:      rules.Supersedes,
		PriorVersion:    rules.PriorVersion,
		Contract:        sess.bundle.DeterminismContract,
	}
	params.AuthorityProofRefs = append(params.AuthorityProofRefs, sess.bundle.Authority.ProofRef)

	cert, err := s.cert.Certify(sess.audit, params)
	if err != nil {
		return fmt.Errorf("%s: certify: %w", ID, err)
	}
	sess.cert = cert
	return nil
}

func (sess *session) evaluation() *solver.Evaluation {
	ev := &solver.Evaluation{
		Certificate:      sess.cert,
		Blueprint:        sess.blueprint,
		Audit:            sess.audit,
		Outcome:          sess.cert.Outcome,
		Warnings:         append([]string{}, sess.checked.Warnings...),
		ValidationErrors: sess.checked.Errors,
	}
	if sess.audit != nil {
		for _, step := range sess.audit.StepResults {
			ev.Warnings = append(ev.Warnings, step.Warnings...)
		}
	}
	return ev
}

func pillar(d contracts.Domain) contracts.Pillar {
	switch d {
	case contracts.DomainTax, contracts.DomainRegulatory:
		return contracts.Pillar(contracts.DomainRegulatory)
	default:
		return contracts.Pillar(d)
	}
}
