// Package pipeline runs evaluation as an ordered list of stages over a
// shared state value. A stage may end the run early by setting a
// certificate.
package pipeline

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

const ID = "nofate-independent-b"

var pillars = map[contracts.Domain]contracts.Pillar{
	contracts.DomainTax:        "regulatory",
	contracts.DomainRegulatory: "regulatory",
	contracts.DomainMonetary:   "monetary",
	contracts.DomainJudicial:   "judicial",
	contracts.DomainInfra:      "infra",
	contracts.DomainGovernance: "governance",
}

type state struct {
	bundle     *contracts.Bundle
	errors     []string
	warnings   []string
	blueprint  *contracts.Blueprint
	audit      *contracts.Audit
	cert       *contracts.Certificate
	terminated bool
}

type stage struct {
	name string
	run  func(st *state) error
}

type Pipeline struct {
	stages []stage
}

func New(cfg solver.Config) *Pipeline {
	exec := executor.New()
	issuer := cfg.Certifier()

	return &Pipeline{stages: []stage{
		{"validate", func(st *state) error {
			res := validator.Validate(st.bundle)
			st.warnings = append(st.warnings, res.Warnings...)
			if res.Valid {
				return nil
			}
			st.errors = res.Errors
			cert, err := issuer.Reject(st.bundle, res.Errors)
			if err != nil {
				return err
			}
			st.cert = cert
			st.terminated = true
			return nil
		}},
		{"plan", func(st *state) error {
			st.blueprint = planner.Plan(st.bundle.IntentID, st.bundle.Inputs.RequestedAction, st.bundle.GoverningRules.RuleHash)
			return nil
		}},
		{"execute", func(st *state) error {
			audit, err := exec.Execute(st.blueprint, st.bundle.Inputs, st.bundle.DeterminismContract)
			if err != nil {
				return err
			}
			for _, r := range audit.StepResults {
				st.warnings = append(st.warnings, r.Warnings...)
			}
			st.audit = audit
			return nil
		}},
		{"certify", func(st *state) error {
			p, ok := pillars[st.bundle.Domain]
			if !ok {
				p = contracts.Pillar(st.bundle.Domain)
			}
			gr := st.bundle.GoverningRules
			cert, err := issuer.Certify(st.audit, certifier.Params{
				Domain:             st.bundle.Domain,
				Pillar:             p,
				RequestedAction:    st.bundle.Inputs.RequestedAction,
				SolversAgreed:      true,
				RulebookVersion:    gr.RulebookVersion,
				RuleHash:           gr.RuleHash,
				Supersedes:         gr.Supersedes,
				PriorVersion:       gr.PriorVersion,
				AuthorityProofRefs: []string{st.bundle.Authority.ProofRef},
				Contract:           st.bundle.DeterminismContract,
			})
			if err != nil {
				return err
			}
			st.cert = cert
			return nil
		}},
	}}
}

func (p *Pipeline) ID() string { return ID }

func (p *Pipeline) Evaluate(ctx context.Context, b *contracts.Bundle) (*solver.Evaluation, error) {
	st := &state{bundle: b}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.run(st); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", ID, s.name, err)
		}
		if st.terminated {
			break
		}
	}
	return &solver.Evaluation{
		Certificate:      st.cert,
		Blueprint:        st.blueprint,
		Audit:            st.audit,
		Outcome:          st.cert.Outcome,
		Warnings:         st.warnings,
		ValidationErrors: st.errors,
	}, nil
}
