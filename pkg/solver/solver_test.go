package solver_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts/contractstest"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/functional"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/pipeline"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/procedural"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver/reference"
)

func evaluators() []solver.Evaluator {
	cfg := solver.Config{Binding: contractstest.Binding(), Clock: contractstest.Clock()}
	return []solver.Evaluator{
		reference.New(cfg),
		procedural.New(cfg),
		pipeline.New(cfg),
		functional.New(cfg),
	}
}

func TestEvaluators_DistinctIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range evaluators() {
		assert.False(t, seen[e.ID()], "duplicate id %s", e.ID())
		seen[e.ID()] = true
	}
	assert.Len(t, seen, 4)
}

func TestEvaluators_ProduceIdenticalCertificates(t *testing.T) {
	invalid := contractstest.ClassifyIncomeBundle()
	invalid.Inputs.EvidenceRefs = nil
	invalid.GoverningRules.RuleHash = "not-a-hash"

	superseding := contractstest.ClassifyIncomeBundle()
	superseding.IntentID = "intent-supersede-2025"
	superseding.Domain = contracts.DomainGovernance
	superseding.GoverningRules.RulebookVersion = "2.0.0"
	superseding.GoverningRules.PriorVersion = "1.0.0"
	superseding.GoverningRules.Supersedes = contractstest.RuleHash
	superseding.GoverningRules.RuleHash = canonicalize.HashBytes([]byte("rulebook:us-income-2025@2.0.0"))

	unresolved := contractstest.ClassifyIncomeBundle()
	unresolved.IntentID = "intent-unresolved"
	unresolved.Inputs.Facts["filing_status"] = nil

	cases := map[string]struct {
		bundle  *contracts.Bundle
		outcome contracts.Outcome
	}{
		"classify income": {contractstest.ClassifyIncomeBundle(), contracts.OutcomePass},
		"empty evidence":  {contractstest.EmptyEvidenceBundle(), contracts.OutcomeIndeterminate},
		"invalid":         {invalid, contracts.OutcomeInvalidInput},
		"supersession":    {superseding, contracts.OutcomePass},
		"unresolved fact": {unresolved, contracts.OutcomeIndeterminate},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var first *solver.Evaluation
			var firstHash string
			for _, e := range evaluators() {
				ev, err := e.Evaluate(context.Background(), tc.bundle.Clone())
				require.NoError(t, err, e.ID())
				require.NotNil(t, ev.Certificate, e.ID())
				assert.Equal(t, tc.outcome, ev.Outcome, e.ID())
				assert.Equal(t, ev.Outcome, ev.Certificate.Outcome, e.ID())

				hash, err := canonicalize.CanonicalHash(ev.Certificate)
				require.NoError(t, err)
				if first == nil {
					first, firstHash = ev, hash
					continue
				}
				assert.Equal(t, firstHash, hash, "%s: %s", e.ID(), cmp.Diff(first.Certificate, ev.Certificate))
				assert.ElementsMatch(t, first.Warnings, ev.Warnings, e.ID())
			}
		})
	}
}

func TestEvaluators_DoNotMutateBundle(t *testing.T) {
	for _, e := range evaluators() {
		b := contractstest.ClassifyIncomeBundle()
		before, err := canonicalize.CanonicalHash(b)
		require.NoError(t, err)

		_, err = e.Evaluate(context.Background(), b)
		require.NoError(t, err)

		after, err := canonicalize.CanonicalHash(b)
		require.NoError(t, err)
		assert.Equal(t, before, after, e.ID())
	}
}

func TestEvaluators_HonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, e := range evaluators() {
		_, err := e.Evaluate(ctx, contractstest.ClassifyIncomeBundle())
		assert.ErrorIs(t, err, context.Canceled, e.ID())
	}
}

func TestFunc(t *testing.T) {
	f := solver.Func{Name: "stub", Fn: func(context.Context, *contracts.Bundle) (*solver.Evaluation, error) {
		return &solver.Evaluation{Outcome: contracts.OutcomeFail}, nil
	}}
	ev, err := f.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", f.ID())
	assert.Equal(t, contracts.OutcomeFail, ev.Outcome)
}
