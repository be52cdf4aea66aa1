package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/adapters"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts/contractstest"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/enforcement"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/validator"
)

var evidence = []string{adapters.ProofRef("minutes", "2026-02-council")}

func newAdapter() *Adapter {
	return New(solver.Config{Binding: contractstest.Binding(), Clock: contractstest.Clock()})
}

func proposal() Proposal {
	return Proposal{
		ProposalID:      "p-17",
		ProposedBy:      "council-member-3",
		ChangeType:      ChangeRulebook,
		TargetArtifact:  "us-income-2024",
		TargetVersion:   "1.1.0",
		ProposedChanges: map[string]any{"standard_deduction": 14600},
		Justification:   "inflation adjustment",
		EvidenceRefs:    evidence,
	}
}

func supersession(current, proposed string) Supersession {
	return Supersession{
		RequestID:          "s-4",
		RequestedBy:        "council-member-3",
		ArtifactID:         "us-income-2024",
		CurrentVersion:     current,
		ProposedVersion:    proposed,
		Reason:             "BUG_FIX",
		BackwardCompatible: true,
		EvidenceRefs:       evidence,
	}
}

func TestBundles_WellFormed(t *testing.T) {
	a := newAdapter()
	sup, err := a.SupersessionBundle(supersession("1.0.0", "1.1.0"))
	require.NoError(t, err)

	bundles := map[Operation]*contracts.Bundle{
		ChangeProposal:      a.ProposalBundle(proposal()),
		SupersessionRequest: sup,
		DisputeReplay:       a.DisputeBundle(Dispute{DisputeID: "d-1", DisputedBy: "auditor-2", EvidenceRefs: evidence}),
		AuthorityRotation:   a.RotationBundle(Rotation{RotationID: "r-9", RequestedBy: "council-member-3", EvidenceRefs: evidence}),
	}
	for op, b := range bundles {
		t.Run(string(op), func(t *testing.T) {
			res := validator.Validate(b)
			assert.True(t, res.Valid, "errors: %v", res.Errors)
			assert.Equal(t, contracts.IntentGovernanceOperation, b.IntentType)
			assert.Equal(t, contracts.DomainGovernance, b.Domain)
			assert.Equal(t, operations[op].action, b.Inputs.RequestedAction)
			assert.Equal(t, string(op), b.Inputs.Facts["operation_type"])
		})
	}
}

func TestProcessChangeProposal(t *testing.T) {
	res, err := newAdapter().ProcessChangeProposal(context.Background(), proposal())
	require.NoError(t, err)
	assert.True(t, res.Consensus)
	assert.Equal(t, contracts.OutcomePass, res.Outcome)
	assert.Equal(t, "cert-gov-change-p-17", res.Certificate.CertificateID)
}

func TestProcessSupersessionRequest(t *testing.T) {
	a := newAdapter()

	res, err := a.ProcessSupersessionRequest(context.Background(), supersession("1.0.0", "1.1.0"))
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomePass, res.Outcome)
	assert.True(t, res.Enforcement.Compliant)

	res, err = a.ProcessSupersessionRequest(context.Background(), supersession("2.0.0", "1.1.0"))
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeIndeterminate, res.Outcome)
	assert.False(t, res.Enforcement.Compliant)
	var kinds []string
	for _, v := range res.Enforcement.Violations {
		kinds = append(kinds, v.ViolationType)
	}
	assert.Contains(t, kinds, enforcement.ViolationNotAppendOnly)

	_, err = a.ProcessSupersessionRequest(context.Background(), supersession("one", "1.1.0"))
	assert.ErrorContains(t, err, "current version")
}

func TestProcessDisputeReplay(t *testing.T) {
	res, err := newAdapter().ProcessDisputeReplay(context.Background(), Dispute{
		DisputeID:             "d-1",
		DisputedCertificateID: "cert-intent-classify-income-2024",
		DisputedBy:            "auditor-2",
		OriginalIntentID:      "intent-classify-income-2024",
		Reason:                "classification contested",
		EvidenceRefs:          evidence,
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomePass, res.Outcome)
}

func TestProcessAuthorityRotation_NoEvidenceIsIndeterminate(t *testing.T) {
	res, err := newAdapter().ProcessAuthorityRotation(context.Background(), Rotation{
		RotationID:        "r-9",
		RequestedBy:       "council-member-3",
		Role:              "rulebook-signer",
		CurrentAuthority:  "signer-a",
		ProposedAuthority: "signer-b",
		EffectiveVersion:  "2.0.0",
		Reason:            "key rotation",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeIndeterminate, res.Outcome)
	assert.True(t, res.Consensus)
	assert.Empty(t, res.Certificate.EvidenceChains)
}
