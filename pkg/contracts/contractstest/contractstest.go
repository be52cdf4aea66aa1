// Package contractstest provides well-formed bundles and bindings for tests.
package contractstest

import (
	"time"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// GenesisHash is the genesis policy hash used across test fixtures.
const GenesisHash = "sha256:45162862f5360bfd2dfebd5646caa97cc3a400c38e9563e4bea142e43ae70f1a"

// Now is the fixed instant returned by Clock.
var Now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Clock returns a clock frozen at Now.
func Clock() func() time.Time {
	return func() time.Time { return Now }
}

// Binding returns the governance binding matching GenesisHash.
func Binding() contracts.GovernanceBinding {
	return contracts.GovernanceBinding{
		GenesisHash:   GenesisHash,
		AuthorityRole: "competing-solver-harness",
		PolicyVersion: "1.0.0",
	}
}

// RuleHash is the content hash of the test rulebook.
var RuleHash = canonicalize.HashBytes([]byte("rulebook:us-income-2024@1.0.0"))

// ProofRef is the content hash of the test actor's authority proof.
var ProofRef = canonicalize.HashBytes([]byte("proof:preparer-7"))

// ClassifyIncomeBundle returns a well-formed income classification request
// backed by a single W-2 evidence reference.
func ClassifyIncomeBundle() *contracts.Bundle {
	binding := Binding()
	return &contracts.Bundle{
		IntentType: contracts.IntentDomainEvaluation,
		Domain:     contracts.DomainTax,
		IntentID:   "intent-classify-income-2024",
		Version:    "1.0.0",
		CreatedAt:  "2026-03-01T12:00:00Z",
		Inputs: contracts.Inputs{
			Facts: map[string]any{
				"tax_year": 2024,
				"income_sources": []any{
					map[string]any{"type": "W2", "employer": "Acme Corp", "amount": 85000},
				},
				"filing_status": "single",
			},
			EvidenceRefs:    []string{"doc:w2-2024"},
			RequestedAction: "CLASSIFY_INCOME_TYPES",
		},
		GoverningRules: contracts.GoverningRules{
			RulebookID:      "us-income-2024",
			RulebookVersion: "1.0.0",
			RuleHash:        RuleHash,
		},
		Authority: contracts.Authority{
			ActorID:  "preparer-7",
			ProofRef: ProofRef,
		},
		DeterminismContract: contracts.DeterminismContract{
			AllowedOutputs:      contracts.Outcomes(),
			NoDefaults:          true,
			RequireEvidence:     true,
			ByteIdenticalReplay: true,
		},
		GovernanceBinding: &binding,
	}
}

// EmptyEvidenceBundle returns a well-formed request with no facts and no
// evidence.
func EmptyEvidenceBundle() *contracts.Bundle {
	b := ClassifyIncomeBundle()
	b.IntentID = "intent-empty-evidence"
	b.Inputs.Facts = map[string]any{}
	b.Inputs.EvidenceRefs = []string{}
	return b
}
