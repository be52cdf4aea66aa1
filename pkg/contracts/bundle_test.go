package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleClone_Independent(t *testing.T) {
	orig := &Bundle{
		IntentID: "intent-1",
		Inputs: Inputs{
			Facts: map[string]any{
				"wages":  map[string]any{"amount": 1000, "sources": []any{"employer-a"}},
				"labels": []string{"w2"},
			},
			EvidenceRefs:    []string{"doc:w2-2024"},
			RequestedAction: "CLASSIFY_INCOME_TYPES",
		},
		DeterminismContract: DeterminismContract{AllowedOutputs: []Outcome{OutcomePass}},
		GovernanceBinding:   &GovernanceBinding{GenesisHash: "sha256:abc"},
	}

	c := orig.Clone()
	c.Inputs.Facts["wages"].(map[string]any)["amount"] = 5
	c.Inputs.Facts["wages"].(map[string]any)["sources"].([]any)[0] = "mutated"
	c.Inputs.Facts["labels"].([]string)[0] = "mutated"
	c.Inputs.EvidenceRefs[0] = "mutated"
	c.DeterminismContract.AllowedOutputs[0] = OutcomeFail
	c.GovernanceBinding.GenesisHash = "mutated"

	wages := orig.Inputs.Facts["wages"].(map[string]any)
	assert.Equal(t, 1000, wages["amount"])
	assert.Equal(t, "employer-a", wages["sources"].([]any)[0])
	assert.Equal(t, "w2", orig.Inputs.Facts["labels"].([]string)[0])
	assert.Equal(t, "doc:w2-2024", orig.Inputs.EvidenceRefs[0])
	assert.Equal(t, OutcomePass, orig.DeterminismContract.AllowedOutputs[0])
	assert.Equal(t, "sha256:abc", orig.GovernanceBinding.GenesisHash)
}

func TestBundleClone_PreservesNilVersusEmpty(t *testing.T) {
	b := &Bundle{Inputs: Inputs{EvidenceRefs: []string{}}}
	c := b.Clone()
	require.NotNil(t, c.Inputs.EvidenceRefs)
	assert.Empty(t, c.Inputs.EvidenceRefs)
	assert.Nil(t, c.Inputs.Facts)

	var nilBundle *Bundle
	assert.Nil(t, nilBundle.Clone())
}

func TestBundleClone_CyclicFacts(t *testing.T) {
	loop := map[string]any{"amount": 1}
	loop["self"] = loop
	list := []any{"head", nil}
	list[1] = list
	shared := map[string]any{"k": "v"}

	b := &Bundle{Inputs: Inputs{Facts: map[string]any{
		"loop":  loop,
		"list":  list,
		"left":  shared,
		"right": shared,
	}}}
	c := b.Clone()

	copied := c.Inputs.Facts["loop"].(map[string]any)
	copied["amount"] = 2
	assert.Equal(t, 1, loop["amount"], "outer map is still copied")
	back := copied["self"].(map[string]any)
	assert.Equal(t, 1, back["amount"], "back edge keeps the original reference")
	assert.Equal(t, "head", c.Inputs.Facts["list"].([]any)[0])

	c.Inputs.Facts["left"].(map[string]any)["k"] = "mutated"
	assert.Equal(t, "v", c.Inputs.Facts["right"].(map[string]any)["k"], "shared non-cyclic values are copied per path")
	assert.Equal(t, "v", shared["k"])

	_, err := json.Marshal(c.Inputs.Facts)
	assert.Error(t, err)
}

func TestCertificate_ComparableAndClone(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cert := &Certificate{
		IssuedAt:   now,
		ValidUntil: now.AddDate(1, 0, 0),
		Outcome:    OutcomePass,
		EvidenceChains: []EvidenceChain{
			{Claim: "evaluate", EvidenceRefs: []string{"doc:1"}},
		},
		PolicyCompliance: PolicyCompliance{
			CompetingSolvers: CompetingSolversRecord{Violations: []string{}},
		},
	}

	cmp := cert.Comparable()
	assert.True(t, cmp.IssuedAt.IsZero())
	assert.True(t, cmp.ValidUntil.IsZero())
	assert.Equal(t, now, cert.IssuedAt)

	clone := cert.Clone()
	clone.EvidenceChains[0].EvidenceRefs[0] = "doc:2"
	clone.PolicyCompliance.CompetingSolvers.Violations = append(clone.PolicyCompliance.CompetingSolvers.Violations, "X")
	assert.Equal(t, "doc:1", cert.EvidenceChains[0].EvidenceRefs[0])
	assert.Empty(t, cert.PolicyCompliance.CompetingSolvers.Violations)
}
