package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

func TestPlan_FixedSequence(t *testing.T) {
	bp := Plan("intent-1", "CLASSIFY_INCOME_TYPES", "sha256:00")

	require.Len(t, bp.Steps, TotalSteps)
	assert.Equal(t, TotalSteps, bp.TotalSteps)
	assert.Equal(t, "blueprint-intent-1", bp.BlueprintID)
	assert.True(t, bp.Deterministic)

	wantTypes := []contracts.StepType{
		contracts.StepValidate,
		contracts.StepLoadRules,
		contracts.StepEvaluate,
		contracts.StepClassify,
		contracts.StepCertify,
	}
	for i, step := range bp.Steps {
		assert.Equal(t, wantTypes[i], step.StepType)
		assert.Equal(t, i+1, step.StepOrder)
	}

	assert.Equal(t, "intent-1", bp.Steps[0].Inputs["intent_id"])
	assert.Equal(t, "sha256:00", bp.Steps[1].Inputs["rule_hash"])
	assert.Equal(t, "CLASSIFY_INCOME_TYPES", bp.Steps[2].Inputs["requested_action"])
}

func TestPlan_Deterministic(t *testing.T) {
	a, err := canonicalize.CanonicalHash(Plan("intent-1", "ACT", "sha256:00"))
	require.NoError(t, err)
	b, err := canonicalize.CanonicalHash(Plan("intent-1", "ACT", "sha256:00"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := canonicalize.CanonicalHash(Plan("intent-2", "ACT", "sha256:00"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPlan_StepShapeIndependentOfRequest(t *testing.T) {
	a := Plan("x", "A", "sha256:1")
	b := Plan("y", "B", "sha256:2")
	for i := range a.Steps {
		assert.Equal(t, a.Steps[i].StepID, b.Steps[i].StepID)
		assert.Equal(t, a.Steps[i].StepType, b.Steps[i].StepType)
		assert.Equal(t, a.Steps[i].ExpectedOutputs, b.Steps[i].ExpectedOutputs)
	}
}
