// Package planner emits the fixed five-step execution plan for a request.
package planner

import (
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// Step identifiers, in execution order.
const (
	StepValidateIntent = "validate-intent"
	StepLoadRules      = "load-rules"
	StepEvaluate       = "evaluate"
	StepClassify       = "classify"
	StepCertify        = "certify"
)

// TotalSteps is the length of every plan.
const TotalSteps = 5

// BlueprintID derives the plan identifier for an intent.
func BlueprintID(intentID string) string {
	return "blueprint-" + intentID
}

// Plan builds the plan for one request. Only the embedded identifiers and
// hashes vary between requests; the step sequence never does.
func Plan(intentID, requestedAction, ruleHash string) *contracts.Blueprint {
	steps := []contracts.BlueprintStep{
		{
			StepID:          StepValidateIntent,
			StepType:        contracts.StepValidate,
			Description:     "Confirm the intent is well formed and carries facts",
			Inputs:          map[string]any{"intent_id": intentID},
			ExpectedOutputs: map[string]any{"valid": true},
		},
		{
			StepID:          StepLoadRules,
			StepType:        contracts.StepLoadRules,
			Description:     "Bind the content-addressed rulebook",
			Inputs:          map[string]any{"rule_hash": ruleHash},
			ExpectedOutputs: map[string]any{"rulebook_loaded": true},
		},
		{
			StepID:          StepEvaluate,
			StepType:        contracts.StepEvaluate,
			Description:     "Evaluate the requested action over the facts",
			Inputs:          map[string]any{"requested_action": requestedAction},
			ExpectedOutputs: map[string]any{"evaluation_complete": true},
		},
		{
			StepID:      StepClassify,
			StepType:    contracts.StepClassify,
			Description: "Classify the evaluation result",
			Inputs:      map[string]any{"evaluation_result": "pending"},
			ExpectedOutputs: map[string]any{
				"classification": []any{
					contracts.OutcomePass.String(),
					contracts.OutcomeFail.String(),
					contracts.OutcomeIndeterminate.String(),
				},
			},
		},
		{
			StepID:          StepCertify,
			StepType:        contracts.StepCertify,
			Description:     "Authorize certificate issuance",
			Inputs:          map[string]any{"classification": "pending"},
			ExpectedOutputs: map[string]any{"certificate_issued": true},
		},
	}
	for i := range steps {
		steps[i].StepOrder = i + 1
	}

	return &contracts.Blueprint{
		BlueprintID:   BlueprintID(intentID),
		IntentID:      intentID,
		Steps:         steps,
		TotalSteps:    len(steps),
		Deterministic: true,
	}
}
