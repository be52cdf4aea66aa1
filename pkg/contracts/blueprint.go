package contracts

// StepType is the closed set of plan step kinds.
type StepType string

const (
	StepValidate  StepType = "VALIDATE"
	StepLoadRules StepType = "LOAD_RULES"
	StepEvaluate  StepType = "EVALUATE"
	StepClassify  StepType = "CLASSIFY"
	StepCertify   StepType = "CERTIFY"
)

// Blueprint is the execution plan for one request.
type Blueprint struct {
	BlueprintID   string          `json:"blueprint_id"`
	IntentID      string          `json:"intent_id"`
	Steps         []BlueprintStep `json:"steps"`
	TotalSteps    int             `json:"total_steps"`
	Deterministic bool            `json:"deterministic"`
}

// BlueprintStep declares a step's inputs and expected outputs. An expected
// output given as a list is satisfied by any one of its members.
type BlueprintStep struct {
	StepID          string         `json:"step_id"`
	StepType        StepType       `json:"step_type"`
	StepOrder       int            `json:"step_order"`
	Description     string         `json:"description"`
	Inputs          map[string]any `json:"inputs"`
	ExpectedOutputs map[string]any `json:"expected_outputs"`
}
