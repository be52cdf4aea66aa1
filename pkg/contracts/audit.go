package contracts

// ExecutionStatus aggregates the step results of a trace.
type ExecutionStatus string

const (
	ExecutionSuccess       ExecutionStatus = "SUCCESS"
	ExecutionFailure       ExecutionStatus = "FAILURE"
	ExecutionIndeterminate ExecutionStatus = "INDETERMINATE"
)

// Audit is the recorded execution trace of a Blueprint.
type Audit struct {
	AuditID          string          `json:"audit_id"`
	BlueprintID      string          `json:"blueprint_id"`
	IntentID         string          `json:"intent_id"`
	StepResults      []StepResult    `json:"step_results"`
	ExecutionStatus  ExecutionStatus `json:"execution_status"`
	ExecutionErrors  []string        `json:"execution_errors"`
	AllEvidence      []string        `json:"all_evidence"`
	EvidenceComplete bool            `json:"evidence_complete"`
	Deterministic    bool            `json:"deterministic"`
	TotalDurationMs  int64           `json:"total_duration_ms"`
	ReplayHash       string          `json:"replay_hash"`
}

type StepResult struct {
	StepID            string         `json:"step_id"`
	StepType          StepType       `json:"step_type"`
	StepOrder         int            `json:"step_order"`
	DurationMs        int64          `json:"duration_ms"`
	ActualOutputs     map[string]any `json:"actual_outputs"`
	MatchedExpected   bool           `json:"matched_expected"`
	EvidenceCollected []string       `json:"evidence_collected"`
	Errors            []string       `json:"errors"`
	Warnings          []string       `json:"warnings"`
}
