package executor

import (
	"fmt"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

type replayStep struct {
	StepID            string             `json:"step_id"`
	StepType          contracts.StepType `json:"step_type"`
	StepOrder         int                `json:"step_order"`
	ActualOutputs     map[string]any     `json:"actual_outputs"`
	MatchedExpected   bool               `json:"matched_expected"`
	EvidenceCollected []string           `json:"evidence_collected"`
	Errors            []string           `json:"errors"`
	Warnings          []string           `json:"warnings"`
}

type replayMaterial struct {
	AuditID          string                    `json:"audit_id"`
	BlueprintID      string                    `json:"blueprint_id"`
	IntentID         string                    `json:"intent_id"`
	Steps            []replayStep              `json:"steps"`
	ExecutionStatus  contracts.ExecutionStatus `json:"execution_status"`
	ExecutionErrors  []string                  `json:"execution_errors"`
	AllEvidence      []string                  `json:"all_evidence"`
	EvidenceComplete bool                      `json:"evidence_complete"`
	Deterministic    bool                      `json:"deterministic"`
}

// ReplayHash summarizes a trace. Durations are excluded so that two runs
// of the same plan over the same facts hash identically.
func ReplayHash(a *contracts.Audit) (string, error) {
	m := replayMaterial{
		AuditID:          a.AuditID,
		BlueprintID:      a.BlueprintID,
		IntentID:         a.IntentID,
		Steps:            make([]replayStep, len(a.StepResults)),
		ExecutionStatus:  a.ExecutionStatus,
		ExecutionErrors:  a.ExecutionErrors,
		AllEvidence:      a.AllEvidence,
		EvidenceComplete: a.EvidenceComplete,
		Deterministic:    a.Deterministic,
	}
	for i, s := range a.StepResults {
		m.Steps[i] = replayStep{
			StepID:            s.StepID,
			StepType:          s.StepType,
			StepOrder:         s.StepOrder,
			ActualOutputs:     s.ActualOutputs,
			MatchedExpected:   s.MatchedExpected,
			EvidenceCollected: s.EvidenceCollected,
			Errors:            s.Errors,
			Warnings:          s.Warnings,
		}
	}
	return canonicalize.CanonicalHash(m)
}

// VerifyReplayHash recomputes the replay hash of a and compares it with the
// recorded one.
func VerifyReplayHash(a *contracts.Audit) error {
	got, err := ReplayHash(a)
	if err != nil {
		return err
	}
	if got != a.ReplayHash {
		return fmt.Errorf("replay hash mismatch: recorded %s, computed %s", a.ReplayHash, got)
	}
	return nil
}
