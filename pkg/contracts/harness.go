package contracts

import "time"

// HarnessResult is the outcome of one consensus run.
type HarnessResult struct {
	RunID          string             `json:"run_id"`
	HarnessID      string             `json:"harness_id"`
	HarnessVersion string             `json:"harness_version"`
	IntentID       string             `json:"intent_id"`
	Success        bool               `json:"success"`
	Consensus      bool               `json:"consensus"`
	Outcome        Outcome            `json:"outcome"`
	Certificate    *Certificate       `json:"certificate"`
	SolverResults  []SolverResult     `json:"solver_results"`
	Divergences    []Divergence       `json:"divergences"`
	Enforcement    *EnforcementReport `json:"enforcement,omitempty"`
	Errors         []string           `json:"errors"`
	Warnings       []string           `json:"warnings"`
	DurationMs     int64              `json:"duration_ms"`
}

// SolverResult holds one evaluator's raw output.
type SolverResult struct {
	SolverID    string       `json:"solver_id"`
	Success     bool         `json:"success"`
	Outcome     Outcome      `json:"outcome,omitempty"`
	Certificate *Certificate `json:"certificate,omitempty"`
	Blueprint   *Blueprint   `json:"blueprint,omitempty"`
	Audit       *Audit       `json:"audit,omitempty"`
	Errors      []string     `json:"errors"`
	Warnings    []string     `json:"warnings"`
	DurationMs  int64        `json:"duration_ms"`
}

// Divergence names a compared field on which evaluators disagreed, with
// every evaluator's value keyed by evaluator id.
type Divergence struct {
	Field    string         `json:"field"`
	Values   map[string]any `json:"values"`
	Severity Severity       `json:"severity"`
}

// PolicyViolation is a detected breach of one of the four named policies.
type PolicyViolation struct {
	Policy        PolicyName `json:"policy"`
	ViolationType string     `json:"violation_type"`
	Severity      Severity   `json:"severity"`
	Description   string     `json:"description"`
	DetectedAt    time.Time  `json:"detected_at"`
}

// EnforcementReport is the enforcer's verdict over a HarnessResult.
type EnforcementReport struct {
	Compliant          bool              `json:"compliant"`
	Violations         []PolicyViolation `json:"violations"`
	EnforcementActions []string          `json:"enforcement_actions"`
	OutcomeOverride    Outcome           `json:"outcome_override,omitempty"`
}

// Overrides reports whether the enforcer replaced the computed outcome.
func (r *EnforcementReport) Overrides() bool {
	return r != nil && r.OutcomeOverride.Valid()
}

// Critical returns the CRITICAL violations.
func (r *EnforcementReport) Critical() []PolicyViolation {
	if r == nil {
		return nil
	}
	var out []PolicyViolation
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			out = append(out, v)
		}
	}
	return out
}
