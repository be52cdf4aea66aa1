package enforcement

import "github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"

// Violation types reported by the enforcer.
const (
	ViolationMissingCertificate           = "MISSING_CERTIFICATE"
	ViolationInsufficientSolvers          = "INSUFFICIENT_SOLVERS"
	ViolationDivergenceNotHandled         = "DIVERGENCE_NOT_HANDLED"
	ViolationDisagreementNotIndeterminate = "SOLVER_DISAGREEMENT_NOT_INDETERMINATE"
	ViolationConsensusMismatch            = "CONSENSUS_MISMATCH"
	ViolationEnforcementNotHard           = "ENFORCEMENT_NOT_HARD"
	ViolationInvalidOutcome               = "INVALID_OUTCOME"
	ViolationOutcomesNotRestricted        = "OUTCOMES_NOT_RESTRICTED"
	ViolationOutcomeMismatch              = "OUTCOME_MISMATCH"
	ViolationPassWithoutEvidence          = "PASS_WITHOUT_EVIDENCE"
	ViolationNotAppendOnly                = "NOT_APPEND_ONLY"
	ViolationMissingSupersessionMetadata  = "MISSING_SUPERSESSION_METADATA"
	ViolationNotDistributed               = "NOT_DISTRIBUTED"
	ViolationSingleAuthority              = "SINGLE_AUTHORITY_DETECTED"
	ViolationInvalidGenesisHash           = "INVALID_GENESIS_HASH"
	ViolationDecentralizationIncomplete   = "DECENTRALIZATION_INCOMPLETE"
)

// rule is one CEL expression that must evaluate to true. Variables:
// result, cert, min_solvers, allowed_outcomes, genesis_hash.
type rule struct {
	policy      contracts.PolicyName
	violation   string
	severity    contracts.Severity
	expr        string
	description string
}

const (
	cs  = `cert.policy_compliance.competing_solvers`
	dr  = `cert.policy_compliance.dispute_resolution`
	sup = `cert.policy_compliance.controlled_supersession`
	dec = `cert.policy_compliance.decentralized_operations`
)

var rules = []rule{
	{
		policy:      contracts.PolicyCompetingSolvers,
		violation:   ViolationInsufficientSolvers,
		severity:    contracts.SeverityCritical,
		expr:        `result.solver_count >= min_solvers`,
		description: "fewer evaluators ran than the policy requires",
	},
	{
		policy:      contracts.PolicyCompetingSolvers,
		violation:   ViolationDivergenceNotHandled,
		severity:    contracts.SeverityCritical,
		expr:        `(result.consensus && result.divergence_count == 0) || result.outcome == "INDETERMINATE"`,
		description: "evaluators did not agree but the outcome is not INDETERMINATE",
	},
	{
		policy:      contracts.PolicyCompetingSolvers,
		violation:   ViolationDisagreementNotIndeterminate,
		severity:    contracts.SeverityCritical,
		expr:        cs + `.solvers_agreed == true || cert.outcome == "INDETERMINATE"`,
		description: "certificate records solver disagreement with a non-INDETERMINATE outcome",
	},
	{
		policy:      contracts.PolicyCompetingSolvers,
		violation:   ViolationConsensusMismatch,
		severity:    contracts.SeverityCritical,
		expr:        cs + `.solvers_agreed == result.consensus`,
		description: "certificate agreement flag contradicts the harness consensus",
	},
	{
		policy:      contracts.PolicyCompetingSolvers,
		violation:   ViolationEnforcementNotHard,
		severity:    contracts.SeverityCritical,
		expr:        cs + `.enforcement == "HARD"`,
		description: "competing solvers policy is not hard-enforced",
	},
	{
		policy:      contracts.PolicyDisputeResolution,
		violation:   ViolationInvalidOutcome,
		severity:    contracts.SeverityCritical,
		expr:        `cert.outcome in allowed_outcomes && result.outcome in allowed_outcomes`,
		description: "outcome is outside the closed outcome set",
	},
	{
		policy:      contracts.PolicyDisputeResolution,
		violation:   ViolationOutcomesNotRestricted,
		severity:    contracts.SeverityCritical,
		expr:        dr + `.allowed_outcomes_only == true`,
		description: "outcome is not restricted to the request's allowed outputs",
	},
	{
		policy:      contracts.PolicyDisputeResolution,
		violation:   ViolationOutcomeMismatch,
		severity:    contracts.SeverityCritical,
		expr:        `cert.outcome == result.outcome`,
		description: "certificate outcome differs from the harness outcome",
	},
	{
		policy:      contracts.PolicyDisputeResolution,
		violation:   ViolationPassWithoutEvidence,
		severity:    contracts.SeverityCritical,
		expr:        `cert.outcome != "PASS" || (cert.evidence_complete == true && cert.deterministic == true)`,
		description: "PASS issued without complete evidence and deterministic execution",
	},
	{
		policy:      contracts.PolicyDisputeResolution,
		violation:   ViolationEnforcementNotHard,
		severity:    contracts.SeverityCritical,
		expr:        dr + `.enforcement == "HARD"`,
		description: "dispute resolution policy is not hard-enforced",
	},
	{
		policy:      contracts.PolicyControlledSupersession,
		violation:   ViolationNotAppendOnly,
		severity:    contracts.SeverityCritical,
		expr:        sup + `.append_only == true`,
		description: "rulebook evolution is not append-only",
	},
	{
		policy:      contracts.PolicyControlledSupersession,
		violation:   ViolationMissingSupersessionMetadata,
		severity:    contracts.SeverityCritical,
		expr:        sup + `.supersession_approved != true || has(` + sup + `.prior_version)`,
		description: "supersession claimed without prior version metadata",
	},
	{
		policy:      contracts.PolicyControlledSupersession,
		violation:   ViolationEnforcementNotHard,
		severity:    contracts.SeverityCritical,
		expr:        sup + `.enforcement == "HARD"`,
		description: "controlled supersession policy is not hard-enforced",
	},
	{
		policy:      contracts.PolicyDecentralizedOperations,
		violation:   ViolationNotDistributed,
		severity:    contracts.SeverityCritical,
		expr:        dec + `.distributed_verification == true`,
		description: "verification was not distributed across evaluators",
	},
	{
		policy:      contracts.PolicyDecentralizedOperations,
		violation:   ViolationSingleAuthority,
		severity:    contracts.SeverityCritical,
		expr:        dec + `.no_single_authority == true`,
		description: "a single authority controls the outcome",
	},
	{
		policy:      contracts.PolicyDecentralizedOperations,
		violation:   ViolationInvalidGenesisHash,
		severity:    contracts.SeverityCritical,
		expr:        `cert.governance_binding.genesis_hash == genesis_hash`,
		description: "certificate is not bound to the genesis policy",
	},
	{
		policy:      contracts.PolicyDecentralizedOperations,
		violation:   ViolationEnforcementNotHard,
		severity:    contracts.SeverityCritical,
		expr:        dec + `.enforcement == "HARD"`,
		description: "decentralized operations policy is not hard-enforced",
	},
	{
		policy:      contracts.PolicyDecentralizedOperations,
		violation:   ViolationDecentralizationIncomplete,
		severity:    contracts.SeverityWarning,
		expr:        dec + `.policy_compliant == true`,
		description: "decentralized operations policy is not yet satisfiable",
	},
}
