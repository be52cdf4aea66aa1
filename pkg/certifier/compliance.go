package certifier

import (
	"github.com/Masterminds/semver/v3"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// Compliance record violation codes.
const (
	ViolationSolverDivergence           = "SOLVER_DIVERGENCE"
	ViolationSolverFailure              = "SOLVER_FAILURE"
	ViolationReplayNotVerified          = "REPLAY_NOT_VERIFIED"
	ViolationOutcomeNotAllowed          = "OUTCOME_NOT_ALLOWED"
	ViolationNonMonotonicSupersession   = "NON_MONOTONIC_SUPERSESSION"
	ViolationMissingPriorVersion        = "MISSING_PRIOR_VERSION"
	ViolationDecentralizationIncomplete = "DECENTRALIZATION_INCOMPLETE"
)

func policyCompliance(
	cs contracts.CompetingSolversRecord,
	dr contracts.DisputeResolutionRecord,
	sup contracts.ControlledSupersessionRecord,
	dec contracts.DecentralizedOperationsRecord,
) contracts.PolicyCompliance {
	return contracts.PolicyCompliance{
		CompetingSolvers:        cs,
		DisputeResolution:       dr,
		ControlledSupersession:  sup,
		DecentralizedOperations: dec,
		AllPoliciesCompliant:    cs.PolicyCompliant && dr.PolicyCompliant && sup.PolicyCompliant && dec.PolicyCompliant,
	}
}

func competingSolvers(b contracts.GovernanceBinding, agreed bool, divergences []string, violation string) contracts.CompetingSolversRecord {
	rec := contracts.CompetingSolversRecord{
		PolicyVersion: b.PolicyVersion,
		SolversAgreed: agreed,
		Divergences:   append([]string{}, divergences...),
		Enforcement:   contracts.EnforcementHard,
		Violations:    []string{},
	}
	if !agreed {
		if violation == "" {
			violation = ViolationSolverDivergence
		}
		rec.Violations = append(rec.Violations, violation)
	}
	rec.PolicyCompliant = len(rec.Violations) == 0
	return rec
}

func disputeResolution(b contracts.GovernanceBinding, replayVerified bool, replayHash string, allowedOnly bool) contracts.DisputeResolutionRecord {
	rec := contracts.DisputeResolutionRecord{
		PolicyVersion:       b.PolicyVersion,
		ReplayVerified:      replayVerified,
		ReplayHash:          replayHash,
		AllowedOutcomesOnly: allowedOnly,
		Enforcement:         contracts.EnforcementHard,
		Violations:          []string{},
	}
	if !replayVerified {
		rec.Violations = append(rec.Violations, ViolationReplayNotVerified)
	}
	if !allowedOnly {
		rec.Violations = append(rec.Violations, ViolationOutcomeNotAllowed)
	}
	rec.PolicyCompliant = len(rec.Violations) == 0
	return rec
}

// controlledSupersession records rulebook evolution. A prior version must
// be strictly older than the current one and a rulebook may not supersede
// itself.
func controlledSupersession(b contracts.GovernanceBinding, p Params) contracts.ControlledSupersessionRecord {
	rec := contracts.ControlledSupersessionRecord{
		PolicyVersion:        b.PolicyVersion,
		RulebookVersion:      p.RulebookVersion,
		RulebookHash:         p.RuleHash,
		AppendOnly:           true,
		SupersessionApproved: p.Supersedes != "",
		Supersedes:           p.Supersedes,
		PriorVersion:         p.PriorVersion,
		Enforcement:          contracts.EnforcementHard,
		Violations:           []string{},
	}
	if p.PriorVersion != "" && !versionAdvances(p.PriorVersion, p.RulebookVersion) {
		rec.AppendOnly = false
	}
	if p.Supersedes != "" && p.Supersedes == p.RuleHash {
		rec.AppendOnly = false
	}
	if !rec.AppendOnly {
		rec.Violations = append(rec.Violations, ViolationNonMonotonicSupersession)
	}
	if rec.SupersessionApproved && p.PriorVersion == "" {
		rec.Violations = append(rec.Violations, ViolationMissingPriorVersion)
	}
	rec.PolicyCompliant = len(rec.Violations) == 0
	return rec
}

func versionAdvances(prior, current string) bool {
	pv, err := semver.NewVersion(prior)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return pv.LessThan(cv)
}

// decentralizedOperations never reports compliance; the policy has no
// satisfiable definition yet.
func decentralizedOperations(b contracts.GovernanceBinding, distributed bool, proofRefs []string) contracts.DecentralizedOperationsRecord {
	return contracts.DecentralizedOperationsRecord{
		PolicyVersion:           b.PolicyVersion,
		DistributedVerification: distributed,
		NoSingleAuthority:       true,
		AuthorityProofRefs:      append([]string{}, proofRefs...),
		Enforcement:             contracts.EnforcementHard,
		Violations:              []string{ViolationDecentralizationIncomplete},
		PolicyCompliant:         false,
	}
}
