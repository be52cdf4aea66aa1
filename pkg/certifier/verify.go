package certifier

import (
	"fmt"
	"strings"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// VerifyReport is the offline verdict over a single certificate.
type VerifyReport struct {
	CertificateID string        `json:"certificate_id"`
	Verified      bool          `json:"verified"`
	Checks        []CheckResult `json:"checks"`
	Summary       string        `json:"summary"`
	IssueCount    int           `json:"issue_count"`
}

// CheckResult represents a single verification check.
type CheckResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

func (r *VerifyReport) addCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if !c.Pass {
		r.Verified = false
		r.IssueCount++
	}
}

// Verify checks a certificate's internal consistency and its binding to
// the expected genesis policy. It needs nothing but the certificate.
func Verify(cert *contracts.Certificate, binding contracts.GovernanceBinding) *VerifyReport {
	report := &VerifyReport{Verified: true, Checks: make([]CheckResult, 0, 8)}
	if cert == nil {
		report.addCheck(CheckResult{Name: "present", Reason: "no certificate"})
		report.Summary = summarize(report)
		return report
	}
	report.CertificateID = cert.CertificateID

	report.addCheck(checkIdentity(cert))
	report.addCheck(checkOutcome(cert))
	report.addCheck(checkPassGate(cert))
	report.addCheck(checkEvidenceChain(cert))
	report.addCheck(checkAgreement(cert))
	report.addCheck(checkEnforcement(cert))
	report.addCheck(checkGenesis(cert, binding))
	report.addCheck(checkValidity(cert))

	report.Summary = summarize(report)
	return report
}

func summarize(r *VerifyReport) string {
	return fmt.Sprintf("%d/%d checks passed", len(r.Checks)-r.IssueCount, len(r.Checks))
}

func checkIdentity(cert *contracts.Certificate) CheckResult {
	c := CheckResult{Name: "identity", Pass: true}
	if cert.CertificateID != CertificateID(cert.IntentID) {
		c.Pass = false
		c.Reason = fmt.Sprintf("certificate_id %q does not derive from intent %q", cert.CertificateID, cert.IntentID)
	}
	return c
}

func checkOutcome(cert *contracts.Certificate) CheckResult {
	if !cert.Outcome.Valid() {
		return CheckResult{Name: "outcome", Reason: "outcome outside the closed set"}
	}
	return CheckResult{Name: "outcome", Pass: true}
}

func checkPassGate(cert *contracts.Certificate) CheckResult {
	c := CheckResult{Name: "pass_gate", Pass: true}
	if cert.Outcome == contracts.OutcomePass && (!cert.EvidenceComplete || !cert.Deterministic) {
		c.Pass = false
		c.Reason = "PASS issued without complete evidence and deterministic execution"
	}
	return c
}

func checkEvidenceChain(cert *contracts.Certificate) CheckResult {
	c := CheckResult{Name: "evidence_chain", Pass: true}
	link := cert.EvidenceChain
	switch link.AuditReplayHash {
	case MarkerDivergence, MarkerEvaluatorFailure:
		if cert.Outcome != contracts.OutcomeIndeterminate {
			c.Pass = false
			c.Reason = fmt.Sprintf("marker %q on a %s certificate", link.AuditReplayHash, cert.Outcome)
		}
		return c
	}
	var problems []string
	if !strings.HasPrefix(link.AuditReplayHash, canonicalize.HashPrefix) {
		problems = append(problems, "audit_replay_hash is not a content hash")
	}
	if cert.Outcome != contracts.OutcomeInvalidInput && !strings.HasPrefix(link.RuleHash, canonicalize.HashPrefix) {
		problems = append(problems, "rule_hash is not a content hash")
	}
	if len(problems) > 0 {
		c.Pass = false
		c.Reason = strings.Join(problems, "; ")
	}
	return c
}

func checkAgreement(cert *contracts.Certificate) CheckResult {
	c := CheckResult{Name: "solver_agreement", Pass: true}
	if !cert.PolicyCompliance.CompetingSolvers.SolversAgreed && cert.Outcome != contracts.OutcomeIndeterminate {
		c.Pass = false
		c.Reason = fmt.Sprintf("solvers disagreed but outcome is %s", cert.Outcome)
	}
	return c
}

func checkEnforcement(cert *contracts.Certificate) CheckResult {
	pc := cert.PolicyCompliance
	records := []struct {
		policy contracts.PolicyName
		mode   string
	}{
		{contracts.PolicyCompetingSolvers, pc.CompetingSolvers.Enforcement},
		{contracts.PolicyDisputeResolution, pc.DisputeResolution.Enforcement},
		{contracts.PolicyControlledSupersession, pc.ControlledSupersession.Enforcement},
		{contracts.PolicyDecentralizedOperations, pc.DecentralizedOperations.Enforcement},
	}
	var soft []string
	for _, r := range records {
		if r.mode != contracts.EnforcementHard {
			soft = append(soft, string(r.policy))
		}
	}
	if len(soft) > 0 {
		return CheckResult{Name: "hard_enforcement", Reason: "not HARD: " + strings.Join(soft, ", ")}
	}
	return CheckResult{Name: "hard_enforcement", Pass: true}
}

func checkGenesis(cert *contracts.Certificate, binding contracts.GovernanceBinding) CheckResult {
	if cert.GovernanceBinding.GenesisHash != binding.GenesisHash {
		return CheckResult{
			Name:   "genesis_binding",
			Reason: fmt.Sprintf("genesis hash %q, expected %q", cert.GovernanceBinding.GenesisHash, binding.GenesisHash),
		}
	}
	return CheckResult{Name: "genesis_binding", Pass: true}
}

func checkValidity(cert *contracts.Certificate) CheckResult {
	if !cert.ValidUntil.After(cert.IssuedAt) {
		return CheckResult{Name: "validity_window", Reason: "valid_until is not after issued_at"}
	}
	return CheckResult{Name: "validity_window", Pass: true}
}
