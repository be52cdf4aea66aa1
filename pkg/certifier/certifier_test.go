package certifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts/contractstest"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/executor"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/planner"
)

func traceFor(t *testing.T, b *contracts.Bundle) *contracts.Audit {
	t.Helper()
	plan := planner.Plan(b.IntentID, b.Inputs.RequestedAction, b.GoverningRules.RuleHash)
	audit, err := executor.New().Execute(plan, b.Inputs, b.DeterminismContract)
	require.NoError(t, err)
	return audit
}

func paramsFor(b *contracts.Bundle) Params {
	return Params{
		Domain:             b.Domain,
		Pillar:             PillarFor(b.Domain),
		RequestedAction:    b.Inputs.RequestedAction,
		SolversAgreed:      true,
		RulebookVersion:    b.GoverningRules.RulebookVersion,
		RuleHash:           b.GoverningRules.RuleHash,
		Supersedes:         b.GoverningRules.Supersedes,
		PriorVersion:       b.GoverningRules.PriorVersion,
		AuthorityProofRefs: []string{b.Authority.ProofRef},
		Contract:           b.DeterminismContract,
	}
}

func newCertifier() *Certifier {
	return New(contractstest.Binding(), WithClock(contractstest.Clock()))
}

func TestDecide_Order(t *testing.T) {
	ok := func() *contracts.Audit {
		return &contracts.Audit{
			ExecutionStatus:  contracts.ExecutionSuccess,
			Deterministic:    true,
			EvidenceComplete: true,
		}
	}

	cases := []struct {
		name    string
		mutate  func(a *contracts.Audit)
		agreed  bool
		outcome contracts.Outcome
		reason  string
	}{
		{"pass", func(*contracts.Audit) {}, true, contracts.OutcomePass, ""},
		{"divergence beats everything", func(a *contracts.Audit) {
			a.Deterministic = false
			a.ExecutionStatus = contracts.ExecutionFailure
		}, false, contracts.OutcomeIndeterminate, ReasonDivergence},
		{"non-determinism beats missing evidence", func(a *contracts.Audit) {
			a.Deterministic = false
			a.EvidenceComplete = false
		}, true, contracts.OutcomeIndeterminate, ReasonNonDeterministic},
		{"missing evidence beats failure", func(a *contracts.Audit) {
			a.EvidenceComplete = false
			a.ExecutionStatus = contracts.ExecutionFailure
		}, true, contracts.OutcomeIndeterminate, ReasonInsufficientEvidence},
		{"failure", func(a *contracts.Audit) {
			a.ExecutionStatus = contracts.ExecutionFailure
		}, true, contracts.OutcomeFail, ""},
		{"indeterminate execution", func(a *contracts.Audit) {
			a.ExecutionStatus = contracts.ExecutionIndeterminate
		}, true, contracts.OutcomeIndeterminate, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := ok()
			tc.mutate(a)
			outcome, reason := Decide(a, tc.agreed)
			assert.Equal(t, tc.outcome, outcome)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, reason)
			}
		})
	}
}

func TestCertify_Pass(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()
	audit := traceFor(t, b)

	cert, err := newCertifier().Certify(audit, paramsFor(b))
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomePass, cert.Outcome)
	assert.Equal(t, "cert-"+b.IntentID, cert.CertificateID)
	assert.Equal(t, contracts.Pillar("regulatory"), cert.Pillar)
	assert.Equal(t, audit.ReplayHash, cert.EvidenceChain.AuditReplayHash)
	assert.Equal(t, b.GoverningRules.RuleHash, cert.EvidenceChain.RuleHash)
	assert.Equal(t, contractstest.Now, cert.IssuedAt)
	assert.Equal(t, contractstest.Now.Add(DefaultValidity), cert.ValidUntil)
	require.Len(t, cert.EvidenceChains, 1)
	assert.Equal(t, []string{"doc:w2-2024"}, cert.EvidenceChains[0].EvidenceRefs)
	assert.Equal(t, contracts.ConfidenceDeterministic, cert.EvidenceChains[0].Confidence)

	pc := cert.PolicyCompliance
	assert.True(t, pc.CompetingSolvers.SolversAgreed)
	assert.True(t, pc.DisputeResolution.AllowedOutcomesOnly)
	assert.True(t, pc.ControlledSupersession.AppendOnly)
	assert.False(t, pc.ControlledSupersession.SupersessionApproved)
	assert.True(t, pc.DecentralizedOperations.DistributedVerification)
	assert.False(t, pc.DecentralizedOperations.PolicyCompliant)
	assert.False(t, pc.AllPoliciesCompliant)
	for _, mode := range []string{
		pc.CompetingSolvers.Enforcement,
		pc.DisputeResolution.Enforcement,
		pc.ControlledSupersession.Enforcement,
		pc.DecentralizedOperations.Enforcement,
	} {
		assert.Equal(t, contracts.EnforcementHard, mode)
	}

	report := Verify(cert, contractstest.Binding())
	assert.True(t, report.Verified, "%+v", report.Checks)
}

func TestCertify_EmptyEvidenceIsIndeterminate(t *testing.T) {
	b := contractstest.EmptyEvidenceBundle()

	cert, err := newCertifier().Certify(traceFor(t, b), paramsFor(b))
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeIndeterminate, cert.Outcome)
	assert.Equal(t, ReasonInsufficientEvidence, cert.OutcomeReason)
}

func TestCertify_OutcomeOutsideVocabulary(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()
	b.DeterminismContract.AllowedOutputs = []contracts.Outcome{contracts.OutcomeFail}

	cert, err := newCertifier().Certify(traceFor(t, b), paramsFor(b))
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomePass, cert.Outcome)
	assert.False(t, cert.PolicyCompliance.DisputeResolution.AllowedOutcomesOnly)
	assert.Contains(t, cert.PolicyCompliance.DisputeResolution.Violations, ViolationOutcomeNotAllowed)
}

func TestCertify_Supersession(t *testing.T) {
	prior := contractstest.RuleHash

	cases := []struct {
		name         string
		version      string
		priorVersion string
		supersedes   string
		appendOnly   bool
		violations   []string
	}{
		{"forward", "2.0.0", "1.0.0", prior, true, []string{}},
		{"backward", "1.0.0", "2.0.0", prior, false, []string{ViolationNonMonotonicSupersession}},
		{"missing prior version", "2.0.0", "", prior, true, []string{ViolationMissingPriorVersion}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := contractstest.ClassifyIncomeBundle()
			b.GoverningRules.RulebookVersion = tc.version
			b.GoverningRules.PriorVersion = tc.priorVersion
			b.GoverningRules.Supersedes = tc.supersedes
			b.GoverningRules.RuleHash = "sha256:" + "ab" + b.GoverningRules.RuleHash[9:]

			cert, err := newCertifier().Certify(traceFor(t, b), paramsFor(b))
			require.NoError(t, err)

			rec := cert.PolicyCompliance.ControlledSupersession
			assert.True(t, rec.SupersessionApproved)
			assert.Equal(t, tc.appendOnly, rec.AppendOnly)
			assert.Equal(t, tc.violations, rec.Violations)
		})
	}
}

func TestReject(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()
	errs := []string{"z: second", "a: first"}

	cert, err := newCertifier().Reject(b, errs)
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeInvalidInput, cert.Outcome)
	assert.Equal(t, "invalid input: a: first; z: second", cert.OutcomeReason)
	assert.Equal(t, []string{"z: second", "a: first"}, errs, "caller slice untouched")
	assert.True(t, cert.PolicyCompliance.CompetingSolvers.SolversAgreed)
	assert.True(t, cert.PolicyCompliance.DisputeResolution.AllowedOutcomesOnly)

	again, err := newCertifier().Reject(b, []string{"a: first", "z: second"})
	require.NoError(t, err)
	assert.Equal(t, cert.EvidenceChain.AuditReplayHash, again.EvidenceChain.AuditReplayHash)

	other, err := newCertifier().Reject(b, []string{"a: first"})
	require.NoError(t, err)
	assert.NotEqual(t, cert.EvidenceChain.AuditReplayHash, other.EvidenceChain.AuditReplayHash)

	nilCert, err := newCertifier().Reject(nil, []string{"bundle: missing"})
	require.NoError(t, err)
	assert.Equal(t, "cert-", nilCert.CertificateID)
}

func TestSynthesize(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()

	cert := newCertifier().Synthesize(b, Synthesis{
		Marker:      MarkerDivergence,
		Reason:      "solver divergence on outcome",
		Divergences: []string{"outcome"},
	})

	assert.Equal(t, contracts.OutcomeIndeterminate, cert.Outcome)
	assert.Equal(t, MarkerDivergence, cert.EvidenceChain.AuditReplayHash)
	assert.Equal(t, b.GoverningRules.RuleHash, cert.EvidenceChain.RuleHash)
	assert.False(t, cert.PolicyCompliance.CompetingSolvers.SolversAgreed)
	assert.Equal(t, []string{"outcome"}, cert.PolicyCompliance.CompetingSolvers.Divergences)
	assert.Equal(t, []string{ViolationSolverDivergence}, cert.PolicyCompliance.CompetingSolvers.Violations)

	report := Verify(cert, contractstest.Binding())
	assert.True(t, report.Verified, "%+v", report.Checks)
}

func TestSynthesize_CarriesSupersession(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()
	b.GoverningRules.RulebookVersion = "2.0.0"
	b.GoverningRules.PriorVersion = "1.0.0"
	b.GoverningRules.Supersedes = contractstest.RuleHash
	b.GoverningRules.RuleHash = "sha256:" + "ab" + b.GoverningRules.RuleHash[9:]

	certified, err := newCertifier().Certify(traceFor(t, b), paramsFor(b))
	require.NoError(t, err)
	synthesized := newCertifier().Synthesize(b, Synthesis{
		Marker:    MarkerEvaluatorFailure,
		Reason:    "evaluator failure: functional",
		Violation: ViolationSolverFailure,
	})

	rec := synthesized.PolicyCompliance.ControlledSupersession
	assert.True(t, rec.SupersessionApproved)
	assert.Equal(t, contractstest.RuleHash, rec.Supersedes)
	assert.Equal(t, certified.PolicyCompliance.ControlledSupersession, rec)
}

func TestVerify_DetectsTampering(t *testing.T) {
	b := contractstest.ClassifyIncomeBundle()
	good, err := newCertifier().Certify(traceFor(t, b), paramsFor(b))
	require.NoError(t, err)

	cases := map[string]func(c *contracts.Certificate){
		"identity":         func(c *contracts.Certificate) { c.CertificateID = "cert-other" },
		"pass_gate":        func(c *contracts.Certificate) { c.EvidenceComplete = false },
		"evidence_chain":   func(c *contracts.Certificate) { c.EvidenceChain.RuleHash = "md5:1" },
		"solver_agreement": func(c *contracts.Certificate) { c.PolicyCompliance.CompetingSolvers.SolversAgreed = false },
		"hard_enforcement": func(c *contracts.Certificate) { c.PolicyCompliance.DisputeResolution.Enforcement = "SOFT" },
		"genesis_binding":  func(c *contracts.Certificate) { c.GovernanceBinding.GenesisHash = "sha256:00" },
		"validity_window":  func(c *contracts.Certificate) { c.ValidUntil = c.IssuedAt },
	}
	for check, mutate := range cases {
		t.Run(check, func(t *testing.T) {
			c := good.Clone()
			mutate(c)
			report := Verify(c, contractstest.Binding())
			assert.False(t, report.Verified)
			assert.Equal(t, 1, report.IssueCount)
			for _, r := range report.Checks {
				if r.Name == check {
					assert.False(t, r.Pass)
				}
			}
		})
	}

	assert.False(t, Verify(nil, contractstest.Binding()).Verified)
}
