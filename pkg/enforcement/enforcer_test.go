package enforcement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/certifier"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts/contractstest"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/executor"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/planner"
)

func newEnforcer(t *testing.T, opts ...Option) *Enforcer {
	t.Helper()
	opts = append([]Option{WithClock(contractstest.Clock())}, opts...)
	e, err := New(contractstest.Binding(), opts...)
	require.NoError(t, err)
	return e
}

// passResult is a consensus PASS over the income classification request.
func passResult(t *testing.T) *contracts.HarnessResult {
	t.Helper()
	b := contractstest.ClassifyIncomeBundle()
	plan := planner.Plan(b.IntentID, b.Inputs.RequestedAction, b.GoverningRules.RuleHash)
	audit, err := executor.New().Execute(plan, b.Inputs, b.DeterminismContract)
	require.NoError(t, err)

	cert, err := certifier.New(contractstest.Binding(), certifier.WithClock(contractstest.Clock())).Certify(audit, certifier.Params{
		Domain:             b.Domain,
		Pillar:             certifier.PillarFor(b.Domain),
		RequestedAction:    b.Inputs.RequestedAction,
		SolversAgreed:      true,
		RulebookVersion:    b.GoverningRules.RulebookVersion,
		RuleHash:           b.GoverningRules.RuleHash,
		AuthorityProofRefs: []string{b.Authority.ProofRef},
		Contract:           b.DeterminismContract,
	})
	require.NoError(t, err)
	require.Equal(t, contracts.OutcomePass, cert.Outcome)

	return &contracts.HarnessResult{
		IntentID:      b.IntentID,
		Success:       true,
		Consensus:     true,
		Outcome:       contracts.OutcomePass,
		Certificate:   cert,
		SolverResults: make([]contracts.SolverResult, 4),
		Divergences:   []contracts.Divergence{},
	}
}

func violationTypes(r *contracts.EnforcementReport, sev contracts.Severity) []string {
	var out []string
	for _, v := range r.Violations {
		if v.Severity == sev {
			out = append(out, v.ViolationType)
		}
	}
	return out
}

func TestEnforceAll_ConsensusPassIsCompliant(t *testing.T) {
	report := newEnforcer(t).EnforceAll(passResult(t))

	assert.True(t, report.Compliant)
	assert.False(t, report.Overrides())
	assert.Empty(t, report.Critical())
	assert.Equal(t, []string{ViolationDecentralizationIncomplete}, violationTypes(report, contracts.SeverityWarning))
	assert.Empty(t, report.EnforcementActions)
	assert.Equal(t, contractstest.Now, report.Violations[0].DetectedAt)
}

func TestEnforceAll_OverridePrecedence(t *testing.T) {
	res := passResult(t)
	res.Certificate.PolicyCompliance.CompetingSolvers.SolversAgreed = false

	report := newEnforcer(t).EnforceAll(res)

	assert.False(t, report.Compliant)
	assert.True(t, report.Overrides())
	assert.Equal(t, contracts.OutcomeIndeterminate, report.OutcomeOverride)
	assert.Contains(t, violationTypes(report, contracts.SeverityCritical), ViolationDisagreementNotIndeterminate)
	assert.Contains(t, violationTypes(report, contracts.SeverityCritical), ViolationConsensusMismatch)
	require.Len(t, report.EnforcementActions, 1)
}

func TestEnforceAll_CriticalRules(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(r *contracts.HarnessResult)
		policy    contracts.PolicyName
		violation string
	}{
		{"insufficient solvers", func(r *contracts.HarnessResult) {
			r.SolverResults = r.SolverResults[:3]
		}, contracts.PolicyCompetingSolvers, ViolationInsufficientSolvers},
		{"divergence not handled", func(r *contracts.HarnessResult) {
			r.Divergences = append(r.Divergences, contracts.Divergence{Field: "outcome", Severity: contracts.SeverityCritical})
		}, contracts.PolicyCompetingSolvers, ViolationDivergenceNotHandled},
		{"failure not handled", func(r *contracts.HarnessResult) {
			r.Consensus = false
		}, contracts.PolicyCompetingSolvers, ViolationDivergenceNotHandled},
		{"soft enforcement", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.ControlledSupersession.Enforcement = "SOFT"
		}, contracts.PolicyControlledSupersession, ViolationEnforcementNotHard},
		{"outcome mismatch", func(r *contracts.HarnessResult) {
			r.Outcome = contracts.OutcomeFail
		}, contracts.PolicyDisputeResolution, ViolationOutcomeMismatch},
		{"outcome not restricted", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.DisputeResolution.AllowedOutcomesOnly = false
		}, contracts.PolicyDisputeResolution, ViolationOutcomesNotRestricted},
		{"pass without evidence", func(r *contracts.HarnessResult) {
			r.Certificate.EvidenceComplete = false
		}, contracts.PolicyDisputeResolution, ViolationPassWithoutEvidence},
		{"unknown harness outcome", func(r *contracts.HarnessResult) {
			r.Outcome = contracts.OutcomeUnknown
		}, contracts.PolicyDisputeResolution, ViolationInvalidOutcome},
		{"unreadable certificate", func(r *contracts.HarnessResult) {
			r.Certificate.Outcome = contracts.OutcomeUnknown
		}, contracts.PolicyDisputeResolution, ViolationInvalidOutcome},
		{"not append only", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.ControlledSupersession.AppendOnly = false
		}, contracts.PolicyControlledSupersession, ViolationNotAppendOnly},
		{"supersession without prior version", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.ControlledSupersession.SupersessionApproved = true
		}, contracts.PolicyControlledSupersession, ViolationMissingSupersessionMetadata},
		{"not distributed", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.DecentralizedOperations.DistributedVerification = false
		}, contracts.PolicyDecentralizedOperations, ViolationNotDistributed},
		{"single authority", func(r *contracts.HarnessResult) {
			r.Certificate.PolicyCompliance.DecentralizedOperations.NoSingleAuthority = false
		}, contracts.PolicyDecentralizedOperations, ViolationSingleAuthority},
		{"foreign genesis", func(r *contracts.HarnessResult) {
			r.Certificate.GovernanceBinding.GenesisHash = "sha256:" + "00000000000000000000000000000000000000000000000000000000000000ff"
		}, contracts.PolicyDecentralizedOperations, ViolationInvalidGenesisHash},
	}

	e := newEnforcer(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := passResult(t)
			tc.mutate(res)

			report := e.EnforceAll(res)

			assert.False(t, report.Compliant)
			assert.Equal(t, contracts.OutcomeIndeterminate, report.OutcomeOverride)
			found := false
			for _, v := range report.Critical() {
				if v.Policy == tc.policy && v.ViolationType == tc.violation {
					found = true
				}
			}
			assert.True(t, found, "expected %s/%s in %+v", tc.policy, tc.violation, report.Violations)
		})
	}
}

func TestEnforceAll_SupersessionWithMetadataIsCompliant(t *testing.T) {
	res := passResult(t)
	rec := &res.Certificate.PolicyCompliance.ControlledSupersession
	rec.SupersessionApproved = true
	rec.Supersedes = contractstest.RuleHash
	rec.PriorVersion = "0.9.0"

	report := newEnforcer(t).EnforceAll(res)
	assert.True(t, report.Compliant, "%+v", report.Violations)
}

func TestEnforceAll_IndeterminateDivergenceIsCompliant(t *testing.T) {
	res := passResult(t)
	b := contractstest.ClassifyIncomeBundle()
	res.Certificate = certifier.New(contractstest.Binding(), certifier.WithClock(contractstest.Clock())).
		Synthesize(b, certifier.Synthesis{Marker: certifier.MarkerDivergence, Reason: "solver divergence", Divergences: []string{"outcome"}})
	res.Consensus = false
	res.Success = true
	res.Outcome = contracts.OutcomeIndeterminate
	res.Divergences = []contracts.Divergence{{Field: "outcome", Severity: contracts.SeverityCritical}}

	report := newEnforcer(t).EnforceAll(res)
	assert.True(t, report.Compliant, "%+v", report.Violations)
}

func TestEnforceAll_MissingCertificate(t *testing.T) {
	e := newEnforcer(t)
	for _, res := range []*contracts.HarnessResult{nil, {Outcome: contracts.OutcomePass}} {
		report := e.EnforceAll(res)
		assert.Equal(t, []string{ViolationMissingCertificate}, violationTypes(report, contracts.SeverityCritical))
		assert.True(t, report.Overrides())
	}
}

func TestWithMinSolvers(t *testing.T) {
	t.Run("raised quorum", func(t *testing.T) {
		report := newEnforcer(t, WithMinSolvers(5)).EnforceAll(passResult(t))
		assert.Equal(t, []string{ViolationInsufficientSolvers}, violationTypes(report, contracts.SeverityCritical))
	})
	t.Run("cannot go below four", func(t *testing.T) {
		res := passResult(t)
		res.SolverResults = res.SolverResults[:2]

		report := newEnforcer(t, WithMinSolvers(2)).EnforceAll(res)
		assert.False(t, report.Compliant)
		assert.Contains(t, violationTypes(report, contracts.SeverityCritical), ViolationInsufficientSolvers)
	})
	t.Run("four is enough", func(t *testing.T) {
		report := newEnforcer(t, WithMinSolvers(0)).EnforceAll(passResult(t))
		assert.True(t, report.Compliant)
	})
}

func TestVerifyGenesisBinding(t *testing.T) {
	require.NoError(t, VerifyGenesisBinding(contractstest.Binding()))

	bad := contractstest.Binding()
	bad.GenesisHash = "sha256:XYZ"
	assert.ErrorIs(t, VerifyGenesisBinding(bad), ErrInvalidBinding)

	noRole := contractstest.Binding()
	noRole.AuthorityRole = ""
	assert.ErrorIs(t, VerifyGenesisBinding(noRole), ErrInvalidBinding)

	noVersion := contractstest.Binding()
	noVersion.PolicyVersion = ""
	assert.ErrorIs(t, VerifyGenesisBinding(noVersion), ErrInvalidBinding)
}
