// Package certifier turns an execution trace and a consensus flag into a
// Certificate.
//
// The decision order is fixed: agreement, determinism and evidence gates
// are checked before the domain result, so a domain outcome can never
// mask a process failure.
package certifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/executor"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/planner"
)

const (
	CertificateVersion      = "1.0.0"
	DefaultIssuingAuthority = "nofate-competing-solvers"
	DefaultValidity         = 365 * 24 * time.Hour
)

// Outcome reasons for the process gates.
const (
	ReasonDivergence           = "solver divergence"
	ReasonNonDeterministic     = "non-deterministic execution"
	ReasonInsufficientEvidence = "insufficient evidence"
)

// Evidence chain markers used when no single trace backs a certificate.
const (
	MarkerDivergence       = "divergence-detected"
	MarkerEvaluatorFailure = "evaluator-failure"
)

// Certifier issues certificates under one governance binding.
type Certifier struct {
	binding   contracts.GovernanceBinding
	authority string
	validity  time.Duration
	clock     func() time.Time
}

// Option configures a Certifier.
type Option func(*Certifier)

// WithClock overrides the clock used for issued_at.
func WithClock(clock func() time.Time) Option {
	return func(c *Certifier) { c.clock = clock }
}

// WithIssuingAuthority sets the issuing_authority field.
func WithIssuingAuthority(name string) Option {
	return func(c *Certifier) {
		if name != "" {
			c.authority = name
		}
	}
}

// WithValidity sets how long certificates remain valid.
func WithValidity(d time.Duration) Option {
	return func(c *Certifier) { c.validity = d }
}

// New creates a Certifier bound to binding.
func New(binding contracts.GovernanceBinding, opts ...Option) *Certifier {
	c := &Certifier{
		binding:   binding,
		authority: DefaultIssuingAuthority,
		validity:  DefaultValidity,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params carries everything besides the trace that a certificate records.
type Params struct {
	Domain             contracts.Domain
	Pillar             contracts.Pillar
	RequestedAction    string
	SolversAgreed      bool
	RulebookVersion    string
	RuleHash           string
	Supersedes         string
	PriorVersion       string
	AuthorityProofRefs []string
	Contract           contracts.DeterminismContract
}

// CertificateID derives the certificate identifier for an intent.
func CertificateID(intentID string) string {
	return "cert-" + intentID
}

// PillarFor maps a domain onto its governance pillar.
func PillarFor(d contracts.Domain) contracts.Pillar {
	if d == contracts.DomainTax {
		return contracts.Pillar(contracts.DomainRegulatory)
	}
	return contracts.Pillar(d)
}

// Decide applies the decision order to a trace.
func Decide(audit *contracts.Audit, solversAgreed bool) (contracts.Outcome, string) {
	switch {
	case !solversAgreed:
		return contracts.OutcomeIndeterminate, ReasonDivergence
	case !audit.Deterministic:
		return contracts.OutcomeIndeterminate, ReasonNonDeterministic
	case !audit.EvidenceComplete:
		return contracts.OutcomeIndeterminate, ReasonInsufficientEvidence
	case audit.ExecutionStatus == contracts.ExecutionFailure:
		return contracts.OutcomeFail, "execution failed: " + strings.Join(audit.ExecutionErrors, "; ")
	case audit.ExecutionStatus == contracts.ExecutionIndeterminate:
		return contracts.OutcomeIndeterminate, "execution indeterminate: " + strings.Join(unmatchedSteps(audit), ", ")
	default:
		return contracts.OutcomePass, "all steps matched expected outputs"
	}
}

// Certify issues the certificate for a completed trace.
func (c *Certifier) Certify(audit *contracts.Audit, p Params) (*contracts.Certificate, error) {
	if audit == nil {
		return nil, fmt.Errorf("certify: nil audit")
	}
	outcome, reason := Decide(audit, p.SolversAgreed)

	cert := c.base(audit.IntentID)
	cert.BlueprintID = audit.BlueprintID
	cert.AuditID = audit.AuditID
	cert.Domain = p.Domain
	cert.Pillar = p.Pillar
	cert.RequestedAction = p.RequestedAction
	cert.Outcome = outcome
	cert.OutcomeReason = reason
	cert.EvidenceChain = contracts.EvidenceLink{
		BlueprintID:     audit.BlueprintID,
		AuditID:         audit.AuditID,
		AuditReplayHash: audit.ReplayHash,
		RuleHash:        p.RuleHash,
	}
	cert.EvidenceChains = evidenceChains(audit)
	cert.EvidenceComplete = audit.EvidenceComplete
	cert.Deterministic = audit.Deterministic
	cert.PolicyCompliance = policyCompliance(
		competingSolvers(c.binding, p.SolversAgreed, nil, ""),
		disputeResolution(c.binding, audit.Deterministic, audit.ReplayHash, p.Contract.Allows(outcome)),
		controlledSupersession(c.binding, p),
		decentralizedOperations(c.binding, p.SolversAgreed, p.AuthorityProofRefs),
	)
	return cert, nil
}

// Reject issues the INVALID_INPUT certificate for a bundle that failed
// validation. Its replay hash covers the intent id and the sorted errors,
// so evaluators agree on a rejection only when they found the same defects.
func (c *Certifier) Reject(b *contracts.Bundle, validationErrors []string) (*contracts.Certificate, error) {
	if b == nil {
		b = &contracts.Bundle{}
	}
	errs := append([]string(nil), validationErrors...)
	sort.Strings(errs)
	hash, err := canonicalize.CanonicalHash(map[string]any{
		"intent_id": b.IntentID,
		"errors":    errs,
	})
	if err != nil {
		return nil, fmt.Errorf("reject: %w", err)
	}

	cert := c.base(b.IntentID)
	cert.Domain = b.Domain
	cert.Pillar = PillarFor(b.Domain)
	cert.RequestedAction = b.Inputs.RequestedAction
	cert.Outcome = contracts.OutcomeInvalidInput
	cert.OutcomeReason = "invalid input: " + strings.Join(errs, "; ")
	cert.EvidenceChain = contracts.EvidenceLink{
		AuditReplayHash: hash,
		RuleHash:        b.GoverningRules.RuleHash,
	}
	cert.Deterministic = true
	cert.PolicyCompliance = policyCompliance(
		competingSolvers(c.binding, true, nil, ""),
		disputeResolution(c.binding, true, hash, true),
		controlledSupersession(c.binding, Params{RulebookVersion: b.GoverningRules.RulebookVersion, RuleHash: b.GoverningRules.RuleHash}),
		decentralizedOperations(c.binding, true, proofRefs(b)),
	)
	return cert, nil
}

// Synthesis describes a certificate manufactured without a trusted trace.
type Synthesis struct {
	Marker      string
	Reason      string
	Violation   string
	Divergences []string
}

// Synthesize builds an INDETERMINATE certificate from the request alone.
// It never copies any evaluator's certificate.
func (c *Certifier) Synthesize(b *contracts.Bundle, s Synthesis) *contracts.Certificate {
	cert := c.base(b.IntentID)
	cert.BlueprintID = planner.BlueprintID(b.IntentID)
	cert.AuditID = executor.AuditID(b.IntentID)
	cert.Domain = b.Domain
	cert.Pillar = PillarFor(b.Domain)
	cert.RequestedAction = b.Inputs.RequestedAction
	cert.Outcome = contracts.OutcomeIndeterminate
	cert.OutcomeReason = s.Reason
	cert.EvidenceChain = contracts.EvidenceLink{
		BlueprintID:     cert.BlueprintID,
		AuditID:         cert.AuditID,
		AuditReplayHash: s.Marker,
		RuleHash:        b.GoverningRules.RuleHash,
	}
	cert.PolicyCompliance = policyCompliance(
		competingSolvers(c.binding, false, s.Divergences, s.Violation),
		disputeResolution(c.binding, false, s.Marker, true),
		controlledSupersession(c.binding, Params{
			RulebookVersion: b.GoverningRules.RulebookVersion,
			RuleHash:        b.GoverningRules.RuleHash,
			Supersedes:      b.GoverningRules.Supersedes,
			PriorVersion:    b.GoverningRules.PriorVersion,
		}),
		decentralizedOperations(c.binding, true, proofRefs(b)),
	)
	return cert
}

func (c *Certifier) base(intentID string) *contracts.Certificate {
	now := c.clock().UTC()
	return &contracts.Certificate{
		CertificateID:      CertificateID(intentID),
		CertificateVersion: CertificateVersion,
		IssuedAt:           now,
		ValidUntil:         now.Add(c.validity),
		IntentID:           intentID,
		EvidenceChains:     []contracts.EvidenceChain{},
		IssuingAuthority:   c.authority,
		GovernanceBinding:  c.binding,
	}
}

func evidenceChains(audit *contracts.Audit) []contracts.EvidenceChain {
	confidence := contracts.ConfidenceUnverified
	if audit.Deterministic {
		confidence = contracts.ConfidenceDeterministic
	}
	chains := []contracts.EvidenceChain{}
	for _, step := range audit.StepResults {
		if len(step.EvidenceCollected) == 0 {
			continue
		}
		chains = append(chains, contracts.EvidenceChain{
			Claim:        step.StepID,
			EvidenceRefs: append([]string{}, step.EvidenceCollected...),
			Confidence:   confidence,
			Reasoning:    fmt.Sprintf("%d evidence reference(s) collected during %s", len(step.EvidenceCollected), step.StepType),
		})
	}
	return chains
}

func unmatchedSteps(audit *contracts.Audit) []string {
	var ids []string
	for _, s := range audit.StepResults {
		if !s.MatchedExpected {
			ids = append(ids, s.StepID)
		}
	}
	return ids
}

func proofRefs(b *contracts.Bundle) []string {
	if b.Authority.ProofRef == "" {
		return nil
	}
	return []string{b.Authority.ProofRef}
}
