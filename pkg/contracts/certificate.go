package contracts

import "time"

// Certificate is the terminal artifact of an evaluation.
type Certificate struct {
	CertificateID      string            `json:"certificate_id"`
	CertificateVersion string            `json:"certificate_version"`
	IssuedAt           time.Time         `json:"issued_at"`
	ValidUntil         time.Time         `json:"valid_until"`
	IntentID           string            `json:"intent_id"`
	BlueprintID        string            `json:"blueprint_id,omitempty"`
	AuditID            string            `json:"audit_id,omitempty"`
	Domain             Domain            `json:"domain,omitempty"`
	Pillar             Pillar            `json:"pillar,omitempty"`
	RequestedAction    string            `json:"requested_action,omitempty"`
	Outcome            Outcome           `json:"outcome"`
	OutcomeReason      string            `json:"outcome_reason"`
	EvidenceChain      EvidenceLink      `json:"evidence_chain"`
	EvidenceChains     []EvidenceChain   `json:"evidence_chains"`
	EvidenceComplete   bool              `json:"evidence_complete"`
	Deterministic      bool              `json:"deterministic"`
	PolicyCompliance   PolicyCompliance  `json:"policy_compliance"`
	IssuingAuthority   string            `json:"issuing_authority"`
	GovernanceBinding  GovernanceBinding `json:"governance_binding"`
}

// EvidenceLink binds a certificate to the plan, trace and rulebook it was derived from.
type EvidenceLink struct {
	BlueprintID     string `json:"blueprint_id"`
	AuditID         string `json:"audit_id"`
	AuditReplayHash string `json:"audit_replay_hash"`
	RuleHash        string `json:"rule_hash"`
}

// EvidenceChain links a claim to its evidence.
type EvidenceChain struct {
	Claim        string   `json:"claim"`
	EvidenceRefs []string `json:"evidence_refs"`
	Confidence   string   `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

// Evidence confidence levels.
const (
	ConfidenceDeterministic = "DETERMINISTIC"
	ConfidenceUnverified    = "UNVERIFIED"
)

// PolicyCompliance is the per-policy compliance record. It is compared
// across evaluators as a single canonical subtree.
type PolicyCompliance struct {
	CompetingSolvers        CompetingSolversRecord        `json:"competing_solvers"`
	DisputeResolution       DisputeResolutionRecord       `json:"dispute_resolution"`
	ControlledSupersession  ControlledSupersessionRecord  `json:"controlled_supersession"`
	DecentralizedOperations DecentralizedOperationsRecord `json:"decentralized_operations"`
	AllPoliciesCompliant    bool                          `json:"all_policies_compliant"`
}

type CompetingSolversRecord struct {
	PolicyVersion   string   `json:"policy_version"`
	SolversAgreed   bool     `json:"solvers_agreed"`
	Divergences     []string `json:"divergences"`
	Enforcement     string   `json:"enforcement"`
	Violations      []string `json:"violations"`
	PolicyCompliant bool     `json:"policy_compliant"`
}

type DisputeResolutionRecord struct {
	PolicyVersion       string   `json:"policy_version"`
	ReplayVerified      bool     `json:"replay_verified"`
	ReplayHash          string   `json:"replay_hash"`
	AllowedOutcomesOnly bool     `json:"allowed_outcomes_only"`
	Enforcement         string   `json:"enforcement"`
	Violations          []string `json:"violations"`
	PolicyCompliant     bool     `json:"policy_compliant"`
}

type ControlledSupersessionRecord struct {
	PolicyVersion        string   `json:"policy_version"`
	RulebookVersion      string   `json:"rulebook_version"`
	RulebookHash         string   `json:"rulebook_hash"`
	AppendOnly           bool     `json:"append_only"`
	SupersessionApproved bool     `json:"supersession_approved"`
	Supersedes           string   `json:"supersedes,omitempty"`
	PriorVersion         string   `json:"prior_version,omitempty"`
	Enforcement          string   `json:"enforcement"`
	Violations           []string `json:"violations"`
	PolicyCompliant      bool     `json:"policy_compliant"`
}

// DecentralizedOperationsRecord is known to be incomplete: PolicyCompliant
// is never set, so every certificate carries a DECENTRALIZATION_INCOMPLETE
// marker and the enforcer reports it as a warning.
type DecentralizedOperationsRecord struct {
	PolicyVersion           string   `json:"policy_version"`
	DistributedVerification bool     `json:"distributed_verification"`
	NoSingleAuthority       bool     `json:"no_single_authority"`
	AuthorityProofRefs      []string `json:"authority_proof_refs"`
	Enforcement             string   `json:"enforcement"`
	Violations              []string `json:"violations"`
	PolicyCompliant         bool     `json:"policy_compliant"`
}

// Comparable returns a copy with the clock-derived fields cleared. Two
// runs of the same request produce byte-identical comparable projections.
func (c *Certificate) Comparable() *Certificate {
	out := c.Clone()
	out.IssuedAt = time.Time{}
	out.ValidUntil = time.Time{}
	return out
}

// Clone returns a deep copy.
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	out := *c
	if c.EvidenceChains != nil {
		out.EvidenceChains = make([]EvidenceChain, len(c.EvidenceChains))
		for i, ch := range c.EvidenceChains {
			ch.EvidenceRefs = cloneStrings(ch.EvidenceRefs)
			out.EvidenceChains[i] = ch
		}
	}
	pc := &out.PolicyCompliance
	pc.CompetingSolvers.Divergences = cloneStrings(c.PolicyCompliance.CompetingSolvers.Divergences)
	pc.CompetingSolvers.Violations = cloneStrings(c.PolicyCompliance.CompetingSolvers.Violations)
	pc.DisputeResolution.Violations = cloneStrings(c.PolicyCompliance.DisputeResolution.Violations)
	pc.ControlledSupersession.Violations = cloneStrings(c.PolicyCompliance.ControlledSupersession.Violations)
	pc.DecentralizedOperations.AuthorityProofRefs = cloneStrings(c.PolicyCompliance.DecentralizedOperations.AuthorityProofRefs)
	pc.DecentralizedOperations.Violations = cloneStrings(c.PolicyCompliance.DecentralizedOperations.Violations)
	return &out
}
