// Package governance translates governance operations into intent bundles
// and runs them through the competing-solver harness. Governance changes
// get no special authority: a proposal is certified exactly like a domain
// evaluation.
package governance

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/adapters"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/harness"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
)

// Operation names a governance operation.
type Operation string

const (
	ChangeProposal      Operation = "CHANGE_PROPOSAL"
	SupersessionRequest Operation = "SUPERSESSION_REQUEST"
	DisputeReplay       Operation = "DISPUTE_REPLAY"
	AuthorityRotation   Operation = "AUTHORITY_ROTATION"
)

const rulebookVersion = "1.0.0"

type operationSpec struct {
	prefix    string
	action    string
	proofKind string
	role      string
}

var operations = map[Operation]operationSpec{
	ChangeProposal:      {"gov-change-", "EVALUATE_CHANGE_PROPOSAL", "proposal", "proposer"},
	SupersessionRequest: {"gov-supersession-", "EVALUATE_SUPERSESSION_REQUEST", "supersession", "supersession-requester"},
	DisputeReplay:       {"gov-dispute-", "REPLAY_FOR_DISPUTE_RESOLUTION", "dispute", "disputer"},
	AuthorityRotation:   {"gov-rotation-", "EVALUATE_AUTHORITY_ROTATION", "rotation", "rotation-requester"},
}

// ChangeType classifies the artifact a proposal changes.
type ChangeType string

const (
	ChangeRulebook ChangeType = "RULEBOOK"
	ChangePolicy   ChangeType = "POLICY"
	ChangeSchema   ChangeType = "SCHEMA"
	ChangeAdapter  ChangeType = "ADAPTER"
)

// Proposal is a change proposal against a versioned artifact.
type Proposal struct {
	ProposalID        string
	ProposedBy        string
	ChangeType        ChangeType
	TargetArtifact    string
	TargetVersion     string
	ProposedChanges   map[string]any
	Justification     string
	EvidenceRefs      []string
	SupersedesVersion string
}

// Supersession asks for an artifact version to be replaced by a newer one.
// The proposed version must be strictly greater than the current one.
type Supersession struct {
	RequestID          string
	RequestedBy        string
	ArtifactID         string
	CurrentVersion     string
	ProposedVersion    string
	Reason             string
	BackwardCompatible bool
	MigrationPath      string
	EvidenceRefs       []string
}

// Dispute asks for a certificate to be re-derived by replay.
type Dispute struct {
	DisputeID             string
	DisputedCertificateID string
	DisputedBy            string
	OriginalIntentID      string
	Reason                string
	EvidenceRefs          []string
}

// Rotation proposes replacing the actor holding an authority role.
type Rotation struct {
	RotationID        string
	RequestedBy       string
	Role              string
	CurrentAuthority  string
	ProposedAuthority string
	EffectiveVersion  string
	Reason            string
	EvidenceRefs      []string
}

// Adapter builds governance bundles and certifies them.
type Adapter struct {
	cfg  solver.Config
	opts []harness.Option
}

// New returns an adapter running the default evaluator set under cfg.
func New(cfg solver.Config, opts ...harness.Option) *Adapter {
	return &Adapter{cfg: cfg, opts: opts}
}

func (a *Adapter) bundle(op Operation, id, rulebook, actor string, facts map[string]any, refs []string) *contracts.Bundle {
	spec := operations[op]
	intentID := spec.prefix + id
	facts["operation_type"] = string(op)
	return &contracts.Bundle{
		IntentType: contracts.IntentGovernanceOperation,
		Domain:     contracts.DomainGovernance,
		IntentID:   intentID,
		Version:    adapters.BundleVersion,
		Inputs: contracts.Inputs{
			Facts:           facts,
			EvidenceRefs:    adapters.EvidenceRefs(refs),
			RequestedAction: spec.action,
		},
		GoverningRules: contracts.GoverningRules{
			RulebookID:      rulebook,
			RulebookVersion: rulebookVersion,
			RuleHash:        adapters.RuleHash(rulebook, rulebookVersion),
		},
		Authority: contracts.Authority{
			ActorID:       actor,
			ProofRef:      adapters.ProofRef(spec.proofKind, intentID),
			AuthorityRole: spec.role,
		},
		DeterminismContract: adapters.DeterminismContract(),
		GovernanceBinding:   adapters.Binding(a.cfg.Binding),
	}
}

// ProposalBundle converts a change proposal.
func (a *Adapter) ProposalBundle(p Proposal) *contracts.Bundle {
	facts := map[string]any{
		"proposal_id":      p.ProposalID,
		"proposed_by":      p.ProposedBy,
		"change_type":      string(p.ChangeType),
		"target_artifact":  p.TargetArtifact,
		"target_version":   p.TargetVersion,
		"proposed_changes": contracts.CloneFacts(p.ProposedChanges),
		"justification":    p.Justification,
	}
	if p.SupersedesVersion != "" {
		facts["supersedes_version"] = p.SupersedesVersion
	}
	return a.bundle(ChangeProposal, p.ProposalID, "governance-operations-rulebook", p.ProposedBy, facts, p.EvidenceRefs)
}

// SupersessionBundle converts a supersession request. The governing rules
// name the artifact's proposed version and supersede its current one, so
// a request that does not move forward is refused by the certifier.
func (a *Adapter) SupersessionBundle(s Supersession) (*contracts.Bundle, error) {
	if _, err := semver.StrictNewVersion(s.CurrentVersion); err != nil {
		return nil, fmt.Errorf("current version %q: %w", s.CurrentVersion, err)
	}
	if _, err := semver.StrictNewVersion(s.ProposedVersion); err != nil {
		return nil, fmt.Errorf("proposed version %q: %w", s.ProposedVersion, err)
	}

	facts := map[string]any{
		"request_id":          s.RequestID,
		"requested_by":        s.RequestedBy,
		"artifact_id":         s.ArtifactID,
		"current_version":     s.CurrentVersion,
		"proposed_version":    s.ProposedVersion,
		"supersession_reason": s.Reason,
		"backward_compatible": s.BackwardCompatible,
		"version_locked":      true,
		"append_only":         true,
		"no_mutation":         true,
	}
	if s.MigrationPath != "" {
		facts["migration_path"] = s.MigrationPath
	}
	b := a.bundle(SupersessionRequest, s.RequestID, s.ArtifactID, s.RequestedBy, facts, s.EvidenceRefs)
	b.GoverningRules.RulebookVersion = s.ProposedVersion
	b.GoverningRules.RuleHash = adapters.RuleHash(s.ArtifactID, s.ProposedVersion)
	b.GoverningRules.Supersedes = adapters.RuleHash(s.ArtifactID, s.CurrentVersion)
	b.GoverningRules.PriorVersion = s.CurrentVersion
	return b, nil
}

// DisputeBundle converts a dispute. Disputes resolve by replay only.
func (a *Adapter) DisputeBundle(d Dispute) *contracts.Bundle {
	facts := map[string]any{
		"dispute_id":              d.DisputeID,
		"disputed_certificate_id": d.DisputedCertificateID,
		"disputed_by":             d.DisputedBy,
		"original_intent_id":      d.OriginalIntentID,
		"dispute_reason":          d.Reason,
		"resolution_method":       "REPLAY_ONLY",
		"no_narrative_resolution": true,
		"outcomes_allowed":        outcomeNames(),
	}
	return a.bundle(DisputeReplay, d.DisputeID, "dispute-resolution-rulebook", d.DisputedBy, facts, d.EvidenceRefs)
}

// RotationBundle converts an authority rotation.
func (a *Adapter) RotationBundle(r Rotation) *contracts.Bundle {
	facts := map[string]any{
		"rotation_id":          r.RotationID,
		"requested_by":         r.RequestedBy,
		"role":                 r.Role,
		"current_authority":    r.CurrentAuthority,
		"proposed_authority":   r.ProposedAuthority,
		"effective_version":    r.EffectiveVersion,
		"rotation_reason":      r.Reason,
		"no_single_authority":  true,
		"distributed_approval": true,
	}
	return a.bundle(AuthorityRotation, r.RotationID, "decentralized-operations-rulebook", r.RequestedBy, facts, r.EvidenceRefs)
}

func (a *Adapter) run(ctx context.Context, b *contracts.Bundle) (*contracts.HarnessResult, error) {
	return harness.RunCompetingSolvers(ctx, a.cfg, b, a.opts...)
}

func (a *Adapter) ProcessChangeProposal(ctx context.Context, p Proposal) (*contracts.HarnessResult, error) {
	return a.run(ctx, a.ProposalBundle(p))
}

func (a *Adapter) ProcessSupersessionRequest(ctx context.Context, s Supersession) (*contracts.HarnessResult, error) {
	b, err := a.SupersessionBundle(s)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, b)
}

func (a *Adapter) ProcessDisputeReplay(ctx context.Context, d Dispute) (*contracts.HarnessResult, error) {
	return a.run(ctx, a.DisputeBundle(d))
}

func (a *Adapter) ProcessAuthorityRotation(ctx context.Context, r Rotation) (*contracts.HarnessResult, error) {
	return a.run(ctx, a.RotationBundle(r))
}

func outcomeNames() []any {
	outcomes := contracts.Outcomes()
	names := make([]any, len(outcomes))
	for i, o := range outcomes {
		names[i] = o.String()
	}
	return names
}
