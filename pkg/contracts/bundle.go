package contracts

import "reflect"

// IntentType distinguishes domain evaluations from governance operations.
type IntentType string

const (
	IntentDomainEvaluation    IntentType = "DOMAIN_EVALUATION"
	IntentGovernanceOperation IntentType = "GOVERNANCE_OPERATION"
)

// Domain tags the decision area of a request.
type Domain string

const (
	DomainTax        Domain = "tax"
	DomainRegulatory Domain = "regulatory"
	DomainMonetary   Domain = "monetary"
	DomainJudicial   Domain = "judicial"
	DomainInfra      Domain = "infra"
	DomainGovernance Domain = "governance"
)

// Domains lists every accepted domain tag.
func Domains() []Domain {
	return []Domain{DomainTax, DomainRegulatory, DomainMonetary, DomainJudicial, DomainInfra, DomainGovernance}
}

// Pillar is the governance pillar a certificate is filed under.
type Pillar string

// Bundle is the canonical intent bundle: the immutable request every
// evaluator consumes. String fields use omitempty so that an empty value
// is reported as missing by the schema.
type Bundle struct {
	IntentType          IntentType          `json:"intent_type,omitempty"`
	Domain              Domain              `json:"domain,omitempty"`
	IntentID            string              `json:"intent_id,omitempty"`
	Version             string              `json:"version,omitempty"`
	CreatedAt           string              `json:"created_at,omitempty"`
	Inputs              Inputs              `json:"inputs"`
	GoverningRules      GoverningRules      `json:"governing_rules"`
	Authority           Authority           `json:"authority"`
	DeterminismContract DeterminismContract `json:"determinism_contract"`
	GovernanceBinding   *GovernanceBinding  `json:"governance_binding,omitempty"`
}

// Inputs carries the structured facts and their supporting evidence.
// A nil EvidenceRefs encodes as null and is rejected; an empty slice is
// accepted with a warning.
type Inputs struct {
	Facts           map[string]any `json:"facts"`
	EvidenceRefs    []string       `json:"evidence_refs"`
	RequestedAction string         `json:"requested_action,omitempty"`
}

// GoverningRules references a rulebook by hash. Rules are never parsed here.
type GoverningRules struct {
	RulebookID      string `json:"rulebook_id,omitempty"`
	RulebookVersion string `json:"rulebook_version,omitempty"`
	RuleHash        string `json:"rule_hash,omitempty"`
	Supersedes      string `json:"supersedes,omitempty"`
	PriorVersion    string `json:"prior_version,omitempty"`
}

type Authority struct {
	ActorID       string `json:"actor_id,omitempty"`
	ProofRef      string `json:"proof_ref,omitempty"`
	AuthorityRole string `json:"authority_role,omitempty"`
}

// DeterminismContract declares the outcome vocabulary and evidence rules.
type DeterminismContract struct {
	AllowedOutputs      []Outcome `json:"allowed_outputs"`
	NoDefaults          bool      `json:"no_defaults"`
	RequireEvidence     bool      `json:"require_evidence"`
	ByteIdenticalReplay bool      `json:"byte_identical_replay"`
}

// Allows reports whether o may be certified under this contract.
// INDETERMINATE and INVALID_INPUT are always admissible.
func (d DeterminismContract) Allows(o Outcome) bool {
	if !o.Valid() {
		return false
	}
	if o.Safe() {
		return true
	}
	for _, allowed := range d.AllowedOutputs {
		if allowed == o {
			return true
		}
	}
	return false
}

// GovernanceBinding ties an artifact to the genesis policy version.
type GovernanceBinding struct {
	GenesisHash   string `json:"genesis_hash" yaml:"genesis_hash"`
	AuthorityRole string `json:"authority_role" yaml:"authority_role"`
	PolicyVersion string `json:"policy_version" yaml:"policy_version"`
}

// Clone returns a deep copy of the bundle. Facts are copied through
// nested maps and slices so no two evaluators share working state.
// A map or slice that contains itself is not expanded; the clone keeps
// the reference and canonicalization rejects it later.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	out := *b
	out.Inputs.Facts = CloneFacts(b.Inputs.Facts)
	out.Inputs.EvidenceRefs = cloneStrings(b.Inputs.EvidenceRefs)
	if b.DeterminismContract.AllowedOutputs != nil {
		out.DeterminismContract.AllowedOutputs = append([]Outcome{}, b.DeterminismContract.AllowedOutputs...)
	}
	if b.GovernanceBinding != nil {
		binding := *b.GovernanceBinding
		out.GovernanceBinding = &binding
	}
	return &out
}

// CloneFacts deep-copies a facts map.
func CloneFacts(facts map[string]any) map[string]any {
	return cloneMap(facts, ancestry{})
}

// ancestry holds the maps and slices on the path from the root to the
// value being copied.
type ancestry map[uintptr]struct{}

func (a ancestry) enter(v any) (uintptr, bool) {
	id := reflect.ValueOf(v).Pointer()
	if _, seen := a[id]; seen {
		return id, false
	}
	a[id] = struct{}{}
	return id, true
}

func cloneMap(m map[string]any, path ancestry) map[string]any {
	if m == nil {
		return nil
	}
	id, ok := path.enter(m)
	if !ok {
		return m
	}
	defer delete(path, id)

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v, path)
	}
	return out
}

func cloneValue(v any, path ancestry) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t, path)
	case []any:
		if t == nil {
			return []any(nil)
		}
		if len(t) == 0 {
			return []any{}
		}
		id, ok := path.enter(t)
		if !ok {
			return t
		}
		defer delete(path, id)

		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e, path)
		}
		return out
	case []string:
		return cloneStrings(t)
	default:
		return v
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
