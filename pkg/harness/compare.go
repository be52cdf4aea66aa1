package harness

import (
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// comparedField extracts the canonical value of one compared certificate
// field.
type comparedField struct {
	name    string
	extract func(c *contracts.Certificate) string
}

// The compared field set. Clock-derived fields and free-text reasons are
// deliberately absent.
var comparedFields = []comparedField{
	{"outcome", func(c *contracts.Certificate) string { return c.Outcome.String() }},
	{"intent_id", func(c *contracts.Certificate) string { return c.IntentID }},
	{"audit_replay_hash", func(c *contracts.Certificate) string { return c.EvidenceChain.AuditReplayHash }},
	{"rule_hash", func(c *contracts.Certificate) string { return c.EvidenceChain.RuleHash }},
	{"policy_compliance", func(c *contracts.Certificate) string {
		h, err := canonicalize.CanonicalHash(c.PolicyCompliance)
		if err != nil {
			return "unhashable: " + err.Error()
		}
		return h
	}},
}

// compare checks every certificate against the first. A field that differs
// for any evaluator yields one CRITICAL divergence carrying every
// evaluator's value.
func compare(ids []string, certs []*contracts.Certificate) []contracts.Divergence {
	divergences := []contracts.Divergence{}
	if len(certs) < 2 {
		return divergences
	}
	for _, f := range comparedFields {
		values := make(map[string]any, len(certs))
		ref := f.extract(certs[0])
		diverged := false
		for i, c := range certs {
			v := f.extract(c)
			values[ids[i]] = v
			if v != ref {
				diverged = true
			}
		}
		if diverged {
			divergences = append(divergences, contracts.Divergence{
				Field:    f.name,
				Values:   values,
				Severity: contracts.SeverityCritical,
			})
		}
	}
	return divergences
}
