package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

func validateStep(r *run, step contracts.BlueprintStep) stepOutput {
	var out stepOutput
	id, _ := step.Inputs["intent_id"].(string)
	if id != r.plan.IntentID {
		out.errors = append(out.errors, fmt.Sprintf("intent_id %q does not match plan intent %q", id, r.plan.IntentID))
	}
	if r.facts == nil {
		out.errors = append(out.errors, "facts missing")
	}
	out.outputs = map[string]any{
		"valid":     len(out.errors) == 0,
		"intent_id": id,
	}
	return out
}

func loadRulesStep(_ *run, step contracts.BlueprintStep) stepOutput {
	var out stepOutput
	hash, _ := step.Inputs["rule_hash"].(string)
	if !strings.HasPrefix(hash, canonicalize.HashPrefix) {
		out.errors = append(out.errors, fmt.Sprintf("rule hash %q is not content addressed", hash))
	}
	out.outputs = map[string]any{
		"rulebook_loaded": len(out.errors) == 0,
		"rule_hash":       hash,
	}
	return out
}

// evaluateStep evaluates the facts twice over independent copies; a
// mismatch marks the whole run non-deterministic.
func evaluateStep(r *run, step contracts.BlueprintStep) stepOutput {
	var out stepOutput
	action, _ := step.Inputs["requested_action"].(string)
	if action == "" {
		out.errors = append(out.errors, "requested_action missing")
	}

	first, err := evaluateFacts(contracts.CloneFacts(r.facts), action, r.contract.NoDefaults)
	if err != nil {
		out.errors = append(out.errors, err.Error())
		out.outputs = map[string]any{"evaluation_complete": false}
		return out
	}
	second, err := evaluateFacts(contracts.CloneFacts(r.facts), action, r.contract.NoDefaults)
	if err != nil {
		out.errors = append(out.errors, err.Error())
		out.outputs = map[string]any{"evaluation_complete": false}
		return out
	}
	if same, err := canonicalize.Equal(first, second); err != nil || !same {
		r.deterministic = false
		out.warnings = append(out.warnings, "evaluation did not reproduce over an identical copy of the facts")
	}

	for _, path := range first["unresolved_facts"].([]string) {
		if r.contract.NoDefaults {
			out.warnings = append(out.warnings, fmt.Sprintf("fact %s unresolved and no_defaults forbids substitution", path))
		} else {
			out.warnings = append(out.warnings, fmt.Sprintf("fact %s unresolved", path))
		}
	}

	for i, ref := range r.evidence {
		if strings.TrimSpace(ref) == "" {
			out.warnings = append(out.warnings, fmt.Sprintf("evidence_refs[%d] is empty", i))
			continue
		}
		out.evidence = append(out.evidence, ref)
	}

	out.outputs = first
	return out
}

func evaluateFacts(facts map[string]any, action string, noDefaults bool) (map[string]any, error) {
	factsHash, err := canonicalize.CanonicalHash(facts)
	if err != nil {
		return nil, fmt.Errorf("facts: %w", err)
	}
	unresolved := unresolvedPaths("", facts)
	return map[string]any{
		"evaluation_complete": len(unresolved) == 0 || !noDefaults,
		"requested_action":    action,
		"facts_hash":          factsHash,
		"fact_count":          len(facts),
		"unresolved_facts":    unresolved,
	}, nil
}

// unresolvedPaths lists the dotted paths of null-valued facts in key order.
func unresolvedPaths(prefix string, v any) []string {
	paths := []string{}
	switch t := v.(type) {
	case nil:
		if prefix != "" {
			paths = append(paths, prefix)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			paths = append(paths, unresolvedPaths(join(prefix, k), t[k])...)
		}
	case []any:
		for i, e := range t {
			paths = append(paths, unresolvedPaths(join(prefix, strconv.Itoa(i)), e)...)
		}
	}
	return paths
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func classifyStep(r *run, _ contracts.BlueprintStep) stepOutput {
	classification := contracts.OutcomePass
	switch {
	case r.failed:
		classification = contracts.OutcomeFail
	case r.unmatched:
		classification = contracts.OutcomeIndeterminate
	}
	return stepOutput{outputs: map[string]any{"classification": classification.String()}}
}

func certifyStep(_ *run, _ contracts.BlueprintStep) stepOutput {
	return stepOutput{outputs: map[string]any{"certificate_issued": true}}
}
