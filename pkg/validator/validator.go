// Package validator performs the structural check on incoming intent
// bundles. A bundle that fails here is INVALID_INPUT and never reaches the
// planner.
package validator

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

const schemaURL = "https://schemas.nofate.dev/intent_bundle.schema.json"

//go:embed schemas/intent_bundle.schema.json
var bundleSchema string

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Result is the validator's verdict. Errors and warnings are sorted so that
// every evaluator reports them identically.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(bundleSchema)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks presence and type of every required field of b and
// collects every defect rather than stopping at the first.
func Validate(b *contracts.Bundle) Result {
	if b == nil {
		return finish([]string{"bundle: missing"}, nil)
	}
	generic, err := canonicalize.ToGeneric(b)
	if err != nil {
		return finish([]string{fmt.Sprintf("bundle: not serializable: %v", err)}, nil)
	}

	errs := validateGeneric(generic)
	errs = append(errs, checkVersions(b)...)
	return finish(errs, warnings(b))
}

// ValidateJSON validates raw bundle JSON and, when it is well formed,
// returns the decoded bundle.
func ValidateJSON(data []byte) (Result, *contracts.Bundle) {
	generic, err := canonicalize.DecodeGeneric(data)
	if err != nil {
		return finish([]string{fmt.Sprintf("bundle: invalid JSON: %v", err)}, nil), nil
	}
	if errs := validateGeneric(generic); len(errs) > 0 {
		return finish(errs, nil), nil
	}

	var b contracts.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return finish([]string{fmt.Sprintf("bundle: %v", err)}, nil), nil
	}
	return Validate(&b), &b
}

func validateGeneric(v any) []string {
	s, err := schema()
	if err != nil {
		return []string{fmt.Sprintf("bundle: schema unavailable: %v", err)}
	}
	err = s.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("bundle: %v", err)}
	}
	var out []string
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("%s: %s", fieldPath(ve.InstanceLocation), ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

func fieldPath(instanceLocation string) string {
	p := strings.Trim(instanceLocation, "/")
	if p == "" {
		return "bundle"
	}
	return strings.ReplaceAll(p, "/", ".")
}

func checkVersions(b *contracts.Bundle) []string {
	var errs []string
	if v := b.GoverningRules.RulebookVersion; v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			errs = append(errs, fmt.Sprintf("governing_rules.rulebook_version: %q is not a semantic version", v))
		}
	}
	if v := b.GoverningRules.PriorVersion; v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			errs = append(errs, fmt.Sprintf("governing_rules.prior_version: %q is not a semantic version", v))
		}
	}
	return errs
}

func warnings(b *contracts.Bundle) []string {
	var w []string
	if b.Inputs.EvidenceRefs != nil && len(b.Inputs.EvidenceRefs) == 0 {
		w = append(w, "inputs.evidence_refs: empty, evidence-gated outcomes will be INDETERMINATE")
	}
	identifiers := map[string]string{
		"intent_id":                   b.IntentID,
		"inputs.requested_action":     b.Inputs.RequestedAction,
		"authority.actor_id":          b.Authority.ActorID,
		"governing_rules.rulebook_id": b.GoverningRules.RulebookID,
	}
	for field, value := range identifiers {
		if value != "" && !norm.NFC.IsNormalString(value) {
			w = append(w, fmt.Sprintf("%s: not in Unicode NFC form", field))
		}
	}
	return w
}

func finish(errs, warns []string) Result {
	errs = sortedUnique(errs)
	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: sortedUnique(warns),
	}
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
