// Package replay re-derives a certificate from its request and checks that
// the result is byte-identical once clock-derived fields are set aside.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// ErrNoCertificate is returned when there is nothing to compare against.
var ErrNoCertificate = errors.New("no certificate to replay")

// Runner produces a harness result for a request. *harness.Harness
// satisfies it.
type Runner interface {
	Run(ctx context.Context, b *contracts.Bundle) (*contracts.HarnessResult, error)
}

// Report holds the outcome of one replay.
type Report struct {
	IntentID        string            `json:"intent_id"`
	Match           bool              `json:"match"`
	ExpectedHash    string            `json:"expected_hash"`
	ActualHash      string            `json:"actual_hash"`
	ExpectedOutcome contracts.Outcome `json:"expected_outcome"`
	ActualOutcome   contracts.Outcome `json:"actual_outcome"`
	Consensus       bool              `json:"consensus"`
	Mismatches      []string          `json:"mismatches,omitempty"`
	Diff            string            `json:"diff,omitempty"`
}

// ComparableHash is the content hash of a certificate's comparable
// projection.
func ComparableHash(cert *contracts.Certificate) (string, error) {
	if cert == nil {
		return "", ErrNoCertificate
	}
	return canonicalize.CanonicalHash(cert.Comparable())
}

// Verify runs b again and compares the new certificate with expected.
func Verify(ctx context.Context, runner Runner, b *contracts.Bundle, expected *contracts.Certificate) (*Report, error) {
	if expected == nil {
		return nil, ErrNoCertificate
	}
	res, err := runner.Run(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}
	if res.Certificate == nil {
		return nil, fmt.Errorf("replay run: %w", ErrNoCertificate)
	}
	report, err := Compare(expected, res.Certificate)
	if err != nil {
		return nil, err
	}
	report.Consensus = res.Consensus
	return report, nil
}

// Reproduce runs b twice and compares the two certificates.
func Reproduce(ctx context.Context, runner Runner, b *contracts.Bundle) (*Report, error) {
	first, err := runner.Run(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("first run: %w", err)
	}
	if first.Certificate == nil {
		return nil, fmt.Errorf("first run: %w", ErrNoCertificate)
	}
	return Verify(ctx, runner, b, first.Certificate)
}

// Compare reports whether two certificates agree on everything but their
// clock-derived fields, naming each differing top-level field.
func Compare(expected, actual *contracts.Certificate) (*Report, error) {
	want, err := ComparableHash(expected)
	if err != nil {
		return nil, fmt.Errorf("expected certificate: %w", err)
	}
	got, err := ComparableHash(actual)
	if err != nil {
		return nil, fmt.Errorf("actual certificate: %w", err)
	}

	report := &Report{
		IntentID:        expected.IntentID,
		Match:           want == got,
		ExpectedHash:    want,
		ActualHash:      got,
		ExpectedOutcome: expected.Outcome,
		ActualOutcome:   actual.Outcome,
	}
	if report.Match {
		return report, nil
	}

	report.Mismatches, err = mismatchedFields(expected.Comparable(), actual.Comparable())
	if err != nil {
		return nil, err
	}
	report.Diff = cmp.Diff(expected.Comparable(), actual.Comparable())
	return report, nil
}

func mismatchedFields(a, b *contracts.Certificate) ([]string, error) {
	am, err := fieldMap(a)
	if err != nil {
		return nil, err
	}
	bm, err := fieldMap(b)
	if err != nil {
		return nil, err
	}

	keys := map[string]bool{}
	for k := range am {
		keys[k] = true
	}
	for k := range bm {
		keys[k] = true
	}
	var out []string
	for k := range keys {
		if string(am[k]) != string(bm[k]) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fieldMap splits a certificate into canonical bytes per top-level field.
func fieldMap(c *contracts.Certificate) (map[string]json.RawMessage, error) {
	raw, err := canonicalize.JCS(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("split certificate: %w", err)
	}
	return fields, nil
}

// LoadCertificate reads a certificate from a JSON file.
func LoadCertificate(path string) (*contracts.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	var cert contracts.Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, fmt.Errorf("decode certificate: %w", err)
	}
	return &cert, nil
}
