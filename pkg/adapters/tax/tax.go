// Package tax translates tax analysis requests into intent bundles and
// runs them through the competing-solver harness. Tax operations carry no
// special authority: every one is certified by consensus like any other
// request.
package tax

import (
	"context"
	"fmt"
	"strings"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/adapters"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/harness"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
)

// Operation names a tax analysis.
type Operation string

const (
	CompletenessAnalysis  Operation = "COMPLETENESS_ANALYSIS"
	IncomeClassification  Operation = "INCOME_CLASSIFICATION"
	DeductionVerification Operation = "DEDUCTION_VERIFICATION"
	FilingRouting         Operation = "FILING_ROUTING"
	NoticeAnalysis        Operation = "NOTICE_ANALYSIS"
)

const (
	rulebookVersion = "1.0.0"
	actorRole       = "tax-analyst"
)

var actions = map[Operation]string{
	CompletenessAnalysis:  "ANALYZE_DOCUMENT_COMPLETENESS",
	IncomeClassification:  "CLASSIFY_INCOME_TYPES",
	DeductionVerification: "VERIFY_DEDUCTION_DOCUMENTATION",
	FilingRouting:         "ROUTE_BUSINESS_FILING",
	NoticeAnalysis:        "ANALYZE_IRS_NOTICE",
}

// Operations lists the supported operations.
func Operations() []Operation {
	return []Operation{CompletenessAnalysis, IncomeClassification, DeductionVerification, FilingRouting, NoticeAnalysis}
}

// Document is a source document. Only its identity and content hash enter
// the bundle; the text itself is referenced, not embedded.
type Document struct {
	ID   string
	Type string
	Text string
}

// Request is a tax analysis request.
type Request struct {
	RequestID   string
	Operation   Operation
	Documents   []Document
	TaxYear     string
	TaxpayerID  string
	RequestedBy string
}

// Adapter builds tax bundles and certifies them.
type Adapter struct {
	cfg  solver.Config
	opts []harness.Option
}

// New returns an adapter running the default evaluator set under cfg.
func New(cfg solver.Config, opts ...harness.Option) *Adapter {
	return &Adapter{cfg: cfg, opts: opts}
}

// Bundle converts req into an intent bundle.
func (a *Adapter) Bundle(req Request) (*contracts.Bundle, error) {
	action, ok := actions[req.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", adapters.ErrUnknownOperation, req.Operation)
	}
	op := strings.ToLower(string(req.Operation))
	rulebook := "irs-tax-" + op + "-rulebook"

	docs := make(map[string]any, len(req.Documents))
	refs := make([]string, 0, len(req.Documents))
	for _, d := range req.Documents {
		hash := canonicalize.HashBytes([]byte(d.Text))
		docs["document_"+d.ID] = map[string]any{
			"document_id":   d.ID,
			"document_type": d.Type,
			"text_length":   len(d.Text),
			"content_hash":  hash,
		}
		refs = append(refs, hash)
	}

	taxpayer := req.TaxpayerID
	if taxpayer == "" {
		taxpayer = "anonymous"
	}

	return &contracts.Bundle{
		IntentType: contracts.IntentDomainEvaluation,
		Domain:     contracts.DomainTax,
		IntentID:   "tax-" + op + "-" + req.RequestID,
		Version:    adapters.BundleVersion,
		Inputs: contracts.Inputs{
			Facts: map[string]any{
				"request_id":            req.RequestID,
				"operation":             string(req.Operation),
				"tax_year":              req.TaxYear,
				"taxpayer_id":           taxpayer,
				"document_count":        len(req.Documents),
				"documents":             docs,
				"evidence_required":     true,
				"no_inference":          true,
				"textual_evidence_only": true,
			},
			EvidenceRefs:    refs,
			RequestedAction: action,
		},
		GoverningRules: contracts.GoverningRules{
			RulebookID:      rulebook,
			RulebookVersion: rulebookVersion,
			RuleHash:        adapters.RuleHash(rulebook, rulebookVersion),
		},
		Authority: contracts.Authority{
			ActorID:       req.RequestedBy,
			ProofRef:      adapters.ProofRef("tax-request", req.RequestID),
			AuthorityRole: actorRole,
		},
		DeterminismContract: adapters.DeterminismContract(),
		GovernanceBinding:   adapters.Binding(a.cfg.Binding),
	}, nil
}

// Process certifies req through the harness, dispatching on its operation.
func (a *Adapter) Process(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	b, err := a.Bundle(req)
	if err != nil {
		return nil, err
	}
	return harness.RunCompetingSolvers(ctx, a.cfg, b, a.opts...)
}

func (a *Adapter) processAs(ctx context.Context, op Operation, req Request) (*contracts.HarnessResult, error) {
	if req.Operation != op {
		return nil, fmt.Errorf("%w: expected %s, got %s", adapters.ErrOperationMismatch, op, req.Operation)
	}
	return a.Process(ctx, req)
}

func (a *Adapter) ProcessCompletenessAnalysis(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	return a.processAs(ctx, CompletenessAnalysis, req)
}

func (a *Adapter) ProcessIncomeClassification(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	return a.processAs(ctx, IncomeClassification, req)
}

func (a *Adapter) ProcessDeductionVerification(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	return a.processAs(ctx, DeductionVerification, req)
}

func (a *Adapter) ProcessFilingRouting(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	return a.processAs(ctx, FilingRouting, req)
}

func (a *Adapter) ProcessNoticeAnalysis(ctx context.Context, req Request) (*contracts.HarnessResult, error) {
	return a.processAs(ctx, NoticeAnalysis, req)
}
