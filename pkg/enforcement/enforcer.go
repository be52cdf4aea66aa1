// Package enforcement re-checks a harness result against the four named
// governance policies and forces an INDETERMINATE outcome on any critical
// breach.
package enforcement

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// DefaultMinSolvers is the number of evaluators the competing solvers
// policy requires.
const DefaultMinSolvers = 4

var genesisPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ErrInvalidBinding is returned for a governance binding that cannot anchor
// any certificate.
var ErrInvalidBinding = errors.New("invalid governance binding")

// VerifyGenesisBinding checks that a binding carries a well-formed genesis
// hash, an authority role and a policy version.
func VerifyGenesisBinding(b contracts.GovernanceBinding) error {
	switch {
	case !genesisPattern.MatchString(b.GenesisHash):
		return fmt.Errorf("%w: genesis hash %q", ErrInvalidBinding, b.GenesisHash)
	case b.AuthorityRole == "":
		return fmt.Errorf("%w: empty authority role", ErrInvalidBinding)
	case b.PolicyVersion == "":
		return fmt.Errorf("%w: empty policy version", ErrInvalidBinding)
	}
	return nil
}

type compiledRule struct {
	rule
	prg cel.Program
}

// Enforcer evaluates the policy rule table. It is safe for concurrent use.
type Enforcer struct {
	binding    contracts.GovernanceBinding
	minSolvers int
	clock      func() time.Time
	logger     *slog.Logger
	rules      []compiledRule
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithMinSolvers raises the evaluator quorum. Values below
// DefaultMinSolvers are ignored.
func WithMinSolvers(n int) Option {
	return func(e *Enforcer) { e.minSolvers = max(n, DefaultMinSolvers) }
}

func WithClock(clock func() time.Time) Option {
	return func(e *Enforcer) { e.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Enforcer) { e.logger = l }
}

// New compiles the rule table for binding.
func New(binding contracts.GovernanceBinding, opts ...Option) (*Enforcer, error) {
	e := &Enforcer{
		binding:    binding,
		minSolvers: DefaultMinSolvers,
		clock:      time.Now,
		logger:     slog.Default().With("component", "enforcement"),
	}
	for _, opt := range opts {
		opt(e)
	}

	env, err := cel.NewEnv(
		cel.Variable("result", cel.DynType),
		cel.Variable("cert", cel.DynType),
		cel.Variable("min_solvers", cel.IntType),
		cel.Variable("allowed_outcomes", cel.ListType(cel.StringType)),
		cel.Variable("genesis_hash", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	for _, r := range rules {
		ast, issues := env.Compile(r.expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile %s/%s: %w", r.policy, r.violation, issues.Err())
		}
		prg, err := env.Program(ast,
			cel.InterruptCheckFrequency(100),
			cel.CostLimit(10000),
		)
		if err != nil {
			return nil, fmt.Errorf("program %s/%s: %w", r.policy, r.violation, err)
		}
		e.rules = append(e.rules, compiledRule{rule: r, prg: prg})
	}
	return e, nil
}

// EnforceAll checks every policy against res. Any CRITICAL violation sets
// OutcomeOverride to INDETERMINATE.
func (e *Enforcer) EnforceAll(res *contracts.HarnessResult) *contracts.EnforcementReport {
	report := &contracts.EnforcementReport{
		Compliant:          true,
		Violations:         []contracts.PolicyViolation{},
		EnforcementActions: []string{},
	}
	now := e.clock().UTC()
	add := func(policy contracts.PolicyName, violation string, sev contracts.Severity, desc string) {
		report.Violations = append(report.Violations, contracts.PolicyViolation{
			Policy:        policy,
			ViolationType: violation,
			Severity:      sev,
			Description:   desc,
			DetectedAt:    now,
		})
	}

	switch {
	case res == nil:
		add(contracts.PolicyCompetingSolvers, ViolationMissingCertificate, contracts.SeverityCritical, "no harness result")
	case res.Certificate == nil:
		add(contracts.PolicyCompetingSolvers, ViolationMissingCertificate, contracts.SeverityCritical, "harness result carries no certificate")
	default:
		input, err := e.input(res)
		if err != nil {
			add(contracts.PolicyDisputeResolution, ViolationInvalidOutcome, contracts.SeverityCritical, err.Error())
			break
		}
		for _, r := range e.rules {
			ok, err := evaluate(r.prg, input)
			switch {
			case err != nil:
				add(r.policy, r.violation, r.severity, fmt.Sprintf("%s (rule error: %v)", r.description, err))
			case !ok:
				add(r.policy, r.violation, r.severity, r.description)
			}
		}
	}

	critical := 0
	for _, v := range report.Violations {
		if v.Severity == contracts.SeverityCritical {
			critical++
		}
	}
	if critical > 0 {
		report.Compliant = false
		report.OutcomeOverride = contracts.OutcomeIndeterminate
		report.EnforcementActions = append(report.EnforcementActions,
			fmt.Sprintf("outcome overridden to %s: %d critical violation(s)", contracts.OutcomeIndeterminate, critical))
		e.logger.Warn("policy override", "critical", critical, "violations", len(report.Violations))
	}
	return report
}

func (e *Enforcer) input(res *contracts.HarnessResult) (map[string]any, error) {
	raw, err := json.Marshal(res.Certificate)
	if err != nil {
		return nil, fmt.Errorf("certificate not readable: %w", err)
	}
	var cert map[string]any
	if err := json.Unmarshal(raw, &cert); err != nil {
		return nil, fmt.Errorf("certificate not readable: %w", err)
	}
	return map[string]any{
		"result": map[string]any{
			"solver_count":     len(res.SolverResults),
			"consensus":        res.Consensus,
			"divergence_count": len(res.Divergences),
			"outcome":          res.Outcome.String(),
		},
		"cert":             cert,
		"min_solvers":      e.minSolvers,
		"allowed_outcomes": contracts.OutcomeNames(),
		"genesis_hash":     e.binding.GenesisHash,
	}, nil
}

func evaluate(prg cel.Program, input map[string]any) (bool, error) {
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("result not bool")
	}
	return val, nil
}
