// Package solver defines the contract shared by the independent evaluator
// implementations. The implementations live in sibling packages and share
// nothing but this contract and the pipeline components they compose.
package solver

import (
	"context"
	"time"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/certifier"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// Evaluator runs validate, plan, execute and certify over one request.
// Implementations must not mutate the bundle they are given.
type Evaluator interface {
	ID() string
	Evaluate(ctx context.Context, b *contracts.Bundle) (*Evaluation, error)
}

// Evaluation is one evaluator's output. Blueprint and Audit are nil when
// the request was rejected by validation.
type Evaluation struct {
	Certificate      *contracts.Certificate
	Blueprint        *contracts.Blueprint
	Audit            *contracts.Audit
	Outcome          contracts.Outcome
	Warnings         []string
	ValidationErrors []string
}

// Config is the construction input common to every evaluator.
type Config struct {
	Binding          contracts.GovernanceBinding
	IssuingAuthority string
	Clock            func() time.Time
}

// Certifier builds the certifier an evaluator issues certificates with.
func (c Config) Certifier() *certifier.Certifier {
	opts := []certifier.Option{certifier.WithIssuingAuthority(c.IssuingAuthority)}
	if c.Clock != nil {
		opts = append(opts, certifier.WithClock(c.Clock))
	}
	return certifier.New(c.Binding, opts...)
}

// Func adapts a function to the Evaluator interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, b *contracts.Bundle) (*Evaluation, error)
}

func (f Func) ID() string { return f.Name }

func (f Func) Evaluate(ctx context.Context, b *contracts.Bundle) (*Evaluation, error) {
	return f.Fn(ctx, b)
}
