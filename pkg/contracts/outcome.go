package contracts

import (
	"fmt"
)

// Outcome is the closed set of certificate determinations.
// The zero value is not an outcome and refuses to serialize.
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomePass
	OutcomeFail
	OutcomeIndeterminate
	OutcomeInvalidInput
)

var outcomeNames = [...]string{
	OutcomeUnknown:       "",
	OutcomePass:          "PASS",
	OutcomeFail:          "FAIL",
	OutcomeIndeterminate: "INDETERMINATE",
	OutcomeInvalidInput:  "INVALID_INPUT",
}

// Outcomes lists every valid outcome in declaration order.
func Outcomes() []Outcome {
	return []Outcome{OutcomePass, OutcomeFail, OutcomeIndeterminate, OutcomeInvalidInput}
}

// OutcomeNames lists the wire names of every valid outcome.
func OutcomeNames() []string {
	all := Outcomes()
	names := make([]string, len(all))
	for i, o := range all {
		names[i] = o.String()
	}
	return names
}

// ParseOutcome maps a wire name onto the closed outcome set.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes() {
		if outcomeNames[o] == s {
			return o, nil
		}
	}
	return OutcomeUnknown, fmt.Errorf("unknown outcome %q", s)
}

// Valid reports whether o is one of the four outcomes.
func (o Outcome) Valid() bool {
	return o >= OutcomePass && o <= OutcomeInvalidInput
}

func (o Outcome) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
	return outcomeNames[o]
}

// Safe reports whether o is always admissible regardless of a request's
// declared vocabulary.
func (o Outcome) Safe() bool {
	switch o {
	case OutcomeIndeterminate, OutcomeInvalidInput:
		return true
	case OutcomePass, OutcomeFail, OutcomeUnknown:
		return false
	default:
		return false
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("cannot encode %s", o)
	}
	return []byte(outcomeNames[o]), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Severity grades divergences and policy violations.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// PolicyName identifies one of the four enforced policies.
type PolicyName string

const (
	PolicyCompetingSolvers        PolicyName = "COMPETING_SOLVERS"
	PolicyDisputeResolution       PolicyName = "DISPUTE_RESOLUTION"
	PolicyControlledSupersession  PolicyName = "CONTROLLED_SUPERSESSION"
	PolicyDecentralizedOperations PolicyName = "DECENTRALIZED_OPERATIONS"
)

// EnforcementHard is the only enforcement mode a compliance record may claim.
const EnforcementHard = "HARD"
