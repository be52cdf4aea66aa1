// Package adapters holds the pieces shared by the domain adapters that
// translate domain requests into intent bundles.
package adapters

import (
	"errors"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/canonicalize"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// BundleVersion is the bundle format version adapters emit.
const BundleVersion = "1.0.0"

var (
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrOperationMismatch = errors.New("operation mismatch")
)

// RuleHash is the content hash identifying a rulebook version.
func RuleHash(rulebookID, version string) string {
	return canonicalize.HashBytes([]byte("rulebook:" + rulebookID + "@" + version))
}

// ProofRef is the content hash of an actor's request proof.
func ProofRef(kind, id string) string {
	return canonicalize.HashBytes([]byte(kind + ":" + id))
}

// DeterminismContract is the contract every adapter bundle carries: the
// full outcome vocabulary, no defaulting, evidence required.
func DeterminismContract() contracts.DeterminismContract {
	return contracts.DeterminismContract{
		AllowedOutputs:      contracts.Outcomes(),
		NoDefaults:          true,
		RequireEvidence:     true,
		ByteIdenticalReplay: true,
	}
}

// EvidenceRefs returns refs, or an empty non-nil slice so a request with no
// evidence is certified INDETERMINATE rather than rejected.
func EvidenceRefs(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return append([]string{}, refs...)
}

// Binding returns a pointer to a copy of b for embedding in a bundle.
func Binding(b contracts.GovernanceBinding) *contracts.GovernanceBinding {
	return &b
}
