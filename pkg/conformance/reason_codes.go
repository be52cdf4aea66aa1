package conformance

// Reason codes are stable identifiers carried by vector results. They
// must not change between releases.
const (
	ReasonVectorUnreadable        = "VECTOR_UNREADABLE"
	ReasonExpectationMissing      = "EXPECTATION_MISSING"
	ReasonExpectationUnreadable   = "EXPECTATION_UNREADABLE"
	ReasonHarnessError            = "HARNESS_ERROR"
	ReasonCertificateHashMismatch = "CERTIFICATE_HASH_MISMATCH"
	ReasonOutcomeMismatch         = "OUTCOME_MISMATCH"
	ReasonReplayHashDivergence    = "REPLAY_HASH_DIVERGENCE"
	ReasonRecordFailed            = "RECORD_FAILED"
)

// AllReasonCodes returns the full set of reason codes.
func AllReasonCodes() []string {
	return []string{
		ReasonVectorUnreadable,
		ReasonExpectationMissing,
		ReasonExpectationUnreadable,
		ReasonHarnessError,
		ReasonCertificateHashMismatch,
		ReasonOutcomeMismatch,
		ReasonReplayHashDivergence,
		ReasonRecordFailed,
	}
}
