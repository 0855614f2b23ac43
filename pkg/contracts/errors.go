package contracts

import "fmt"

// Error codes for the four failure classes. Denials and insufficient
// evidence are expected outcomes; structural and chain errors are faults.
const (
	ErrCodeStructural           = "ERR_STRUCTURAL"
	ErrCodePolicyDenial         = "ERR_POLICY_DENIAL"
	ErrCodeInsufficientEvidence = "ERR_INSUFFICIENT_EVIDENCE"
	ErrCodeChainIntegrity       = "ERR_CHAIN_INTEGRITY"
)

// StructuralError reports a malformed plan or evidence shape. It is
// fatal to the single evaluation that produced it and is never silently
// repaired.
type StructuralError struct {
	Subject string
	Detail  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: structural error in %s: %s", ErrCodeStructural, e.Subject, e.Detail)
}

// PolicyDenial is a DENIED/REJECT verdict surfaced as an error where a
// caller asked for a cleared result. It is a normal outcome, not a
// system fault.
type PolicyDenial struct {
	ReasonCode string
	Detail     string
}

func (e *PolicyDenial) Error() string {
	return fmt.Sprintf("%s: denied (%s): %s", ErrCodePolicyDenial, e.ReasonCode, e.Detail)
}

// InsufficientEvidence reports that confidence cannot reach the level a
// caller requested. Surfaced, never retried: the inputs are a snapshot.
type InsufficientEvidence struct {
	BundleID string
	Required ConfidenceLevel
	Actual   ConfidenceLevel
}

func (e *InsufficientEvidence) Error() string {
	return fmt.Sprintf("%s: bundle %s confidence %s below required %s",
		ErrCodeInsufficientEvidence, e.BundleID, e.Actual, e.Required)
}

// ChainIntegrityViolation reports a broken ledger hash chain. Fatal,
// surfaced immediately, never auto-repaired.
type ChainIntegrityViolation struct {
	Sequence uint64
	Detail   string
}

func (e *ChainIntegrityViolation) Error() string {
	return fmt.Sprintf("%s: ledger chain broken at entry %d: %s", ErrCodeChainIntegrity, e.Sequence, e.Detail)
}
