package contracts

// EvidenceItem is one recorded observation supporting a finding. Items
// carry hashes and recorded context, never executable content.
type EvidenceItem struct {
	ItemID string `json:"item_id"`
	// Source identifies the independent origin of the observation
	// (e.g. "dom-snapshot", "http-trace", "executor"). Two items with
	// the same source never count as independent corroboration.
	Source string `json:"source"`
	// Signal is the extracted observation, compared after
	// canonicalization when checking cross-source agreement.
	Signal        string `json:"signal"`
	IntegrityHash string `json:"integrity_hash"`
	// RecordedInputs and EnvMarkers are the replay context: the inputs
	// and environment markers needed to reproduce the observation
	// without external state.
	RecordedInputs map[string]string `json:"recorded_inputs,omitempty"`
	EnvMarkers     map[string]string `json:"env_markers,omitempty"`
}

// EvidenceBundle groups the evidence items for one finding.
type EvidenceBundle struct {
	BundleID  string         `json:"bundle_id"`
	FindingID string         `json:"finding_id"`
	TargetRef string         `json:"target_ref"`
	Items     []EvidenceItem `json:"items"`
}

// ConsistencyStatus is the closed cross-source agreement verdict.
type ConsistencyStatus string

const (
	ConsistencyConsistent   ConsistencyStatus = "CONSISTENT"
	ConsistencyInconsistent ConsistencyStatus = "INCONSISTENT"
	ConsistencyInsufficient ConsistencyStatus = "INSUFFICIENT"
)

// ConsistencyResult is the per-bundle assessment outcome.
type ConsistencyResult struct {
	BundleID        string            `json:"bundle_id"`
	Status          ConsistencyStatus `json:"status"`
	AgreeingSources int               `json:"agreeing_sources"`
}

// ReplayReadiness records whether a finding is deterministically
// reproducible from its recorded evidence alone.
type ReplayReadiness struct {
	Ready bool `json:"ready"`
	// MissingItems lists item ids lacking replay context when not ready.
	MissingItems []string `json:"missing_items,omitempty"`
}

// ConfidenceLevel is the closed confidence tier for a finding. HIGH is
// reachable only through the confidence policy that also checks replay
// readiness, never from source count alone.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)
