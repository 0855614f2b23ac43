package contracts

// ExecutionRequest is the only message warden ever emits toward the
// external executor, and only after the hand-off gate reports READY.
type ExecutionRequest struct {
	PlanID    string     `json:"plan_id"`
	StepID    string     `json:"step_id"`
	Action    Capability `json:"action"`
	Selector  string     `json:"selector"`
	Value     string     `json:"value,omitempty"`
	TimeoutMs int64      `json:"timeout_ms"`
}

// ExecutionResponse is the executor's claimed outcome for one step. The
// executor lives outside the trust boundary: everything in this message
// is treated as an unverified claim until the referenced evidence passes
// consistency assessment.
type ExecutionResponse struct {
	PlanID          string   `json:"plan_id"`
	StepID          string   `json:"step_id"`
	ClaimedOutcome  string   `json:"claimed_outcome"`
	EvidenceRefs    []string `json:"evidence_refs,omitempty"`
	ObservedSignal  string   `json:"observed_signal,omitempty"`
	ExecutorVersion string   `json:"executor_version,omitempty"`
}
