// Package executor is the boundary to the external browser/automation
// executor. The executor is untrusted: warden emits a request only after
// the hand-off gate reports READY, and everything the executor reports
// back is a claim that must survive evidence-consistency assessment
// before it can influence confidence. The raw claim is always ledgered
// either way.
package executor

import (
	"fmt"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// EvidenceSource is the source tag stamped on evidence derived from
// executor claims. A bundle containing only this source can never reach
// CONSISTENT: the executor cannot corroborate itself.
const EvidenceSource = "executor"

// BuildRequest produces the hand-off message for one plan step. It
// refuses to build anything unless the gate reported READY; refusal is
// a PolicyDenial, not a fault.
func BuildRequest(p contracts.ExecutionPlan, stepID string, readiness contracts.ReadinessState) (*contracts.ExecutionRequest, error) {
	if readiness != contracts.ReadinessReady {
		return nil, &contracts.PolicyDenial{
			ReasonCode: "HANDOFF_NOT_READY",
			Detail:     fmt.Sprintf("plan %s gate state is %s", p.PlanID, readiness),
		}
	}
	for _, step := range p.Steps {
		if step.StepID == stepID {
			return &contracts.ExecutionRequest{
				PlanID:    p.PlanID,
				StepID:    step.StepID,
				Action:    step.Action,
				Selector:  step.Selector,
				Value:     step.Value,
				TimeoutMs: step.TimeoutMs,
			}, nil
		}
	}
	return nil, &contracts.StructuralError{
		Subject: "execution request",
		Detail:  fmt.Sprintf("plan %s has no step %s", p.PlanID, stepID),
	}
}

// ClaimBundle converts an executor response into an evidence bundle
// tagged with the executor source. The item deliberately carries no
// recorded inputs or environment markers: an executor claim on its own
// is never replay-ready and never earns confidence.
func ClaimBundle(resp contracts.ExecutionResponse) (contracts.EvidenceBundle, error) {
	if resp.PlanID == "" || resp.StepID == "" {
		return contracts.EvidenceBundle{}, &contracts.StructuralError{
			Subject: "execution response",
			Detail:  "missing plan or step id",
		}
	}
	hash, err := canonicalize.CanonicalHash(resp)
	if err != nil {
		return contracts.EvidenceBundle{}, &contracts.StructuralError{
			Subject: "execution response",
			Detail:  fmt.Sprintf("not canonicalizable: %v", err),
		}
	}
	signal := resp.ObservedSignal
	if signal == "" {
		signal = resp.ClaimedOutcome
	}
	return contracts.EvidenceBundle{
		BundleID:  fmt.Sprintf("claim-%s-%s", resp.PlanID, resp.StepID),
		FindingID: resp.PlanID,
		Items: []contracts.EvidenceItem{{
			ItemID:        fmt.Sprintf("%s-%s", resp.PlanID, resp.StepID),
			Source:        EvidenceSource,
			Signal:        signal,
			IntegrityHash: hash,
		}},
	}, nil
}

// ClaimPayload flattens a response into the ledger payload shape for an
// EXECUTOR_CLAIM entry.
func ClaimPayload(resp contracts.ExecutionResponse) map[string]any {
	payload := map[string]any{
		"plan_id":         resp.PlanID,
		"step_id":         resp.StepID,
		"claimed_outcome": resp.ClaimedOutcome,
	}
	if len(resp.EvidenceRefs) > 0 {
		refs := make([]any, len(resp.EvidenceRefs))
		for i, ref := range resp.EvidenceRefs {
			refs[i] = ref
		}
		payload["evidence_refs"] = refs
	}
	if resp.ExecutorVersion != "" {
		payload["executor_version"] = resp.ExecutorVersion
	}
	return payload
}
