// Package gate decides whether a cleared decision may actually be handed
// to the external executor, and under what human-presence mode. The gate
// never infers readiness: a rejection blocks unconditionally, human
// review is satisfied only by explicit override, and sub-HIGH confidence
// always needs an explicit human acknowledgment before unattended
// hand-off.
package gate

import (
	"github.com/farsight-labs/warden/pkg/contracts"
)

// Presence is the recorded human-presence state at gating time. Every
// field is an explicit recorded signal; nothing here is derived by the
// system on the human's behalf.
type Presence struct {
	// HumanPresent records a live human-presence signal.
	HumanPresent bool `json:"human_present"`
	// ExplicitOverride records a human's explicit decision to let a
	// REQUIRES_HUMAN action proceed. Presence alone never qualifies.
	ExplicitOverride bool `json:"explicit_override"`
	// OverrideReceiptID references the review receipt backing the
	// override, for provenance.
	OverrideReceiptID string `json:"override_receipt_id,omitempty"`
	// ConfidenceAcknowledged records a human's explicit acknowledgment
	// that the finding's confidence is below HIGH.
	ConfidenceAcknowledged bool `json:"confidence_acknowledged"`
}

// Readiness maps a decision, the evidence confidence behind it, and the
// recorded presence state onto the hand-off gate state.
func Readiness(decision contracts.Decision, confidence contracts.ConfidenceLevel, presence Presence) contracts.ReadinessState {
	switch decision.Outcome {
	case contracts.OutcomeReject:
		return contracts.ReadinessBlocked
	case contracts.OutcomeRequiresHuman:
		if presence.ExplicitOverride {
			return readyIfAcknowledged(confidence, presence)
		}
		return contracts.ReadinessAwaitingHuman
	case contracts.OutcomeAccept:
		return readyIfAcknowledged(confidence, presence)
	default:
		// Unknown outcome: fail closed.
		return contracts.ReadinessBlocked
	}
}

func readyIfAcknowledged(confidence contracts.ConfidenceLevel, presence Presence) contracts.ReadinessState {
	if confidence == contracts.ConfidenceHigh {
		return contracts.ReadinessReady
	}
	if presence.ConfidenceAcknowledged {
		return contracts.ReadinessReady
	}
	return contracts.ReadinessAwaitingHuman
}
