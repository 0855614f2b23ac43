// Package coordination prevents two actors from working the same target
// concurrently and detects duplicate findings. Targets are compared by
// canonical fingerprint, so cosmetically different descriptors collapse
// to one coordination key. All functions are pure over a snapshot of
// existing records; callers own the record set.
package coordination

import (
	"fmt"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// Stage name recorded on sub-verdicts derived from claim results.
const Stage = "target-coordination"

// Reason codes emitted by the coordination stage.
const (
	ReasonTargetClaimed    = "TARGET_CLAIMED"
	ReasonAlreadyClaimed   = "TARGET_ALREADY_CLAIMED"
	ReasonDuplicateFinding = "DUPLICATE_FINDING_EXCLUDED"
)

// ClaimResult is the outcome of one claim attempt. Record is the
// coordination record to append when Status is CLAIMED and the claim is
// new; nil for idempotent re-claims and refusals.
type ClaimResult struct {
	Status contracts.ClaimStatus
	Record *contracts.CoordinationRecord
}

// DedupKey derives the normalized finding fingerprint for a signal
// observed against a target.
func DedupKey(target, signal string) string {
	return canonicalize.HashBytes([]byte(
		canonicalize.Fingerprint(target) + "\x00" + canonicalize.NormalizeSignal(signal)))
}

// Claim attempts to claim a target for an actor against a snapshot of
// existing records.
//
// A target claimed by a different actor yields ALREADY_CLAIMED. A
// re-claim by the holding actor is idempotent and yields CLAIMED with no
// new record. When findingSignal is non-empty and its dedup key matches
// a finding already recorded for the same target, the result is
// DUPLICATE_FINDING: the finding earns no aggregation credit, though
// callers still ledger it.
func Claim(target, actorID, findingSignal string, existing []contracts.CoordinationRecord) ClaimResult {
	fingerprint := canonicalize.Fingerprint(target)

	var dedupKey string
	if findingSignal != "" {
		dedupKey = DedupKey(target, findingSignal)
	}

	var holder *contracts.CoordinationRecord
	var maxSeq uint64
	for i := range existing {
		record := existing[i]
		if record.Sequence > maxSeq {
			maxSeq = record.Sequence
		}
		if record.TargetFingerprint != fingerprint {
			continue
		}
		if dedupKey != "" && record.DedupKey == dedupKey {
			return ClaimResult{Status: contracts.ClaimDuplicateFinding}
		}
		if record.ActorID != "" && holder == nil {
			holder = &existing[i]
		}
	}

	if holder != nil {
		if holder.ActorID == actorID {
			return ClaimResult{Status: contracts.ClaimClaimed}
		}
		return ClaimResult{Status: contracts.ClaimAlreadyClaimed}
	}

	return ClaimResult{
		Status: contracts.ClaimClaimed,
		Record: &contracts.CoordinationRecord{
			TargetFingerprint: fingerprint,
			ActorID:           actorID,
			Sequence:          maxSeq + 1,
			DedupKey:          dedupKey,
		},
	}
}

// SubVerdict maps a claim result onto the aggregation vocabulary. A
// successful claim contributes "no objection"; a target held by another
// actor vetoes; a duplicate finding neither vetoes nor adds credit, but
// the exclusion stays visible in the decision's provenance.
func SubVerdict(result ClaimResult, target string) contracts.SubVerdict {
	switch result.Status {
	case contracts.ClaimAlreadyClaimed:
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskLow,
			ReasonCode: ReasonAlreadyClaimed,
			Detail:     fmt.Sprintf("target %s is claimed by another actor", canonicalize.Fingerprint(target)),
		}
	case contracts.ClaimDuplicateFinding:
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubNoObjection,
			Risk:       contracts.RiskLow,
			ReasonCode: ReasonDuplicateFinding,
			Detail:     "finding fingerprint already recorded for this target",
		}
	default:
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubNoObjection,
			Risk:       contracts.RiskLow,
			ReasonCode: ReasonTargetClaimed,
		}
	}
}
