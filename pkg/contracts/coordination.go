package contracts

// ClaimStatus is the closed result of a target claim attempt.
type ClaimStatus string

const (
	ClaimClaimed          ClaimStatus = "CLAIMED"
	ClaimAlreadyClaimed   ClaimStatus = "ALREADY_CLAIMED"
	ClaimDuplicateFinding ClaimStatus = "DUPLICATE_FINDING"
)

// CoordinationRecord marks a target as claimed by one actor. Sequence is
// a logical clock, not wall time: claims are ordered by the sequence
// number assigned at claim time.
type CoordinationRecord struct {
	TargetFingerprint string `json:"target_fingerprint"`
	ActorID           string `json:"actor_id"`
	Sequence          uint64 `json:"sequence"`
	// DedupKey is the normalized finding fingerprint used to detect a
	// finding already recorded against the same target.
	DedupKey string `json:"dedup_key,omitempty"`
}

// ScheduleAssignment allocates one pending target to one actor.
type ScheduleAssignment struct {
	ActorID  string `json:"actor_id"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
	// DelegationChain lists, in order, the actors who deferred this
	// work before the current assignee.
	DelegationChain []string `json:"delegation_chain,omitempty"`
	FairnessWeight  int      `json:"fairness_weight"`
	// Unassignable is set when every eligible actor has deferred the
	// target; the scheduler parks it instead of looping.
	Unassignable bool `json:"unassignable,omitempty"`
}
