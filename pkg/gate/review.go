package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// ReviewStatus is the lifecycle state of a pending human review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewDenied   ReviewStatus = "DENIED"
	ReviewTimedOut ReviewStatus = "TIMED_OUT"
)

// ReviewIntent is a request for a human to resolve a REQUIRES_HUMAN
// decision. Timeout resolves to deny.
type ReviewIntent struct {
	IntentID   string              `json:"intent_id"`
	DecisionID string              `json:"decision_id"`
	PlanID     string              `json:"plan_id"`
	Risk       contracts.RiskLevel `json:"risk"`
	CreatedAt  time.Time           `json:"created_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Status     ReviewStatus        `json:"status"`
}

// ReviewReceipt is the immutable record of a resolved review.
type ReviewReceipt struct {
	ReceiptID   string       `json:"receipt_id"`
	IntentID    string       `json:"intent_id"`
	DecisionID  string       `json:"decision_id"`
	Outcome     ReviewStatus `json:"outcome"`
	ReviewerID  string       `json:"reviewer_id,omitempty"`
	DenyReason  string       `json:"deny_reason,omitempty"`
	ResolvedAt  time.Time    `json:"resolved_at"`
	ContentHash string       `json:"content_hash"`
}

// Overseer tracks the lifecycle of review intents. It is the only
// stateful part of the gate; everything else is a pure function.
type Overseer struct {
	mu      sync.Mutex
	intents map[string]*ReviewIntent
	ttl     time.Duration
	clock   func() time.Time
}

// NewOverseer creates an overseer whose intents expire after ttl.
func NewOverseer(ttl time.Duration) *Overseer {
	return &Overseer{
		intents: make(map[string]*ReviewIntent),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (o *Overseer) WithClock(clock func() time.Time) *Overseer {
	o.clock = clock
	return o
}

// Open creates a pending review intent for a REQUIRES_HUMAN decision.
func (o *Overseer) Open(decision contracts.Decision, planID string) (*ReviewIntent, error) {
	if decision.Outcome != contracts.OutcomeRequiresHuman {
		return nil, fmt.Errorf("gate: decision %s does not require human review (outcome=%s)",
			decision.DecisionID, decision.Outcome)
	}
	now := o.clock()
	intent := &ReviewIntent{
		IntentID:   uuid.New().String(),
		DecisionID: decision.DecisionID,
		PlanID:     planID,
		Risk:       decision.Risk,
		CreatedAt:  now,
		ExpiresAt:  now.Add(o.ttl),
		Status:     ReviewPending,
	}
	o.mu.Lock()
	o.intents[intent.IntentID] = intent
	o.mu.Unlock()
	return intent, nil
}

// Approve resolves a pending intent in the reviewer's favor. An expired
// intent resolves to TIMED_OUT instead; timeouts always read as deny.
func (o *Overseer) Approve(intentID, reviewerID string) (*ReviewReceipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	intent, ok := o.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("gate: review intent %q not found", intentID)
	}
	if intent.Status != ReviewPending {
		return nil, fmt.Errorf("gate: review intent %q is not PENDING (status=%s)", intentID, intent.Status)
	}

	now := o.clock()
	if now.After(intent.ExpiresAt) {
		intent.Status = ReviewTimedOut
		return o.receipt(intent, "", "", now), nil
	}

	intent.Status = ReviewApproved
	return o.receipt(intent, reviewerID, "", now), nil
}

// Deny resolves a pending intent against the action.
func (o *Overseer) Deny(intentID, reviewerID, reason string) (*ReviewReceipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	intent, ok := o.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("gate: review intent %q not found", intentID)
	}
	if intent.Status != ReviewPending {
		return nil, fmt.Errorf("gate: review intent %q is not PENDING (status=%s)", intentID, intent.Status)
	}

	intent.Status = ReviewDenied
	return o.receipt(intent, reviewerID, reason, o.clock()), nil
}

// Sweep resolves every expired pending intent to TIMED_OUT and returns
// their receipts.
func (o *Overseer) Sweep() []*ReviewReceipt {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock()
	var receipts []*ReviewReceipt
	for _, intent := range o.intents {
		if intent.Status == ReviewPending && now.After(intent.ExpiresAt) {
			intent.Status = ReviewTimedOut
			receipts = append(receipts, o.receipt(intent, "", "", now))
		}
	}
	return receipts
}

// PendingCount returns the number of unresolved intents.
func (o *Overseer) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, intent := range o.intents {
		if intent.Status == ReviewPending {
			n++
		}
	}
	return n
}

// PresenceFor derives the presence state a resolved review grants.
// Only an APPROVED receipt yields an explicit override; approval also
// acknowledges confidence, since the reviewer saw the finding.
func PresenceFor(receipt *ReviewReceipt) Presence {
	if receipt == nil || receipt.Outcome != ReviewApproved {
		return Presence{}
	}
	return Presence{
		HumanPresent:           true,
		ExplicitOverride:       true,
		OverrideReceiptID:      receipt.ReceiptID,
		ConfidenceAcknowledged: true,
	}
}

func (o *Overseer) receipt(intent *ReviewIntent, reviewerID, denyReason string, resolvedAt time.Time) *ReviewReceipt {
	r := &ReviewReceipt{
		ReceiptID:  uuid.New().String(),
		IntentID:   intent.IntentID,
		DecisionID: intent.DecisionID,
		Outcome:    intent.Status,
		ReviewerID: reviewerID,
		DenyReason: denyReason,
		ResolvedAt: resolvedAt,
	}
	hash, _ := canonicalize.CanonicalHash(struct {
		IntentID   string       `json:"intent_id"`
		DecisionID string       `json:"decision_id"`
		Outcome    ReviewStatus `json:"outcome"`
		ReviewerID string       `json:"reviewer_id"`
	}{intent.IntentID, intent.DecisionID, intent.Status, reviewerID})
	r.ContentHash = hash
	return r
}
