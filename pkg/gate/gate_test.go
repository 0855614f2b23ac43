package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farsight-labs/warden/pkg/contracts"
)

func decision(outcome contracts.Outcome) contracts.Decision {
	return contracts.Decision{
		DecisionID: "d-1",
		Outcome:    outcome,
		Risk:       contracts.RiskHigh,
		ReasonCode: "TEST",
		SubVerdicts: []contracts.SubVerdict{
			{Source: "test", Outcome: contracts.SubNoObjection, Risk: contracts.RiskLow, ReasonCode: "TEST"},
		},
	}
}

func TestReadinessRejectAlwaysBlocks(t *testing.T) {
	d := decision(contracts.OutcomeReject)
	// Even a present, overriding, acknowledging human cannot unblock a rejection.
	p := Presence{HumanPresent: true, ExplicitOverride: true, ConfidenceAcknowledged: true}
	assert.Equal(t, contracts.ReadinessBlocked, Readiness(d, contracts.ConfidenceHigh, p))
}

func TestReadinessRequiresHumanAwaitsOverride(t *testing.T) {
	d := decision(contracts.OutcomeRequiresHuman)

	assert.Equal(t, contracts.ReadinessAwaitingHuman, Readiness(d, contracts.ConfidenceHigh, Presence{}))

	// Presence alone is not an override.
	assert.Equal(t, contracts.ReadinessAwaitingHuman,
		Readiness(d, contracts.ConfidenceHigh, Presence{HumanPresent: true}))

	assert.Equal(t, contracts.ReadinessReady,
		Readiness(d, contracts.ConfidenceHigh, Presence{HumanPresent: true, ExplicitOverride: true}))
}

func TestReadinessAcceptNeedsAckBelowHighConfidence(t *testing.T) {
	d := decision(contracts.OutcomeAccept)

	assert.Equal(t, contracts.ReadinessReady, Readiness(d, contracts.ConfidenceHigh, Presence{}))

	for _, level := range []contracts.ConfidenceLevel{contracts.ConfidenceLow, contracts.ConfidenceMedium} {
		assert.Equal(t, contracts.ReadinessAwaitingHuman, Readiness(d, level, Presence{}),
			"confidence %s must not proceed unattended", level)
		assert.Equal(t, contracts.ReadinessReady,
			Readiness(d, level, Presence{ConfidenceAcknowledged: true}))
	}
}

func TestReadinessUnknownOutcomeFailsClosed(t *testing.T) {
	d := decision(contracts.Outcome("PROBABLY_FINE"))
	assert.Equal(t, contracts.ReadinessBlocked, Readiness(d, contracts.ConfidenceHigh, Presence{ExplicitOverride: true}))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestOverseerApproveFlow(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := NewOverseer(5 * time.Minute).WithClock(fixedClock(start))

	intent, err := o.Open(decision(contracts.OutcomeRequiresHuman), "p-1")
	require.NoError(t, err)
	assert.Equal(t, ReviewPending, intent.Status)
	assert.Equal(t, 1, o.PendingCount())

	receipt, err := o.Approve(intent.IntentID, "operator-7")
	require.NoError(t, err)
	assert.Equal(t, ReviewApproved, receipt.Outcome)
	assert.Equal(t, "operator-7", receipt.ReviewerID)
	assert.NotEmpty(t, receipt.ContentHash)
	assert.Equal(t, 0, o.PendingCount())

	presence := PresenceFor(receipt)
	assert.True(t, presence.ExplicitOverride)
	assert.Equal(t, receipt.ReceiptID, presence.OverrideReceiptID)
}

func TestOverseerRejectsNonHumanDecisions(t *testing.T) {
	o := NewOverseer(time.Minute)
	_, err := o.Open(decision(contracts.OutcomeAccept), "p-1")
	assert.Error(t, err)
}

func TestOverseerTimeoutResolvesToDeny(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	o := NewOverseer(time.Minute).WithClock(func() time.Time { return now })

	intent, err := o.Open(decision(contracts.OutcomeRequiresHuman), "p-1")
	require.NoError(t, err)

	now = start.Add(2 * time.Minute)
	receipt, err := o.Approve(intent.IntentID, "operator-7")
	require.NoError(t, err)
	assert.Equal(t, ReviewTimedOut, receipt.Outcome)
	assert.False(t, PresenceFor(receipt).ExplicitOverride, "timeout never grants an override")
}

func TestOverseerSweep(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	o := NewOverseer(time.Minute).WithClock(func() time.Time { return now })

	_, err := o.Open(decision(contracts.OutcomeRequiresHuman), "p-1")
	require.NoError(t, err)
	_, err = o.Open(decision(contracts.OutcomeRequiresHuman), "p-2")
	require.NoError(t, err)

	now = start.Add(time.Hour)
	receipts := o.Sweep()
	assert.Len(t, receipts, 2)
	assert.Equal(t, 0, o.PendingCount())
}

func TestOverseerDeny(t *testing.T) {
	o := NewOverseer(time.Minute)
	intent, err := o.Open(decision(contracts.OutcomeRequiresHuman), "p-1")
	require.NoError(t, err)

	receipt, err := o.Deny(intent.IntentID, "operator-7", "out of scope")
	require.NoError(t, err)
	assert.Equal(t, ReviewDenied, receipt.Outcome)
	assert.Equal(t, "out of scope", receipt.DenyReason)

	_, err = o.Deny(intent.IntentID, "operator-7", "again")
	assert.Error(t, err, "resolved intents cannot be re-resolved")
}

func TestApprovalTokenRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewApprovalVerifier([]byte("test-signing-key")).WithClock(fixedClock(at))

	token, err := v.Issue("p-critical", "operator-7", time.Hour)
	require.NoError(t, err)

	assert.NoError(t, v.Verify(token, "p-critical"))
	assert.Error(t, v.Verify(token, "p-other"), "token is bound to one plan")
}

func TestApprovalTokenExpiry(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewApprovalVerifier([]byte("test-signing-key")).WithClock(fixedClock(at))
	token, err := issuer.Issue("p-critical", "operator-7", time.Minute)
	require.NoError(t, err)

	later := NewApprovalVerifier([]byte("test-signing-key")).WithClock(fixedClock(at.Add(time.Hour)))
	assert.Error(t, later.Verify(token, "p-critical"))
}

func TestApprovalTokenWrongKey(t *testing.T) {
	v := NewApprovalVerifier([]byte("key-a"))
	token, err := v.Issue("p-critical", "operator-7", time.Hour)
	require.NoError(t, err)

	other := NewApprovalVerifier([]byte("key-b"))
	assert.Error(t, other.Verify(token, "p-critical"))
}
