package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farsight-labs/warden/pkg/contracts"
)

func TestClaimFreshTarget(t *testing.T) {
	res := Claim("example.com/login", "agent-a", "", nil)
	assert.Equal(t, contracts.ClaimClaimed, res.Status)
	require.NotNil(t, res.Record)
	assert.Equal(t, "agent-a", res.Record.ActorID)
	assert.Equal(t, uint64(1), res.Record.Sequence)
}

func TestClaimNormalizedCollision(t *testing.T) {
	first := Claim("example.com/login", "agent-a", "", nil)
	require.NotNil(t, first.Record)

	// Cosmetically different descriptor, same canonical target.
	second := Claim("EXAMPLE.COM/login/", "agent-b", "", []contracts.CoordinationRecord{*first.Record})
	assert.Equal(t, contracts.ClaimAlreadyClaimed, second.Status)
	assert.Nil(t, second.Record)
}

func TestClaimIdempotentForSameActor(t *testing.T) {
	first := Claim("example.com/login", "agent-a", "", nil)
	require.NotNil(t, first.Record)

	again := Claim("https://example.com/login", "agent-a", "", []contracts.CoordinationRecord{*first.Record})
	assert.Equal(t, contracts.ClaimClaimed, again.Status)
	assert.Nil(t, again.Record, "idempotent re-claim appends nothing")
}

func TestClaimSequenceIsMonotonic(t *testing.T) {
	first := Claim("example.com/a", "agent-a", "", nil)
	second := Claim("example.com/b", "agent-b", "", []contracts.CoordinationRecord{*first.Record})
	require.NotNil(t, second.Record)
	assert.Greater(t, second.Record.Sequence, first.Record.Sequence)
}

func TestDuplicateFindingDetection(t *testing.T) {
	first := Claim("example.com/login", "agent-a", "reflected xss in q", nil)
	require.NotNil(t, first.Record)
	assert.NotEmpty(t, first.Record.DedupKey)

	dup := Claim("EXAMPLE.COM/login", "agent-a", "Reflected XSS in q", []contracts.CoordinationRecord{*first.Record})
	assert.Equal(t, contracts.ClaimDuplicateFinding, dup.Status)

	// Same target, different finding: not a duplicate.
	other := Claim("example.com/login", "agent-a", "sqli in id", []contracts.CoordinationRecord{*first.Record})
	assert.Equal(t, contracts.ClaimClaimed, other.Status)
}

func TestClaimIsDeterministic(t *testing.T) {
	existing := []contracts.CoordinationRecord{
		{TargetFingerprint: "example.com/a", ActorID: "agent-a", Sequence: 1},
		{TargetFingerprint: "example.com/b", ActorID: "agent-b", Sequence: 2},
	}
	first := Claim("example.com/c", "agent-c", "finding", existing)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Claim("example.com/c", "agent-c", "finding", existing))
	}
}

func TestSubVerdictMapping(t *testing.T) {
	deny := SubVerdict(ClaimResult{Status: contracts.ClaimAlreadyClaimed}, "example.com/login")
	assert.Equal(t, contracts.SubDenied, deny.Outcome)
	assert.Equal(t, ReasonAlreadyClaimed, deny.ReasonCode)

	dup := SubVerdict(ClaimResult{Status: contracts.ClaimDuplicateFinding}, "example.com/login")
	assert.Equal(t, contracts.SubNoObjection, dup.Outcome)
	assert.Equal(t, ReasonDuplicateFinding, dup.ReasonCode)

	ok := SubVerdict(ClaimResult{Status: contracts.ClaimClaimed}, "example.com/login")
	assert.True(t, ok.Outcome.IsAllow())
}
