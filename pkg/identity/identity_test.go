package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farsight-labs/warden/pkg/contracts"
)

func TestParseActor(t *testing.T) {
	raw := []byte(`{
		"id": "agent-a",
		"class": "SYSTEM",
		"roles": [{"name": "crawler", "capabilities": ["NAVIGATE", "CLICK"]}]
	}`)
	actor, err := ParseActor(raw)
	require.NoError(t, err)
	assert.Equal(t, "agent-a", actor.ID)
	assert.True(t, actor.HasCapability(contracts.CapNavigate))
	assert.False(t, actor.HasCapability(contracts.CapSubmitForm))
}

func TestParseActorRejectsUnknownCapability(t *testing.T) {
	raw := []byte(`{
		"id": "agent-a",
		"class": "SYSTEM",
		"roles": [{"name": "crawler", "capabilities": ["TELEPORT"]}]
	}`)
	_, err := ParseActor(raw)
	require.Error(t, err)
	var structural *contracts.StructuralError
	assert.ErrorAs(t, err, &structural)
}

func TestValidateRejectsBadDescriptors(t *testing.T) {
	cases := map[string]contracts.Actor{
		"empty id":      {Class: contracts.ActorHuman},
		"unknown class": {ID: "x", Class: "ROBOT"},
		"unnamed role":  {ID: "x", Class: contracts.ActorSystem, Roles: []contracts.Role{{}}},
	}
	for name, actor := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(actor))
		})
	}
}
