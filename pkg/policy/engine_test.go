package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farsight-labs/warden/pkg/contracts"
)

func testActor(caps ...contracts.Capability) contracts.Actor {
	return contracts.Actor{
		ID:    "agent-1",
		Class: contracts.ActorSystem,
		Roles: []contracts.Role{{Name: "crawler", Capabilities: caps}},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultPack())
	require.NoError(t, err)
	return engine
}

func TestEvaluateAllowsLowRiskGrantedAction(t *testing.T) {
	engine := newTestEngine(t)
	v := engine.Evaluate(testActor(contracts.CapNavigate), contracts.CapNavigate, nil)
	assert.Equal(t, contracts.SubAllowed, v.Outcome)
	assert.Equal(t, contracts.RiskLow, v.Risk)
	assert.Equal(t, Stage, v.Source)
}

func TestEvaluateDenyByDefaultForUnknownAction(t *testing.T) {
	engine := newTestEngine(t)
	v := engine.Evaluate(testActor(contracts.CapNavigate), contracts.Capability("TELEPORT"), nil)
	assert.Equal(t, contracts.SubDenied, v.Outcome)
	assert.Equal(t, contracts.RiskCritical, v.Risk)
	assert.Equal(t, ReasonActionUnknown, v.ReasonCode)
}

func TestEvaluateDeniesMissingCapabilityRegardlessOfRisk(t *testing.T) {
	engine := newTestEngine(t)
	v := engine.Evaluate(testActor(contracts.CapNavigate), contracts.CapClick, nil)
	assert.Equal(t, contracts.SubDenied, v.Outcome)
	assert.Equal(t, ReasonCapabilityMissing, v.ReasonCode)
}

func TestEvaluateForbiddenActionNeverEscalates(t *testing.T) {
	engine := newTestEngine(t)
	// Even with the capability granted, forbidden actions hard-deny.
	for _, action := range []contracts.Capability{contracts.CapScriptExecute, contracts.CapFileUpload} {
		v := engine.Evaluate(testActor(action), action, nil)
		assert.Equal(t, contracts.SubDenied, v.Outcome, "action %s", action)
		assert.Equal(t, ReasonActionForbidden, v.ReasonCode)
		assert.NotEqual(t, contracts.SubHumanRequired, v.Outcome)
	}
}

func TestEvaluateHighRiskRequiresHuman(t *testing.T) {
	engine := newTestEngine(t)
	v := engine.Evaluate(testActor(contracts.CapSubmitForm), contracts.CapSubmitForm, nil)
	assert.Equal(t, contracts.SubHumanRequired, v.Outcome)
	assert.Equal(t, contracts.RiskHigh, v.Risk)
}

func TestEvaluateContextGuard(t *testing.T) {
	pack := &Pack{
		Version: "1.1.0",
		Rules: []Rule{
			{Action: contracts.CapNavigate, Risk: contracts.RiskLow, Guard: `context.scope == "authorized"`},
		},
	}
	engine, err := NewEngine(pack)
	require.NoError(t, err)
	actor := testActor(contracts.CapNavigate)

	allowed := engine.Evaluate(actor, contracts.CapNavigate, map[string]any{"scope": "authorized"})
	assert.Equal(t, contracts.SubAllowed, allowed.Outcome)

	denied := engine.Evaluate(actor, contracts.CapNavigate, map[string]any{"scope": "anything"})
	assert.Equal(t, contracts.SubDenied, denied.Outcome)
	assert.Equal(t, ReasonGuardDenied, denied.ReasonCode)

	// Missing key makes the guard error; fail-closed.
	errored := engine.Evaluate(actor, contracts.CapNavigate, map[string]any{})
	assert.Equal(t, contracts.SubDenied, errored.Outcome)
	assert.Equal(t, ReasonGuardError, errored.ReasonCode)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	actor := testActor(contracts.CapSubmitForm, contracts.CapNavigate)
	ctx := map[string]any{"scope": "authorized"}
	first := engine.Evaluate(actor, contracts.CapSubmitForm, ctx)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, engine.Evaluate(actor, contracts.CapSubmitForm, ctx))
	}
}

func TestLoadPackVersionGate(t *testing.T) {
	_, err := LoadPack([]byte("version: \"2.5.0\"\nrules: []\n"))
	require.Error(t, err)

	pack, err := LoadPack([]byte(`
version: "1.3.0"
rules:
  - action: NAVIGATE
    risk: LOW
  - action: SCRIPT_EXECUTE
    forbidden: true
`))
	require.NoError(t, err)
	assert.Len(t, pack.Rules, 2)
}

func TestLoadPackRejectsMalformedRules(t *testing.T) {
	_, err := LoadPack([]byte(`
version: "1.0.0"
rules:
  - action: NAVIGATE
    risk: SOMEWHAT_BAD
`))
	require.Error(t, err)
	var structural *contracts.StructuralError
	assert.ErrorAs(t, err, &structural)

	_, err = LoadPack([]byte(`
version: "1.0.0"
rules:
  - action: NAVIGATE
    risk: LOW
  - action: NAVIGATE
    risk: HIGH
`))
	require.Error(t, err)
}
