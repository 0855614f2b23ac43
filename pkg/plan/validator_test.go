package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farsight-labs/warden/pkg/contracts"
)

func step(id string, index int, action contracts.Capability, risk contracts.RiskLevel) contracts.ActionPlanStep {
	return contracts.ActionPlanStep{
		StepID:    id,
		Index:     index,
		Action:    action,
		Selector:  "#login",
		TimeoutMs: 5000,
		Risk:      risk,
	}
}

func grants(caps ...contracts.Capability) map[contracts.Capability]bool {
	g := make(map[contracts.Capability]bool)
	for _, c := range caps {
		g[c] = true
	}
	return g
}

func TestValidateEmptyPlan(t *testing.T) {
	r := Validate(contracts.ExecutionPlan{PlanID: "p-1"}, grants(contracts.CapNavigate))
	assert.Equal(t, contracts.SubReject, r.Outcome)
	assert.Equal(t, ReasonEmptyPlan, r.ReasonCode)
}

func TestValidateNonContiguousIndices(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapNavigate, contracts.RiskLow),
		step("s3", 3, contracts.CapNavigate, contracts.RiskLow),
	}}
	r := Validate(p, grants(contracts.CapNavigate))
	assert.Equal(t, contracts.SubReject, r.Outcome)
	assert.Equal(t, ReasonNonContiguousIndex, r.ReasonCode)
}

func TestValidateIndicesNotStartingAtZero(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s1", 1, contracts.CapNavigate, contracts.RiskLow),
	}}
	r := Validate(p, grants(contracts.CapNavigate))
	assert.Equal(t, ReasonNonContiguousIndex, r.ReasonCode)
}

func TestValidateDuplicateIndices(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapNavigate, contracts.RiskLow),
		step("s1b", 1, contracts.CapNavigate, contracts.RiskLow),
		step("s3", 3, contracts.CapNavigate, contracts.RiskLow),
	}}
	r := Validate(p, grants(contracts.CapNavigate))
	assert.Equal(t, contracts.SubReject, r.Outcome)
	assert.Equal(t, ReasonDuplicateStepIndex, r.ReasonCode)
}

func TestValidateCapabilityCoverage(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapSubmitForm, contracts.RiskHigh),
	}}
	r := Validate(p, grants(contracts.CapNavigate, contracts.CapClick))
	assert.Equal(t, contracts.SubReject, r.Outcome)
	assert.Equal(t, ReasonCapabilityNotCovered, r.ReasonCode)
	assert.Equal(t, "s1", r.OffendingStep)
}

func TestValidateHighRiskRequiresHuman(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapSubmitForm, contracts.RiskHigh),
	}}
	r := Validate(p, grants(contracts.CapNavigate, contracts.CapSubmitForm))
	assert.Equal(t, contracts.SubRequiresHuman, r.Outcome)
	assert.Equal(t, contracts.RiskHigh, r.MaxRisk)
	assert.False(t, r.NeedsApprovalToken)
}

func TestValidateCriticalNeedsApprovalToken(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapSubmitForm, contracts.RiskCritical),
	}}
	r := Validate(p, grants(contracts.CapSubmitForm))
	assert.Equal(t, contracts.SubRequiresHuman, r.Outcome)
	assert.True(t, r.NeedsApprovalToken)
}

func TestValidateAcceptsCleanLowRiskPlan(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapClick, contracts.RiskMedium),
	}}
	r := Validate(p, grants(contracts.CapNavigate, contracts.CapClick))
	assert.Equal(t, contracts.SubAccept, r.Outcome)
	assert.Equal(t, ReasonPlanValid, r.ReasonCode)
	assert.Equal(t, contracts.RiskMedium, r.MaxRisk)
}

func TestValidateInvalidRiskFailsClosed(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLevel("SEVERE")),
	}}
	r := Validate(p, grants(contracts.CapNavigate))
	assert.Equal(t, contracts.SubReject, r.Outcome)
	assert.Equal(t, ReasonInvalidStepRisk, r.ReasonCode)
}

func TestSealDerivesHashAndMaxRisk(t *testing.T) {
	p := contracts.ExecutionPlan{PlanID: "p-1", ExecutionID: "e-1", Steps: []contracts.ActionPlanStep{
		step("s0", 0, contracts.CapNavigate, contracts.RiskLow),
		step("s1", 1, contracts.CapSubmitForm, contracts.RiskHigh),
	}}
	sealed, err := Seal(p)
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskHigh, sealed.MaxRiskLevel)
	assert.Contains(t, sealed.IntegrityHash, "sha256:")

	again, err := Seal(p)
	require.NoError(t, err)
	assert.Equal(t, sealed.IntegrityHash, again.IntegrityHash)

	mutated := p
	mutated.Steps = append([]contracts.ActionPlanStep(nil), p.Steps...)
	mutated.Steps[1].Selector = "#other"
	different, err := Seal(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, sealed.IntegrityHash, different.IntegrityHash)
}

func TestParseValidJSON(t *testing.T) {
	raw := []byte(`{
		"plan_id": "p-1",
		"execution_id": "e-1",
		"steps": [
			{"step_id": "s0", "index": 0, "action": "NAVIGATE", "selector": "", "timeout_ms": 3000, "risk": "LOW"}
		]
	}`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PlanID)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, contracts.CapNavigate, p.Steps[0].Action)
}

func TestParseRejectsShapeViolations(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing steps":  `{"plan_id": "p", "execution_id": "e"}`,
		"bad risk":       `{"plan_id": "p", "execution_id": "e", "steps": [{"step_id": "s", "index": 0, "action": "NAVIGATE", "selector": "", "timeout_ms": 0, "risk": "SEVERE"}]}`,
		"negative index": `{"plan_id": "p", "execution_id": "e", "steps": [{"step_id": "s", "index": -1, "action": "NAVIGATE", "selector": "", "timeout_ms": 0, "risk": "LOW"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			var structural *contracts.StructuralError
			assert.ErrorAs(t, err, &structural)
		})
	}
}
