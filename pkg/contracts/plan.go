package contracts

// ActionPlanStep is one declared step of an execution plan. Steps are
// metadata only: the selector and value are never interpreted by warden,
// only carried through to the external executor after clearance.
type ActionPlanStep struct {
	StepID    string     `json:"step_id"`
	Index     int        `json:"index"`
	Action    Capability `json:"action"`
	Selector  string     `json:"selector"`
	Value     string     `json:"value,omitempty"`
	TimeoutMs int64      `json:"timeout_ms"`
	Risk      RiskLevel  `json:"risk"`
}

// ExecutionPlan is an ordered sequence of steps proposed for one
// execution. MaxRiskLevel and IntegrityHash are derived by the plan
// validator when the plan is sealed; a plan whose hash is empty has not
// been through validation.
type ExecutionPlan struct {
	PlanID        string           `json:"plan_id"`
	ExecutionID   string           `json:"execution_id"`
	Steps         []ActionPlanStep `json:"steps"`
	MaxRiskLevel  RiskLevel        `json:"max_risk_level,omitempty"`
	IntegrityHash string           `json:"integrity_hash,omitempty"`
}

// StepRisks returns the per-step risk levels in plan order.
func (p ExecutionPlan) StepRisks() []RiskLevel {
	levels := make([]RiskLevel, 0, len(p.Steps))
	for _, s := range p.Steps {
		levels = append(levels, s.Risk)
	}
	return levels
}
