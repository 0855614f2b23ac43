package plan

import (
	"fmt"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// Stage name recorded on sub-verdicts this validator emits.
const Stage = "plan-validator"

// Reason codes emitted by the plan validator.
const (
	ReasonPlanValid            = "PLAN_VALID"
	ReasonEmptyPlan            = "EMPTY_PLAN"
	ReasonNonContiguousIndex   = "NON_CONTIGUOUS_STEP_INDEX"
	ReasonDuplicateStepIndex   = "DUPLICATE_STEP_INDEX"
	ReasonInvalidStepRisk      = "INVALID_STEP_RISK"
	ReasonCapabilityNotCovered = "STEP_CAPABILITY_NOT_COVERED"
	ReasonRiskRequiresHuman    = "PLAN_RISK_REQUIRES_HUMAN"
)

// Result is the validator's verdict over one plan.
type Result struct {
	Outcome       contracts.SubOutcome `json:"outcome"`
	ReasonCode    string               `json:"reason_code"`
	OffendingStep string               `json:"offending_step,omitempty"`
	MaxRisk       contracts.RiskLevel  `json:"max_risk"`
	// NeedsApprovalToken is set for CRITICAL plans: downstream, ACCEPT
	// is reachable only with an explicit human-approval token.
	NeedsApprovalToken bool `json:"needs_approval_token,omitempty"`
}

// SubVerdict projects the result onto the aggregation vocabulary.
func (r Result) SubVerdict() contracts.SubVerdict {
	detail := ""
	if r.OffendingStep != "" {
		detail = fmt.Sprintf("step %s", r.OffendingStep)
	}
	return contracts.SubVerdict{
		Source:     Stage,
		Outcome:    r.Outcome,
		Risk:       r.MaxRisk,
		ReasonCode: r.ReasonCode,
		Detail:     detail,
	}
}

// Validate checks a plan against the granted capability set. Checks run
// in a fixed order and the first failure wins:
//
//  1. Steps non-empty.
//  2. Step indices contiguous and monotonic from 0.
//  3. No two steps share an index.
//  4. Every step's risk level is a member of the closed set.
//  5. Every step's action covered by the granted capabilities; the
//     first uncovered step id is carried in the result.
//  6. Max step risk HIGH or CRITICAL forces REQUIRES_HUMAN; CRITICAL
//     additionally demands a human-approval token downstream.
func Validate(p contracts.ExecutionPlan, granted map[contracts.Capability]bool) Result {
	if len(p.Steps) == 0 {
		return Result{Outcome: contracts.SubReject, ReasonCode: ReasonEmptyPlan, MaxRisk: contracts.RiskLow}
	}

	n := len(p.Steps)
	prev := -1
	for _, step := range p.Steps {
		if step.Index < prev || step.Index < 0 || step.Index > n-1 {
			return Result{
				Outcome:       contracts.SubReject,
				ReasonCode:    ReasonNonContiguousIndex,
				OffendingStep: step.StepID,
				MaxRisk:       contracts.RiskLow,
			}
		}
		prev = step.Index
	}
	if p.Steps[0].Index != 0 || p.Steps[n-1].Index != n-1 {
		return Result{
			Outcome:       contracts.SubReject,
			ReasonCode:    ReasonNonContiguousIndex,
			OffendingStep: p.Steps[0].StepID,
			MaxRisk:       contracts.RiskLow,
		}
	}

	seen := make(map[int]string, n)
	for _, step := range p.Steps {
		if _, dup := seen[step.Index]; dup {
			return Result{
				Outcome:       contracts.SubReject,
				ReasonCode:    ReasonDuplicateStepIndex,
				OffendingStep: step.StepID,
				MaxRisk:       contracts.RiskLow,
			}
		}
		seen[step.Index] = step.StepID
	}

	for _, step := range p.Steps {
		if !step.Risk.Valid() {
			return Result{
				Outcome:       contracts.SubReject,
				ReasonCode:    ReasonInvalidStepRisk,
				OffendingStep: step.StepID,
				MaxRisk:       contracts.RiskCritical,
			}
		}
	}

	for _, step := range p.Steps {
		if !granted[step.Action] {
			return Result{
				Outcome:       contracts.SubReject,
				ReasonCode:    ReasonCapabilityNotCovered,
				OffendingStep: step.StepID,
				MaxRisk:       contracts.MaxRisk(p.StepRisks()...),
			}
		}
	}

	maxRisk := contracts.MaxRisk(p.StepRisks()...)
	if maxRisk.AtLeast(contracts.RiskHigh) {
		return Result{
			Outcome:            contracts.SubRequiresHuman,
			ReasonCode:         ReasonRiskRequiresHuman,
			MaxRisk:            maxRisk,
			NeedsApprovalToken: maxRisk == contracts.RiskCritical,
		}
	}

	return Result{Outcome: contracts.SubAccept, ReasonCode: ReasonPlanValid, MaxRisk: maxRisk}
}

// Seal derives the plan's max risk level and integrity hash over the
// canonical serialization of its steps. Sealing does not validate; a
// plan should be validated first.
func Seal(p contracts.ExecutionPlan) (contracts.ExecutionPlan, error) {
	hash, err := canonicalize.CanonicalHash(p.Steps)
	if err != nil {
		return contracts.ExecutionPlan{}, fmt.Errorf("plan: sealing %s: %w", p.PlanID, err)
	}
	sealed := p
	sealed.MaxRiskLevel = contracts.MaxRisk(p.StepRisks()...)
	sealed.IntegrityHash = hash
	return sealed, nil
}
