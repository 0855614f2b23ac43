package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/farsight-labs/warden/pkg/contracts"
)

// Stage name recorded on every sub-verdict this engine emits.
const Stage = "capability-risk-policy"

// Reason codes emitted by the policy engine.
const (
	ReasonActionUnknown     = "ACTION_NOT_IN_RISK_TABLE"
	ReasonActionForbidden   = "ACTION_FORBIDDEN"
	ReasonCapabilityMissing = "CAPABILITY_NOT_GRANTED"
	ReasonGuardDenied       = "CONTEXT_GUARD_DENIED"
	ReasonGuardError        = "CONTEXT_GUARD_ERROR"
	ReasonRiskRequiresHuman = "RISK_REQUIRES_HUMAN"
	ReasonCapabilityGranted = "CAPABILITY_GRANTED"
)

// Engine evaluates (actor, action, context) against a compiled policy
// pack. Evaluation is a pure function: no clock, no I/O, no mutation.
type Engine struct {
	rules  map[contracts.Capability]Rule
	guards map[contracts.Capability]cel.Program
}

// NewEngine compiles the pack's CEL guards and builds the lookup table.
// A guard that fails to compile is a load-time error, not a runtime
// default-allow.
func NewEngine(pack *Pack) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("context", cel.DynType),
		cel.Variable("actor_id", cel.StringType),
		cel.Variable("action", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: cel environment: %w", err)
	}

	e := &Engine{
		rules:  make(map[contracts.Capability]Rule, len(pack.Rules)),
		guards: make(map[contracts.Capability]cel.Program),
	}
	for _, rule := range pack.Rules {
		e.rules[rule.Action] = rule
		if rule.Guard == "" {
			continue
		}
		ast, issues := env.Compile(rule.Guard)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("policy: guard for %s does not compile: %w", rule.Action, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("policy: guard program for %s: %w", rule.Action, err)
		}
		e.guards[rule.Action] = program
	}
	return e, nil
}

// Evaluate resolves one proposed action to ALLOWED, DENIED, or
// HUMAN_REQUIRED plus its risk level. Order of checks:
//
//  1. Action absent from the risk table → DENIED at CRITICAL risk
//     (deny-by-default: an unclassified action has no safe reading).
//  2. Forbidden action → DENIED; forbidden rules cannot be escalated
//     to human review.
//  3. Actor's roles do not grant the capability → DENIED.
//  4. Context guard false or erroring → DENIED (fail-closed).
//  5. Base risk ≥ HIGH → HUMAN_REQUIRED.
//  6. Otherwise ALLOWED.
func (e *Engine) Evaluate(actor contracts.Actor, action contracts.Capability, requestCtx map[string]any) contracts.SubVerdict {
	rule, ok := e.rules[action]
	if !ok {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskCritical,
			ReasonCode: ReasonActionUnknown,
			Detail:     fmt.Sprintf("action %s has no risk classification", action),
		}
	}

	if rule.Forbidden {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskCritical,
			ReasonCode: ReasonActionForbidden,
			Detail:     fmt.Sprintf("action %s is forbidden by policy", action),
		}
	}

	if !actor.HasCapability(action) {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       rule.Risk,
			ReasonCode: ReasonCapabilityMissing,
			Detail:     fmt.Sprintf("actor %s holds no role granting %s", actor.ID, action),
		}
	}

	if program, guarded := e.guards[action]; guarded {
		verdict, ok := e.runGuard(program, actor, action, requestCtx)
		if !ok {
			return verdict
		}
	}

	if rule.Risk.AtLeast(contracts.RiskHigh) {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubHumanRequired,
			Risk:       rule.Risk,
			ReasonCode: ReasonRiskRequiresHuman,
			Detail:     fmt.Sprintf("action %s carries %s risk", action, rule.Risk),
		}
	}

	return contracts.SubVerdict{
		Source:     Stage,
		Outcome:    contracts.SubAllowed,
		Risk:       rule.Risk,
		ReasonCode: ReasonCapabilityGranted,
	}
}

// runGuard evaluates a CEL guard. The second return is true when the
// guard passed; on false it returns the denial verdict to emit.
func (e *Engine) runGuard(program cel.Program, actor contracts.Actor, action contracts.Capability, requestCtx map[string]any) (contracts.SubVerdict, bool) {
	if requestCtx == nil {
		requestCtx = map[string]any{}
	}
	out, _, err := program.Eval(map[string]any{
		"context":  requestCtx,
		"actor_id": actor.ID,
		"action":   string(action),
	})
	if err != nil {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskCritical,
			ReasonCode: ReasonGuardError,
			Detail:     fmt.Sprintf("guard for %s errored: %v", action, err),
		}, false
	}
	allowed, ok := out.Value().(bool)
	if !ok || !allowed {
		return contracts.SubVerdict{
			Source:     Stage,
			Outcome:    contracts.SubDenied,
			Risk:       e.rules[action].Risk,
			ReasonCode: ReasonGuardDenied,
			Detail:     fmt.Sprintf("context guard for %s not satisfied", action),
		}, false
	}
	return contracts.SubVerdict{}, true
}
