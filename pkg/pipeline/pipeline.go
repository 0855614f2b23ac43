// Package pipeline composes the governance stages into one decision
// path. A proposal goes through capability policy, evidence
// consistency, target coordination, and plan validation; the
// sub-verdicts aggregate into a single decision, the human readiness
// gate is applied, and the full tuple is appended to the provenance
// ledger before the outcome is reported. A proposal that cannot be
// recorded is not decided.
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/farsight-labs/warden/pkg/audit"
	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
	"github.com/farsight-labs/warden/pkg/coordination"
	"github.com/farsight-labs/warden/pkg/evidence"
	"github.com/farsight-labs/warden/pkg/executor"
	"github.com/farsight-labs/warden/pkg/gate"
	"github.com/farsight-labs/warden/pkg/identity"
	"github.com/farsight-labs/warden/pkg/ledger"
	"github.com/farsight-labs/warden/pkg/plan"
	"github.com/farsight-labs/warden/pkg/policy"
	"github.com/farsight-labs/warden/pkg/verdict"
)

const ReasonPlanIntegrityMismatch = "PLAN_INTEGRITY_MISMATCH"

// Proposal is one agent action awaiting a decision.
type Proposal struct {
	Actor         contracts.Actor                `json:"actor"`
	Plan          contracts.ExecutionPlan        `json:"plan"`
	Target        string                         `json:"target"`
	FindingSignal string                         `json:"finding_signal,omitempty"`
	Evidence      contracts.EvidenceBundle       `json:"evidence"`
	Context       map[string]any                 `json:"context,omitempty"`
	Presence      gate.Presence                  `json:"presence"`
	ApprovalToken string                         `json:"approval_token,omitempty"`
	Coordination  []contracts.CoordinationRecord `json:"coordination,omitempty"`
}

// Evaluation is the recorded result of one proposal.
type Evaluation struct {
	Decision       contracts.Decision            `json:"decision"`
	Readiness      contracts.ReadinessState      `json:"readiness"`
	Confidence     contracts.ConfidenceLevel     `json:"confidence"`
	Consistency    contracts.ConsistencyResult   `json:"consistency"`
	Plan           plan.Result                   `json:"plan"`
	Claim          *contracts.CoordinationRecord `json:"claim,omitempty"`
	ClaimStatus    contracts.ClaimStatus         `json:"claim_status"`
	LedgerSequence uint64                        `json:"ledger_sequence"`
}

// Pipeline wires the stages together around one ledger.
type Pipeline struct {
	policy    *policy.Engine
	assessor  *evidence.Assessor
	approvals *gate.ApprovalVerifier
	ledger    *ledger.Ledger
	audit     audit.Logger
	tracer    trace.Tracer
}

// New builds a pipeline. The approval verifier may be nil, in which
// case CRITICAL plans can never present a valid token and stay parked
// at the human gate.
func New(engine *policy.Engine, led *ledger.Ledger) *Pipeline {
	return &Pipeline{
		policy:   engine,
		assessor: evidence.NewAssessor(),
		ledger:   led,
		audit:    audit.Nop(),
		tracer:   otel.Tracer("warden.governance"),
	}
}

// WithAssessor replaces the default evidence assessor.
func (p *Pipeline) WithAssessor(a *evidence.Assessor) *Pipeline {
	p.assessor = a
	return p
}

// WithApprovals installs the verifier for CRITICAL-plan tokens.
func (p *Pipeline) WithApprovals(v *gate.ApprovalVerifier) *Pipeline {
	p.approvals = v
	return p
}

// WithAudit installs an audit logger.
func (p *Pipeline) WithAudit(l audit.Logger) *Pipeline {
	p.audit = l
	return p
}

// WithTracer replaces the default tracer.
func (p *Pipeline) WithTracer(t trace.Tracer) *Pipeline {
	p.tracer = t
	return p
}

// Evaluate runs a proposal through every stage and records the outcome.
// The returned error is reserved for recording failures and malformed
// input; policy denials are expressed through the decision, never
// through the error.
func (p *Pipeline) Evaluate(ctx context.Context, proposal Proposal) (*Evaluation, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.evaluate", trace.WithAttributes(
		attribute.String("actor.id", proposal.Actor.ID),
		attribute.String("plan.id", proposal.Plan.PlanID),
	))
	defer span.End()

	if err := identity.Validate(proposal.Actor); err != nil {
		return nil, err
	}

	subVerdicts := make([]contracts.SubVerdict, 0, 8)

	sealed, mismatch, err := p.checkIntegrity(proposal.Plan)
	if err != nil {
		return nil, err
	}
	if mismatch != nil {
		subVerdicts = append(subVerdicts, *mismatch)
	}

	subVerdicts = append(subVerdicts, p.runPolicy(ctx, proposal)...)

	consistency, confidence := p.assessEvidence(ctx, proposal.Evidence)

	claim := p.runCoordination(ctx, proposal)
	subVerdicts = append(subVerdicts, coordination.SubVerdict(claim, proposal.Target))

	planResult, presence := p.validatePlan(ctx, sealed, proposal)
	subVerdicts = append(subVerdicts, planResult.SubVerdict())

	decision := verdict.Aggregate(subVerdicts)
	readiness := gate.Readiness(decision, confidence, presence)

	seq, err := p.record(ctx, proposal, decision, consistency, confidence, readiness)
	if err != nil {
		return nil, fmt.Errorf("record decision: %w", err)
	}

	span.SetAttributes(
		attribute.String("decision.outcome", string(decision.Outcome)),
		attribute.String("decision.readiness", string(readiness)),
	)

	return &Evaluation{
		Decision:       decision,
		Readiness:      readiness,
		Confidence:     confidence,
		Consistency:    consistency,
		Plan:           planResult,
		Claim:          claim.Record,
		ClaimStatus:    claim.Status,
		LedgerSequence: seq,
	}, nil
}

// checkIntegrity reseals the plan and compares hashes. An unsealed plan
// is sealed here; a sealed plan whose hash no longer matches its steps
// is denied outright.
func (p *Pipeline) checkIntegrity(unsealed contracts.ExecutionPlan) (contracts.ExecutionPlan, *contracts.SubVerdict, error) {
	sealed, err := plan.Seal(unsealed)
	if err != nil {
		return unsealed, nil, err
	}
	if unsealed.IntegrityHash != "" && unsealed.IntegrityHash != sealed.IntegrityHash {
		return sealed, &contracts.SubVerdict{
			Source:     plan.Stage,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskCritical,
			ReasonCode: ReasonPlanIntegrityMismatch,
			Detail:     fmt.Sprintf("plan %s hash does not match its steps", unsealed.PlanID),
		}, nil
	}
	return sealed, nil, nil
}

func (p *Pipeline) runPolicy(ctx context.Context, proposal Proposal) []contracts.SubVerdict {
	_, span := p.tracer.Start(ctx, "pipeline.policy")
	defer span.End()

	seen := map[contracts.Capability]bool{}
	out := make([]contracts.SubVerdict, 0, len(proposal.Plan.Steps))
	for _, step := range proposal.Plan.Steps {
		if seen[step.Action] {
			continue
		}
		seen[step.Action] = true
		out = append(out, p.policy.Evaluate(proposal.Actor, step.Action, proposal.Context))
	}
	return out
}

func (p *Pipeline) assessEvidence(ctx context.Context, bundle contracts.EvidenceBundle) (contracts.ConsistencyResult, contracts.ConfidenceLevel) {
	_, span := p.tracer.Start(ctx, "pipeline.evidence")
	defer span.End()

	consistency := p.assessor.Assess(bundle)
	replay := p.assessor.ReplayReadiness(bundle)
	confidence := p.assessor.Confidence(consistency, replay)
	span.SetAttributes(
		attribute.String("evidence.status", string(consistency.Status)),
		attribute.String("evidence.confidence", string(confidence)),
	)
	return consistency, confidence
}

func (p *Pipeline) runCoordination(ctx context.Context, proposal Proposal) coordination.ClaimResult {
	_, span := p.tracer.Start(ctx, "pipeline.coordination")
	defer span.End()
	return coordination.Claim(proposal.Target, proposal.Actor.ID, proposal.FindingSignal, proposal.Coordination)
}

// validatePlan runs structural validation and, for plans that demand an
// approval token, folds a verified token into presence as a documented
// human override.
func (p *Pipeline) validatePlan(ctx context.Context, sealed contracts.ExecutionPlan, proposal Proposal) (plan.Result, gate.Presence) {
	_, span := p.tracer.Start(ctx, "pipeline.plan")
	defer span.End()

	result := plan.Validate(sealed, proposal.Actor.CapabilitySet())
	presence := proposal.Presence

	if result.NeedsApprovalToken {
		if p.approvals != nil && proposal.ApprovalToken != "" {
			if err := p.approvals.Verify(proposal.ApprovalToken, sealed.PlanID); err == nil {
				presence.HumanPresent = true
				presence.ExplicitOverride = true
				presence.ConfidenceAcknowledged = true
			}
		}
	}
	return result, presence
}

// record appends the proposal's evidence bundle and the decision tuple
// to the ledger and mirrors the decision to the audit stream. Both
// appends happen before the caller sees the evaluation; duplicate
// findings land here like any other, exclusion happens at aggregation,
// not in the record.
func (p *Pipeline) record(ctx context.Context, proposal Proposal, decision contracts.Decision, consistency contracts.ConsistencyResult, confidence contracts.ConfidenceLevel, readiness contracts.ReadinessState) (uint64, error) {
	if proposal.Evidence.BundleID != "" || len(proposal.Evidence.Items) > 0 {
		bundleHash, err := canonicalize.CanonicalHash(proposal.Evidence)
		if err != nil {
			return 0, fmt.Errorf("hash evidence bundle: %w", err)
		}
		_, err = p.ledger.Append(ledger.KindEvidence, proposal.Actor.ID, map[string]any{
			"bundle":      proposal.Evidence,
			"bundle_hash": bundleHash,
			"consistency": consistency,
			"confidence":  confidence,
		})
		if err != nil {
			return 0, err
		}
	}

	payload := map[string]any{
		"decision":           decision,
		"consistency":        consistency,
		"confidence":         confidence,
		"readiness":          readiness,
		"plan_id":            proposal.Plan.PlanID,
		"target":             proposal.Target,
		"evidence_bundle_id": proposal.Evidence.BundleID,
	}
	seq, err := p.ledger.Append(ledger.KindDecision, proposal.Actor.ID, payload)
	if err != nil {
		return 0, err
	}
	auditErr := p.audit.Record(proposal.Actor.ID, audit.EventDecision, "evaluate", proposal.Target, map[string]any{
		"decision_id": decision.DecisionID,
		"outcome":     string(decision.Outcome),
		"readiness":   string(readiness),
		"sequence":    seq,
	})
	if auditErr != nil {
		// The ledger holds the authoritative record; a lost audit event
		// is noted on the span rather than failing the decision.
		trace.SpanFromContext(ctx).RecordError(fmt.Errorf("audit event dropped: %w", auditErr))
	}
	return seq, nil
}

// RecordExecutorClaim wraps an executor response as unverified evidence
// and appends it to the ledger. The response never short-circuits a
// decision; it only enters the record.
func (p *Pipeline) RecordExecutorClaim(ctx context.Context, resp contracts.ExecutionResponse) (contracts.EvidenceBundle, uint64, error) {
	_, span := p.tracer.Start(ctx, "pipeline.executor_claim")
	defer span.End()

	bundle, err := executor.ClaimBundle(resp)
	if err != nil {
		return contracts.EvidenceBundle{}, 0, err
	}
	seq, err := p.ledger.Append(ledger.KindExecutorClaim, executor.EvidenceSource, executor.ClaimPayload(resp))
	if err != nil {
		return contracts.EvidenceBundle{}, 0, fmt.Errorf("record executor claim: %w", err)
	}
	auditErr := p.audit.Record(executor.EvidenceSource, audit.EventClaim, "claim", "", map[string]any{
		"plan_id":  resp.PlanID,
		"step_id":  resp.StepID,
		"sequence": seq,
	})
	if auditErr != nil {
		span.RecordError(fmt.Errorf("audit event dropped: %w", auditErr))
	}
	return bundle, seq, nil
}
