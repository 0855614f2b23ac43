// Package verdict combines the sub-verdicts of the pipeline stages into
// one final decision. Precedence is strict: any veto wins, then any
// human-review demand, and ACCEPT only when every contributor is an
// unconditional allow. Final risk is the maximum across contributors
// and never decreases when a contributor is added.
package verdict

import (
	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// Source recorded on sub-verdicts the aggregator itself synthesizes.
const Source = "decision-aggregator"

// Aggregate folds an ordered sequence of sub-verdicts into a Decision.
// The contributing list is preserved verbatim, with no filtering or
// reordering, so the decision is fully replayable from its own record.
// An empty sequence resolves to REJECT: absence of any verdict is not
// permission. The decision id is the canonical hash of the contributing
// sub-verdicts, so identical inputs yield an identical decision.
func Aggregate(subVerdicts []contracts.SubVerdict) contracts.Decision {
	if len(subVerdicts) == 0 {
		synthesized := contracts.SubVerdict{
			Source:     Source,
			Outcome:    contracts.SubDenied,
			Risk:       contracts.RiskCritical,
			ReasonCode: contracts.ReasonNoSubVerdicts,
			Detail:     "no pipeline stage produced a verdict",
		}
		return decide(contracts.OutcomeReject, contracts.RiskCritical,
			contracts.ReasonNoSubVerdicts, []contracts.SubVerdict{synthesized})
	}

	contributed := append([]contracts.SubVerdict(nil), subVerdicts...)

	risk := contracts.RiskLow
	anyDeny := false
	anyHuman := false
	for _, sv := range contributed {
		risk = contracts.MaxRisk(risk, sv.Risk)
		if sv.Outcome.IsDeny() {
			anyDeny = true
		}
		if sv.Outcome.IsHumanRequired() {
			anyHuman = true
		}
	}

	switch {
	case anyDeny:
		return decide(contracts.OutcomeReject, risk, contracts.ReasonSubVerdictDenied, contributed)
	case anyHuman:
		return decide(contracts.OutcomeRequiresHuman, risk, contracts.ReasonHumanReviewRequired, contributed)
	default:
		return decide(contracts.OutcomeAccept, risk, contracts.ReasonAllVerdictsAllow, contributed)
	}
}

func decide(outcome contracts.Outcome, risk contracts.RiskLevel, reason string, contributed []contracts.SubVerdict) contracts.Decision {
	// Sub-verdicts hold only strings; canonicalization cannot fail.
	id, _ := canonicalize.CanonicalHash(struct {
		Outcome     contracts.Outcome      `json:"outcome"`
		Risk        contracts.RiskLevel    `json:"risk"`
		Reason      string                 `json:"reason"`
		SubVerdicts []contracts.SubVerdict `json:"sub_verdicts"`
	}{outcome, risk, reason, contributed})

	return contracts.Decision{
		DecisionID:  id,
		Outcome:     outcome,
		Risk:        risk,
		ReasonCode:  reason,
		SubVerdicts: contributed,
	}
}
