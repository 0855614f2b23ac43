package contracts

// Outcome is the closed final verdict of the decision pipeline.
type Outcome string

const (
	OutcomeAccept        Outcome = "ACCEPT"
	OutcomeReject        Outcome = "REJECT"
	OutcomeRequiresHuman Outcome = "REQUIRES_HUMAN"
)

// SubOutcome is the closed verdict vocabulary of individual pipeline
// stages. The policy engine speaks ALLOWED/DENIED/HUMAN_REQUIRED, the
// plan validator speaks ACCEPT/REJECT/REQUIRES_HUMAN, and a stage with
// nothing to add contributes NO_OBJECTION.
type SubOutcome string

const (
	SubAllowed       SubOutcome = "ALLOWED"
	SubDenied        SubOutcome = "DENIED"
	SubHumanRequired SubOutcome = "HUMAN_REQUIRED"
	SubAccept        SubOutcome = "ACCEPT"
	SubReject        SubOutcome = "REJECT"
	SubRequiresHuman SubOutcome = "REQUIRES_HUMAN"
	SubNoObjection   SubOutcome = "NO_OBJECTION"
)

// IsDeny reports whether the sub-outcome vetoes the action. Anything
// outside the closed vocabulary classifies as a veto: an unrecognized
// verdict must never read as permission.
func (s SubOutcome) IsDeny() bool {
	switch s {
	case SubAllowed, SubAccept, SubNoObjection, SubHumanRequired, SubRequiresHuman:
		return false
	}
	return true
}

// IsHumanRequired reports whether the sub-outcome demands human review.
func (s SubOutcome) IsHumanRequired() bool {
	return s == SubHumanRequired || s == SubRequiresHuman
}

// IsAllow reports whether the sub-outcome is an unconditional allow.
func (s SubOutcome) IsAllow() bool {
	switch s {
	case SubAllowed, SubAccept, SubNoObjection:
		return true
	}
	return false
}

// SubVerdict is the outcome of one policy stage, consumed verbatim by
// aggregation and preserved in the final decision for audit.
type SubVerdict struct {
	Source     string     `json:"source"`
	Outcome    SubOutcome `json:"outcome"`
	Risk       RiskLevel  `json:"risk"`
	ReasonCode string     `json:"reason_code"`
	Detail     string     `json:"detail,omitempty"`
}

// Decision is the single aggregated verdict for a proposed action. The
// contributing sub-verdicts are kept in input order with no filtering;
// every decision points to at least one, even when that verdict is
// "no objection".
type Decision struct {
	DecisionID  string       `json:"decision_id"`
	Outcome     Outcome      `json:"outcome"`
	Risk        RiskLevel    `json:"risk"`
	ReasonCode  string       `json:"reason_code"`
	SubVerdicts []SubVerdict `json:"sub_verdicts"`
}

// Reason codes shared across stages. Stage-specific codes live with
// their stage; these are the ones that surface on final decisions.
const (
	ReasonAllVerdictsAllow    = "ALL_VERDICTS_ALLOW"
	ReasonSubVerdictDenied    = "SUB_VERDICT_DENIED"
	ReasonHumanReviewRequired = "HUMAN_REVIEW_REQUIRED"
	ReasonNoSubVerdicts       = "NO_SUB_VERDICTS"
)

// ReadinessState is the closed hand-off gate state.
type ReadinessState string

const (
	ReadinessReady         ReadinessState = "READY"
	ReadinessBlocked       ReadinessState = "BLOCKED"
	ReadinessAwaitingHuman ReadinessState = "AWAITING_HUMAN"
)
