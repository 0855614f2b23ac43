// Package evidence implements the consistency engine: cross-source
// agreement checks over evidence bundles, replay readiness, and the
// confidence policy. Confidence is never inferred from a single source,
// and HIGH is reachable only when a finding is deterministically
// reproducible from its recorded evidence.
package evidence

import (
	"sort"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// Stage name recorded on sub-verdicts derived from evidence assessment.
const Stage = "evidence-consistency"

// DefaultAgreementQuorum is the default source count at which agreement
// alone (without replay readiness) earns MEDIUM confidence. Policy
// constant, overridable per Assessor.
const DefaultAgreementQuorum = 3

// Assessor evaluates evidence bundles. The zero value is not usable;
// construct with NewAssessor.
type Assessor struct {
	agreementQuorum int
}

// NewAssessor returns an assessor with the default agreement quorum.
func NewAssessor() *Assessor {
	return &Assessor{agreementQuorum: DefaultAgreementQuorum}
}

// WithAgreementQuorum overrides the ≥N-sources rule for MEDIUM
// confidence. Values below 2 are clamped to 2: one source can never
// corroborate itself.
func (a *Assessor) WithAgreementQuorum(n int) *Assessor {
	if n < 2 {
		n = 2
	}
	a.agreementQuorum = n
	return a
}

// Assess cross-checks a bundle for multi-source agreement.
//
// INSUFFICIENT when fewer than two independent sources are present.
// CONSISTENT when every independent source's canonicalized signal agrees
// exactly. Any disagreement yields INCONSISTENT; AgreeingSources then
// carries the size of the largest cluster of sources that do agree, so
// the confidence policy can still weigh partial corroboration.
func (a *Assessor) Assess(bundle contracts.EvidenceBundle) contracts.ConsistencyResult {
	signalsBySource := make(map[string]map[string]bool)
	for _, item := range bundle.Items {
		if item.Source == "" {
			continue
		}
		if signalsBySource[item.Source] == nil {
			signalsBySource[item.Source] = make(map[string]bool)
		}
		signalsBySource[item.Source][canonicalize.NormalizeSignal(item.Signal)] = true
	}

	if len(signalsBySource) < 2 {
		return contracts.ConsistencyResult{
			BundleID:        bundle.BundleID,
			Status:          contracts.ConsistencyInsufficient,
			AgreeingSources: len(signalsBySource),
		}
	}

	sources := make([]string, 0, len(signalsBySource))
	for source := range signalsBySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	// Cluster sources by their (single) canonical signal. A source that
	// contradicts itself cannot agree with anything, including itself.
	clusters := make(map[string]int)
	selfConsistent := 0
	for _, source := range sources {
		signals := signalsBySource[source]
		if len(signals) != 1 {
			continue
		}
		for signal := range signals {
			clusters[signal]++
		}
		selfConsistent++
	}

	largest := 0
	for _, n := range clusters {
		if n > largest {
			largest = n
		}
	}

	if largest == len(sources) && selfConsistent == len(sources) && len(clusters) == 1 {
		return contracts.ConsistencyResult{
			BundleID:        bundle.BundleID,
			Status:          contracts.ConsistencyConsistent,
			AgreeingSources: len(sources),
		}
	}

	return contracts.ConsistencyResult{
		BundleID:        bundle.BundleID,
		Status:          contracts.ConsistencyInconsistent,
		AgreeingSources: largest,
	}
}

// ReplayReadiness is satisfied only when every item carries recorded
// inputs and environment markers sufficient to reconstruct the
// observation without external state. An empty bundle is never ready.
func (a *Assessor) ReplayReadiness(bundle contracts.EvidenceBundle) contracts.ReplayReadiness {
	if len(bundle.Items) == 0 {
		return contracts.ReplayReadiness{Ready: false}
	}
	var missing []string
	for _, item := range bundle.Items {
		if len(item.RecordedInputs) == 0 || len(item.EnvMarkers) == 0 || item.IntegrityHash == "" {
			missing = append(missing, item.ItemID)
		}
	}
	return contracts.ReplayReadiness{Ready: len(missing) == 0, MissingItems: missing}
}

// Confidence applies the confidence policy:
//
//	HIGH   — CONSISTENT and replay-ready. Never reachable otherwise.
//	MEDIUM — CONSISTENT without replay readiness, or a cluster of at
//	         least the configured quorum of sources agreeing even when
//	         the bundle as a whole is INCONSISTENT.
//	LOW    — everything else, including any single-source bundle.
func (a *Assessor) Confidence(consistency contracts.ConsistencyResult, replay contracts.ReplayReadiness) contracts.ConfidenceLevel {
	switch consistency.Status {
	case contracts.ConsistencyConsistent:
		if replay.Ready {
			return contracts.ConfidenceHigh
		}
		return contracts.ConfidenceMedium
	case contracts.ConsistencyInconsistent:
		if consistency.AgreeingSources >= a.agreementQuorum {
			return contracts.ConfidenceMedium
		}
		return contracts.ConfidenceLow
	default:
		return contracts.ConfidenceLow
	}
}

// RequireConfidence surfaces InsufficientEvidence when the achieved
// level is below what the caller asked for.
func RequireConfidence(bundleID string, achieved, required contracts.ConfidenceLevel) error {
	if confidenceRank(achieved) >= confidenceRank(required) {
		return nil
	}
	return &contracts.InsufficientEvidence{BundleID: bundleID, Required: required, Actual: achieved}
}

func confidenceRank(c contracts.ConfidenceLevel) int {
	switch c {
	case contracts.ConfidenceHigh:
		return 2
	case contracts.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}
