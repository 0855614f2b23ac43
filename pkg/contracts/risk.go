package contracts

// RiskLevel categorizes the blast radius of an action. The set is closed
// and totally ordered; aggregation uses max-risk-wins and never lowers a
// level contributed by a sub-check.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskRank defines the total order. Unknown strings rank above CRITICAL
// so that a corrupted level can never compare as safe.
func riskRank(r RiskLevel) int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 4
	}
}

// Valid reports whether r is a member of the closed set.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// AtLeast reports whether r is at or above other in the total order.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank(r) >= riskRank(other)
}

// MaxRisk returns the highest level among the arguments, or LOW when
// called with none.
func MaxRisk(levels ...RiskLevel) RiskLevel {
	max := RiskLow
	for _, l := range levels {
		if riskRank(l) > riskRank(max) {
			max = l
		}
	}
	return max
}
