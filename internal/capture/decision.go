package capture

import "github.com/phrazzld/scry-capture/internal/analysis"

// thresholds are the per-policy cut-offs for DecisionConfidence.
type thresholds struct {
	highScore    float64
	highConcepts int
	lowScore     float64
	lowConcepts  int
}

var policyThresholds = map[InterventionPolicy]thresholds{
	PolicyFocused:    {highScore: 0.85, highConcepts: 6, lowScore: 0.65, lowConcepts: 4},
	PolicyAggressive: {highScore: 0.75, highConcepts: 4, lowScore: 0.55, lowConcepts: 2},
}

// DecisionConfidence grades a decision from its scores and concept count.
// Unknown policies are treated as focused.
func DecisionConfidence(relevance, value float64, concepts int, policy InterventionPolicy) Confidence {
	t, ok := policyThresholds[policy]
	if !ok {
		t = policyThresholds[PolicyFocused]
	}

	switch {
	case relevance >= t.highScore && value >= t.highScore && concepts >= t.highConcepts:
		return ConfidenceHigh
	case relevance < t.lowScore || value < t.lowScore || concepts < t.lowConcepts:
		return ConfidenceLow
	default:
		return ConfidenceBorderline
	}
}

const (
	ignoreThreshold = 0.7
	timingMargin    = 0.15
)

// DeriveIgnoreReason explains an ignored decision. It returns false for any
// other decision.
func DeriveIgnoreReason(decision analysis.Decision, relevance, value float64) (IgnoreReason, bool) {
	if decision != analysis.DecisionIgnored {
		return "", false
	}

	switch {
	case relevance < ignoreThreshold && value >= ignoreThreshold:
		return ReasonLowRelevanceForRole, true
	case value < ignoreThreshold && relevance >= ignoreThreshold:
		return ReasonLowLearningDepth, true
	case relevance >= ignoreThreshold-timingMargin && value >= ignoreThreshold-timingMargin:
		return ReasonPoorInterruptionTiming, true
	case relevance <= value:
		return ReasonLowRelevanceForRole, true
	default:
		return ReasonLowLearningDepth, true
	}
}
