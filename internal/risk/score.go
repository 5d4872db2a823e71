package risk

import (
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Score composition weights. The weights sum to 100; each term is capped so
// no single signal can dominate beyond its share. Kept in one block so a
// re-weighting decision is a one-file change.
const (
	classifierWeight = 35.0

	permPoints = 2.0
	permCap    = 10 // dangerous permissions counted toward the score

	patternCap    = 6
	patternPoints = 20.0 / patternCap

	reputationWeight = 15.0

	trustWeight      = 15.0
	warningPoints    = 3
	warningPointsCap = 10
)

// Verdict thresholds, inclusive.
const (
	suspiciousThreshold = 40
	maliciousThreshold  = 70
)

// Aggregate fuses all upstream signals into one bounded risk assessment.
// It is the only component with knowledge of every upstream output.
func Aggregate(ext *types.Extraction, cls types.ClassifierResult,
	trust types.TrustAssessment, rep types.ReputationResult) types.RiskAssessment {

	score := 0.0

	if cls.Malicious {
		score += cls.Confidence * classifierWeight
	}

	perms := len(ext.DangerousPermissions)
	if perms > permCap {
		perms = permCap
	}
	score += float64(perms) * permPoints

	patterns := len(ext.SuspiciousPatterns)
	if patterns > patternCap {
		patterns = patternCap
	}
	score += float64(patterns) * patternPoints

	// An unavailable reputation source contributes nothing; it is not the
	// same as a clean zero-detection result.
	if rep.Available && rep.Total > 0 {
		score += float64(rep.Positives) / float64(rep.Total) * reputationWeight
	}

	score += (1 - trust.TrustScore) * trustWeight
	warningScore := warningPoints * len(trust.Warnings)
	if warningScore > warningPointsCap {
		warningScore = warningPointsCap
	}
	score += float64(warningScore)

	final := int(score)
	if final > 100 {
		final = 100
	}
	if final < 0 {
		final = 0
	}

	verdict := VerdictForScore(final)
	return types.RiskAssessment{
		Score:           final,
		Verdict:         verdict,
		Recommendations: recommendations(verdict, ext, trust, rep),
	}
}

// VerdictForScore maps a bounded score to its verdict. Boundaries are
// inclusive: 39 is Safe, 40 is Suspicious, 69 is Suspicious, 70 is
// Malicious.
func VerdictForScore(score int) types.Verdict {
	switch {
	case score >= maliciousThreshold:
		return types.VerdictMalicious
	case score >= suspiciousThreshold:
		return types.VerdictSuspicious
	}
	return types.VerdictSafe
}
