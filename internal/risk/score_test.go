package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

func TestVerdictForScore(t *testing.T) {
	assert.Equal(t, types.VerdictSafe, VerdictForScore(0))
	assert.Equal(t, types.VerdictSafe, VerdictForScore(39))
	assert.Equal(t, types.VerdictSuspicious, VerdictForScore(40))
	assert.Equal(t, types.VerdictSuspicious, VerdictForScore(69))
	assert.Equal(t, types.VerdictMalicious, VerdictForScore(70))
	assert.Equal(t, types.VerdictMalicious, VerdictForScore(100))
}

func TestAggregateCleanPackage(t *testing.T) {
	got := Aggregate(
		&types.Extraction{},
		types.ClassifierResult{Malicious: false, Confidence: 0.95},
		types.TrustAssessment{Source: types.SourceKnownDistributor, Verified: true, TrustScore: 1.0},
		types.ReputationResult{Available: true, Total: 70},
	)

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, types.VerdictSafe, got.Verdict)
	assert.Contains(t, got.Recommendations, "No immediate threats detected")
}

func TestAggregateHighRiskPackage(t *testing.T) {
	ext := &types.Extraction{
		DangerousPermissions: []string{"SEND_SMS", "READ_SMS", "READ_CONTACTS",
			"ACCESS_FINE_LOCATION", "RECORD_AUDIO", "CAMERA", "READ_PHONE_STATE", "CALL_PHONE"},
		SuspiciousPatterns: []string{types.PatternDynamicCode, types.PatternCrypto, types.PatternSMSReceiver},
	}
	cls := types.ClassifierResult{Malicious: true, Confidence: 0.9, Category: types.CategorySMSFraud}
	trust := types.TrustAssessment{Source: types.SourceUnverified, TrustScore: 0.15,
		Warnings: []string{types.WarnSelfSigned}}
	rep := types.ReputationResult{Available: true, Detected: true, Positives: 51, Total: 60}

	got := Aggregate(ext, cls, trust, rep)

	// 31.5 + 16 + 10 + 12.75 + 12.75 + 3 = 86
	assert.Equal(t, 86, got.Score)
	assert.Equal(t, types.VerdictMalicious, got.Verdict)
	assert.Equal(t, "DO NOT INSTALL this application", got.Recommendations[0])
}

func TestAggregateTruncatesFractionalScore(t *testing.T) {
	got := Aggregate(
		&types.Extraction{SuspiciousPatterns: []string{types.PatternCrypto}},
		types.ClassifierResult{},
		types.TrustAssessment{TrustScore: 1.0},
		types.ReputationResult{},
	)
	// one pattern contributes 20/6 = 3.33, truncated to 3
	assert.Equal(t, 3, got.Score)
}

func TestAggregateCapsPermissionAndPatternBands(t *testing.T) {
	perms := make([]string, 25)
	for i := range perms {
		perms[i] = "P"
	}
	ext := &types.Extraction{
		DangerousPermissions: perms,
		SuspiciousPatterns: append(append([]string{}, types.PatternOrder...),
			"extra", "extra2"),
	}

	got := Aggregate(ext, types.ClassifierResult{},
		types.TrustAssessment{TrustScore: 1.0}, types.ReputationResult{})

	// permissions cap at 10*2, patterns at 20
	assert.Equal(t, 40, got.Score)
}

func TestAggregateUnavailableReputationContributesNothing(t *testing.T) {
	ext := &types.Extraction{}
	cls := types.ClassifierResult{}
	trust := types.TrustAssessment{TrustScore: 1.0}

	unavailable := Aggregate(ext, cls, trust, types.ReputationResult{Available: false, Positives: 50, Total: 60})
	assert.Equal(t, 0, unavailable.Score)

	available := Aggregate(ext, cls, trust, types.ReputationResult{Available: true, Detected: true, Positives: 50, Total: 60})
	// 50/60 * 15 = 12.5 truncated
	assert.Equal(t, 12, available.Score)
}

func TestAggregateBenignClassifierContributesNothing(t *testing.T) {
	got := Aggregate(&types.Extraction{},
		types.ClassifierResult{Malicious: false, Confidence: 0.99},
		types.TrustAssessment{TrustScore: 1.0}, types.ReputationResult{})
	assert.Equal(t, 0, got.Score)
}

func TestAggregateTrustWarningPointsCap(t *testing.T) {
	trust := types.TrustAssessment{TrustScore: 1.0,
		Warnings: []string{"w1", "w2", "w3", "w4", "w5"}}

	got := Aggregate(&types.Extraction{}, types.ClassifierResult{}, trust, types.ReputationResult{})
	// 5 warnings would be 15 points; capped at 10
	assert.Equal(t, 10, got.Score)
}

func TestAggregateScoreIsMonotonicInTrust(t *testing.T) {
	ext := &types.Extraction{DangerousPermissions: []string{"A", "B"}}
	cls := types.ClassifierResult{Malicious: true, Confidence: 0.8}
	rep := types.ReputationResult{}

	prev := -1
	for _, ts := range []float64{1.0, 0.7, 0.2, 0.0} {
		got := Aggregate(ext, cls, types.TrustAssessment{TrustScore: ts}, rep)
		assert.GreaterOrEqual(t, got.Score, prev, "trust score %v", ts)
		prev = got.Score
	}
}

func TestAggregateScoreIsMonotonicInConfidence(t *testing.T) {
	ext := &types.Extraction{SuspiciousPatterns: []string{types.PatternCrypto}}
	trust := types.TrustAssessment{TrustScore: 0.7}
	rep := types.ReputationResult{}

	prev := -1
	for _, conf := range []float64{0.5, 0.6, 0.75, 0.9, 1.0} {
		cls := types.ClassifierResult{Malicious: true, Confidence: conf}
		got := Aggregate(ext, cls, trust, rep)
		assert.GreaterOrEqual(t, got.Score, prev, "confidence %v", conf)
		prev = got.Score
	}
}

func TestAggregateScoreIsMonotonicInPermissionCount(t *testing.T) {
	cls := types.ClassifierResult{Malicious: true, Confidence: 0.6}
	trust := types.TrustAssessment{TrustScore: 0.7}
	rep := types.ReputationResult{}

	prev := -1
	for n := 0; n <= 15; n++ {
		ext := &types.Extraction{DangerousPermissions: make([]string, n)}
		got := Aggregate(ext, cls, trust, rep)
		assert.GreaterOrEqual(t, got.Score, prev, "%d permissions", n)
		prev = got.Score
	}
}

func TestAggregateScoreIsMonotonicInPatternCount(t *testing.T) {
	cls := types.ClassifierResult{Malicious: true, Confidence: 0.6}
	trust := types.TrustAssessment{TrustScore: 0.7}
	rep := types.ReputationResult{}

	prev := -1
	for n := 0; n <= 8; n++ {
		ext := &types.Extraction{SuspiciousPatterns: make([]string, n)}
		got := Aggregate(ext, cls, trust, rep)
		assert.GreaterOrEqual(t, got.Score, prev, "%d patterns", n)
		prev = got.Score
	}
}

func TestAggregateScoreIsMonotonicInDetectionRatio(t *testing.T) {
	ext := &types.Extraction{DangerousPermissions: []string{"A"}}
	cls := types.ClassifierResult{Malicious: true, Confidence: 0.6}
	trust := types.TrustAssessment{TrustScore: 0.7}

	prev := -1
	for _, positives := range []int{0, 5, 20, 45, 60} {
		rep := types.ReputationResult{Available: true, Detected: positives > 0,
			Positives: positives, Total: 60}
		got := Aggregate(ext, cls, trust, rep)
		assert.GreaterOrEqual(t, got.Score, prev, "%d positives", positives)
		prev = got.Score
	}
}

func TestRecommendationOrder(t *testing.T) {
	ext := &types.Extraction{
		DangerousPermissions: []string{"A", "B", "C", "D", "E", "F"},
		SuspiciousPatterns:   []string{types.PatternSMSReceiver, types.PatternDynamicCode},
	}
	trust := types.TrustAssessment{Source: types.SourceUnverified,
		Warnings: []string{types.WarnExpired, types.WarnSelfSigned}}
	rep := types.ReputationResult{Available: true, Detected: true, Positives: 12, Total: 60}

	recs := recommendations(types.VerdictMalicious, ext, trust, rep)

	assert.Equal(t, []string{
		"DO NOT INSTALL this application",
		"Delete this package immediately",
		"The publisher of this package could not be verified",
		"The signing certificate has expired",
		"The package is signed with a self-signed certificate",
		"App requests 6 dangerous permissions - review each one",
		"App loads code at runtime - its behavior can change after review",
		"App intercepts incoming SMS messages",
		"Flagged by 12 of 60 reputation engines",
	}, recs)
}

func TestRecommendationsSuspiciousBanner(t *testing.T) {
	recs := recommendations(types.VerdictSuspicious, &types.Extraction{},
		types.TrustAssessment{Source: types.SourceValidThirdParty}, types.ReputationResult{})
	assert.Equal(t, "Exercise caution with this application", recs[0])
	assert.Len(t, recs, 2)
}
