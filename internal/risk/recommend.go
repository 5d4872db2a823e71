package risk

import (
	"fmt"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// permRecommendThreshold is the dangerous-permission count at which the
// permission-review recommendation fires.
const permRecommendThreshold = 5

// patternAdvice maps each detected pattern to its recommendation line, in
// canonical pattern order.
var patternAdvice = map[string]string{
	types.PatternDynamicCode:  "App loads code at runtime - its behavior can change after review",
	types.PatternCrypto:       "App uses cryptographic primitives - verify it has a legitimate need",
	types.PatternNativeCode:   "App ships native libraries that static analysis cannot fully inspect",
	types.PatternReflection:   "App uses reflection, a common obfuscation technique",
	types.PatternBootReceiver: "App starts itself on boot - persistence capability",
	types.PatternSMSReceiver:  "App intercepts incoming SMS messages",
}

// recommendations produces the human-readable advice list. Each rule is
// independent; all matching rules fire and their lines appear in a fixed
// priority order: verdict banner, source trust, permissions, patterns,
// reputation.
func recommendations(verdict types.Verdict, ext *types.Extraction,
	trust types.TrustAssessment, rep types.ReputationResult) []string {

	var recs []string

	switch verdict {
	case types.VerdictMalicious:
		recs = append(recs,
			"DO NOT INSTALL this application",
			"Delete this package immediately")
	case types.VerdictSuspicious:
		recs = append(recs,
			"Exercise caution with this application",
			"Review the requested permissions carefully before installing")
	default:
		recs = append(recs,
			"No immediate threats detected",
			"Always install applications from official sources")
	}

	if trust.Source == types.SourceUnverified {
		recs = append(recs, "The publisher of this package could not be verified")
	}
	if containsWarning(trust.Warnings, types.WarnExpired) {
		recs = append(recs, "The signing certificate has expired")
	}
	if containsWarning(trust.Warnings, types.WarnSelfSigned) {
		recs = append(recs, "The package is signed with a self-signed certificate")
	}

	if n := len(ext.DangerousPermissions); n >= permRecommendThreshold {
		recs = append(recs, fmt.Sprintf("App requests %d dangerous permissions - review each one", n))
	}

	for _, p := range types.PatternOrder {
		if !containsWarning(ext.SuspiciousPatterns, p) {
			continue
		}
		if advice, ok := patternAdvice[p]; ok {
			recs = append(recs, advice)
		}
	}

	if rep.Available && rep.Detected {
		recs = append(recs, fmt.Sprintf("Flagged by %d of %d reputation engines", rep.Positives, rep.Total))
	}

	return recs
}

func containsWarning(list []string, s string) bool {
	for _, w := range list {
		if w == s {
			return true
		}
	}
	return false
}
