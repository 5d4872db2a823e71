package classifier

import (
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Heuristic fallback rule: a package is malicious when its dangerous
// permission count exceeds the threshold AND at least one suspicious code
// pattern is present. Confidence grows with how far both counts exceed the
// thresholds.
const (
	dangerousPermThreshold = 5

	heuristicBaseConfidence   = 0.55
	confidencePerExcessPerm   = 0.04
	confidencePerPattern      = 0.05
	heuristicMaxConfidence    = 0.95
	heuristicBenignConfidence = 0.95
)

func heuristicClassify(vec []float64, ext *types.Extraction) types.ClassifierResult {
	perms := len(ext.DangerousPermissions)
	patterns := len(ext.SuspiciousPatterns)

	malicious := perms > dangerousPermThreshold && patterns >= 1

	var confidence float64
	if malicious {
		confidence = heuristicBaseConfidence +
			confidencePerExcessPerm*float64(perms-dangerousPermThreshold) +
			confidencePerPattern*float64(patterns)
		if confidence > heuristicMaxConfidence {
			confidence = heuristicMaxConfidence
		}
	} else {
		// closeness to the malicious rule erodes benign certainty
		confidence = heuristicBenignConfidence -
			confidencePerExcessPerm*float64(perms) -
			confidencePerPattern*float64(patterns)
		if confidence < heuristicBaseConfidence {
			confidence = heuristicBaseConfidence
		}
	}

	return types.ClassifierResult{
		Malicious:  malicious,
		Confidence: confidence,
		Category:   categoryFromVector(vec, malicious),
		Provenance: types.ProvenanceHeuristic,
	}
}
