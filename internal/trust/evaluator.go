package trust

import (
	"time"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Base trust scores per source classification. Each warning reduces the
// score by warningPenalty, floored at zero.
const (
	scoreKnownDistributor = 1.0
	scoreKnownPublisher   = 0.85
	scoreValidThirdParty  = 0.7
	scoreUnverified       = 0.2
	warningPenalty        = 0.05

	minValiditySpan = 365 * 24 * time.Hour
	maxValiditySpan = 10 * 365 * 24 * time.Hour
)

// Evaluator classifies a package's signing identity. It performs no
// external calls: the assessment is purely a function of certificate fields
// and the configured tables.
type Evaluator struct {
	tables Tables
	now    func() time.Time
}

func NewEvaluator(tables Tables, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{tables: tables, now: now}
}

// Evaluate produces a trust assessment for a package's signer certificates.
// An empty list (unsigned package, or unparsable signature data) degrades
// to unverified with a warning rather than failing.
func (e *Evaluator) Evaluate(certs []types.Certificate) types.TrustAssessment {
	if len(certs) == 0 {
		return types.TrustAssessment{
			Source:     types.SourceUnverified,
			Verified:   false,
			TrustScore: scoreUnverified - warningPenalty,
			Warnings:   []string{types.WarnNoCertificate},
		}
	}

	// Classify every signer and keep the best; a package signed by a known
	// identity under any scheme inherits that identity's class.
	primary := certs[0]
	class := e.classify(primary)
	for _, c := range certs[1:] {
		if cl := e.classify(c); classRank(cl) > classRank(class) {
			primary = c
			class = cl
		}
	}

	warnings := e.certificateWarnings(primary)
	score := baseScore(class) - warningPenalty*float64(len(warnings))
	if score < 0 {
		score = 0
	}

	return types.TrustAssessment{
		Source:     class,
		Verified:   class != types.SourceUnverified,
		TrustScore: score,
		Warnings:   warnings,
	}
}

func (e *Evaluator) classify(c types.Certificate) types.SourceClass {
	if e.tables.DistributorFingerprints[c.SHA256Fingerprint] {
		return types.SourceKnownDistributor
	}
	if c.Organization != "" && e.tables.PublisherOrganizations[c.Organization] {
		return types.SourceKnownPublisher
	}
	if !c.SelfSigned && c.NotAfter.Sub(c.NotBefore) >= minValiditySpan {
		return types.SourceValidThirdParty
	}
	return types.SourceUnverified
}

// certificateWarnings appends warnings independently of the classification,
// in a fixed order.
func (e *Evaluator) certificateWarnings(c types.Certificate) []string {
	now := e.now()
	span := c.NotAfter.Sub(c.NotBefore)

	var warnings []string
	if now.After(c.NotAfter) {
		warnings = append(warnings, types.WarnExpired)
	}
	if c.SelfSigned {
		warnings = append(warnings, types.WarnSelfSigned)
	}
	if span < minValiditySpan {
		warnings = append(warnings, types.WarnShortValidity)
	}
	if span > maxValiditySpan {
		warnings = append(warnings, types.WarnLongValidity)
	}
	if now.Before(c.NotBefore) {
		warnings = append(warnings, types.WarnNotYetValid)
	}
	return warnings
}

func baseScore(class types.SourceClass) float64 {
	switch class {
	case types.SourceKnownDistributor:
		return scoreKnownDistributor
	case types.SourceKnownPublisher:
		return scoreKnownPublisher
	case types.SourceValidThirdParty:
		return scoreValidThirdParty
	}
	return scoreUnverified
}

func classRank(class types.SourceClass) int {
	switch class {
	case types.SourceKnownDistributor:
		return 3
	case types.SourceKnownPublisher:
		return 2
	case types.SourceValidThirdParty:
		return 1
	}
	return 0
}
