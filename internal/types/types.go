package types

import (
	"time"
)

// Verdict is the final classification of a scanned package.
type Verdict string

const (
	VerdictSafe       Verdict = "Safe"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictMalicious  Verdict = "Malicious"
)

// ThreatCategory labels the kind of threat a malicious package represents.
type ThreatCategory string

const (
	CategoryBenign        ThreatCategory = "benign"
	CategorySMSFraud      ThreatCategory = "sms-fraud"
	CategoryBankingTrojan ThreatCategory = "banking-trojan"
	CategorySpyware       ThreatCategory = "spyware"
	CategoryRansomware    ThreatCategory = "ransomware"
	CategoryAdware        ThreatCategory = "adware"
	CategoryBackdoor      ThreatCategory = "backdoor"
	CategoryGeneric       ThreatCategory = "generic-malware"
)

// Provenance records how a classifier result was produced.
type Provenance string

const (
	ProvenanceModel     Provenance = "model"
	ProvenanceHeuristic Provenance = "heuristic"
)

// SourceClass is the trust classification of a package's signing identity.
type SourceClass string

const (
	SourceKnownDistributor SourceClass = "known-distributor"
	SourceKnownPublisher   SourceClass = "known-publisher"
	SourceValidThirdParty  SourceClass = "valid-third-party"
	SourceUnverified       SourceClass = "unverified"
)

// Certificate warning strings. Shared constants so the risk aggregator's
// recommendation rules can match them without string drift.
const (
	WarnExpired       = "certificate has expired"
	WarnSelfSigned    = "certificate is self-signed"
	WarnShortValidity = "certificate validity span is under one year"
	WarnLongValidity  = "certificate validity span exceeds ten years"
	WarnNotYetValid   = "certificate is not yet valid"
	WarnNoCertificate = "no parsable signing certificate"
)

// Suspicious code patterns detected by the package inspector.
const (
	PatternDynamicCode  = "dynamic code loading"
	PatternCrypto       = "cryptographic primitives"
	PatternNativeCode   = "native code"
	PatternReflection   = "reflection"
	PatternBootReceiver = "boot receiver"
	PatternSMSReceiver  = "sms receiver"
)

// PatternOrder fixes the canonical ordering of pattern flags. It is the
// pattern band layout of the feature vector and must not change
// independently of the classifier artifact.
var PatternOrder = []string{
	PatternDynamicCode,
	PatternCrypto,
	PatternNativeCode,
	PatternReflection,
	PatternBootReceiver,
	PatternSMSReceiver,
}

// PackageInfo is the immutable identity of a scanned package.
type PackageInfo struct {
	PackageName string `json:"package_name"`
	AppName     string `json:"app_name"`
	VersionName string `json:"version_name"`
	VersionCode int    `json:"version_code"`
	MinSDK      int    `json:"min_sdk"`
	TargetSDK   int    `json:"target_sdk"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Certificate is a parsed signer certificate attached to a package.
type Certificate struct {
	Issuer             string    `json:"issuer"`
	Subject            string    `json:"subject"`
	Organization       string    `json:"organization,omitempty"`
	NotBefore          time.Time `json:"not_before"`
	NotAfter           time.Time `json:"not_after"`
	SelfSigned         bool      `json:"self_signed"`
	SignatureAlgorithm string    `json:"signature_algorithm"`
	SHA256Fingerprint  string    `json:"sha256_fingerprint"`
	Scheme             string    `json:"scheme"` // v1 (JAR signing) or v2 (signing block)
}

// ComponentCounts holds per-type declared component counts.
type ComponentCounts struct {
	Activities int `json:"activities"`
	Services   int `json:"services"`
	Receivers  int `json:"receivers"`
	Providers  int `json:"providers"`
}

// Extraction is the package inspector's structured output. All slices are
// canonically ordered so that identical input bytes produce identical
// extractions.
type Extraction struct {
	Package              PackageInfo     `json:"package"`
	Permissions          []string        `json:"permissions"`
	DangerousPermissions []string        `json:"dangerous_permissions"`
	Components           ComponentCounts `json:"components"`
	SuspiciousPatterns   []string        `json:"suspicious_patterns"`
	URLs                 []string        `json:"urls"`
	Certificates         []Certificate   `json:"certificates,omitempty"`
}

// ClassifierResult is the malware classifier's decision.
type ClassifierResult struct {
	Malicious  bool           `json:"malicious"`
	Confidence float64        `json:"confidence"`
	Category   ThreatCategory `json:"category"`
	Provenance Provenance     `json:"provenance"`
}

// ReputationResult is the outcome of an external reputation lookup.
// Available=false means the source could not be consulted; that is a valid
// first-class outcome, not an error.
type ReputationResult struct {
	Available bool       `json:"available"`
	Detected  bool       `json:"detected"`
	Positives int        `json:"positives"`
	Total     int        `json:"total"`
	ScanDate  *time.Time `json:"scan_date,omitempty"`
}

// TrustAssessment is the certificate trust evaluator's output.
type TrustAssessment struct {
	Source     SourceClass `json:"source"`
	Verified   bool        `json:"verified"`
	TrustScore float64     `json:"trust_score"`
	Warnings   []string    `json:"warnings"`
}

// RiskAssessment is the aggregator's terminal verdict.
type RiskAssessment struct {
	Score           int      `json:"score"`
	Verdict         Verdict  `json:"verdict"`
	Recommendations []string `json:"recommendations"`
}

// Report is the full scan report persisted in the result cache and returned
// at the output boundary. Immutable once created; a rescan of identical
// content returns the stored report.
type Report struct {
	ContentHash string           `json:"content_hash"`
	Filename    string           `json:"filename,omitempty"`
	ScannedAt   time.Time        `json:"scanned_at"`
	Package     PackageInfo      `json:"package"`
	Extraction  Extraction       `json:"extraction"`
	Classifier  ClassifierResult `json:"classifier"`
	Reputation  ReputationResult `json:"reputation"`
	Trust       TrustAssessment  `json:"trust"`
	Risk        RiskAssessment   `json:"risk"`
}
