package trust

// Tables carries the fixed allow-lists used for source classification.
//
// The known-distributor list matches SHA-256 certificate fingerprints
// (lowercase hex). No default fingerprints ship with the evaluator; deploys
// provide their own vetted set via configuration.
//
// The known-publisher table matches the certificate subject's Organization
// field against household platform vendors.
type Tables struct {
	DistributorFingerprints map[string]bool
	PublisherOrganizations  map[string]bool
}

// DefaultTables returns the built-in tables: an empty distributor set and
// the stock publisher organization table.
func DefaultTables() Tables {
	return Tables{
		DistributorFingerprints: map[string]bool{},
		PublisherOrganizations: map[string]bool{
			"Google Inc.":                  true,
			"Google LLC":                   true,
			"Samsung Electronics Co. Ltd.": true,
			"Samsung Corporation":          true,
			"Microsoft Corporation":        true,
			"Meta Platforms, Inc.":         true,
			"Amazon.com Services LLC":      true,
			"Huawei Device Co., Ltd.":      true,
			"Xiaomi Inc.":                  true,
		},
	}
}
