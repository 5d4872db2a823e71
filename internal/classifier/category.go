package classifier

import (
	"github.com/deploymenttheory/go-apk-analyzer/internal/features"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// categoryFromVector maps the dominant contributing signals of a malicious
// vector to a threat category. Rules are ordered by specificity; the first
// matching rule wins.
func categoryFromVector(vec []float64, malicious bool) types.ThreatCategory {
	if !malicious {
		return types.CategoryBenign
	}
	if len(vec) < features.Length {
		return types.CategoryGeneric
	}

	set := func(i int) bool { return vec[i] > 0 }

	switch {
	case set(features.IdxSendSMS) || set(features.IdxReceiveSMS) || set(features.IdxReadSMS):
		return types.CategorySMSFraud
	case set(features.IdxSystemAlertWindow) && set(features.IdxDeviceAdmin):
		return types.CategoryBankingTrojan
	case set(features.IdxDeviceAdmin) && set(features.IdxCrypto):
		return types.CategoryRansomware
	case (set(features.IdxReadContacts) || set(features.IdxFineLocation) || set(features.IdxRecordAudio)) &&
		set(features.IdxInternet):
		return types.CategorySpyware
	case set(features.IdxInternet) && permissionBandEmptyAfterInternet(vec):
		return types.CategoryAdware
	case set(features.IdxDynamicCode) || set(features.IdxReflection):
		return types.CategoryBackdoor
	}
	return types.CategoryGeneric
}

// permissionBandEmptyAfterInternet reports whether INTERNET is the only
// tracked permission present.
func permissionBandEmptyAfterInternet(vec []float64) bool {
	for i := 1; i < len(features.TrackedPermissions); i++ {
		if vec[i] > 0 {
			return false
		}
	}
	return true
}
