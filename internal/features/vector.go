package features

import (
	"strings"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Version identifies the feature vector layout. The classifier artifact
// records the layout version it was trained against and refuses to load on
// mismatch, since a silent mismatch corrupts every prediction.
const Version = "v1"

// Length is the fixed feature vector length: 40 permission indicators,
// 4 normalized component counts, 6 pattern indicators.
const Length = 50

// TrackedPermissions is the canonical permission band ordering. Index
// positions are part of the trained model contract; append-only.
var TrackedPermissions = []string{
	"INTERNET", "SEND_SMS", "RECEIVE_SMS", "READ_SMS",
	"READ_CONTACTS", "WRITE_CONTACTS", "ACCESS_FINE_LOCATION",
	"ACCESS_COARSE_LOCATION", "RECORD_AUDIO", "CAMERA",
	"READ_PHONE_STATE", "CALL_PHONE", "READ_CALL_LOG",
	"WRITE_CALL_LOG", "INSTALL_PACKAGES", "DELETE_PACKAGES",
	"READ_EXTERNAL_STORAGE", "WRITE_EXTERNAL_STORAGE",
	"SYSTEM_ALERT_WINDOW", "REQUEST_INSTALL_PACKAGES",
	"BIND_DEVICE_ADMIN", "RECEIVE_BOOT_COMPLETED",
	"WAKE_LOCK", "DISABLE_KEYGUARD", "GET_TASKS",
	"BLUETOOTH", "BLUETOOTH_ADMIN", "NFC",
	"VIBRATE", "ACCESS_WIFI_STATE", "CHANGE_WIFI_STATE",
	"ACCESS_NETWORK_STATE", "CHANGE_NETWORK_STATE",
	"WRITE_SETTINGS", "EXPAND_STATUS_BAR", "FLASHLIGHT",
	"KILL_BACKGROUND_PROCESSES", "REBOOT", "SET_WALLPAPER",
	"USE_CREDENTIALS",
}

// Component count normalization constants. Counts are divided by these and
// clamped to [0,1] so pathological packages with thousands of declared
// components cannot dominate the component band.
const (
	normActivities = 50.0
	normServices   = 20.0
	normReceivers  = 20.0
	normProviders  = 10.0
)

// Well-known permission band indices, shared with the classifier's
// category mapping.
const (
	IdxInternet          = 0
	IdxSendSMS           = 1
	IdxReceiveSMS        = 2
	IdxReadSMS           = 3
	IdxReadContacts      = 4
	IdxFineLocation      = 6
	IdxRecordAudio       = 8
	IdxSystemAlertWindow = 18
	IdxDeviceAdmin       = 20
)

// Pattern band indices follow types.PatternOrder starting at PatternBase.
const (
	PatternBase    = 44
	IdxDynamicCode = PatternBase + 0
	IdxCrypto      = PatternBase + 1
	IdxReflection  = PatternBase + 3
)

// Build maps an extraction to the fixed-length feature vector. It is a
// total, deterministic function: every extraction produces exactly one
// vector of Length entries.
func Build(ext *types.Extraction) []float64 {
	vec := make([]float64, 0, Length)

	for _, tracked := range TrackedPermissions {
		present := false
		for _, p := range ext.Permissions {
			if strings.Contains(strings.ToUpper(p), tracked) {
				present = true
				break
			}
		}
		if present {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}

	vec = append(vec, clamp01(float64(ext.Components.Activities)/normActivities))
	vec = append(vec, clamp01(float64(ext.Components.Services)/normServices))
	vec = append(vec, clamp01(float64(ext.Components.Receivers)/normReceivers))
	vec = append(vec, clamp01(float64(ext.Components.Providers)/normProviders))

	detected := make(map[string]bool, len(ext.SuspiciousPatterns))
	for _, p := range ext.SuspiciousPatterns {
		detected[p] = true
	}
	for _, p := range types.PatternOrder {
		if detected[p] {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}

	return vec
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
