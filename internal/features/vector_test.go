package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

func TestBuildLength(t *testing.T) {
	vec := Build(&types.Extraction{})
	require.Len(t, vec, Length)
	for i, v := range vec {
		assert.Zero(t, v, "index %d", i)
	}
}

func TestBuildPermissionBand(t *testing.T) {
	ext := &types.Extraction{
		Permissions: []string{
			"android.permission.INTERNET",
			"android.permission.SEND_SMS",
			"android.permission.BIND_DEVICE_ADMIN",
		},
	}
	vec := Build(ext)

	assert.Equal(t, 1.0, vec[IdxInternet])
	assert.Equal(t, 1.0, vec[IdxSendSMS])
	assert.Equal(t, 1.0, vec[IdxDeviceAdmin])
	assert.Equal(t, 0.0, vec[IdxReadSMS])
	assert.Equal(t, 0.0, vec[IdxReadContacts])
}

func TestBuildPermissionMatchIsCaseInsensitive(t *testing.T) {
	ext := &types.Extraction{
		Permissions: []string{"android.permission.record_audio"},
	}
	vec := Build(ext)
	assert.Equal(t, 1.0, vec[IdxRecordAudio])
}

func TestBuildComponentBandNormalization(t *testing.T) {
	ext := &types.Extraction{
		Components: types.ComponentCounts{
			Activities: 25,  // 25/50
			Services:   10,  // 10/20
			Receivers:  200, // clamped
			Providers:  0,
		},
	}
	vec := Build(ext)

	assert.InDelta(t, 0.5, vec[40], 1e-9)
	assert.InDelta(t, 0.5, vec[41], 1e-9)
	assert.Equal(t, 1.0, vec[42])
	assert.Equal(t, 0.0, vec[43])
}

func TestBuildPatternBandOrdering(t *testing.T) {
	ext := &types.Extraction{
		SuspiciousPatterns: []string{
			types.PatternReflection,
			types.PatternDynamicCode,
		},
	}
	vec := Build(ext)

	assert.Equal(t, 1.0, vec[IdxDynamicCode])
	assert.Equal(t, 0.0, vec[IdxCrypto])
	assert.Equal(t, 1.0, vec[IdxReflection])
	for i := PatternBase; i < Length; i++ {
		if i == IdxDynamicCode || i == IdxReflection {
			continue
		}
		assert.Zero(t, vec[i], "index %d", i)
	}
}

func TestBuildDeterministic(t *testing.T) {
	ext := &types.Extraction{
		Permissions: []string{
			"android.permission.INTERNET",
			"android.permission.READ_SMS",
		},
		Components:         types.ComponentCounts{Activities: 3, Services: 1},
		SuspiciousPatterns: []string{types.PatternCrypto},
	}
	first := Build(ext)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Build(ext))
	}
}

func TestTrackedPermissionsContract(t *testing.T) {
	require.Len(t, TrackedPermissions, 40)
	assert.Equal(t, "INTERNET", TrackedPermissions[IdxInternet])
	assert.Equal(t, "SYSTEM_ALERT_WINDOW", TrackedPermissions[IdxSystemAlertWindow])
	assert.Equal(t, "BIND_DEVICE_ADMIN", TrackedPermissions[IdxDeviceAdmin])
}
