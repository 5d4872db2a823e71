package inspector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// Inspection failures. These are the only errors that abort a scan; every
// downstream component degrades gracefully instead.
var (
	ErrUnsupportedFormat = errors.New("unsupported package format")
	ErrMalformedPackage  = errors.New("malformed package")
	ErrMissingManifest   = errors.New("package has no manifest")
)

const manifestName = "AndroidManifest.xml"

// maxEntryScanBytes caps how much of a single archive entry is read during
// pattern and URL scanning.
const maxEntryScanBytes = 32 << 20

// zipMagic is the local file header signature of a ZIP container.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// dangerousPermissions is the fixed reference list used to derive the
// dangerous subset of a package's declared permissions. Matching is on the
// final dot-separated segment of the declared permission name.
var dangerousPermissions = map[string]bool{
	"SEND_SMS": true, "RECEIVE_SMS": true, "READ_SMS": true, "WRITE_SMS": true,
	"RECEIVE_MMS": true, "RECEIVE_WAP_PUSH": true,
	"READ_CONTACTS": true, "WRITE_CONTACTS": true, "GET_ACCOUNTS": true,
	"ACCESS_FINE_LOCATION": true, "ACCESS_COARSE_LOCATION": true,
	"ACCESS_BACKGROUND_LOCATION": true,
	"RECORD_AUDIO":               true, "CAMERA": true,
	"READ_PHONE_STATE": true, "READ_PHONE_NUMBERS": true, "CALL_PHONE": true,
	"ANSWER_PHONE_CALLS": true, "PROCESS_OUTGOING_CALLS": true,
	"READ_CALL_LOG": true, "WRITE_CALL_LOG": true, "ADD_VOICEMAIL": true,
	"USE_SIP":          true,
	"INSTALL_PACKAGES": true, "DELETE_PACKAGES": true,
	"REQUEST_INSTALL_PACKAGES": true, "REQUEST_DELETE_PACKAGES": true,
	"READ_EXTERNAL_STORAGE": true, "WRITE_EXTERNAL_STORAGE": true,
	"MANAGE_EXTERNAL_STORAGE": true,
	"SYSTEM_ALERT_WINDOW":     true, "BIND_DEVICE_ADMIN": true,
	"BIND_ACCESSIBILITY_SERVICE": true, "MOUNT_UNMOUNT_FILESYSTEMS": true,
	"WRITE_SETTINGS": true, "DISABLE_KEYGUARD": true,
	"READ_CALENDAR": true, "WRITE_CALENDAR": true,
	"BODY_SENSORS": true, "ACTIVITY_RECOGNITION": true,
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]\x00]+`)

// maxURLs limits how many embedded URLs are surfaced in an extraction.
const maxURLs = 20

// Inspector parses Android packages and extracts the structural signals the
// rest of the pipeline consumes. It holds no mutable state: identical input
// bytes always yield identical extractions.
type Inspector struct{}

func New() *Inspector {
	return &Inspector{}
}

// Inspect parses raw package bytes into a structured extraction.
func (i *Inspector) Inspect(data []byte) (*types.Extraction, error) {
	if len(data) < len(zipMagic) || !bytes.Equal(data[:len(zipMagic)], zipMagic) {
		return nil, fmt.Errorf("%w: missing ZIP container signature", ErrUnsupportedFormat)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}

	manifestData, found := readEntry(zr, manifestName)
	if !found {
		return nil, fmt.Errorf("%w: %s not present", ErrMissingManifest, manifestName)
	}

	m, err := decodeManifest(manifestData)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", ErrMalformedPackage, err)
	}

	ext := &types.Extraction{
		Package: types.PackageInfo{
			PackageName: m.pkg,
			AppName:     m.appLabel,
			VersionName: m.versionName,
			VersionCode: m.versionCode,
			MinSDK:      m.minSDK,
			TargetSDK:   m.targetSDK,
			SizeBytes:   int64(len(data)),
		},
		Permissions:          m.permissions,
		DangerousPermissions: dangerousSubset(m.permissions),
		Components: types.ComponentCounts{
			Activities: len(m.activities),
			Services:   len(m.services),
			Receivers:  len(m.receivers),
			Providers:  len(m.providers),
		},
	}

	ext.SuspiciousPatterns = scanPatterns(zr, m)
	ext.URLs = extractURLs(zr)
	ext.Certificates = extractCertificates(zr, data)

	logger.Debugf("Inspected %s: %d permissions (%d dangerous), %d patterns, %d certificates",
		ext.Package.PackageName, len(ext.Permissions), len(ext.DangerousPermissions),
		len(ext.SuspiciousPatterns), len(ext.Certificates))

	return ext, nil
}

// readEntry returns the contents of a named archive entry.
func readEntry(zr *zip.Reader, name string) ([]byte, bool) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxEntryScanBytes))
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// dangerousSubset filters declared permissions against the reference list,
// preserving declaration order.
func dangerousSubset(permissions []string) []string {
	var dangerous []string
	seen := make(map[string]bool)
	for _, p := range permissions {
		parts := strings.Split(p, ".")
		name := strings.ToUpper(parts[len(parts)-1])
		if dangerousPermissions[name] && !seen[name] {
			dangerous = append(dangerous, name)
			seen[name] = true
		}
	}
	return dangerous
}

// dex byte markers for suspicious capability use
var (
	markerDexLoader  = [][]byte{[]byte("DexClassLoader"), []byte("PathClassLoader"), []byte("InMemoryDexClassLoader")}
	markerReflection = [][]byte{[]byte("java/lang/reflect"), []byte("java.lang.reflect")}
	markerCrypto     = [][]byte{[]byte("javax/crypto"), []byte("javax.crypto.Cipher")}
)

// scanPatterns detects suspicious capability indicators across the archive's
// code entries and the manifest's receiver declarations. Output follows the
// canonical pattern order.
func scanPatterns(zr *zip.Reader, m *manifest) []string {
	detected := make(map[string]bool)

	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".so") {
			detected[types.PatternNativeCode] = true
		}
		if !strings.HasSuffix(name, ".dex") {
			continue
		}
		data, ok := readEntry(zr, f.Name)
		if !ok {
			continue
		}
		if containsAny(data, markerDexLoader) {
			detected[types.PatternDynamicCode] = true
		}
		if containsAny(data, markerReflection) {
			detected[types.PatternReflection] = true
		}
		if containsAny(data, markerCrypto) {
			detected[types.PatternCrypto] = true
		}
	}

	for _, r := range m.receivers {
		lower := strings.ToLower(r)
		if strings.Contains(lower, "boot") {
			detected[types.PatternBootReceiver] = true
		}
		if strings.Contains(lower, "sms") {
			detected[types.PatternSMSReceiver] = true
		}
	}
	for _, p := range m.permissions {
		if strings.Contains(strings.ToUpper(p), "RECEIVE_BOOT_COMPLETED") {
			detected[types.PatternBootReceiver] = true
		}
	}

	var patterns []string
	for _, p := range types.PatternOrder {
		if detected[p] {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func containsAny(data []byte, markers [][]byte) bool {
	for _, m := range markers {
		if bytes.Contains(data, m) {
			return true
		}
	}
	return false
}

// extractURLs pulls embedded URL strings out of text-bearing archive
// entries, deduplicated, sorted and capped for response size.
func extractURLs(zr *zip.Reader) []string {
	seen := make(map[string]bool)
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if !strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, ".txt") &&
			!strings.HasSuffix(name, ".json") {
			continue
		}
		data, ok := readEntry(zr, f.Name)
		if !ok {
			continue
		}
		for _, u := range urlPattern.FindAllString(string(data), -1) {
			seen[u] = true
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	if len(urls) > maxURLs {
		urls = urls[:maxURLs]
	}
	return urls
}
