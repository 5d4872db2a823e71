package inspector

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/sassoftware/relic/v8/lib/pkcs7"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

// APK Signing Block constants.
// REF: https://source.android.com/docs/security/features/apksigning/v2
var sigBlockMagic = []byte("APK Sig Block 42")

const (
	v2BlockID   = 0x7109871a
	eocdSig     = 0x06054b50
	maxEOCDScan = 65557 // EOCD fixed fields + max comment length
	schemeV1    = "v1"
	schemeV2    = "v2"
)

// extractCertificates collects signer certificates from both signature
// schemes: PKCS#7 blocks under META-INF (v1 JAR signing) and the APK Signing
// Block (v2). Parse failures are non-fatal; the trust evaluator degrades an
// empty certificate list to unverified.
func extractCertificates(zr *zip.Reader, raw []byte) []types.Certificate {
	byFingerprint := make(map[string]types.Certificate)

	for _, cert := range v1Certificates(zr) {
		c := toCertificate(cert, schemeV1)
		byFingerprint[c.SHA256Fingerprint] = c
	}
	for _, cert := range v2Certificates(raw) {
		c := toCertificate(cert, schemeV2)
		if _, ok := byFingerprint[c.SHA256Fingerprint]; !ok {
			byFingerprint[c.SHA256Fingerprint] = c
		}
	}

	certs := make([]types.Certificate, 0, len(byFingerprint))
	for _, c := range byFingerprint {
		certs = append(certs, c)
	}
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].SHA256Fingerprint < certs[j].SHA256Fingerprint
	})
	return certs
}

// v1Certificates parses the PKCS#7 signature files of the JAR signing
// scheme.
func v1Certificates(zr *zip.Reader) []*x509.Certificate {
	var certs []*x509.Certificate
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		switch strings.ToUpper(path.Ext(f.Name)) {
		case ".RSA", ".DSA", ".EC":
		default:
			continue
		}
		block, ok := readEntry(zr, f.Name)
		if !ok {
			continue
		}
		psd, err := pkcs7.Unmarshal(block)
		if err != nil {
			logger.Warningf("Unparsable signature block %s: %v", f.Name, err)
			continue
		}
		parsed, err := psd.Content.Certificates.Parse()
		if err != nil {
			logger.Warningf("Unparsable certificates in %s: %v", f.Name, err)
			continue
		}
		certs = append(certs, parsed...)
	}
	return certs
}

// v2Certificates locates the APK Signing Block ahead of the central
// directory and decodes the v2 signer sequence.
func v2Certificates(raw []byte) []*x509.Certificate {
	cdOffset := centralDirectoryOffset(raw)
	if cdOffset < 24 || cdOffset > len(raw) {
		return nil
	}
	if !bytes.Equal(raw[cdOffset-16:cdOffset], sigBlockMagic) {
		return nil
	}
	blockSize := int(binary.LittleEndian.Uint64(raw[cdOffset-24:]))
	blockStart := cdOffset - blockSize - 8
	if blockStart < 0 || blockSize < 24 {
		return nil
	}

	// ID-value pairs between the leading size field and the footer
	pairs := raw[blockStart+8 : cdOffset-24]
	for len(pairs) >= 12 {
		pairLen := int(binary.LittleEndian.Uint64(pairs))
		if pairLen < 4 || pairLen+8 > len(pairs) {
			return nil
		}
		id := binary.LittleEndian.Uint32(pairs[8:])
		value := pairs[12 : 8+pairLen]
		if id == v2BlockID {
			return v2SignerCertificates(value)
		}
		pairs = pairs[8+pairLen:]
	}
	return nil
}

// centralDirectoryOffset scans backwards for the end-of-central-directory
// record and returns the central directory's start offset, or -1.
func centralDirectoryOffset(raw []byte) int {
	if len(raw) < 22 {
		return -1
	}
	scanFrom := len(raw) - maxEOCDScan
	if scanFrom < 0 {
		scanFrom = 0
	}
	for i := len(raw) - 22; i >= scanFrom; i-- {
		if binary.LittleEndian.Uint32(raw[i:]) == eocdSig {
			return int(binary.LittleEndian.Uint32(raw[i+16:]))
		}
	}
	return -1
}

// v2SignerCertificates walks the length-prefixed v2 signer sequence:
// signers -> signer -> signed data -> (digests, certificates).
func v2SignerCertificates(value []byte) []*x509.Certificate {
	var certs []*x509.Certificate

	signers, ok := prefixed(value)
	if !ok {
		return nil
	}
	for len(signers) >= 4 {
		signer, rest, ok := nextPrefixed(signers)
		if !ok {
			break
		}
		signers = rest

		signedData, ok := prefixed(signer)
		if !ok {
			continue
		}
		// digests sequence precedes the certificate sequence
		_, after, ok := nextPrefixed(signedData)
		if !ok {
			continue
		}
		certSeq, _, ok := nextPrefixed(after)
		if !ok {
			continue
		}
		for len(certSeq) >= 4 {
			der, rest, ok := nextPrefixed(certSeq)
			if !ok {
				break
			}
			certSeq = rest
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				logger.Warningf("Unparsable v2 signer certificate: %v", err)
				continue
			}
			certs = append(certs, cert)
		}
	}
	return certs
}

// prefixed strips a uint32 length prefix and returns the enclosed bytes.
func prefixed(b []byte) ([]byte, bool) {
	if len(b) < 4 {
		return nil, false
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > len(b)-4 {
		return nil, false
	}
	return b[4 : 4+n], true
}

// nextPrefixed reads one length-prefixed field and returns the remainder.
func nextPrefixed(b []byte) (field, rest []byte, ok bool) {
	if len(b) < 4 {
		return nil, nil, false
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > len(b)-4 {
		return nil, nil, false
	}
	return b[4 : 4+n], b[4+n:], true
}

func toCertificate(cert *x509.Certificate, scheme string) types.Certificate {
	sum := sha256.Sum256(cert.Raw)
	org := ""
	if len(cert.Subject.Organization) > 0 {
		org = cert.Subject.Organization[0]
	}
	return types.Certificate{
		Issuer:             cert.Issuer.String(),
		Subject:            cert.Subject.String(),
		Organization:       org,
		NotBefore:          cert.NotBefore.UTC(),
		NotAfter:           cert.NotAfter.UTC(),
		SelfSigned:         cert.Issuer.String() == cert.Subject.String(),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		SHA256Fingerprint:  hex.EncodeToString(sum[:]),
		Scheme:             scheme,
	}
}
