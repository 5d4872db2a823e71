package inspector

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
)

// manifest is the decoded manifest-equivalent of a package: the declared
// identity, permission list and component declarations.
type manifest struct {
	pkg         string
	appLabel    string
	versionName string
	versionCode int
	minSDK      int
	targetSDK   int
	permissions []string
	activities  []string
	services    []string
	receivers   []string
	providers   []string
}

// decodeManifest decodes either encoding of an Android manifest: the binary
// XML produced by the platform build tools, or plain XML as found in
// pre-build sources and test fixtures.
func decodeManifest(data []byte) (*manifest, error) {
	if isBinaryXML(data) {
		return decodeBinaryManifest(data)
	}
	return decodePlainManifest(data)
}

func isBinaryXML(data []byte) bool {
	return len(data) >= 8 &&
		binary.LittleEndian.Uint16(data) == chunkXML &&
		binary.LittleEndian.Uint16(data[2:]) == 8
}

type xmlNamed struct {
	Name string `xml:"name,attr"`
}

type xmlManifest struct {
	XMLName     xml.Name `xml:"manifest"`
	Package     string   `xml:"package,attr"`
	VersionName string   `xml:"versionName,attr"`
	VersionCode int      `xml:"versionCode,attr"`
	UsesSDK     struct {
		Min    int `xml:"minSdkVersion,attr"`
		Target int `xml:"targetSdkVersion,attr"`
	} `xml:"uses-sdk"`
	Permissions      []xmlNamed `xml:"uses-permission"`
	PermissionsSDK23 []xmlNamed `xml:"uses-permission-sdk-23"`
	Application struct {
		Label      string     `xml:"label,attr"`
		Activities []xmlNamed `xml:"activity"`
		Aliases    []xmlNamed `xml:"activity-alias"`
		Services   []xmlNamed `xml:"service"`
		Receivers  []xmlNamed `xml:"receiver"`
		Providers  []xmlNamed `xml:"provider"`
	} `xml:"application"`
}

func decodePlainManifest(data []byte) (*manifest, error) {
	var doc xmlManifest
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest XML: %w", err)
	}

	m := &manifest{
		pkg:         doc.Package,
		appLabel:    doc.Application.Label,
		versionName: doc.VersionName,
		versionCode: doc.VersionCode,
		minSDK:      doc.UsesSDK.Min,
		targetSDK:   doc.UsesSDK.Target,
	}
	for _, p := range doc.Permissions {
		if p.Name != "" {
			m.permissions = append(m.permissions, p.Name)
		}
	}
	for _, p := range doc.PermissionsSDK23 {
		if p.Name != "" {
			m.permissions = append(m.permissions, p.Name)
		}
	}
	for _, a := range doc.Application.Activities {
		m.activities = append(m.activities, a.Name)
	}
	for _, a := range doc.Application.Aliases {
		m.activities = append(m.activities, a.Name)
	}
	for _, s := range doc.Application.Services {
		m.services = append(m.services, s.Name)
	}
	for _, r := range doc.Application.Receivers {
		m.receivers = append(m.receivers, r.Name)
	}
	for _, p := range doc.Application.Providers {
		m.providers = append(m.providers, p.Name)
	}
	return m, nil
}
