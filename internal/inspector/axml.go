package inspector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

// Android binary XML (AXML) chunk types.
// REF: frameworks/base/libs/androidfw/include/androidfw/ResourceTypes.h
const (
	chunkXML          = 0x0003
	chunkStringPool   = 0x0001
	chunkResourceMap  = 0x0180
	chunkStartElement = 0x0102
)

// Res_value data types carried by element attributes.
const (
	typeString  = 0x03
	typeIntDec  = 0x10
	typeIntHex  = 0x11
	typeBoolean = 0x12
)

const stringPoolUTF8Flag = 0x0100

var le = binary.LittleEndian

var errTruncatedChunk = errors.New("truncated chunk")

// axmlDecoder walks the chunk stream of a compiled manifest. Only the string
// pool and start-element chunks matter for extraction; everything else is
// skipped by chunk size.
type axmlDecoder struct {
	strings []string
	m       *manifest
}

// decodeBinaryManifest decodes a compiled AndroidManifest.xml.
func decodeBinaryManifest(data []byte) (*manifest, error) {
	if len(data) < 8 {
		return nil, errTruncatedChunk
	}
	fileSize := int(le.Uint32(data[4:]))
	if fileSize > len(data) {
		return nil, fmt.Errorf("declared size %d exceeds %d available bytes", fileSize, len(data))
	}

	d := &axmlDecoder{m: &manifest{}}

	pos := 8
	for pos+8 <= fileSize {
		chunkType := le.Uint16(data[pos:])
		chunkSize := int(le.Uint32(data[pos+4:]))
		if chunkSize < 8 || pos+chunkSize > fileSize {
			return nil, errTruncatedChunk
		}
		chunk := data[pos : pos+chunkSize]

		switch chunkType {
		case chunkStringPool:
			if err := d.parseStringPool(chunk); err != nil {
				return nil, fmt.Errorf("string pool: %w", err)
			}
		case chunkStartElement:
			if err := d.parseStartElement(chunk); err != nil {
				return nil, fmt.Errorf("element: %w", err)
			}
		}
		pos += chunkSize
	}

	if d.m.pkg == "" && len(d.m.permissions) == 0 {
		return nil, errors.New("no manifest element found")
	}
	return d.m, nil
}

func (d *axmlDecoder) parseStringPool(chunk []byte) error {
	if len(chunk) < 28 {
		return errTruncatedChunk
	}
	headerSize := int(le.Uint16(chunk[2:]))
	count := int(le.Uint32(chunk[8:]))
	flags := le.Uint32(chunk[16:])
	start := int(le.Uint32(chunk[20:]))

	if headerSize+4*count > len(chunk) || start > len(chunk) {
		return errTruncatedChunk
	}

	utf8Pool := flags&stringPoolUTF8Flag != 0
	d.strings = make([]string, count)
	for i := 0; i < count; i++ {
		off := start + int(le.Uint32(chunk[headerSize+4*i:]))
		if off >= len(chunk) {
			return errTruncatedChunk
		}
		s, err := decodePoolString(chunk[off:], utf8Pool)
		if err != nil {
			return err
		}
		d.strings[i] = s
	}
	return nil
}

// decodePoolString decodes one length-prefixed pool entry. UTF-8 entries
// carry two varint lengths (character count, then byte count); UTF-16
// entries carry a single uint16 length with a high-bit extension.
func decodePoolString(b []byte, utf8Pool bool) (string, error) {
	if utf8Pool {
		i := 0
		if len(b) < 2 {
			return "", errTruncatedChunk
		}
		if b[i]&0x80 != 0 {
			i += 2
		} else {
			i++
		}
		if i >= len(b) {
			return "", errTruncatedChunk
		}
		n := int(b[i])
		if b[i]&0x80 != 0 {
			if i+1 >= len(b) {
				return "", errTruncatedChunk
			}
			n = (int(b[i]&0x7F) << 8) | int(b[i+1])
			i += 2
		} else {
			i++
		}
		if i+n > len(b) {
			return "", errTruncatedChunk
		}
		return string(b[i : i+n]), nil
	}

	if len(b) < 2 {
		return "", errTruncatedChunk
	}
	n := int(le.Uint16(b))
	i := 2
	if n&0x8000 != 0 {
		if len(b) < 4 {
			return "", errTruncatedChunk
		}
		n = ((n & 0x7FFF) << 16) | int(le.Uint16(b[2:]))
		i = 4
	}
	if i+2*n > len(b) {
		return "", errTruncatedChunk
	}
	u := make([]uint16, n)
	for j := 0; j < n; j++ {
		u[j] = le.Uint16(b[i+2*j:])
	}
	return string(utf16.Decode(u)), nil
}

func (d *axmlDecoder) poolString(idx uint32) string {
	if int(idx) < len(d.strings) {
		return d.strings[idx]
	}
	return ""
}

// parseStartElement reads one start-element node and records anything the
// extraction cares about: manifest attributes, sdk levels, permission names
// and component declarations.
func (d *axmlDecoder) parseStartElement(chunk []byte) error {
	// node header (16) + attrExt: ns(4) name(4) attributeStart(2)
	// attributeSize(2) attributeCount(2) id/class/styleIndex(6)
	if len(chunk) < 36 {
		return errTruncatedChunk
	}
	name := d.poolString(le.Uint32(chunk[20:]))
	attrStart := int(le.Uint16(chunk[24:]))
	attrSize := int(le.Uint16(chunk[26:]))
	attrCount := int(le.Uint16(chunk[28:]))
	if attrSize < 20 {
		return fmt.Errorf("attribute record size %d", attrSize)
	}

	attrs := make(map[string]attrValue, attrCount)
	base := 16 + attrStart
	for i := 0; i < attrCount; i++ {
		off := base + i*attrSize
		if off+attrSize > len(chunk) {
			return errTruncatedChunk
		}
		attrName := d.poolString(le.Uint32(chunk[off+4:]))
		rawValue := le.Uint32(chunk[off+8:])
		dataType := chunk[off+15]
		data := le.Uint32(chunk[off+16:])

		v := attrValue{dataType: dataType, data: data}
		switch {
		case dataType == typeString:
			v.str = d.poolString(data)
		case rawValue != 0xFFFFFFFF:
			v.str = d.poolString(rawValue)
		}
		attrs[attrName] = v
	}

	m := d.m
	switch name {
	case "manifest":
		m.pkg = attrs["package"].str
		m.versionName = attrs["versionName"].str
		m.versionCode = attrs["versionCode"].intValue()
	case "uses-sdk":
		m.minSDK = attrs["minSdkVersion"].intValue()
		m.targetSDK = attrs["targetSdkVersion"].intValue()
	case "uses-permission", "uses-permission-sdk-23":
		if n := attrs["name"].str; n != "" {
			m.permissions = append(m.permissions, n)
		}
	case "application":
		m.appLabel = attrs["label"].str
	case "activity", "activity-alias":
		m.activities = append(m.activities, attrs["name"].str)
	case "service":
		m.services = append(m.services, attrs["name"].str)
	case "receiver":
		m.receivers = append(m.receivers, attrs["name"].str)
	case "provider":
		m.providers = append(m.providers, attrs["name"].str)
	}
	return nil
}

type attrValue struct {
	dataType byte
	data     uint32
	str      string
}

func (v attrValue) intValue() int {
	switch v.dataType {
	case typeIntDec, typeIntHex, typeBoolean:
		return int(int32(v.data))
	}
	return 0
}
