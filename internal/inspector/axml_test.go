package inspector

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axmlBuilder assembles a minimal compiled manifest: one UTF-8 string pool
// chunk followed by start-element chunks.
type axmlBuilder struct {
	strings []string
	index   map[string]uint32
	chunks  [][]byte
}

func newAXMLBuilder() *axmlBuilder {
	return &axmlBuilder{index: make(map[string]uint32)}
}

func (b *axmlBuilder) stringIdx(s string) uint32 {
	if i, ok := b.index[s]; ok {
		return i
	}
	i := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.index[s] = i
	return i
}

type axmlAttr struct {
	name   string
	str    string
	intVal int32
	isInt  bool
}

func strAttr(name, value string) axmlAttr  { return axmlAttr{name: name, str: value} }
func intAttr(name string, v int32) axmlAttr { return axmlAttr{name: name, intVal: v, isInt: true} }

func (b *axmlBuilder) element(name string, attrs ...axmlAttr) {
	nameIdx := b.stringIdx(name)
	for _, a := range attrs {
		b.stringIdx(a.name)
		if !a.isInt {
			b.stringIdx(a.str)
		}
	}

	chunk := make([]byte, 36+20*len(attrs))
	le.PutUint16(chunk[0:], chunkStartElement)
	le.PutUint16(chunk[2:], 16)
	le.PutUint32(chunk[4:], uint32(len(chunk)))
	le.PutUint32(chunk[8:], 1)          // line number
	le.PutUint32(chunk[12:], 0xFFFFFFFF) // comment
	le.PutUint32(chunk[16:], 0xFFFFFFFF) // namespace
	le.PutUint32(chunk[20:], nameIdx)
	le.PutUint16(chunk[24:], 20) // attributeStart
	le.PutUint16(chunk[26:], 20) // attributeSize
	le.PutUint16(chunk[28:], uint16(len(attrs)))

	for i, a := range attrs {
		off := 36 + 20*i
		le.PutUint32(chunk[off:], 0xFFFFFFFF) // attr namespace
		le.PutUint32(chunk[off+4:], b.index[a.name])
		le.PutUint16(chunk[off+12:], 8) // Res_value size
		if a.isInt {
			le.PutUint32(chunk[off+8:], 0xFFFFFFFF)
			chunk[off+15] = typeIntDec
			le.PutUint32(chunk[off+16:], uint32(a.intVal))
		} else {
			le.PutUint32(chunk[off+8:], b.index[a.str])
			chunk[off+15] = typeString
			le.PutUint32(chunk[off+16:], b.index[a.str])
		}
	}
	b.chunks = append(b.chunks, chunk)
}

func (b *axmlBuilder) bytes(t *testing.T) []byte {
	t.Helper()

	var data []byte
	var offsets []uint32
	for _, s := range b.strings {
		require.Less(t, len(s), 0x80, "builder only supports short strings")
		offsets = append(offsets, uint32(len(data)))
		data = append(data, byte(len(s)), byte(len(s)))
		data = append(data, s...)
	}

	pool := make([]byte, 28+4*len(b.strings)+len(data))
	le.PutUint16(pool[0:], chunkStringPool)
	le.PutUint16(pool[2:], 28)
	le.PutUint32(pool[4:], uint32(len(pool)))
	le.PutUint32(pool[8:], uint32(len(b.strings)))
	le.PutUint32(pool[16:], stringPoolUTF8Flag)
	le.PutUint32(pool[20:], uint32(28+4*len(b.strings))) // stringsStart
	for i, off := range offsets {
		le.PutUint32(pool[28+4*i:], off)
	}
	copy(pool[28+4*len(b.strings):], data)

	total := 8 + len(pool)
	for _, c := range b.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	header := make([]byte, 8)
	binary.LittleEndian.PutUint16(header[0:], chunkXML)
	binary.LittleEndian.PutUint16(header[2:], 8)
	binary.LittleEndian.PutUint32(header[4:], uint32(total))
	out = append(out, header...)
	out = append(out, pool...)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

func buildBinaryManifest(t *testing.T) []byte {
	b := newAXMLBuilder()
	b.element("manifest",
		strAttr("package", "com.binary.app"),
		strAttr("versionName", "3.0.1"),
		intAttr("versionCode", 42))
	b.element("uses-sdk",
		intAttr("minSdkVersion", 23),
		intAttr("targetSdkVersion", 34))
	b.element("uses-permission", strAttr("name", "android.permission.SEND_SMS"))
	b.element("uses-permission", strAttr("name", "android.permission.INTERNET"))
	b.element("application", strAttr("label", "Binary App"))
	b.element("activity", strAttr("name", ".Main"))
	b.element("service", strAttr("name", ".Worker"))
	b.element("receiver", strAttr("name", ".SmsReceiver"))
	b.element("provider", strAttr("name", ".Files"))
	return b.bytes(t)
}

func TestDecodeBinaryManifest(t *testing.T) {
	raw := buildBinaryManifest(t)
	require.True(t, isBinaryXML(raw))

	m, err := decodeBinaryManifest(raw)
	require.NoError(t, err)

	assert.Equal(t, "com.binary.app", m.pkg)
	assert.Equal(t, "Binary App", m.appLabel)
	assert.Equal(t, "3.0.1", m.versionName)
	assert.Equal(t, 42, m.versionCode)
	assert.Equal(t, 23, m.minSDK)
	assert.Equal(t, 34, m.targetSDK)
	assert.Equal(t, []string{"android.permission.SEND_SMS", "android.permission.INTERNET"}, m.permissions)
	assert.Equal(t, []string{".Main"}, m.activities)
	assert.Equal(t, []string{".Worker"}, m.services)
	assert.Equal(t, []string{".SmsReceiver"}, m.receivers)
	assert.Equal(t, []string{".Files"}, m.providers)
}

func TestDecodeBinaryManifestInsidePackage(t *testing.T) {
	data := buildPackage(t, string(buildBinaryManifest(t)), nil)

	ext, err := New().Inspect(data)
	require.NoError(t, err)

	assert.Equal(t, "com.binary.app", ext.Package.PackageName)
	assert.Equal(t, []string{"SEND_SMS"}, ext.DangerousPermissions)
	assert.Equal(t, 1, ext.Components.Receivers)
}

func TestDecodeBinaryManifestTruncated(t *testing.T) {
	raw := buildBinaryManifest(t)

	_, err := decodeBinaryManifest(raw[:24])
	assert.Error(t, err)

	// corrupt the declared file size beyond the buffer
	le.PutUint32(raw[4:], uint32(len(raw)+100))
	_, err = decodeBinaryManifest(raw)
	assert.Error(t, err)
}

func TestDecodePoolStringUTF16(t *testing.T) {
	// "abc" as a UTF-16 pool entry
	entry := []byte{3, 0, 'a', 0, 'b', 0, 'c', 0}
	s, err := decodePoolString(entry, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}
