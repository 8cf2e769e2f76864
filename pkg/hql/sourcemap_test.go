package hql

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSourceMapShape(t *testing.T) {
	mappings := []SourceMapping{
		{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 0, OriginalColumn: 0},
		{GeneratedLine: 0, GeneratedColumn: 4, OriginalLine: 0, OriginalColumn: 2, HasName: true, NameIndex: 0},
		{GeneratedLine: 1, GeneratedColumn: 0, OriginalLine: 1, OriginalColumn: 0},
	}

	raw, err := BuildSourceMap("out.js", []string{"in.hql"}, []string{"(+ 1 2)"}, []string{"add"}, mappings)
	require.NoError(t, err)

	var m sourceMapV3
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, "out.js", m.File)
	assert.Equal(t, []string{"in.hql"}, m.Sources)
	assert.Equal(t, []string{"add"}, m.Names)
	assert.NotEmpty(t, m.Mappings)
	// two segments on generated line 0, one on line 1: exactly one ';'.
	assert.Equal(t, 1, countRune(m.Mappings, ';'))
	assert.Equal(t, 1, countRune(m.Mappings, ','))
}

func TestEncodeMappingsEmpty(t *testing.T) {
	assert.Equal(t, "", encodeMappings(nil))
}

// decodeVLQ mirrors writeVLQ's encoding (sign in the low bit, five bits
// of magnitude per base64 digit, continuation bit 0x20) so the test can
// assert the round trip without depending on a production decoder the
// compiler itself never needs (nothing here consumes a source map back).
func decodeVLQ(t *testing.T, s string) int {
	t.Helper()
	result := 0
	shift := 0
	for _, c := range s {
		digit := strings.IndexByte(base64Chars, byte(c))
		require.GreaterOrEqualf(t, digit, 0, "invalid VLQ digit %q", c)
		result |= (digit & 0x1f) << shift
		shift += 5
		if digit&0x20 == 0 {
			break
		}
	}
	negative := result&1 == 1
	result >>= 1
	if negative {
		return -result
	}
	return result
}

func TestWriteVLQRoundTrips(t *testing.T) {
	for _, v := range []int{0, 1, -1, 15, -15, 16, -16, 123456, -123456} {
		var b strings.Builder
		writeVLQ(&b, v)
		assert.Equal(t, v, decodeVLQ(t, b.String()), "value %d", v)
	}
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
