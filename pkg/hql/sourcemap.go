package hql

import (
	"encoding/json"
	"strings"
)

// SourceMapping is one generated-position -> original-position pair
// recorded by the code generator as it prints IR nodes carrying a
// source location, used to emit a V3 source map alongside generated JS.
// GeneratedLine/Column are 0-indexed to match the source-map format;
// Name is the pre-mangling identifier, when known.
type SourceMapping struct {
	GeneratedLine   int
	GeneratedColumn int
	SourceIndex     int
	OriginalLine    int // 0-indexed
	OriginalColumn  int // 0-indexed
	NameIndex       int
	HasName         bool
}

// sourceMapV3 is the on-disk JSON shape of a version-3 source map.
type sourceMapV3 struct {
	Version        int      `json:"version"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
	File           string   `json:"file,omitempty"`
}

// BuildSourceMap encodes mappings into a V3 JSON source map. mappings
// must already be sorted by (GeneratedLine, GeneratedColumn), which
// CodeBuffer guarantees since it appends them in emission order.
func BuildSourceMap(file string, sources []string, sourcesContent []string, names []string, mappings []SourceMapping) ([]byte, error) {
	m := sourceMapV3{
		Version:        3,
		Sources:        sources,
		SourcesContent: sourcesContent,
		Names:          names,
		File:           file,
		Mappings:       encodeMappings(mappings),
	}
	return json.Marshal(m)
}

// encodeMappings renders the "mappings" field: semicolon-separated
// lines, each a comma-separated list of VLQ-encoded, field-delta-
// relative segments.
func encodeMappings(mappings []SourceMapping) string {
	var b strings.Builder
	prevGenLine := 0
	prevGenCol := 0
	prevSource := 0
	prevOrigLine := 0
	prevOrigCol := 0
	prevName := 0
	firstInLine := true

	for _, m := range mappings {
		for prevGenLine < m.GeneratedLine {
			b.WriteByte(';')
			prevGenLine++
			prevGenCol = 0
			firstInLine = true
		}
		if !firstInLine {
			b.WriteByte(',')
		}
		firstInLine = false

		writeVLQ(&b, m.GeneratedColumn-prevGenCol)
		prevGenCol = m.GeneratedColumn

		writeVLQ(&b, m.SourceIndex-prevSource)
		prevSource = m.SourceIndex
		writeVLQ(&b, m.OriginalLine-prevOrigLine)
		prevOrigLine = m.OriginalLine
		writeVLQ(&b, m.OriginalColumn-prevOrigCol)
		prevOrigCol = m.OriginalColumn

		if m.HasName {
			writeVLQ(&b, m.NameIndex-prevName)
			prevName = m.NameIndex
		}
	}
	return b.String()
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ writes value as a base64 variable-length-quantity, the
// encoding the source-map spec uses for each mapping field: the sign
// goes in the low bit, five bits of magnitude per digit, and a
// continuation bit (0x20) set on every digit but the last.
func writeVLQ(b *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & 0x1f
		v >>= 5
		if v > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64Chars[digit])
		if v == 0 {
			break
		}
	}
}
