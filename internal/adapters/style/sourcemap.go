// Package style implements the stylesheet compile pipeline: recursive import
// flattening, vendor prefixing and source map generation.
package style

import (
	"encoding/json"
	"strings"
)

// SourceMap is the source map v3 structure emitted alongside compiled output.
type SourceMap struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// Origin records where one output line came from: an index into Sources and a
// zero-based line in that source.
type Origin struct {
	Source int `json:"source"`
	Line   int `json:"line"`
}

// NewSourceMap builds a v3 map from per-line origins. Every output line maps
// to column zero of its originating line, which is exact for a pipeline that
// only inlines and inserts whole lines.
func NewSourceMap(file string, sources []string, origins []Origin) *SourceMap {
	return &SourceMap{
		Version:  3,
		File:     file,
		Sources:  sources,
		Names:    []string{},
		Mappings: encodeMappings(origins),
	}
}

// Marshal renders the map as JSON.
func (m *SourceMap) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// encodeMappings produces the VLQ mappings string: one segment per output
// line, fields relative to the previous segment as the format requires.
func encodeMappings(origins []Origin) string {
	var b strings.Builder
	prevSource := 0
	prevLine := 0

	for i, o := range origins {
		if i > 0 {
			b.WriteByte(';')
		}
		if o.Source < 0 {
			continue
		}
		b.WriteString(encodeVLQ(0))
		b.WriteString(encodeVLQ(o.Source - prevSource))
		b.WriteString(encodeVLQ(o.Line - prevLine))
		b.WriteString(encodeVLQ(0))
		prevSource = o.Source
		prevLine = o.Line
	}
	return b.String()
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// encodeVLQ encodes a signed integer as base64 VLQ.
func encodeVLQ(value int) string {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}

	var b strings.Builder
	for {
		digit := vlq & 0x1f
		vlq >>= 5
		if vlq > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64Chars[digit])
		if vlq == 0 {
			return b.String()
		}
	}
}
