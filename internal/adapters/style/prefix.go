package style

import (
	"strings"
)

// RulesVersion changes whenever the prefixing table changes, so cached
// prefixed output is invalidated independently of the flattened intermediate.
const RulesVersion = "prefix-rules/3"

// prefixedProperties maps a CSS property to the vendor prefixes it needs.
var prefixedProperties = map[string][]string{
	"animation":            {"-webkit-"},
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"column-count":         {"-webkit-", "-moz-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask":                 {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-ms-"},
	"transform":            {"-webkit-", "-ms-"},
	"transition":           {"-webkit-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// prefixedValues maps property -> value -> prefixed replacement values that
// are inserted before the standard declaration.
var prefixedValues = map[string]map[string][]string{
	"display": {
		"flex":        {"-webkit-box", "-webkit-flex", "-ms-flexbox"},
		"inline-flex": {"-webkit-inline-box", "-webkit-inline-flex"},
	},
	"position": {
		"sticky": {"-webkit-sticky"},
	},
}

// Prefixed is the result of the vendor-prefix pass: output lines plus, for
// each, the flattened line it derives from. Inserted prefix lines map to the
// same flattened line as the declaration they duplicate, so the composed
// source map still points at the original source.
type Prefixed struct {
	Lines []string
	Input []int
}

// CSS renders the prefixed stylesheet.
func (p *Prefixed) CSS() string {
	return strings.Join(p.Lines, "\n")
}

// Prefixer applies vendor prefixes as a pure second pass over a flattened
// stylesheet.
type Prefixer struct{}

// NewPrefixer creates a Prefixer.
func NewPrefixer() *Prefixer {
	return &Prefixer{}
}

// Prefix returns the prefixed form of the flattened lines.
func (p *Prefixer) Prefix(lines []string) *Prefixed {
	out := &Prefixed{}
	for i, line := range lines {
		for _, inserted := range prefixLines(line) {
			out.Lines = append(out.Lines, inserted)
			out.Input = append(out.Input, i)
		}
		out.Lines = append(out.Lines, line)
		out.Input = append(out.Input, i)
	}
	return out
}

// Compose chains the prefix pass's line mapping through the flatten pass's
// origins, yielding origins for the final output.
func (p *Prefixed) Compose(origins []Origin) []Origin {
	composed := make([]Origin, len(p.Input))
	for i, input := range p.Input {
		if input >= 0 && input < len(origins) {
			composed[i] = origins[input]
		} else {
			composed[i] = Origin{Source: -1}
		}
	}
	return composed
}

// prefixLines returns the vendor-prefixed declarations to insert before a
// declaration line, in table order. Non-declaration lines insert nothing.
func prefixLines(line string) []string {
	property, value, indent, ok := splitDeclaration(line)
	if !ok {
		return nil
	}

	var inserted []string
	if values, ok := prefixedValues[property]; ok {
		for _, v := range values[strings.TrimSuffix(value, ";")] {
			inserted = append(inserted, indent+property+": "+v+";")
		}
	}
	for _, prefix := range prefixedProperties[property] {
		inserted = append(inserted, indent+prefix+property+": "+value)
	}
	return inserted
}

// splitDeclaration parses `<indent><property>: <value>` from a line that holds
// exactly one declaration.
func splitDeclaration(line string) (property, value, indent string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent = line[:len(line)-len(trimmed)]

	colon := strings.Index(trimmed, ":")
	if colon <= 0 {
		return "", "", "", false
	}
	property = strings.ToLower(strings.TrimSpace(trimmed[:colon]))
	value = strings.TrimSpace(trimmed[colon+1:])
	if property == "" || value == "" || strings.ContainsAny(property, "{}@/ ") {
		return "", "", "", false
	}
	return property, value, indent, true
}
