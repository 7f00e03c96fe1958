package scan

import (
	"strings"

	"github.com/gorilla/css/scanner"
	"go.trai.ch/bindle/internal/core/ports"
)

var _ ports.StyleScanner = (*Style)(nil)

// Style extracts @import targets from stylesheet source. Both the string and
// url() forms are recognized; media-query suffixes are ignored.
type Style struct{}

// NewStyle creates a new stylesheet scanner.
func NewStyle() *Style {
	return &Style{}
}

// Imports returns every @import target in encounter order.
func (s *Style) Imports(source []byte) []string {
	var targets []string
	sc := scanner.New(string(source))
	pendingImport := false

	for {
		tok := sc.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			return targets
		}

		switch tok.Type {
		case scanner.TokenAtKeyword:
			pendingImport = strings.EqualFold(tok.Value, "@import")
		case scanner.TokenString:
			if pendingImport {
				targets = append(targets, unquote(tok.Value))
				pendingImport = false
			}
		case scanner.TokenURI:
			if pendingImport {
				targets = append(targets, unwrapURI(tok.Value))
				pendingImport = false
			}
		case scanner.TokenS, scanner.TokenComment:
			// Whitespace and comments between @import and its target.
		default:
			pendingImport = false
		}
	}
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

func unwrapURI(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(strings.ToLower(v), "url(") || !strings.HasSuffix(v, ")") {
		return v
	}
	inner := strings.TrimSpace(v[4 : len(v)-1])
	return unquote(inner)
}
