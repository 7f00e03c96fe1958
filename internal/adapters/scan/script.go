// Package scan implements static specifier extraction from source text.
package scan

import (
	"go.trai.ch/bindle/internal/core/ports"
)

var _ ports.ScriptScanner = (*Script)(nil)

// Script extracts dependency specifiers from script source without executing
// it. Recognized forms are require calls, import statements, re-exports with a
// source clause and dynamic import calls. Comments, string literals and
// template literals are skipped so specifier-shaped text inside them is never
// misread.
type Script struct{}

// NewScript creates a new script scanner.
func NewScript() *Script {
	return &Script{}
}

// Scan returns every statically detectable specifier in encounter order,
// duplicates preserved.
func (s *Script) Scan(source []byte) []string {
	var specifiers []string
	i := 0
	n := len(source)

	for i < n {
		c := source[i]

		switch {
		case c == '/' && i+1 < n && source[i+1] == '/':
			i = skipLineComment(source, i)
		case c == '/' && i+1 < n && source[i+1] == '*':
			i = skipBlockComment(source, i)
		case c == '\'' || c == '"':
			i = skipString(source, i, c)
		case c == '`':
			i = skipTemplate(source, i)
		case isIdentStart(c) && !isIdentChar(prevByte(source, i)) && prevSignificant(source, i) != '.':
			word, end := readWord(source, i)
			switch word {
			case "require", "import":
				if spec, next, ok := readCallArgument(source, end); ok {
					specifiers = append(specifiers, spec)
					i = next
					continue
				}
				if word == "import" {
					if spec, next, ok := readImportClause(source, end); ok {
						specifiers = append(specifiers, spec)
						i = next
						continue
					}
				}
			case "export":
				if spec, next, ok := readFromClause(source, end); ok {
					specifiers = append(specifiers, spec)
					i = next
					continue
				}
			}
			i = end
		default:
			i++
		}
	}

	return specifiers
}

func prevByte(source []byte, i int) byte {
	if i == 0 {
		return 0
	}
	return source[i-1]
}

// prevSignificant returns the previous non-whitespace byte, so member access
// like a.require is not mistaken for the keyword.
func prevSignificant(source []byte, i int) byte {
	for j := i - 1; j >= 0; j-- {
		if !isWhitespace(source[j]) {
			return source[j]
		}
	}
	return 0
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func readWord(source []byte, i int) (string, int) {
	start := i
	for i < len(source) && isIdentChar(source[i]) {
		i++
	}
	return string(source[start:i]), i
}

func skipWhitespace(source []byte, i int) int {
	for i < len(source) && isWhitespace(source[i]) {
		i++
	}
	return i
}

func skipLineComment(source []byte, i int) int {
	for i < len(source) && source[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(source []byte, i int) int {
	i += 2
	for i+1 < len(source) {
		if source[i] == '*' && source[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(source)
}

func skipString(source []byte, i int, quote byte) int {
	i++
	for i < len(source) {
		switch source[i] {
		case '\\':
			i += 2
			continue
		case quote, '\n':
			return i + 1
		}
		i++
	}
	return i
}

// skipTemplate skips a template literal, tracking ${} nesting so backticks
// inside interpolations do not terminate the literal early.
func skipTemplate(source []byte, i int) int {
	i++
	depth := 0
	for i < len(source) {
		switch {
		case source[i] == '\\':
			i++
		case source[i] == '$' && i+1 < len(source) && source[i+1] == '{':
			depth++
			i++
		case source[i] == '}' && depth > 0:
			depth--
		case source[i] == '`' && depth == 0:
			return i + 1
		}
		i++
	}
	return i
}

// readStringLiteral reads a quoted specifier starting at i.
func readStringLiteral(source []byte, i int) (string, int, bool) {
	if i >= len(source) || (source[i] != '\'' && source[i] != '"') {
		return "", i, false
	}
	quote := source[i]
	start := i + 1
	j := start
	for j < len(source) && source[j] != quote && source[j] != '\n' {
		if source[j] == '\\' {
			j++
		}
		j++
	}
	if j >= len(source) || source[j] != quote {
		return "", i, false
	}
	return string(source[start:j]), j + 1, true
}

// readCallArgument matches `( 'specifier' )` after a require/import keyword.
func readCallArgument(source []byte, i int) (string, int, bool) {
	j := skipWhitespace(source, i)
	if j >= len(source) || source[j] != '(' {
		return "", i, false
	}
	j = skipWhitespace(source, j+1)
	spec, j, ok := readStringLiteral(source, j)
	if !ok {
		return "", i, false
	}
	j = skipWhitespace(source, j)
	if j >= len(source) || source[j] != ')' {
		return "", i, false
	}
	return spec, j + 1, true
}

// readImportClause matches the statement forms `import 'x'` and
// `import ... from 'x'`.
func readImportClause(source []byte, i int) (string, int, bool) {
	j := skipWhitespace(source, i)
	if spec, next, ok := readStringLiteral(source, j); ok {
		return spec, next, true
	}
	return readFromClause(source, i)
}

// readFromClause scans forward within the current statement for `from 'x'`.
// Statements without a source clause (declarations, plain exports) yield
// nothing; the scan bails as soon as one is recognized so arbitrary code is
// never crossed.
func readFromClause(source []byte, i int) (string, int, bool) {
	j := i
	for j < len(source) {
		c := source[j]
		switch {
		case isWhitespace(c), c == '*', c == ',':
			j++
		case c == '{':
			j = skipBraces(source, j)
		case isIdentStart(c):
			word, end := readWord(source, j)
			switch word {
			case "from":
				k := skipWhitespace(source, end)
				return readStringLiteral(source, k)
			case "default", "function", "class", "const", "let", "var", "async", "enum", "interface", "type":
				return "", i, false
			default:
				j = end
			}
		default:
			return "", i, false
		}
	}
	return "", i, false
}

// skipBraces skips a balanced brace group, honoring string literals inside it.
func skipBraces(source []byte, i int) int {
	depth := 0
	for i < len(source) {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\'', '"':
			i = skipString(source, i, source[i]) - 1
		}
		i++
	}
	return i
}
