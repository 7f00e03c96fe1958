package compile

import (
	"bytes"
	"strconv"
	"strings"

	"go.trai.ch/bindle/internal/core/domain"
)

// Define renders a module definition as a loader registration call: the module
// id, its dependency ids in encounter order, and the source as the factory
// body. The factory signature matches what the client runtime passes in, and
// the source stays on its own lines so browser stack traces line up after the
// one-line header offset.
func Define(def *domain.Definition) []byte {
	var buf bytes.Buffer
	buf.Grow(len(def.Source) + 256)

	buf.WriteString("require.define(")
	buf.WriteString(strconv.Quote(def.ID))
	buf.WriteString(", [")
	for i, spec := range def.Specifiers {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Quote(spec))
	}
	buf.WriteString("], function (require, module, exports) {\n")
	buf.WriteString(def.Source)
	if !strings.HasSuffix(def.Source, "\n") {
		buf.WriteByte('\n')
	}
	buf.WriteString("});\n//# sourceURL=")
	buf.WriteString(def.ID)
	buf.WriteByte('\n')

	return buf.Bytes()
}

// rewriteSpecifiers replaces specifier string literals with their resolved
// ids. Replacement happens only at quote boundaries, so a specifier that also
// appears as a substring of code or of a longer literal is left alone.
func rewriteSpecifiers(source []byte, rewrites map[string]string) []byte {
	if len(rewrites) == 0 {
		return source
	}
	for from, to := range rewrites {
		if from == to {
			continue
		}
		for _, quote := range []byte{'\'', '"', '`'} {
			old := quoted(from, quote)
			source = bytes.ReplaceAll(source, old, quoted(to, quote))
		}
	}
	return source
}

func quoted(s string, quote byte) []byte {
	b := make([]byte, 0, len(s)+2)
	b = append(b, quote)
	b = append(b, s...)
	return append(b, quote)
}
