package ports

// ScriptScanner statically extracts dependency specifiers from script source.
// Implementations are pure functions over the source text: no I/O, no
// execution. Duplicates are preserved in encounter order; consumers decide on
// deduplication.
type ScriptScanner interface {
	Scan(source []byte) []string
}

// StyleScanner extracts @import targets from stylesheet source in encounter
// order.
type StyleScanner interface {
	Imports(source []byte) []string
}
