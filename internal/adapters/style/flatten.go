package style

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Flat is the flattened-but-unprefixed intermediate: every @import inlined,
// with a per-line record of where each output line originated.
type Flat struct {
	Lines   []string `json:"lines"`
	Origins []Origin `json:"origins"`
	Sources []string `json:"sources"`
}

// CSS renders the flattened stylesheet.
func (f *Flat) CSS() string {
	return strings.Join(f.Lines, "\n")
}

// Flattener recursively inlines @import rules relative to the configured
// search roots.
type Flattener struct {
	scanner ports.StyleScanner
	roots   []string
}

// NewFlattener creates a Flattener. Import targets are resolved against the
// importing file's directory first, then each root in order.
func NewFlattener(scanner ports.StyleScanner, roots []string) *Flattener {
	return &Flattener{scanner: scanner, roots: roots}
}

// Flatten reads the entry stylesheet and produces one flattened sheet. An
// import that cannot be located is domain.ErrStyleImport, fatal for this
// compile only. Import cycles terminate: a file is inlined at most once.
func (f *Flattener) Flatten(entry string) (*Flat, error) {
	flat := &Flat{}
	visited := make(map[string]bool)
	if err := f.inline(entry, flat, visited); err != nil {
		return nil, err
	}
	return flat, nil
}

func (f *Flattener) inline(path string, flat *Flat, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve stylesheet path")
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	//nolint:gosec // Path was resolved through the style search roots
	data, err := os.ReadFile(abs)
	if err != nil {
		return zerr.With(domain.Mark(domain.ErrStyleImport, err), "path", abs)
	}

	sourceIdx := len(flat.Sources)
	flat.Sources = append(flat.Sources, abs)

	for lineNo, line := range strings.Split(string(data), "\n") {
		target, ok := importTarget(f.scanner, line)
		if !ok {
			flat.Lines = append(flat.Lines, line)
			flat.Origins = append(flat.Origins, Origin{Source: sourceIdx, Line: lineNo})
			continue
		}

		resolved, err := f.resolve(filepath.Dir(abs), target)
		if err != nil {
			return err
		}
		if err := f.inline(resolved, flat, visited); err != nil {
			return err
		}
	}
	return nil
}

// importTarget reports whether a line is a lone @import rule and returns its
// target.
func importTarget(scanner ports.StyleScanner, line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(strings.ToLower(trimmed), "@import") {
		return "", false
	}
	targets := scanner.Imports([]byte(trimmed))
	if len(targets) != 1 {
		return "", false
	}
	return targets[0], true
}

// resolve locates an import target: importing directory first, then each
// search root. A target without an extension gets .css appended.
func (f *Flattener) resolve(fromDir, target string) (string, error) {
	if filepath.Ext(target) == "" {
		target += ".css"
	}

	candidates := make([]string, 0, len(f.roots)+1)
	candidates = append(candidates, filepath.Join(fromDir, target))
	for _, root := range f.roots {
		candidates = append(candidates, filepath.Join(root, target))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	err := zerr.With(domain.Mark(domain.ErrStyleImport, nil), "import", target)
	return "", zerr.With(err, "from", fromDir)
}
