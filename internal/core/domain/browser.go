package domain

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// Override is one entry of a package's browser table: either a shim (the
// specifier is replaced by Target) or a disable (the specifier is dropped from
// the file set entirely). The table is decided once at build time and applied
// as a pure transform over the scanned file set, never re-evaluated per request.
type Override struct {
	Target   string
	Disabled bool
}

// Overrides maps a specifier to its browser override.
type Overrides map[string]Override

// Apply returns the effective specifier and whether it survives the table.
// A specifier without an entry passes through unchanged. A self-referencing
// shim is dropped so it cannot introduce a cycle.
func (o Overrides) Apply(specifier string) (string, bool) {
	rule, ok := o[specifier]
	if !ok {
		return specifier, true
	}
	if rule.Disabled || rule.Target == specifier {
		return "", false
	}
	return rule.Target, true
}

// MarshalJSON serializes an override the way manifests spell it: a replacement
// string, or false for a disable.
func (r Override) MarshalJSON() ([]byte, error) {
	if r.Disabled {
		return json.Marshal(false)
	}
	return json.Marshal(r.Target)
}

// UnmarshalJSON accepts the manifest forms "target" and false.
func (r *Override) UnmarshalJSON(data []byte) error {
	var target string
	if err := json.Unmarshal(data, &target); err == nil {
		r.Target = target
		r.Disabled = false
		return nil
	}
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		if flag {
			return zerr.New("browser table value must be a string or false")
		}
		r.Disabled = true
		return nil
	}
	return zerr.New("browser table value must be a string or false")
}
