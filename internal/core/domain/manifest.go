package domain

import "encoding/json"

// Manifest is the subset of a package manifest (package.json) the builder
// consumes: identity, entries, declared dependency ranges and the browser
// override table.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main"`
	Style        StringList        `json:"style"`
	Dependencies map[string]string `json:"dependencies"`
	Browser      Overrides         `json:"browser"`
}

// EntryMain returns the declared main entry, defaulting to index.js.
func (m *Manifest) EntryMain() string {
	if m.Main == "" {
		return IndexFileName
	}
	return m.Main
}

// StringList accepts both a single string and a list of strings, both of which
// manifests use for style entries.
type StringList []string

// UnmarshalJSON implements the dual form.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = StringList(many)
	return nil
}
