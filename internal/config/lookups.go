package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	pipeerrors "conductcli/internal/errors"
)

// LookupTables holds the static name-canonicalization maps: raw export
// spellings on the left, canonical names on the right. Unknown names pass
// through unchanged.
type LookupTables struct {
	Violations map[string]string `yaml:"violations"`
	Locations  map[string]string `yaml:"locations"`
	Sanctions  map[string]string `yaml:"sanctions"`
}

// EmptyLookups returns lookup tables that canonicalize nothing.
func EmptyLookups() *LookupTables {
	return &LookupTables{
		Violations: map[string]string{},
		Locations:  map[string]string{},
		Sanctions:  map[string]string{},
	}
}

// LoadLookups reads the canonicalization tables from a YAML file. An empty
// path yields empty tables rather than an error; canonicalization is optional.
func LoadLookups(path string) (*LookupTables, error) {
	if path == "" {
		return EmptyLookups(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "reading lookup tables", err)
	}

	tables := EmptyLookups()
	if err := yaml.Unmarshal(data, tables); err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "parsing lookup tables", err)
	}
	if tables.Violations == nil {
		tables.Violations = map[string]string{}
	}
	if tables.Locations == nil {
		tables.Locations = map[string]string{}
	}
	if tables.Sanctions == nil {
		tables.Sanctions = map[string]string{}
	}

	return tables, nil
}

// CanonicalViolation maps a raw violation name to its canonical form.
func (t *LookupTables) CanonicalViolation(name string) string {
	return canonical(t.Violations, name)
}

// CanonicalLocation maps a raw location name to its canonical form.
func (t *LookupTables) CanonicalLocation(name string) string {
	return canonical(t.Locations, name)
}

// CanonicalSanction maps a raw sanction name to its canonical form.
func (t *LookupTables) CanonicalSanction(name string) string {
	return canonical(t.Sanctions, name)
}

func canonical(table map[string]string, name string) string {
	trimmed := strings.TrimSpace(name)
	if mapped, ok := table[trimmed]; ok {
		return mapped
	}
	return trimmed
}
