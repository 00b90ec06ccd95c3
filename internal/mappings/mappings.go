// Package mappings holds the API mapping table that drives rule-based
// transpilation: Java mod-loader signatures keyed to their Bedrock scripting
// equivalents.
package mappings

import "strings"

// ConversionKind describes how faithful a mapping is.
type ConversionKind string

const (
	ConversionDirect     ConversionKind = "direct"
	ConversionWrapper    ConversionKind = "wrapper"
	ConversionComplex    ConversionKind = "complex"
	ConversionImpossible ConversionKind = "impossible"
)

// Example is a worked source/target pair attached to a mapping.
type Example struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Mapping relates one Java API signature to its target equivalent.
type Mapping struct {
	SourceSignature  string         `json:"source_signature" yaml:"source_signature"`
	TargetEquivalent string         `json:"target_equivalent" yaml:"target_equivalent"`
	Kind             ConversionKind `json:"conversion_kind" yaml:"conversion_kind"`
	Notes            string         `json:"notes,omitempty" yaml:"notes,omitempty"`
	Example          *Example       `json:"example,omitempty" yaml:"example,omitempty"`
}

// Table is an ordered mapping collection keyed by source signature.
//
// Tables are not safe for concurrent mutation. Concurrent translation runs
// take a Clone each and extend their copy, leaving the shared seed table
// untouched.
type Table struct {
	order   []string
	entries map[string]Mapping
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Mapping)}
}

// Add inserts or replaces the mapping under its source signature. The first
// insertion position is kept on replacement so exports stay stable.
func (t *Table) Add(m Mapping) {
	if m.SourceSignature == "" {
		return
	}
	if _, exists := t.entries[m.SourceSignature]; !exists {
		t.order = append(t.order, m.SourceSignature)
	}
	t.entries[m.SourceSignature] = m
}

// AddAll inserts every mapping in order.
func (t *Table) AddAll(ms []Mapping) {
	for _, m := range ms {
		t.Add(m)
	}
}

// Lookup returns the mapping stored under the exact signature.
func (t *Table) Lookup(signature string) (Mapping, bool) {
	m, ok := t.entries[signature]
	return m, ok
}

// Resolve returns the mapping for signature, trying an exact key first and
// then falling back to substring containment: every key that is a substring
// of signature is a candidate, the longest candidate wins, and equal-length
// candidates tie-break to the lexicographically smallest key. The fallback
// is deterministic regardless of insertion order.
func (t *Table) Resolve(signature string) (Mapping, bool) {
	if m, ok := t.entries[signature]; ok {
		return m, true
	}
	best := ""
	for key := range t.entries {
		if key == "" || !strings.Contains(signature, key) {
			continue
		}
		if len(key) > len(best) || (len(key) == len(best) && key < best) {
			best = key
		}
	}
	if best == "" {
		return Mapping{}, false
	}
	return t.entries[best], true
}

// Entries returns all mappings in insertion order.
func (t *Table) Entries() []Mapping {
	out := make([]Mapping, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.entries[key])
	}
	return out
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	return len(t.entries)
}

// Clone returns an independent deep copy. Mutating the clone never affects
// the receiver.
func (t *Table) Clone() *Table {
	out := &Table{
		order:   make([]string, len(t.order)),
		entries: make(map[string]Mapping, len(t.entries)),
	}
	copy(out.order, t.order)
	for key, m := range t.entries {
		if m.Example != nil {
			example := *m.Example
			m.Example = &example
		}
		out.entries[key] = m
	}
	return out
}
