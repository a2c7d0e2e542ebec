package disasm

import (
	"fmt"
	"maps"
)

// LabelTable maps addresses to synthesized label names for one function.
// It is populated during the label-discovery pass and read-only during the
// emission pass; it is reset between functions.
type LabelTable struct {
	names map[uint64]string
}

// NewLabelTable creates an empty label table.
func NewLabelTable() *LabelTable {
	return &LabelTable{names: make(map[uint64]string)}
}

// Insert creates a label for addr if none exists yet. Inserting the same
// address twice yields one label, not two.
func (t *LabelTable) Insert(addr uint64) {
	if _, ok := t.names[addr]; ok {
		return
	}
	t.names[addr] = fmt.Sprintf("label_%x", addr)
}

// Contains reports whether addr has a label.
func (t *LabelTable) Contains(addr uint64) bool {
	_, ok := t.names[addr]
	return ok
}

// NameAt returns the label name at addr.
func (t *LabelTable) NameAt(addr uint64) (string, bool) {
	name, ok := t.names[addr]
	return name, ok
}

// Len returns the number of labels in the table.
func (t *LabelTable) Len() int { return len(t.names) }

// Snapshot returns a copy of the table for downstream consumers such as
// cross-referencing tools.
func (t *LabelTable) Snapshot() map[uint64]string {
	return maps.Clone(t.names)
}

// Reset clears the table for reuse with the next function.
func (t *LabelTable) Reset() { clear(t.names) }
