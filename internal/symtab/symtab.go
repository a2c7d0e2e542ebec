// Package symtab builds an address-ordered symbol table from a loaded ELF
// image and answers the exact and nearest-below lookups the disassembler
// performs on every address-bearing operand.
package symtab

import (
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"

	"github.com/xezon/unassemblize/internal/disasm"
	"github.com/xezon/unassemblize/internal/elfx"
)

var (
	demangleCache = make(map[string]string)
	demangleMu    sync.RWMutex
)

// CachedDemangle demangles C++ symbol names with caching. Non-mangled names
// pass through unchanged.
func CachedDemangle(mangled string) string {
	demangleMu.RLock()
	if cached, ok := demangleCache[mangled]; ok {
		demangleMu.RUnlock()
		return cached
	}
	demangleMu.RUnlock()

	result := demangle.Filter(mangled, demangle.NoClones)

	demangleMu.Lock()
	demangleCache[mangled] = result
	demangleMu.Unlock()
	return result
}

// Table is an immutable symbol table sorted by address. It satisfies the
// lookups the operand resolver needs and is safe for concurrent use.
type Table struct {
	syms   []disasm.Symbol
	byName map[string]int
}

var _ disasm.SymbolLookup = (*Table)(nil)

// New builds a table from symbols in any order. Later duplicates of an
// address are dropped.
func New(symbols []disasm.Symbol) *Table {
	seen := make(map[uint64]bool, len(symbols))
	syms := make([]disasm.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		if seen[sym.Address] {
			continue
		}
		seen[sym.Address] = true
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Address < syms[j].Address })

	byName := make(map[string]int, len(syms))
	for i, sym := range syms {
		if _, ok := byName[sym.Name]; !ok {
			byName[sym.Name] = i
		}
	}
	return &Table{syms: syms, byName: byName}
}

// FromImage builds a table from an opened image, demangling every name.
func FromImage(im *elfx.Image) *Table {
	symbols := make([]disasm.Symbol, 0, len(im.Symbols))
	for _, sym := range im.Symbols {
		symbols = append(symbols, disasm.Symbol{
			Name:    CachedDemangle(sym.Name),
			Address: sym.Addr,
			Size:    sym.Size,
		})
	}
	return New(symbols)
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int { return len(t.syms) }

// ExactAt returns the symbol defined exactly at addr.
func (t *Table) ExactAt(addr uint64) (disasm.Symbol, bool) {
	i := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].Address >= addr })
	if i < len(t.syms) && t.syms[i].Address == addr {
		return t.syms[i], true
	}
	return disasm.Symbol{}, false
}

// NearestAtOrBelow returns the symbol with the greatest address not above
// addr. It never returns a symbol above addr.
func (t *Table) NearestAtOrBelow(addr uint64) (disasm.Symbol, bool) {
	i := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].Address > addr })
	if i == 0 {
		return disasm.Symbol{}, false
	}
	return t.syms[i-1], true
}

// ByName returns the first symbol with the given demangled name.
func (t *Table) ByName(name string) (disasm.Symbol, bool) {
	i, ok := t.byName[name]
	if !ok {
		return disasm.Symbol{}, false
	}
	return t.syms[i], true
}
