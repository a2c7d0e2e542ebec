package disasm

import "fmt"

// AddrClass classifies how an operand address was resolved.
type AddrClass int

const (
	// ClassUnresolved means no symbolic form applies; the caller falls back
	// to the default numeric renderer for the operand context.
	ClassUnresolved AddrClass = iota
	ClassLocal
	ClassSectionSymbol
	ClassImageSymbol
)

// AddressResolver rewrites operand addresses into symbolic text for one
// function run. Resolution order is Local label, then section symbol, then
// image symbol, then unresolved; the ordering is a load-bearing invariant.
type AddressResolver struct {
	labels      *LabelTable
	symbols     SymbolLookup
	sectionAddr uint64
	sectionEnd  uint64
	imageBase   uint64
	imageEnd    uint64
}

// NewAddressResolver creates a resolver scoped to one function's section and
// label table. symbols may be nil, in which case only synthesized names are
// produced for in-image addresses.
func NewAddressResolver(labels *LabelTable, symbols SymbolLookup, sectionAddr, sectionEnd, imageBase, imageEnd uint64) *AddressResolver {
	return &AddressResolver{
		labels:      labels,
		symbols:     symbols,
		sectionAddr: sectionAddr,
		sectionEnd:  sectionEnd,
		imageBase:   imageBase,
		imageEnd:    imageEnd,
	}
}

// Resolve classifies addr and produces its display text for the given
// operand context. Displacement texts carry a leading "+".
func (r *AddressResolver) Resolve(ctx OperandContext, addr uint64) (AddrClass, string) {
	prefix := ""
	if ctx == CtxDisplacement {
		prefix = "+"
	}

	if name, ok := r.labels.NameAt(addr); ok {
		return ClassLocal, prefix + name
	}

	if addr >= r.sectionAddr && addr <= r.sectionEnd {
		// Probably a function if the address is in the current section.
		if sym, ok := r.exactAt(addr); ok {
			return ClassSectionSymbol, prefix + sym.Name
		}
		return ClassSectionSymbol, prefix + fmt.Sprintf("sub_%x", addr)
	}

	if addr >= r.imageBase && addr <= r.imageEnd {
		// Data in another section.
		if sym, ok := r.exactAt(addr); ok {
			return ClassImageSymbol, prefix + sym.Name
		}
		if ctx == CtxDisplacement {
			if sym, ok := r.nearestAtOrBelow(addr); ok {
				// The nearest lookup never returns a symbol above addr, so
				// the difference is non-negative by construction.
				return ClassImageSymbol, fmt.Sprintf("+%s+0x%x", sym.Name, addr-sym.Address)
			}
		}
		if ctx == CtxFarPointer {
			return ClassImageSymbol, prefix + fmt.Sprintf("unk_%x", addr)
		}
		return ClassImageSymbol, prefix + fmt.Sprintf("off_%x", addr)
	}

	return ClassUnresolved, ""
}

func (r *AddressResolver) exactAt(addr uint64) (Symbol, bool) {
	if r.symbols == nil {
		return Symbol{}, false
	}
	sym, ok := r.symbols.ExactAt(addr)
	if !ok || sym.Name == "" {
		return Symbol{}, false
	}
	return sym, true
}

func (r *AddressResolver) nearestAtOrBelow(addr uint64) (Symbol, bool) {
	if r.symbols == nil {
		return Symbol{}, false
	}
	sym, ok := r.symbols.NearestAtOrBelow(addr)
	if !ok || sym.Name == "" {
		return Symbol{}, false
	}
	return sym, true
}
