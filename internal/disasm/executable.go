package disasm

// Symbol is an image-wide symbol as provided by the executable's symbol
// table. The table owns it; the disassembler never mutates it.
type Symbol struct {
	Name    string
	Address uint64
	Size    uint64
}

// SymbolLookup resolves image symbols by address. NearestAtOrBelow must
// never return a symbol above the queried address.
type SymbolLookup interface {
	ExactAt(addr uint64) (Symbol, bool)
	NearestAtOrBelow(addr uint64) (Symbol, bool)
}

// Executable exposes the loaded-image queries the disassembler consumes.
// Sections are looked up by name; an unknown name reports zero size.
type Executable interface {
	SectionAddress(name string) uint64
	SectionEnd(name string) uint64
	SectionSize(name string) uint64
	SectionData(name string) []byte
	ImageBase() uint64
	ImageEnd() uint64
}
