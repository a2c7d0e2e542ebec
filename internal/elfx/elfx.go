// Package elfx provides helpers for opening ELF binaries, locating sections,
// harvesting symbols, and mapping virtual addresses to file offsets.
package elfx

import (
	"debug/elf"
	"fmt"
	"os"
	"syscall"
)

type Image struct {
	Path     string
	File     *elf.File
	All      []byte
	Loads    []Seg
	Sections map[string]Section
	Symbols  []Symbol
	f        *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Symbol is a defined symbol harvested from .symtab and .dynsym,
// deduplicated by address with .symtab winning.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im := &Image{Path: path, File: f, All: all, Sections: make(map[string]Section), f: of}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  uint64(p.Vaddr),
			Off:    uint64(p.Off),
			Filesz: uint64(p.Filesz),
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		if s.Name == "" || s.Type == elf.SHT_NULL || s.Type == elf.SHT_NOBITS {
			continue
		}
		im.Sections[s.Name] = Section{s.Name, s.Addr, s.Offset, s.Size}
	}

	im.loadSymbols()
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Section returns the named section, or a zero Section if absent.
func (im *Image) Section(name string) Section {
	return im.Sections[name]
}

// SectionAddress returns the start virtual address of the named section.
func (im *Image) SectionAddress(name string) uint64 {
	return im.Sections[name].VA
}

// SectionEnd returns the address one past the last byte of the named section.
func (im *Image) SectionEnd(name string) uint64 {
	s := im.Sections[name]
	return s.VA + s.Size
}

// SectionSize returns the size of the named section. Unknown names report
// zero, which callers treat as an empty section.
func (im *Image) SectionSize(name string) uint64 {
	return im.Sections[name].Size
}

// SectionData returns the mapped bytes of the named section, or nil if the
// section is absent or extends past the mapped file.
func (im *Image) SectionData(name string) []byte {
	s, ok := im.Sections[name]
	if !ok || s.Size == 0 {
		return nil
	}
	end := s.Off + s.Size
	if end > uint64(len(im.All)) {
		return nil
	}
	return im.All[s.Off:end]
}

// ImageBase returns the lowest PT_LOAD virtual address.
func (im *Image) ImageBase() uint64 {
	base := ^uint64(0)
	for _, l := range im.Loads {
		if l.Vaddr < base {
			base = l.Vaddr
		}
	}
	if base == ^uint64(0) {
		return 0
	}
	return base
}

// ImageEnd returns the highest mapped address across PT_LOAD segments.
func (im *Image) ImageEnd() uint64 {
	var end uint64
	for _, l := range im.Loads {
		if e := l.Vaddr + l.Filesz; e > end {
			end = e
		}
	}
	return end
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns a subslice of the mapped file corresponding to the virtual
// address range [va, va+size). It returns (nil, false) if the VA is unmapped
// or the range is out of bounds.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// loadSymbols harvests defined symbols from .symtab and .dynsym. Static
// symbols take precedence when both tables define the same address.
func (im *Image) loadSymbols() {
	if im.File == nil {
		return
	}
	seen := make(map[uint64]bool)

	if syms, err := im.File.Symbols(); err == nil {
		for _, sym := range syms {
			if sym.Name == "" || sym.Value == 0 || seen[sym.Value] {
				continue
			}
			seen[sym.Value] = true
			im.Symbols = append(im.Symbols, Symbol{Name: sym.Name, Addr: sym.Value, Size: sym.Size})
		}
	}

	if dynsyms, err := im.File.DynamicSymbols(); err == nil {
		for _, sym := range dynsyms {
			if sym.Name == "" || sym.Value == 0 || seen[sym.Value] {
				continue
			}
			seen[sym.Value] = true
			im.Symbols = append(im.Symbols, Symbol{Name: sym.Name, Addr: sym.Value, Size: sym.Size})
		}
	}
}
