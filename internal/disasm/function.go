package disasm

import (
	"fmt"
	"strings"
)

// InstructionData is one listing row. Label-only rows mark jump table
// anchors; ".int" rows are data slots inside an inline jump table.
type InstructionData struct {
	Address uint64 `json:"address"`
	IsJump  bool   `json:"is_jump,omitempty"`
	Text    string `json:"text,omitempty"`
	Label   string `json:"label,omitempty"`
}

// AppendAsText writes rows to sb in listing form. Labels sit flush left with
// a trailing colon; instruction and data text is indented.
func AppendAsText(sb *strings.Builder, rows []InstructionData) {
	for _, row := range rows {
		if row.Label != "" {
			sb.WriteString(row.Label)
			sb.WriteString(":\n")
		}
		if row.Text != "" {
			sb.WriteString("    ")
			sb.WriteString(row.Text)
			sb.WriteByte('\n')
		}
	}
}

// Function disassembles one address range of a section. Disassemble may be
// called repeatedly; each call rebuilds the labels and listing from scratch
// and yields identical output for identical inputs.
type Function struct {
	section string
	begin   uint64
	end     uint64
	labels  *LabelTable
	rows    []InstructionData
}

// NewFunction creates a function covering the inclusive range [begin, end]
// within the named section.
func NewFunction(section string, begin, end uint64) *Function {
	return &Function{
		section: section,
		begin:   begin,
		end:     end,
		labels:  NewLabelTable(),
	}
}

// BeginAddress returns the first address of the range.
func (f *Function) BeginAddress() uint64 { return f.begin }

// EndAddress returns the last address of the range.
func (f *Function) EndAddress() uint64 { return f.end }

// Section returns the section name the range lives in.
func (f *Function) Section() string { return f.section }

// Labels returns a copy of the label table built by the last Disassemble.
func (f *Function) Labels() map[uint64]string { return f.labels.Snapshot() }

// Instructions returns the listing rows built by the last Disassemble.
func (f *Function) Instructions() []InstructionData { return f.rows }

// Text renders the listing rows as flat text.
func (f *Function) Text() string {
	var sb strings.Builder
	AppendAsText(&sb, f.rows)
	return sb.String()
}

// Disassemble walks the range twice: the first pass collects branch and jump
// table targets into the label table, the second emits the listing with
// label substitution. A decode failure stops the walk and keeps the rows
// produced so far. An empty section is a no-op.
func (f *Function) Disassemble(setup *FunctionSetup) error {
	if setup == nil {
		return ErrInvalidArgument
	}
	if f.begin > f.end {
		return fmt.Errorf("%w: range %#x..%#x", ErrInvalidArgument, f.begin, f.end)
	}
	if setup.exe.SectionSize(f.section) == 0 {
		return nil
	}

	f.labels.Reset()
	f.rows = f.rows[:0]

	f.traverse(setup, &labelPass{f: f})

	resolver := NewAddressResolver(
		f.labels,
		setup.symbols,
		setup.exe.SectionAddress(f.section),
		setup.exe.SectionEnd(f.section),
		setup.exe.ImageBase(),
		setup.exe.ImageEnd(),
	)
	f.traverse(setup, &emitPass{f: f, setup: setup, resolver: resolver})
	return nil
}

// traversalVisitor receives the events of one range walk.
type traversalVisitor interface {
	instruction(inst Instruction)
	tableAnchor(addr uint64)
	tableSlot(addr, target uint64)
}

// traverse is the single walk shared by both passes. After a nop or an
// unconditional jmp it probes for an inline jump table: consecutive 32-bit
// little-endian words whose values land inside the range.
func (f *Function) traverse(setup *FunctionSetup, v traversalVisitor) {
	base := setup.exe.SectionAddress(f.section)
	data := setup.exe.SectionData(f.section)
	if f.begin < base {
		return
	}
	offset := f.begin - base
	endOffset := f.end - base
	addr := f.begin

	for offset <= endOffset && offset < uint64(len(data)) {
		inst, err := setup.decoder.Decode(addr, data[offset:])
		if err != nil {
			return
		}
		v.instruction(inst)
		offset += uint64(inst.Len)
		addr += uint64(inst.Len)

		if !isTableTrigger(inst) {
			continue
		}
		var scan jumpTableScan
		for {
			target, ok := tableSlot(data, offset)
			if !ok || target < f.begin || target > f.end {
				break
			}
			if !scan.active {
				v.tableAnchor(addr)
				scan.active = true
			}
			v.tableSlot(addr, target)
			offset += 4
			addr += 4
		}
	}
}

// labelPass collects every in-range branch target and jump table entry.
type labelPass struct {
	f *Function
}

func (p *labelPass) instruction(inst Instruction) {
	target, ok := inst.RelativeTarget()
	if ok && target >= p.f.begin && target <= p.f.end {
		p.f.labels.Insert(target)
	}
}

func (p *labelPass) tableAnchor(addr uint64) {
	if addr >= p.f.begin && addr <= p.f.end {
		p.f.labels.Insert(addr)
	}
}

func (p *labelPass) tableSlot(_, target uint64) {
	p.f.labels.Insert(target)
}

// emitPass renders the listing rows using the labels of the first pass.
type emitPass struct {
	f        *Function
	setup    *FunctionSetup
	resolver *AddressResolver
}

func (p *emitPass) instruction(inst Instruction) {
	label, _ := p.f.labels.NameAt(inst.Address)
	p.f.rows = append(p.f.rows, InstructionData{
		Address: inst.Address,
		IsJump:  inst.IsJump(),
		Text:    p.setup.formatter.FormatInstruction(inst, p.resolver),
		Label:   label,
	})
}

func (p *emitPass) tableAnchor(addr uint64) {
	if name, ok := p.f.labels.NameAt(addr); ok {
		p.f.rows = append(p.f.rows, InstructionData{Address: addr, Label: name})
	}
}

func (p *emitPass) tableSlot(addr, target uint64) {
	name, ok := p.f.labels.NameAt(target)
	if !ok {
		return
	}
	p.f.rows = append(p.f.rows, InstructionData{Address: addr, Text: ".int " + name})
}
