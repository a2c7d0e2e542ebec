package disasm

import (
	"bytes"
	"strings"
	"testing"
)

// fakeExe serves a single in-memory section for traversal tests.
type fakeExe struct {
	name string
	addr uint64
	data []byte
}

func (f *fakeExe) SectionAddress(name string) uint64 {
	if name != f.name {
		return 0
	}
	return f.addr
}

func (f *fakeExe) SectionEnd(name string) uint64 {
	if name != f.name {
		return 0
	}
	return f.addr + uint64(len(f.data))
}

func (f *fakeExe) SectionSize(name string) uint64 {
	if name != f.name {
		return 0
	}
	return uint64(len(f.data))
}

func (f *fakeExe) SectionData(name string) []byte {
	if name != f.name {
		return nil
	}
	return f.data
}

func (f *fakeExe) ImageBase() uint64 { return f.addr }
func (f *fakeExe) ImageEnd() uint64  { return f.addr + uint64(len(f.data)) }

func newTestSetup(t *testing.T, exe Executable) *FunctionSetup {
	t.Helper()
	setup, err := NewFunctionSetup(exe, nil, ModeLegacy32, FormatDefault)
	if err != nil {
		t.Fatalf("NewFunctionSetup: %v", err)
	}
	return setup
}

func TestDisassembleRelativeJump(t *testing.T) {
	// jmp +6 lands on the nop at 0x1008; everything else is nops.
	data := append([]byte{0xEB, 0x06}, bytes.Repeat([]byte{0x90}, 14)...)
	exe := &fakeExe{name: ".text", addr: 0x1000, data: data}

	fn := NewFunction(".text", 0x1000, 0x100f)
	if err := fn.Disassemble(newTestSetup(t, exe)); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	labels := fn.Labels()
	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1: %v", len(labels), labels)
	}
	if labels[0x1008] != "label_1008" {
		t.Errorf("label at 0x1008 = %q, want %q", labels[0x1008], "label_1008")
	}

	rows := fn.Instructions()
	if len(rows) != 15 {
		t.Fatalf("got %d rows, want 15", len(rows))
	}
	if rows[0].Text != "jmp label_1008" {
		t.Errorf("jmp text = %q, want %q", rows[0].Text, "jmp label_1008")
	}
	if !rows[0].IsJump {
		t.Error("jmp row not marked as jump")
	}
	for _, row := range rows {
		if row.Address == 0x1008 {
			if row.Label != "label_1008" {
				t.Errorf("row at 0x1008 label = %q, want %q", row.Label, "label_1008")
			}
		} else if row.Label != "" {
			t.Errorf("unexpected label %q at %#x", row.Label, row.Address)
		}
	}
}

func TestDisassembleJumpTable(t *testing.T) {
	data := []byte{
		0xEB, 0x14, // 0x1000: jmp 0x1016
		0x12, 0x10, 0x00, 0x00, // 0x1002: table slot 0x1012
		0x16, 0x10, 0x00, 0x00, // 0x1006: table slot 0x1016
		0x18, 0x10, 0x00, 0x00, // 0x100a: table slot 0x1018
		0x99, 0x99, 0x99, 0x99, // 0x100e: out of range, ends the table
		0x90, 0x90, 0x90, 0x90, // 0x1012
		0x90, 0x90, 0x90, 0x90, // 0x1016
		0x90, 0x90, // 0x101a is past the range
	}
	exe := &fakeExe{name: ".text", addr: 0x1000, data: data}

	fn := NewFunction(".text", 0x1000, 0x1019)
	if err := fn.Disassemble(newTestSetup(t, exe)); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	labels := fn.Labels()
	wantLabels := []uint64{0x1002, 0x1012, 0x1016, 0x1018}
	if len(labels) != len(wantLabels) {
		t.Fatalf("got %d labels, want %d: %v", len(labels), len(wantLabels), labels)
	}
	for _, addr := range wantLabels {
		if _, ok := labels[addr]; !ok {
			t.Errorf("missing label at %#x", addr)
		}
	}

	var tableRows []InstructionData
	for _, row := range fn.Instructions() {
		if strings.HasPrefix(row.Text, ".int ") {
			tableRows = append(tableRows, row)
		}
	}
	if len(tableRows) != 3 {
		t.Fatalf("got %d table rows, want 3", len(tableRows))
	}
	wantSlots := []string{".int label_1012", ".int label_1016", ".int label_1018"}
	for i, row := range tableRows {
		if row.Text != wantSlots[i] {
			t.Errorf("slot %d = %q, want %q", i, row.Text, wantSlots[i])
		}
	}

	rows := fn.Instructions()
	if rows[0].Text != "jmp label_1016" {
		t.Errorf("jmp text = %q, want %q", rows[0].Text, "jmp label_1016")
	}
	if rows[1].Label != "label_1002" || rows[1].Text != "" {
		t.Errorf("anchor row = %+v, want label-only label_1002", rows[1])
	}
}

func TestDisassembleStopsOnDecodeFailure(t *testing.T) {
	data := []byte{
		0x31, 0xC0, // xor eax, eax
		0x40,       // inc eax
		0x0F, 0x04, // unassigned opcode
		0x90, 0x90, 0x90,
	}
	exe := &fakeExe{name: ".text", addr: 0x1000, data: data}

	fn := NewFunction(".text", 0x1000, 0x1007)
	if err := fn.Disassemble(newTestSetup(t, exe)); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	rows := fn.Instructions()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (decode failure keeps partial output)", len(rows))
	}
	want := "    xor eax, eax\n    inc eax\n"
	if got := fn.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestDisassembleEmptySection(t *testing.T) {
	exe := &fakeExe{name: ".text", addr: 0x1000, data: nil}

	fn := NewFunction(".text", 0x1000, 0x1010)
	if err := fn.Disassemble(newTestSetup(t, exe)); err != nil {
		t.Fatalf("empty section should be a no-op, got %v", err)
	}
	if len(fn.Instructions()) != 0 {
		t.Errorf("got %d rows for empty section, want 0", len(fn.Instructions()))
	}
}

func TestDisassembleInvalidArguments(t *testing.T) {
	exe := &fakeExe{name: ".text", addr: 0x1000, data: []byte{0x90}}

	fn := NewFunction(".text", 0x1000, 0x1000)
	if err := fn.Disassemble(nil); err == nil {
		t.Error("nil setup should fail")
	}

	fn = NewFunction(".text", 0x2000, 0x1000)
	if err := fn.Disassemble(newTestSetup(t, exe)); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestDisassembleRepeatable(t *testing.T) {
	data := append([]byte{0xEB, 0x06}, bytes.Repeat([]byte{0x90}, 14)...)
	exe := &fakeExe{name: ".text", addr: 0x1000, data: data}
	setup := newTestSetup(t, exe)

	fn := NewFunction(".text", 0x1000, 0x100f)
	if err := fn.Disassemble(setup); err != nil {
		t.Fatalf("first Disassemble: %v", err)
	}
	first := fn.Text()

	if err := fn.Disassemble(setup); err != nil {
		t.Fatalf("second Disassemble: %v", err)
	}
	if second := fn.Text(); second != first {
		t.Errorf("repeat run produced different text:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestAppendAsText(t *testing.T) {
	// A row carrying both a label and text emits the label line first.
	rows := []InstructionData{
		{Address: 0x1000, Text: "xor eax, eax"},
		{Address: 0x1002, Text: "inc eax", Label: "label_1002"},
	}

	var sb strings.Builder
	AppendAsText(&sb, rows)
	want := "    xor eax, eax\nlabel_1002:\n    inc eax\n"
	if got := sb.String(); got != want {
		t.Errorf("AppendAsText = %q, want %q", got, want)
	}
}
