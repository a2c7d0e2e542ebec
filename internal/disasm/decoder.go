// Package disasm reconstructs symbol-annotated assembly text for a single
// function's byte range inside a loaded executable image. It discovers
// internal control-flow targets, recognizes inline jump tables placed after
// a nop or unconditional jmp, and rewrites address-bearing operands into
// symbolic form using local labels, section symbols and image symbols.
package disasm

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// ErrInvalidArgument is returned for calls that fail up front, before any
// partial state is produced.
var ErrInvalidArgument = errors.New("disasm: invalid argument")

// MachineMode selects the x86 decode mode for a disassembly run. The stack
// width is derived from the mode.
type MachineMode int

const (
	ModeLegacy16 MachineMode = 16
	ModeLegacy32 MachineMode = 32
	ModeLong64   MachineMode = 64
)

func (m MachineMode) valid() bool {
	switch m {
	case ModeLegacy16, ModeLegacy32, ModeLong64:
		return true
	}
	return false
}

// StackWidth returns the stack width in bits for the mode.
func (m MachineMode) StackWidth() int { return int(m) }

// Decoder decodes single instructions from raw section bytes.
type Decoder struct {
	mode MachineMode
}

// NewDecoder creates a decoder for the given machine mode. An unsupported
// mode is an invalid argument.
func NewDecoder(mode MachineMode) (*Decoder, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: unsupported machine mode %d", ErrInvalidArgument, mode)
	}
	return &Decoder{mode: mode}, nil
}

// Mode returns the machine mode the decoder was created with.
func (d *Decoder) Mode() MachineMode { return d.mode }

// Decode decodes one instruction at runtimeAddr from the start of code.
// A malformed opcode or truncated buffer is a decode failure; the caller
// ends the current pass and keeps what was produced so far.
func (d *Decoder) Decode(runtimeAddr uint64, code []byte) (Instruction, error) {
	if len(code) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty code buffer", ErrInvalidArgument)
	}
	inst, err := x86asm.Decode(code, int(d.mode))
	if err != nil {
		return Instruction{}, fmt.Errorf("decoding at %#x: %w", runtimeAddr, err)
	}
	return Instruction{Address: runtimeAddr, Len: inst.Len, Inst: inst}, nil
}

// Instruction is the transient result of decoding one instruction. It is not
// retained beyond the iteration that produced it; only its formatted text and
// encoded length survive into the listing.
type Instruction struct {
	Address uint64
	Len     int
	Inst    x86asm.Inst
}

// RelativeTarget returns the absolute target of a relative branch or call
// operand, if the instruction carries one.
func (in Instruction) RelativeTarget() (uint64, bool) {
	for _, arg := range in.Inst.Args {
		if arg == nil {
			break
		}
		if rel, ok := arg.(x86asm.Rel); ok {
			return uint64(int64(in.Address) + int64(in.Len) + int64(rel)), true
		}
	}
	return 0, false
}

// IsJump reports whether the instruction transfers control.
func (in Instruction) IsJump() bool {
	op := in.Inst.Op.String()
	return strings.HasPrefix(op, "J") || op == "LJMP"
}

// isTableTrigger reports whether an inline jump table may follow the
// instruction. Compilers place these directly after a nop or an
// unconditional jmp.
func isTableTrigger(inst Instruction) bool {
	return inst.Inst.Op == x86asm.NOP || inst.Inst.Op == x86asm.JMP
}
