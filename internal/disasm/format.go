package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// OperandContext identifies which operand-printing hook applies.
type OperandContext int

const (
	CtxAbsolute OperandContext = iota
	CtxRelative
	CtxImmediate
	CtxDisplacement
	CtxFarPointer
	numContexts
)

// AsmFormat selects the assembly text flavor. MASM uses trailing-h hex
// literals; the other formats keep 0x-prefixed hex.
type AsmFormat int

const (
	FormatDefault AsmFormat = iota
	FormatIGAS
	FormatAGAS
	FormatMASM
)

// FormatContext carries the per-run capabilities a hook may consult. Hooks
// are pure functions of (operand, context); all mutable per-run state lives
// here, never in package globals.
type FormatContext struct {
	Context  OperandContext
	Style    AsmFormat
	Resolver *AddressResolver
	Defaults *DefaultRenderers
}

// FormatFunc renders one address-bearing operand. Returning false delegates
// to the saved default renderer for the context.
type FormatFunc func(ctx *FormatContext, addr uint64) (string, bool)

// DefaultRenderers holds the pre-hook numeric renderers. They are saved at
// setup time so every hook can fall back to default formatting when no
// symbol applies.
type DefaultRenderers struct {
	style AsmFormat
}

// Address renders an absolute or relative address numerically.
func (d *DefaultRenderers) Address(addr uint64) string {
	return hexLiteral(d.style, addr)
}

// Immediate renders an immediate value numerically.
func (d *DefaultRenderers) Immediate(v uint64) string {
	return hexLiteral(d.style, v)
}

// Displacement renders a signed memory displacement numerically.
func (d *DefaultRenderers) Displacement(v int64) string {
	if v < 0 {
		return "-" + hexLiteral(d.style, uint64(-v))
	}
	return "+" + hexLiteral(d.style, uint64(v))
}

func hexLiteral(style AsmFormat, v uint64) string {
	if style == FormatMASM {
		s := strconv.FormatUint(v, 16)
		if s[0] > '9' {
			s = "0" + s
		}
		return s + "h"
	}
	return fmt.Sprintf("0x%x", v)
}

// Formatter renders decoded instructions as Intel-flavored text. Each of the
// five operand-printing contexts can be overridden with a hook that receives
// enough context to consult the resolver and to delegate to the default
// renderer.
type Formatter struct {
	style    AsmFormat
	hooks    [numContexts]FormatFunc
	defaults DefaultRenderers
}

// NewFormatter creates a formatter with default numeric rendering for every
// operand context.
func NewFormatter(style AsmFormat) *Formatter {
	return &Formatter{style: style, defaults: DefaultRenderers{style: style}}
}

// Style returns the formatter's text flavor.
func (f *Formatter) Style() AsmFormat { return f.style }

// SetHook installs fn as the override for ctx and returns the previously
// installed hook, if any.
func (f *Formatter) SetHook(ctx OperandContext, fn FormatFunc) FormatFunc {
	prev := f.hooks[ctx]
	f.hooks[ctx] = fn
	return prev
}

// FormatInstruction renders one instruction. resolver may be nil, in which
// case the hooks find nothing to resolve and every operand keeps its default
// numeric form.
func (f *Formatter) FormatInstruction(inst Instruction, resolver *AddressResolver) string {
	fctx := &FormatContext{Style: f.style, Resolver: resolver, Defaults: &f.defaults}

	var sb strings.Builder
	sb.WriteString(strings.ToLower(inst.Inst.Op.String()))

	if inst.Inst.Op == x86asm.LJMP || inst.Inst.Op == x86asm.LCALL {
		if seg, off, ok := farPointer(inst.Inst); ok {
			sb.WriteByte(' ')
			sb.WriteString(f.formatFarPointer(fctx, seg, off))
			return sb.String()
		}
	}

	first := true
	for _, arg := range inst.Inst.Args {
		if arg == nil {
			break
		}
		if first {
			sb.WriteByte(' ')
			first = false
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(f.formatArg(fctx, inst, arg))
	}
	return sb.String()
}

func (f *Formatter) formatArg(fctx *FormatContext, inst Instruction, arg x86asm.Arg) string {
	switch a := arg.(type) {
	case x86asm.Reg:
		return strings.ToLower(a.String())
	case x86asm.Imm:
		v := uint64(a)
		return f.render(fctx, CtxImmediate, v, func() string { return fctx.Defaults.Immediate(v) })
	case x86asm.Rel:
		target := uint64(int64(inst.Address) + int64(inst.Len) + int64(a))
		return f.render(fctx, CtxRelative, target, func() string { return fctx.Defaults.Address(target) })
	case x86asm.Mem:
		return f.formatMem(fctx, inst, a)
	default:
		return strings.ToLower(arg.String())
	}
}

// render applies the hook for ctx, falling back to def when the hook is
// absent or declines the operand.
func (f *Formatter) render(fctx *FormatContext, ctx OperandContext, addr uint64, def func() string) string {
	fctx.Context = ctx
	if hook := f.hooks[ctx]; hook != nil {
		if text, ok := hook(fctx, addr); ok {
			return text
		}
	}
	return def()
}

func (f *Formatter) formatMem(fctx *FormatContext, inst Instruction, m x86asm.Mem) string {
	var sb strings.Builder
	sb.WriteString(memSizePrefix(inst.Inst.MemBytes))
	if m.Segment != 0 {
		sb.WriteString(strings.ToLower(m.Segment.String()))
		sb.WriteByte(':')
	}
	sb.WriteByte('[')

	hasBase := m.Base != 0
	hasIndex := m.Index != 0
	if hasBase {
		sb.WriteString(strings.ToLower(m.Base.String()))
	}
	if hasIndex {
		if hasBase {
			sb.WriteByte('+')
		}
		sb.WriteString(strings.ToLower(m.Index.String()))
		if m.Scale > 1 {
			fmt.Fprintf(&sb, "*%d", m.Scale)
		}
	}

	switch {
	case !hasBase && !hasIndex:
		// A pure displacement addresses memory absolutely.
		addr := uint64(m.Disp)
		sb.WriteString(f.render(fctx, CtxAbsolute, addr, func() string { return fctx.Defaults.Address(addr) }))
	case m.Disp != 0:
		disp := m.Disp
		sb.WriteString(f.render(fctx, CtxDisplacement, uint64(disp), func() string { return fctx.Defaults.Displacement(disp) }))
	}

	sb.WriteByte(']')
	return sb.String()
}

func (f *Formatter) formatFarPointer(fctx *FormatContext, seg uint16, off uint64) string {
	text := f.render(fctx, CtxFarPointer, off, func() string { return fctx.Defaults.Immediate(off) })
	return hexLiteral(f.style, uint64(seg)) + ":" + text
}

// farPointer extracts the segment and offset of a direct far jmp/call. The
// ptr16:16 and ptr16:32 forms decode as two immediates, segment first.
func farPointer(inst x86asm.Inst) (uint16, uint64, bool) {
	seg, ok := inst.Args[0].(x86asm.Imm)
	if !ok {
		return 0, 0, false
	}
	off, ok := inst.Args[1].(x86asm.Imm)
	if !ok {
		return 0, 0, false
	}
	return uint16(seg), uint64(off), true
}

func memSizePrefix(bytes int) string {
	switch bytes {
	case 1:
		return "byte ptr "
	case 2:
		return "word ptr "
	case 4:
		return "dword ptr "
	case 8:
		return "qword ptr "
	case 10:
		return "tbyte ptr "
	case 16:
		return "xmmword ptr "
	}
	return ""
}

// resolveSymbolic is the hook bound to every operand context by
// FunctionSetup. It substitutes label or symbol text and declines when the
// address resolves to nothing, letting the default renderer take over.
func resolveSymbolic(ctx *FormatContext, addr uint64) (string, bool) {
	if ctx.Resolver == nil {
		return "", false
	}
	class, text := ctx.Resolver.Resolve(ctx.Context, addr)
	if class == ClassUnresolved {
		return "", false
	}
	return text, true
}
