package disasm

// FunctionSetup bundles the executable image, symbol lookup, decoder and
// formatter needed to disassemble functions. It is immutable once built and
// safe to share across functions and goroutines.
type FunctionSetup struct {
	exe       Executable
	symbols   SymbolLookup
	mode      MachineMode
	style     AsmFormat
	decoder   *Decoder
	formatter *Formatter
}

// NewFunctionSetup builds a setup for exe. symbols may be nil, in which case
// operands only ever resolve to local labels. The symbolic resolution hook is
// installed for every operand context; each installation saves the default it
// replaces inside the formatter.
func NewFunctionSetup(exe Executable, symbols SymbolLookup, mode MachineMode, style AsmFormat) (*FunctionSetup, error) {
	if exe == nil {
		return nil, ErrInvalidArgument
	}
	dec, err := NewDecoder(mode)
	if err != nil {
		return nil, err
	}
	fmtr := NewFormatter(style)
	for ctx := OperandContext(0); ctx < numContexts; ctx++ {
		fmtr.SetHook(ctx, resolveSymbolic)
	}
	return &FunctionSetup{
		exe:       exe,
		symbols:   symbols,
		mode:      mode,
		style:     style,
		decoder:   dec,
		formatter: fmtr,
	}, nil
}

// MachineMode returns the decode mode the setup was built with.
func (s *FunctionSetup) MachineMode() MachineMode { return s.mode }

// Style returns the assembly text flavor.
func (s *FunctionSetup) Style() AsmFormat { return s.style }
