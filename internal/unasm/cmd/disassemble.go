package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/xezon/unassemblize/internal/disasm"
	"github.com/xezon/unassemblize/internal/elfx"
	"github.com/xezon/unassemblize/internal/logging"
	"github.com/xezon/unassemblize/internal/symtab"
	"github.com/xezon/unassemblize/internal/ui/colorize"
)

// Options describes one disassembly run.
type Options struct {
	Binary   string
	Section  string
	Function string
	Begin    uint64
	End      uint64
	Mode     disasm.MachineMode
	Style    disasm.AsmFormat
	JSON     bool
}

// LabelInfo is one synthesized label in the JSON report.
type LabelInfo struct {
	Address uint64 `json:"address"`
	Name    string `json:"name"`
}

// Report is the JSON output structure for one disassembled range.
type Report struct {
	Binary  string                   `json:"binary"`
	Section string                   `json:"section"`
	Begin   uint64                   `json:"begin"`
	End     uint64                   `json:"end"`
	Labels  []LabelInfo              `json:"labels,omitempty"`
	Listing []disasm.InstructionData `json:"listing"`
}

func runDisassemble(opts Options) error {
	logger := logging.NewLogger()
	defer logger.Close()

	im, err := elfx.Open(opts.Binary)
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer im.Close()

	symbols := symtab.FromImage(im)
	logger.Debug("loaded image", "binary", opts.Binary, "symbols", symbols.Len())

	begin, end := opts.Begin, opts.End
	if opts.Function != "" {
		sym, ok := symbols.ByName(opts.Function)
		if !ok {
			return fmt.Errorf("function %q not found in symbol table", opts.Function)
		}
		if sym.Size == 0 {
			return fmt.Errorf("function %q has no size; use --start and --end", opts.Function)
		}
		begin = sym.Address
		end = sym.Address + sym.Size - 1
	}

	setup, err := disasm.NewFunctionSetup(im, symbols, opts.Mode, opts.Style)
	if err != nil {
		return err
	}

	fn := disasm.NewFunction(opts.Section, begin, end)
	if err := fn.Disassemble(setup); err != nil {
		return err
	}
	logger.Debug("disassembled range",
		"section", opts.Section,
		"begin", fmt.Sprintf("%#x", begin),
		"end", fmt.Sprintf("%#x", end),
		"rows", len(fn.Instructions()))

	if opts.JSON {
		return writeJSON(os.Stdout, opts, fn)
	}
	return writeText(fn)
}

func writeJSON(w *os.File, opts Options, fn *disasm.Function) error {
	report := Report{
		Binary:  opts.Binary,
		Section: fn.Section(),
		Begin:   fn.BeginAddress(),
		End:     fn.EndAddress(),
		Labels:  sortedLabels(fn.Labels()),
		Listing: fn.Instructions(),
	}
	bts, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Fprintln(w, string(bts))
	return nil
}

func writeText(fn *disasm.Function) error {
	text := fn.Text()
	if colorize.Enabled() {
		colorized, err := colorize.ColorizeListing(text)
		if err != nil {
			slog.Debug("colorize failed, using plain text", "error", err)
		} else {
			text = colorized
		}
	}
	fmt.Print(text)
	return nil
}

func sortedLabels(labels map[uint64]string) []LabelInfo {
	infos := make([]LabelInfo, 0, len(labels))
	for addr, name := range labels {
		infos = append(infos, LabelInfo{Address: addr, Name: name})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Address < infos[j].Address })
	return infos
}
