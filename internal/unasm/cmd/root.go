// Package cmd implements the unassemblize command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/xezon/unassemblize/internal/disasm"
)

var rootCmd = &cobra.Command{
	Use:   "unassemblize [binary]",
	Short: "Disassemble function ranges of ELF binaries into labeled assembly",
	Long: `Unassemblize disassembles a chosen address range of an ELF binary into
assembly text with synthesized labels for internal branch targets, inline
jump table recognition, and symbol substitution for known addresses.`,
	Example: `
# Disassemble a named function from the symbol table
unassemblize --function main /path/to/binary

# Disassemble an explicit address range of .text
unassemblize --start 0x1000 --end 0x10ff /path/to/binary

# Emit the listing as JSON for tooling
unassemblize --function main --json /path/to/binary
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		absPath, err := pathpkg.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %v", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", args[0])
			}
			return fmt.Errorf("cannot access file: %v", err)
		}

		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}
		opts.Binary = absPath

		// Disable coloring when output is being piped
		if !term.IsTerminal(os.Stdout.Fd()) || opts.JSON {
			os.Setenv("UNASM_NO_COLOR", "1")
		}

		return runDisassemble(opts)
	},
}

func init() {
	rootCmd.Flags().StringP("section", "s", ".text", "section to disassemble")
	rootCmd.Flags().String("start", "", "start address of the range (hex)")
	rootCmd.Flags().String("end", "", "last address of the range (hex)")
	rootCmd.Flags().StringP("function", "F", "", "disassemble the named function instead of an address range")
	rootCmd.Flags().Int("mode", 32, "machine mode: 16, 32 or 64")
	rootCmd.Flags().String("format", "default", "assembly flavor: default, igas, agas or masm")
	rootCmd.Flags().BoolP("json", "j", false, "emit the listing as JSON")
	rootCmd.Flags().Bool("no-color", false, "disable colorized output")
	rootCmd.Flags().String("cpuprofile", "", "write CPU profile to file")
}

func optionsFromFlags(cmd *cobra.Command) (Options, error) {
	var opts Options
	opts.Section, _ = cmd.Flags().GetString("section")
	opts.Function, _ = cmd.Flags().GetString("function")
	opts.JSON, _ = cmd.Flags().GetBool("json")

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		os.Setenv("UNASM_NO_COLOR", "1")
	}

	mode, _ := cmd.Flags().GetInt("mode")
	m, err := parseMode(mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = m

	format, _ := cmd.Flags().GetString("format")
	style, err := parseStyle(format)
	if err != nil {
		return opts, err
	}
	opts.Style = style

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	if opts.Function == "" {
		if start == "" || end == "" {
			return opts, fmt.Errorf("either --function or both --start and --end are required")
		}
		if opts.Begin, err = parseAddr(start); err != nil {
			return opts, err
		}
		if opts.End, err = parseAddr(end); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func parseAddr(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	addr, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %v", s, err)
	}
	return addr, nil
}

func parseMode(mode int) (disasm.MachineMode, error) {
	switch mode {
	case 16:
		return disasm.ModeLegacy16, nil
	case 32:
		return disasm.ModeLegacy32, nil
	case 64:
		return disasm.ModeLong64, nil
	}
	return 0, fmt.Errorf("invalid mode %d: want 16, 32 or 64", mode)
}

func parseStyle(format string) (disasm.AsmFormat, error) {
	switch strings.ToLower(format) {
	case "", "default":
		return disasm.FormatDefault, nil
	case "igas":
		return disasm.FormatIGAS, nil
	case "agas":
		return disasm.FormatAGAS, nil
	case "masm":
		return disasm.FormatMASM, nil
	}
	return 0, fmt.Errorf("invalid format %q: want default, igas, agas or masm", format)
}

func Execute() {
	// Bypass fang's markdown rendering when output is being piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
