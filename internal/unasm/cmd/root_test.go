package cmd

import (
	"testing"

	"github.com/xezon/unassemblize/internal/disasm"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x1000", 0x1000, false},
		{"1000", 0x1000, false},
		{"0X402010", 0x402010, false},
		{"deadbeef", 0xdeadbeef, false},
		{"", 0, true},
		{"0xzz", 0, true},
		{"-0x10", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAddr(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAddr(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseAddr(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      int
		want    disasm.MachineMode
		wantErr bool
	}{
		{16, disasm.ModeLegacy16, false},
		{32, disasm.ModeLegacy32, false},
		{64, disasm.ModeLong64, false},
		{48, 0, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		got, err := parseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMode(%d) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseMode(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    disasm.AsmFormat
		wantErr bool
	}{
		{"default", disasm.FormatDefault, false},
		{"", disasm.FormatDefault, false},
		{"igas", disasm.FormatIGAS, false},
		{"AGAS", disasm.FormatAGAS, false},
		{"masm", disasm.FormatMASM, false},
		{"intel", 0, true},
	}
	for _, tt := range tests {
		got, err := parseStyle(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseStyle(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseStyle(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortedLabels(t *testing.T) {
	labels := map[uint64]string{
		0x3000: "label_3000",
		0x1000: "label_1000",
		0x2000: "label_2000",
	}
	infos := sortedLabels(labels)
	if len(infos) != 3 {
		t.Fatalf("got %d labels, want 3", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Address >= infos[i].Address {
			t.Errorf("labels not sorted: %#x before %#x", infos[i-1].Address, infos[i].Address)
		}
	}
}
