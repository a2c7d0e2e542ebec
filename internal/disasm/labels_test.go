package disasm

import "testing"

func TestLabelTableInsertIdempotent(t *testing.T) {
	labels := NewLabelTable()
	labels.Insert(0x1008)
	labels.Insert(0x1008)
	labels.Insert(0x1008)

	if labels.Len() != 1 {
		t.Fatalf("Len = %d after duplicate inserts, want 1", labels.Len())
	}
	name, ok := labels.NameAt(0x1008)
	if !ok || name != "label_1008" {
		t.Errorf("NameAt(0x1008) = (%q, %v), want (label_1008, true)", name, ok)
	}
}

func TestLabelTableNaming(t *testing.T) {
	labels := NewLabelTable()
	tests := []struct {
		addr uint64
		want string
	}{
		{0x0, "label_0"},
		{0x1008, "label_1008"},
		{0xdeadbeef, "label_deadbeef"},
		{0xffffffffffffffff, "label_ffffffffffffffff"},
	}
	for _, tt := range tests {
		labels.Insert(tt.addr)
		if name, _ := labels.NameAt(tt.addr); name != tt.want {
			t.Errorf("NameAt(%#x) = %q, want %q", tt.addr, name, tt.want)
		}
	}
}

func TestLabelTableReset(t *testing.T) {
	labels := NewLabelTable()
	labels.Insert(0x1000)
	labels.Insert(0x2000)
	labels.Reset()

	if labels.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", labels.Len())
	}
	if labels.Contains(0x1000) {
		t.Error("Contains(0x1000) after Reset")
	}
}

func TestLabelTableSnapshotIsolated(t *testing.T) {
	labels := NewLabelTable()
	labels.Insert(0x1000)

	snap := labels.Snapshot()
	labels.Insert(0x2000)

	if len(snap) != 1 {
		t.Errorf("snapshot grew with the table: %v", snap)
	}
}
