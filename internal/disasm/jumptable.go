package disasm

import "encoding/binary"

// jumpTableScan tracks an in-progress inline jump table walk. A table begins
// at the first in-range slot following a trigger instruction and ends at the
// first word pointing outside the function range.
type jumpTableScan struct {
	active bool
}

// tableSlot reads one candidate 32-bit little-endian table entry.
func tableSlot(data []byte, offset uint64) (uint64, bool) {
	if offset+4 > uint64(len(data)) {
		return 0, false
	}
	return uint64(binary.LittleEndian.Uint32(data[offset:])), true
}
