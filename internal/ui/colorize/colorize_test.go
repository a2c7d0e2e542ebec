package colorize

import (
	"strings"
	"testing"
)

func TestColorizeDisabled(t *testing.T) {
	t.Setenv("UNASM_NO_COLOR", "1")

	code := "label_1008:\n    jmp label_1008\n"
	got, err := ColorizeListing(code)
	if err != nil {
		t.Fatalf("ColorizeListing: %v", err)
	}
	if got != code {
		t.Errorf("disabled colorizer changed the text: %q", got)
	}

	line := "    mov eax, dword ptr [ebx+0x8]"
	if got := ColorizeLine(line); got != line {
		t.Errorf("disabled colorizer changed the line: %q", got)
	}
}

func TestColorizeLinePreservesIndent(t *testing.T) {
	t.Setenv("UNASM_NO_COLOR", "")

	line := "    xor eax, eax"
	got := ColorizeLine(line)
	if !strings.HasPrefix(got, "    ") {
		t.Errorf("indentation lost: %q", got)
	}
}
