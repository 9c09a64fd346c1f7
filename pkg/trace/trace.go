// Package trace renders a snapshot of machine state as a human-readable
// report. It is used both for the TRC instruction and for crash dumps.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FileName is the base name of every trace file.
const FileName = "semby.trace"

// CrashLabel prefixes the dump written when execution faults.
const CrashLabel = "CRASH"

const bytesPerRow = 16

// State is the machine state captured for one dump. Stack is ordered bottom
// to top, as the machine stores it.
type State struct {
	PC        uint32
	Code      []byte
	Stack     []int64
	Registers map[byte]int64
	Memory    []byte
}

// Render formats s. Sections always appear in the order CODE, STACK,
// REGISTERS, PC, MEMORY.
func Render(s State) string {
	var b strings.Builder

	b.WriteString("CODE:\n")
	writeHex(&b, s.Code)

	b.WriteString("\nSTACK:\n")
	for i := len(s.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%d\n", s.Stack[i])
	}

	b.WriteString("\nREGISTERS:\n")
	keys := make([]int, 0, len(s.Registers))
	for k := range s.Registers {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%c: %d\n", rune(96+k), s.Registers[byte(k)])
	}

	fmt.Fprintf(&b, "\nPC: %d\n", s.PC)

	b.WriteString("\nMEMORY:\n")
	writeHex(&b, s.Memory)

	return b.String()
}

// Hex formats data as rows of 16 space-separated hex bytes.
func Hex(data []byte) string {
	var b strings.Builder
	writeHex(&b, data)
	return b.String()
}

func writeHex(b *strings.Builder, data []byte) {
	for i := 0; i < len(data); i += bytesPerRow {
		end := i + bytesPerRow
		if end > len(data) {
			end = len(data)
		}
		for j, v := range data[i:end] {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "%02x", v)
		}
		b.WriteByte('\n')
	}
}

// Name returns the trace file name for label: "semby.trace" when label is
// empty, "<label>.semby.trace" otherwise.
func Name(label string) string {
	if label == "" {
		return FileName
	}
	return label + "." + FileName
}

// Write renders s into dir and returns the path written.
func Write(dir, label string, s State) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, Name(label))
	if err := os.WriteFile(path, []byte(Render(s)), 0o644); err != nil {
		return "", errors.Wrapf(err, "writing trace %s", path)
	}
	return path, nil
}
