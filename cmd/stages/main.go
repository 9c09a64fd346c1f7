// Command stages prints every intermediate product of assembling a source
// file: tokens, instructions, label table, bytecode and its disassembly.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"semby/pkg/asm"
	"semby/pkg/lexer"
	"semby/pkg/trace"
	"semby/pkg/vm"
)

const testSource = `; count down from 3
sta 3
: loop
lda
out
push 10
outc
push 1
lda
sub
dup
sta
jmpp loop
push 0
hlt
`

func main() {
	src := testSource
	file := "<builtin>"
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			logrus.Fatalf("read error: %v", err)
		}
		src = string(data)
		file = os.Args[1]
	}

	lines, err := lexer.Tokenize(src, file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d lines)\n", len(lines))
	for _, line := range lines {
		for _, tok := range line {
			fmt.Println(" ", tok)
		}
	}
	fmt.Println()

	a := asm.NewAssembler(asm.Options{StrictJumps: true, SourceMapped: true})
	instrs, err := a.Assemble(lines)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assembly error:", err)
		os.Exit(1)
	}

	fmt.Println("Labels")
	labels := a.Labels()
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-12s %d\n", name, labels[name])
	}
	fmt.Println()

	fmt.Println("Instructions")
	for _, in := range instrs {
		fmt.Printf("  %s:%d  %s\n", in.File, in.Line, in)
	}
	fmt.Println()

	code := asm.Encode(instrs)
	fmt.Printf("Bytecode (%d bytes)\n", len(code))
	fmt.Print(trace.Hex(code))
	fmt.Println()

	fmt.Println("Disassembly")
	decoded, err := vm.Disassemble(code)
	for _, in := range decoded {
		fmt.Println(" ", in)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode error:", err)
		os.Exit(1)
	}
}
