package asm

import (
	"fmt"

	"semby/pkg/lexer"
)

// Encode concatenates each instruction's opcode byte and operand bytes.
// The buffer has no header; its length is the program length. Every
// instruction must already be resolved.
func Encode(instrs []Instruction) []byte {
	size := 0
	for _, in := range instrs {
		size += int(in.Size())
	}

	out := make([]byte, 0, size)
	for _, in := range instrs {
		if in.Target != "" {
			panic(fmt.Sprintf("asm: encoding unresolved jump to %q at %s:%d", in.Target, in.File, in.Line))
		}
		out = append(out, byte(in.Op))
		out = append(out, in.Operand...)
	}
	return out
}

// Parse tokenizes src and assembles it.
func Parse(src, file string, opts Options) ([]Instruction, error) {
	lines, err := lexer.Tokenize(src, file)
	if err != nil {
		return nil, err
	}
	return Assemble(lines, opts)
}

// Build turns source text into bytecode.
func Build(src, file string, opts Options) ([]byte, error) {
	instrs, err := Parse(src, file, opts)
	if err != nil {
		return nil, err
	}
	return Encode(instrs), nil
}
