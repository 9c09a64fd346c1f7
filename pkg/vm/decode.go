package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instruction is one decoded instruction of a bytecode buffer.
type Instruction struct {
	PC      uint32
	Op      Opcode
	Operand []byte
}

// Width is the encoded size of the instruction including the opcode byte.
func (in Instruction) Width() int {
	return 1 + len(in.Operand)
}

// Register returns the register operand of LD, ST and STC.
func (in Instruction) Register() byte {
	return in.Operand[0]
}

// Immediate returns the 8-byte operand of PUSH and STC as a signed value.
func (in Instruction) Immediate() int64 {
	if in.Op == OpSTC {
		return int64(binary.LittleEndian.Uint64(in.Operand[RegisterWidth:]))
	}
	return int64(binary.LittleEndian.Uint64(in.Operand))
}

// Target returns the jump offset of JMP, JMPZ, JMPNZ and JMPP.
func (in Instruction) Target() uint32 {
	return binary.LittleEndian.Uint32(in.Operand)
}

// Source returns the location carried by an SRC marker.
func (in Instruction) Source() SourceLoc {
	return SourceLoc{
		Line:  binary.LittleEndian.Uint32(in.Operand[0:4]),
		File:  string(in.Operand[srcHeaderWidth:]),
		Valid: true,
	}
}

func (in Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6d  %-6s", in.PC, in.Op)
	switch in.Op {
	case OpLD, OpST:
		fmt.Fprintf(&b, "%s", registerName(in.Register()))
	case OpSTC:
		fmt.Fprintf(&b, "%s %d", registerName(in.Register()), in.Immediate())
	case OpPUSH:
		fmt.Fprintf(&b, "%d", in.Immediate())
	case OpJMP, OpJMPZ, OpJMPNZ, OpJMPP:
		fmt.Fprintf(&b, "%d", in.Target())
	case OpSRC:
		fmt.Fprintf(&b, "%s", in.Source())
	}
	return strings.TrimRight(b.String(), " ")
}

// registerName maps a register index to its letter, 1 -> "a".
func registerName(idx byte) string {
	return string(rune(96 + int(idx)))
}

// Decode reads the instruction that starts at pc. It uses the same operand
// widths the assembler counts with, so a well-formed buffer decodes back into
// exactly the instructions that were encoded.
func Decode(code []byte, pc uint32) (Instruction, error) {
	if int(pc) >= len(code) {
		return Instruction{}, newFault(FaultTruncated, pc, 0, "pc past end of code (%d bytes)", len(code))
	}
	op := Opcode(code[pc])
	if !op.Valid() {
		return Instruction{}, newFault(FaultUnknownOpcode, pc, op, "invalid opcode 0x%02x", byte(op))
	}

	start := int(pc) + 1
	width, fixed := OperandWidth(op)
	if !fixed {
		if start+srcHeaderWidth > len(code) {
			return Instruction{}, newFault(FaultTruncated, pc, op, "source map header needs %d bytes", srcHeaderWidth)
		}
		nameLen := binary.LittleEndian.Uint32(code[start+4 : start+8])
		if uint64(nameLen) > uint64(len(code)) {
			return Instruction{}, newFault(FaultTruncated, pc, op, "source map name length %d exceeds code", nameLen)
		}
		width = srcHeaderWidth + int(nameLen)
	}
	if start+width > len(code) {
		return Instruction{}, newFault(FaultTruncated, pc, op, "operand needs %d bytes, %d left", width, len(code)-start)
	}

	return Instruction{PC: pc, Op: op, Operand: code[start : start+width]}, nil
}

// Disassemble decodes the whole buffer sequentially.
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := uint32(0); int(pc) < len(code); {
		in, err := Decode(code, pc)
		if err != nil {
			return out, err
		}
		out = append(out, in)
		pc += uint32(in.Width())
	}
	return out, nil
}
