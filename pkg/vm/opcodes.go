package vm

import (
	"encoding/binary"
	"fmt"
)

// Opcode is the first byte of every encoded instruction.
type Opcode byte

const (
	OpHLT  Opcode = 0x00
	OpLD   Opcode = 0x01
	OpST   Opcode = 0x02
	OpSTC  Opcode = 0x03
	OpDUP  Opcode = 0x04
	OpPUSH Opcode = 0x05

	OpJMP   Opcode = 0x10
	OpJMPZ  Opcode = 0x11
	OpJMPNZ Opcode = 0x12
	OpJMPP  Opcode = 0x13

	OpADD Opcode = 0x20
	OpSUB Opcode = 0x21
	OpDIV Opcode = 0x22
	OpMUL Opcode = 0x23
	OpMOD Opcode = 0x24

	OpOUT  Opcode = 0x30
	OpOUTC Opcode = 0x31

	OpMDP Opcode = 0x40
	OpMLD Opcode = 0x41
	OpCPY Opcode = 0x42

	OpTRC Opcode = 0x50
	OpSRC Opcode = 0x51
)

// Operand widths in bytes, excluding the opcode byte.
const (
	RegisterWidth  = 1
	ImmediateWidth = 8
	TargetWidth    = 4

	// srcHeaderWidth is the fixed part of an SRC operand: line + name length.
	srcHeaderWidth = 8
)

// Register indices used by LD/ST/STC. Index 0 is never emitted by the assembler.
const (
	RegA byte = 1
	RegB byte = 2
	RegC byte = 3
	RegD byte = 4
)

type opInfo struct {
	name  string
	width int // -1 for variable width (SRC)
	valid bool
}

// opTable is indexed by opcode byte; unlisted entries are invalid.
var opTable = func() [256]opInfo {
	var t [256]opInfo
	set := func(op Opcode, name string, width int) {
		t[op] = opInfo{name: name, width: width, valid: true}
	}
	set(OpHLT, "hlt", 0)
	set(OpLD, "ld", RegisterWidth)
	set(OpST, "st", RegisterWidth)
	set(OpSTC, "stc", RegisterWidth+ImmediateWidth)
	set(OpDUP, "dup", 0)
	set(OpPUSH, "push", ImmediateWidth)
	set(OpJMP, "jmp", TargetWidth)
	set(OpJMPZ, "jmpz", TargetWidth)
	set(OpJMPNZ, "jmpnz", TargetWidth)
	set(OpJMPP, "jmpp", TargetWidth)
	set(OpADD, "add", 0)
	set(OpSUB, "sub", 0)
	set(OpDIV, "div", 0)
	set(OpMUL, "mul", 0)
	set(OpMOD, "mod", 0)
	set(OpOUT, "out", 0)
	set(OpOUTC, "outc", 0)
	set(OpMDP, "mdp", 0)
	set(OpMLD, "mld", 0)
	set(OpCPY, "cpy", 0)
	set(OpTRC, "trc", 0)
	set(OpSRC, "src", -1)
	return t
}()

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	return opTable[op].valid
}

// Mnemonic returns the lowercase mnemonic for op.
func (op Opcode) Mnemonic() string {
	if !op.Valid() {
		return fmt.Sprintf("op(0x%02x)", byte(op))
	}
	return opTable[op].name
}

func (op Opcode) String() string {
	return op.Mnemonic()
}

// OperandWidth returns the fixed operand width of op. The second result is
// false for SRC, whose width depends on the encoded file name, and for
// invalid opcodes.
func OperandWidth(op Opcode) (int, bool) {
	info := opTable[op]
	if !info.valid || info.width < 0 {
		return 0, false
	}
	return info.width, true
}

// Opcodes returns every valid opcode in ascending byte order.
func Opcodes() []Opcode {
	var ops []Opcode
	for i := range opTable {
		if opTable[i].valid {
			ops = append(ops, Opcode(i))
		}
	}
	return ops
}

// EncodeSourceMap builds the operand of an SRC instruction.
func EncodeSourceMap(line uint32, file string) []byte {
	out := make([]byte, srcHeaderWidth+len(file))
	binary.LittleEndian.PutUint32(out[0:4], line)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(file)))
	copy(out[8:], file)
	return out
}

// EncodeImmediate returns v as an 8-byte little-endian operand.
func EncodeImmediate(v uint64) []byte {
	out := make([]byte, ImmediateWidth)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

// EncodeTarget returns a jump offset as a 4-byte little-endian operand.
func EncodeTarget(offset uint32) []byte {
	out := make([]byte, TargetWidth)
	binary.LittleEndian.PutUint32(out, offset)
	return out
}
