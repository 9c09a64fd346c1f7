// Package asm assembles token lines into bytecode for the semby machine.
//
// Assembly runs in two passes. Pass 1 walks the lines, emits instructions
// and records every label at the running byte offset; jumps are emitted with
// a symbolic target. Pass 2 replaces each symbolic target with the offset
// from the label table. Instruction sizes come from the same operand-width
// table the interpreter decodes with, so offsets agree by construction.
package asm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"semby/pkg/lexer"
	"semby/pkg/vm"
)

var zeroOperandOps = map[string]vm.Opcode{
	"hlt":  vm.OpHLT,
	"dup":  vm.OpDUP,
	"add":  vm.OpADD,
	"sub":  vm.OpSUB,
	"div":  vm.OpDIV,
	"mul":  vm.OpMUL,
	"mod":  vm.OpMOD,
	"out":  vm.OpOUT,
	"outc": vm.OpOUTC,
	"mdp":  vm.OpMDP,
	"mld":  vm.OpMLD,
	"cpy":  vm.OpCPY,
	"trc":  vm.OpTRC,
}

var jumpOps = map[string]vm.Opcode{
	"jmp":   vm.OpJMP,
	"jmpz":  vm.OpJMPZ,
	"jmpnz": vm.OpJMPNZ,
	"jmpp":  vm.OpJMPP,
}

var registers = map[string]byte{
	"a": vm.RegA,
	"b": vm.RegB,
	"c": vm.RegC,
	"d": vm.RegD,
}

// Options controls assembly.
type Options struct {
	// StrictJumps rejects a label declared twice. When false the last
	// declaration wins.
	StrictJumps bool
	// SourceMapped emits an SRC marker ahead of every source line that
	// produces an instruction.
	SourceMapped bool
	// StrictSyntax turns lines that match no rule into errors instead of
	// skipping them.
	StrictSyntax bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{StrictJumps: true}
}

// Instruction is one assembled instruction. A non-empty Target marks a jump
// whose offset is resolved in pass 2.
type Instruction struct {
	Op      vm.Opcode
	Operand []byte
	Target  string

	Line int
	File string
}

// Size is the number of bytes the instruction occupies once encoded.
func (in Instruction) Size() uint32 {
	if in.Target != "" {
		return 1 + vm.TargetWidth
	}
	return 1 + uint32(len(in.Operand))
}

func (in Instruction) String() string {
	if in.Target != "" {
		return fmt.Sprintf("%s %s", in.Op, in.Target)
	}
	return fmt.Sprintf("%s % x", in.Op, in.Operand)
}

// Error is an assembly error at a source position.
type Error struct {
	File   string
	Line   int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

func errorAt(tok lexer.Token, format string, args ...interface{}) *Error {
	return &Error{File: tok.File, Line: tok.Line, Reason: fmt.Sprintf(format, args...)}
}

type Assembler struct {
	opts   Options
	labels map[string]uint32
	offset uint64
	instrs []Instruction
	log    *logrus.Entry
}

func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts:   opts,
		labels: make(map[string]uint32),
		log:    logrus.WithField("component", "asm"),
	}
}

// Assemble runs both passes over lines with a fresh Assembler.
func Assemble(lines []lexer.Line, opts Options) ([]Instruction, error) {
	return NewAssembler(opts).Assemble(lines)
}

// Assemble returns the resolved instruction sequence. On error no
// instructions are returned.
func (a *Assembler) Assemble(lines []lexer.Line) ([]Instruction, error) {
	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	return a.pass2()
}

// Labels returns the label table built by pass 1.
func (a *Assembler) Labels() map[string]uint32 {
	out := make(map[string]uint32, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

func (a *Assembler) pass1(lines []lexer.Line) error {
	for _, line := range lines {
		first := line[0]

		if len(line) == 2 && first.Is(lexer.Symbol, ":") && line[1].Kind == lexer.Identifier {
			name := line[1].Text
			if _, exists := a.labels[name]; exists && a.opts.StrictJumps {
				return errorAt(first, "label %s is defined multiple times", name)
			}
			a.labels[name] = uint32(a.offset)
			a.log.Debugf("label %s = %d", name, a.offset)
			continue
		}

		in, ok, err := match(line)
		if err != nil {
			return err
		}
		if !ok {
			if a.opts.StrictSyntax {
				return errorAt(first, "unrecognised instruction %s", lineText(line))
			}
			a.log.Debugf("%s:%d: skipping %q", first.File, first.Line, lineText(line))
			continue
		}

		if a.opts.SourceMapped {
			marker := Instruction{
				Op:      vm.OpSRC,
				Operand: vm.EncodeSourceMap(uint32(first.Line), first.File),
				Line:    first.Line,
				File:    first.File,
			}
			if err := a.emit(marker, first); err != nil {
				return err
			}
		}
		if err := a.emit(in, first); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) emit(in Instruction, at lexer.Token) error {
	if a.offset+uint64(in.Size()) > math.MaxUint32 {
		return errorAt(at, "program too large")
	}
	a.instrs = append(a.instrs, in)
	a.offset += uint64(in.Size())
	return nil
}

func (a *Assembler) pass2() ([]Instruction, error) {
	var result *multierror.Error
	out := make([]Instruction, 0, len(a.instrs))

	for _, in := range a.instrs {
		if in.Target != "" {
			offset, ok := a.labels[in.Target]
			if !ok {
				result = multierror.Append(result, &Error{File: in.File, Line: in.Line, Reason: "undefined label " + in.Target})
				continue
			}
			in.Operand = vm.EncodeTarget(offset)
			in.Target = ""
		}
		out = append(out, in)
	}

	if result != nil {
		if len(result.Errors) == 1 {
			return nil, result.Errors[0]
		}
		return nil, result.ErrorOrNil()
	}

	a.log.Debugf("assembled %d instructions, %d bytes", len(out), a.offset)
	return out, nil
}

// match resolves one line against the grammar. ok is false when no rule
// applies.
func match(line lexer.Line) (in Instruction, ok bool, err error) {
	first := line[0]
	if first.Kind != lexer.Identifier {
		return Instruction{}, false, nil
	}
	mnemonic := first.Text
	in = Instruction{Line: first.Line, File: first.File}

	switch len(line) {
	case 1:
		if op, found := zeroOperandOps[mnemonic]; found {
			in.Op = op
			return in, true, nil
		}
		if reg, found := registerSuffix(mnemonic, "ld"); found {
			in.Op = vm.OpLD
			in.Operand = []byte{reg}
			return in, true, nil
		}
		if reg, found := registerSuffix(mnemonic, "st"); found {
			in.Op = vm.OpST
			in.Operand = []byte{reg}
			return in, true, nil
		}

	case 2:
		arg := line[1]
		if arg.Kind == lexer.Number {
			if reg, found := registerSuffix(mnemonic, "st"); found {
				imm, err := parseImmediate(arg)
				if err != nil {
					return Instruction{}, false, err
				}
				in.Op = vm.OpSTC
				in.Operand = append([]byte{reg}, vm.EncodeImmediate(imm)...)
				return in, true, nil
			}
			if mnemonic == "push" {
				imm, err := parseImmediate(arg)
				if err != nil {
					return Instruction{}, false, err
				}
				in.Op = vm.OpPUSH
				in.Operand = vm.EncodeImmediate(imm)
				return in, true, nil
			}
		}
		if arg.Kind == lexer.Identifier {
			if op, found := jumpOps[mnemonic]; found {
				in.Op = op
				in.Target = arg.Text
				return in, true, nil
			}
		}
	}

	return Instruction{}, false, nil
}

// registerSuffix matches mnemonics of the form prefix+register, e.g. "ldb".
func registerSuffix(mnemonic, prefix string) (byte, bool) {
	if len(mnemonic) != len(prefix)+1 || !strings.HasPrefix(mnemonic, prefix) {
		return 0, false
	}
	reg, ok := registers[mnemonic[len(prefix):]]
	return reg, ok
}

func parseImmediate(tok lexer.Token) (uint64, error) {
	v, err := strconv.ParseUint(tok.Text, 10, 64)
	if err != nil {
		return 0, errorAt(tok, "number %s out of range", tok.Text)
	}
	return v, nil
}

func lineText(line lexer.Line) string {
	words := make([]string, len(line))
	for i, tok := range line {
		words[i] = tok.Text
	}
	return strings.Join(words, " ")
}
