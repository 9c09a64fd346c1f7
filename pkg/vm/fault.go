package vm

import "fmt"

// FaultKind classifies runtime faults.
type FaultKind int

const (
	FaultStackUnderflow FaultKind = iota + 1
	FaultUnsetRegister
	FaultMemoryBounds
	FaultDivisionByZero
	FaultUnknownOpcode
	FaultTruncated
	FaultInvalidCharacter
	FaultValueRange
)

var faultNames = map[FaultKind]string{
	FaultStackUnderflow:   "stack underflow",
	FaultUnsetRegister:    "unset register",
	FaultMemoryBounds:     "memory access out of bounds",
	FaultDivisionByZero:   "division by zero",
	FaultUnknownOpcode:    "unknown opcode",
	FaultTruncated:        "truncated instruction",
	FaultInvalidCharacter: "invalid character",
	FaultValueRange:       "value out of range",
}

func (k FaultKind) String() string {
	if name, ok := faultNames[k]; ok {
		return name
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// SourceLoc is the most recent source position announced by an SRC
// instruction. The zero value means no marker has been executed.
type SourceLoc struct {
	File  string
	Line  uint32
	Valid bool
}

// NoSourceMap is printed in place of a location when no SRC marker was seen.
const NoSourceMap = "no sourcemap available"

func (s SourceLoc) String() string {
	if !s.Valid {
		return NoSourceMap
	}
	return fmt.Sprintf("%s[%d]", s.File, s.Line)
}

// Fault is a runtime error raised while executing one instruction.
type Fault struct {
	Kind   FaultKind
	PC     uint32
	Op     Opcode
	Source SourceLoc
	Msg    string
}

func (f *Fault) Error() string {
	if f.Msg == "" {
		return fmt.Sprintf("%s at pc %d (%s)", f.Kind, f.PC, f.Op)
	}
	return fmt.Sprintf("%s at pc %d (%s): %s", f.Kind, f.PC, f.Op, f.Msg)
}

// Is matches faults by kind so callers can test with errors.Is(err, &Fault{Kind: ...}).
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind
}

func newFault(kind FaultKind, pc uint32, op Opcode, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, PC: pc, Op: op, Msg: fmt.Sprintf(format, args...)}
}
