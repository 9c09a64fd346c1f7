package vm

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"semby/pkg/trace"
)

// DefaultMemorySize is the number of memory cells used when Options.MemorySize is zero.
const DefaultMemorySize = 1024

// Options configures a Machine.
type Options struct {
	MemorySize int
	// Trace enables the TRC instruction. Crash dumps are written regardless.
	Trace bool
	// Reraise makes Run return the fault as an error after reporting it.
	Reraise  bool
	TraceDir string

	// Stdout receives OUT/OUTC output, Stderr the fault report. Both default
	// to the process streams when nil.
	Stdout io.Writer
	Stderr io.Writer

	Logger *logrus.Logger
}

// Result is the terminal state of a run.
type Result struct {
	ExitCode int
	// Fault is set when the run ended in a fault.
	Fault *Fault
}

// Machine executes one bytecode buffer. It is not safe for concurrent use.
type Machine struct {
	Code      []byte
	Stack     []int64
	Registers map[byte]int64
	Memory    []byte

	PC     uint32
	Source SourceLoc

	Halted   bool
	ExitCode int

	opts Options
	log  *logrus.Entry
}

// New creates a machine with empty stack and registers and zeroed memory.
func New(code []byte, opts Options) *Machine {
	if opts.MemorySize <= 0 {
		opts.MemorySize = DefaultMemorySize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Machine{
		Code:      code,
		Registers: make(map[byte]int64),
		Memory:    make([]byte, opts.MemorySize),
		opts:      opts,
		log:       logger.WithField("component", "vm"),
	}
}

// Execute runs code to completion on a fresh machine.
func Execute(code []byte, opts Options) (Result, error) {
	return New(code, opts).Run()
}

func (m *Machine) outputSink() io.Writer {
	if m.opts.Stdout != nil {
		return m.opts.Stdout
	}
	return os.Stdout
}

func (m *Machine) errorSink() io.Writer {
	if m.opts.Stderr != nil {
		return m.opts.Stderr
	}
	return os.Stderr
}

// Snapshot captures the state rendered by trace dumps.
func (m *Machine) Snapshot() trace.State {
	regs := make(map[byte]int64, len(m.Registers))
	for k, v := range m.Registers {
		regs[k] = v
	}
	return trace.State{
		PC:        m.PC,
		Code:      m.Code,
		Stack:     append([]int64(nil), m.Stack...),
		Registers: regs,
		Memory:    append([]byte(nil), m.Memory...),
	}
}

func (m *Machine) push(v int64) {
	m.Stack = append(m.Stack, v)
}

func (m *Machine) pop(in Instruction) (int64, error) {
	n := len(m.Stack)
	if n == 0 {
		return 0, newFault(FaultStackUnderflow, in.PC, in.Op, "pop from empty stack")
	}
	v := m.Stack[n-1]
	m.Stack = m.Stack[:n-1]
	return v, nil
}

func (m *Machine) pop2(in Instruction) (int64, int64, error) {
	first, err := m.pop(in)
	if err != nil {
		return 0, 0, err
	}
	second, err := m.pop(in)
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func (m *Machine) address(in Instruction, loc int64) (int, error) {
	if loc < 0 || loc >= int64(len(m.Memory)) {
		return 0, newFault(FaultMemoryBounds, in.PC, in.Op, "index %d outside memory of %d cells", loc, len(m.Memory))
	}
	return int(loc), nil
}

// Step executes a single instruction. Reaching the end of the code halts the
// machine with exit code 0. The returned error, if any, is a *Fault
// attributed to the current source-map cell.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if int(m.PC) >= len(m.Code) {
		m.Halted = true
		m.ExitCode = 0
		return nil
	}

	in, err := Decode(m.Code, m.PC)
	if err == nil {
		err = m.exec(in)
	}
	if err != nil {
		f := err.(*Fault)
		f.Source = m.Source
		return f
	}
	return nil
}

func (m *Machine) exec(in Instruction) error {
	next := in.PC + uint32(in.Width())

	switch in.Op {
	case OpHLT:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		m.Halted = true
		m.ExitCode = int(v)

	case OpLD:
		v, ok := m.Registers[in.Register()]
		if !ok {
			return newFault(FaultUnsetRegister, in.PC, in.Op, "register %s was never stored", registerName(in.Register()))
		}
		m.push(v)

	case OpST:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		m.Registers[in.Register()] = v

	case OpSTC:
		m.Registers[in.Register()] = in.Immediate()

	case OpDUP:
		if len(m.Stack) == 0 {
			return newFault(FaultStackUnderflow, in.PC, in.Op, "dup of empty stack")
		}
		m.push(m.Stack[len(m.Stack)-1])

	case OpPUSH:
		m.push(in.Immediate())

	case OpJMP:
		next = in.Target()

	case OpJMPZ, OpJMPNZ, OpJMPP:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		var taken bool
		switch in.Op {
		case OpJMPZ:
			taken = v == 0
		case OpJMPNZ:
			taken = v != 0
		default:
			taken = v > 0
		}
		if taken {
			next = in.Target()
		}

	case OpADD:
		b, a, err := m.pop2(in)
		if err != nil {
			return err
		}
		m.push(a + b)

	case OpSUB:
		a, b, err := m.pop2(in)
		if err != nil {
			return err
		}
		m.push(a - b)

	case OpDIV:
		a, b, err := m.pop2(in)
		if err != nil {
			return err
		}
		if b == 0 {
			return newFault(FaultDivisionByZero, in.PC, in.Op, "%d / 0", a)
		}
		m.push(floorDiv(a, b))

	case OpMUL:
		a, b, err := m.pop2(in)
		if err != nil {
			return err
		}
		m.push(a * b)

	case OpMOD:
		a, b, err := m.pop2(in)
		if err != nil {
			return err
		}
		if b == 0 {
			return newFault(FaultDivisionByZero, in.PC, in.Op, "%d mod 0", a)
		}
		m.push(floorMod(a, b))

	case OpOUT:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(m.outputSink(), "%d", v)

	case OpOUTC:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		if v < 0 || v > utf8.MaxRune || !utf8.ValidRune(rune(v)) {
			return newFault(FaultInvalidCharacter, in.PC, in.Op, "%d is not a code point", v)
		}
		fmt.Fprintf(m.outputSink(), "%c", rune(v))

	case OpMDP:
		loc, val, err := m.pop2(in)
		if err != nil {
			return err
		}
		idx, err := m.address(in, loc)
		if err != nil {
			return err
		}
		if val < 0 || val > 0xFF {
			return newFault(FaultValueRange, in.PC, in.Op, "%d does not fit a memory cell", val)
		}
		m.Memory[idx] = byte(val)

	case OpMLD:
		loc, err := m.pop(in)
		if err != nil {
			return err
		}
		idx, err := m.address(in, loc)
		if err != nil {
			return err
		}
		m.push(int64(m.Memory[idx]))

	case OpCPY:
		from, to, err := m.pop2(in)
		if err != nil {
			return err
		}
		src, err := m.address(in, from)
		if err != nil {
			return err
		}
		dst, err := m.address(in, to)
		if err != nil {
			return err
		}
		m.Memory[dst] = m.Memory[src]

	case OpTRC:
		if m.opts.Trace {
			m.writeTrace("")
		}

	case OpSRC:
		m.Source = in.Source()

	default:
		// Decode rejects invalid opcodes; a valid one without a case is a bug here.
		return newFault(FaultUnknownOpcode, in.PC, in.Op, "no handler for %s", in.Op)
	}

	m.PC = next
	return nil
}

func (m *Machine) writeTrace(label string) {
	path, err := trace.Write(m.opts.TraceDir, label, m.Snapshot())
	if err != nil {
		m.log.WithError(err).Error("Failed to write trace")
		return
	}
	m.log.WithField("path", path).Debug("Wrote trace")
}

// Run steps until the machine halts or faults. A fault is reported on
// Stderr with its best-known source location and a crash dump is written
// before Run returns.
func (m *Machine) Run() (Result, error) {
	for !m.Halted {
		if err := m.Step(); err != nil {
			return m.crash(err.(*Fault))
		}
	}
	return Result{ExitCode: m.ExitCode}, nil
}

func (m *Machine) crash(f *Fault) (Result, error) {
	w := m.errorSink()
	fmt.Fprintf(w, "error at %s\n", f.Source)
	if f.Kind == FaultStackUnderflow {
		fmt.Fprintf(w, "  stack underflow: %s popped an empty stack\n", f.Op)
	} else {
		fmt.Fprintf(w, "  %s\n", f)
	}

	m.log.WithFields(logrus.Fields{"pc": f.PC, "op": f.Op.String(), "kind": f.Kind.String()}).Debug("Machine faulted")
	m.writeTrace(trace.CrashLabel)

	res := Result{ExitCode: 1, Fault: f}
	if m.opts.Reraise {
		return res, f
	}
	return res, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}
