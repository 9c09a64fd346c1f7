package vm

import (
	"io"
	"testing"
)

func newSilentMachine(code []byte) *Machine {
	return New(code, Options{Stdout: io.Discard, Stderr: io.Discard, Logger: quietLogger()})
}

// BenchmarkMachine_Countdown measures dispatch over a tight register loop.
func BenchmarkMachine_Countdown(b *testing.B) {
	code := countdown(1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := newSilentMachine(code)
		if _, err := m.Run(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMachine_Memory stores and reloads every cell of a 256 cell memory.
//
//	 0: stc a 255
//	10: ld a
//	12: ld a
//	14: mdp
//	15: ld a
//	17: mld
//	18: st b
//	20: push 1
//	29: ld a
//	31: sub
//	32: dup
//	33: st a
//	35: jmpp 10
func BenchmarkMachine_Memory(b *testing.B) {
	code := program(
		stc(RegA, 255),
		ins(OpLD, RegA), ins(OpLD, RegA), ins(OpMDP),
		ins(OpLD, RegA), ins(OpMLD), ins(OpST, RegB),
		push(1), ins(OpLD, RegA), ins(OpSUB), ins(OpDUP), ins(OpST, RegA),
		jump(OpJMPP, 10),
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := New(code, Options{MemorySize: 256, Stdout: io.Discard, Logger: quietLogger()})
		if _, err := m.Run(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMachine_SourceMapped runs the countdown with a marker before
// every instruction, as the assembler emits with source maps enabled.
func BenchmarkMachine_SourceMapped(b *testing.B) {
	//	  0: src 1, stc a 1000       (14 + 10)
	//	 24: src 2, push 1           (14 + 9)
	//	 47: src 3, ld a             (14 + 2)
	//	 63: src 4, sub              (14 + 1)
	//	 78: src 5, dup
	//	 93: src 6, st a
	//	109: src 7, jmpp 24
	code := program(
		src(1, "b.smb"), stc(RegA, 1000),
		src(2, "b.smb"), push(1),
		src(3, "b.smb"), ins(OpLD, RegA),
		src(4, "b.smb"), ins(OpSUB),
		src(5, "b.smb"), ins(OpDUP),
		src(6, "b.smb"), ins(OpST, RegA),
		src(7, "b.smb"), jump(OpJMPP, 24),
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := newSilentMachine(code)
		if _, err := m.Run(); err != nil {
			b.Fatal(err)
		}
	}
}
