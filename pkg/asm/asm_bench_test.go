package asm

import (
	"strings"
	"testing"
)

// smallProgram is a counter loop printing 10..1.
const smallProgram = `
    sta 10
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

// mediumProgram fills memory, sums it back and prints the total.
const mediumProgram = `
; fill cells 0..15 with their index
    sta 0
: fill
    lda
    lda
    mdp
    push 1
    lda
    add
    sta
    push 16
    lda
    sub
    jmpnz fill

; sum cells 0..15 into b
    stb 0
    sta 0
: sum
    lda
    mld
    ldb
    add
    stb
    push 1
    lda
    add
    sta
    push 16
    lda
    sub
    jmpnz sum

    ldb
    out
    push 10
    outc
    trc
    push 0
    hlt
`

// largeProgram repeats the medium program with renamed labels.
var largeProgram = func() string {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		suffix := strings.Repeat("x", i+1)
		body := strings.NewReplacer(
			": fill", ": fill"+suffix,
			"jmpnz fill", "jmpnz fill"+suffix,
			": sum", ": sum"+suffix,
			"jmpnz sum", "jmpnz sum"+suffix,
		).Replace(mediumProgram)
		b.WriteString(body)
	}
	return b.String()
}()

func benchmarkBuild(b *testing.B, src string, opts Options) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Build(src, "bench.smb", opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Small(b *testing.B) {
	benchmarkBuild(b, smallProgram, DefaultOptions())
}

func BenchmarkAssemble_Medium(b *testing.B) {
	benchmarkBuild(b, mediumProgram, DefaultOptions())
}

func BenchmarkAssemble_Large(b *testing.B) {
	benchmarkBuild(b, largeProgram, DefaultOptions())
}

func BenchmarkAssemble_LargeSourceMapped(b *testing.B) {
	benchmarkBuild(b, largeProgram, Options{StrictJumps: true, SourceMapped: true})
}
