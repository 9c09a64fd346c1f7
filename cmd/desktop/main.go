package main

import (
	"bytes"
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"semby/pkg/asm"
	"semby/pkg/utils"
	"semby/pkg/vm"
)

const (
	screenWidth  = 640
	screenHeight = 480
	lineHeight   = 16
	// stepsPerFrame bounds how far free-running advances in one Update.
	stepsPerFrame = 1000
	maxStackRows  = 12
)

var background = color.RGBA{0x1D, 0x2B, 0x53, 0xFF}

type Game struct {
	vm      *vm.Machine
	output  *bytes.Buffer
	fault   error
	running bool
	face    text.Face
}

func newGame(code []byte, memory int) *Game {
	out := &bytes.Buffer{}
	m := vm.New(code, vm.Options{
		MemorySize: memory,
		Stdout:     out,
		Stderr:     out,
	})
	return &Game{
		vm:     m,
		output: out,
		face:   text.NewGoXFace(basicfont.Face7x13),
	}
}

// step advances at most n instructions, stopping on halt or fault.
func (g *Game) step(n int) {
	for i := 0; i < n; i++ {
		if g.vm.Halted || g.fault != nil {
			g.running = false
			return
		}
		if err := g.vm.Step(); err != nil {
			g.fault = err
			g.running = false
			return
		}
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.step(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.running = !g.running
	}
	if g.running {
		g.step(stepsPerFrame)
	}
	return nil
}

// statusLines renders the machine state shown in the window.
func (g *Game) statusLines() []string {
	m := g.vm
	lines := []string{
		fmt.Sprintf("PC %d / %d    source %s", m.PC, len(m.Code), m.Source),
	}

	switch {
	case g.fault != nil:
		lines = append(lines, "FAULT "+g.fault.Error())
	case m.Halted:
		lines = append(lines, fmt.Sprintf("HALTED exit code %d", m.ExitCode))
	case g.running:
		lines = append(lines, "RUNNING (r to pause)")
	default:
		if in, err := vm.Decode(m.Code, m.PC); err == nil {
			lines = append(lines, "NEXT "+strings.TrimSpace(in.String()))
		}
		lines = append(lines, "space: step   r: run")
	}

	lines = append(lines, "", "REGISTERS")
	keys := make([]int, 0, len(m.Registers))
	for k := range m.Registers {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %c: %d", rune(96+k), m.Registers[byte(k)]))
	}

	lines = append(lines, "", fmt.Sprintf("STACK (%d)", len(m.Stack)))
	for i, shown := len(m.Stack)-1, 0; i >= 0 && shown < maxStackRows; i, shown = i-1, shown+1 {
		lines = append(lines, fmt.Sprintf("  %d", m.Stack[i]))
	}

	lines = append(lines, "", "OUTPUT")
	for _, l := range strings.Split(g.output.String(), "\n") {
		lines = append(lines, "  "+l)
	}
	return lines
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	op := &text.DrawOptions{}
	op.GeoM.Translate(8, 8)
	op.LineSpacing = lineHeight
	op.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, strings.Join(g.statusLines(), "\n"), g.face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s FILE", os.Args[0])
	}
	fullPath, _, err := utils.GetPathInfo(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", os.Args[1], err)
	}
	source, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	code, err := asm.Build(string(source), os.Args[1], asm.Options{StrictJumps: true, SourceMapped: true})
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("semby stepper")

	if err := ebiten.RunGame(newGame(code, vm.DefaultMemorySize)); err != nil {
		log.Fatal(err)
	}
}
