package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"jscpu/pkg/asm"
	"jscpu/pkg/compiler"
	"jscpu/pkg/cpu"
	"jscpu/pkg/utils"
)

const (
	displaySide   = 16
	displayScale  = 16
	stepsPerFrame = 10000
)

type Game struct {
	vm       *cpu.CPU
	display  *cpu.Display
	srcMap   *asm.SourceMap
	asmLines []string

	canvas      *ebiten.Image // reused 16x16 framebuffer canvas
	paused      bool
	fault       error
	status      string
	snapshotDir string
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) && g.paused {
		g.stepBatch(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.snapshot()
	}

	if !g.paused {
		g.stepBatch(stepsPerFrame)
	}
	return nil
}

func (g *Game) reset() {
	g.vm.Reset()
	g.fault = nil
	g.status = ""
}

// stepBatch runs up to n instructions, stopping early on halt or fault. The
// fault sticks until the next reset so the overlay can show it.
func (g *Game) stepBatch(n int) {
	for i := 0; i < n; i++ {
		if g.vm.Halted || g.fault != nil {
			return
		}
		if err := g.vm.Step(); err != nil {
			g.fault = err
			return
		}
	}
}

func (g *Game) snapshot() {
	data, id, err := g.vm.HibernateToBytes()
	if err != nil {
		g.status = fmt.Sprintf("snapshot failed: %v", err)
		return
	}
	name := filepath.Join(g.snapshotDir, fmt.Sprintf("snapshot_%s.zip", id))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		g.status = fmt.Sprintf("snapshot failed: %v", err)
		return
	}
	g.status = "saved " + name
}

func (g *Game) overlayText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC=%d steps=%d\n", g.vm.PC, g.vm.Steps)
	fmt.Fprintf(&b, "Z=%t N=%t halted=%t\n", g.vm.Z, g.vm.N, g.vm.Halted)
	if line, ok := g.srcMap.Line(g.vm.PC); ok && line <= len(g.asmLines) {
		fmt.Fprintf(&b, "next: %s\n", strings.TrimSpace(g.asmLines[line-1]))
	}
	b.WriteString("\n")
	for i := 0; i < len(g.vm.Regs); i += 4 {
		fmt.Fprintf(&b, "r%-2d %04X  r%-2d %04X  r%-2d %04X  r%-2d %04X\n",
			i, g.vm.Regs[i], i+1, g.vm.Regs[i+1], i+2, g.vm.Regs[i+2], i+3, g.vm.Regs[i+3])
	}
	b.WriteString("\nSpace pause  N step  R reset  S snapshot\n")
	if g.paused {
		b.WriteString("paused\n")
	}
	if g.fault != nil {
		fmt.Fprintf(&b, "fault: %v\n", g.fault)
	}
	if g.status != "" {
		b.WriteString(g.status + "\n")
	}
	return b.String()
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvas == nil {
		g.canvas = ebiten.NewImage(displaySide, displaySide)
	}
	g.canvas.WritePixels(g.display.GetFramebufferRGBA())

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(displayScale, displayScale)
	screen.DrawImage(g.canvas, op)

	ebitenutil.DebugPrintAt(screen, g.overlayText(), displaySide*displayScale+8, 8)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 2 * displaySide * displayScale, displaySide * displayScale
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: desktop <program> [--show-asm]")
	}
	filename := os.Args[1]
	showAsm := false
	for _, arg := range os.Args[2:] {
		showAsm = arg == "--show-asm"
	}

	fullPath, _, err := utils.GetPathInfo(filename)
	if err != nil {
		log.Fatalf("Failed to resolve input path: %v", err)
	}
	sourceBytes, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	listing := string(sourceBytes)
	if strings.HasSuffix(fullPath, ".js") {
		listing, _, err = compiler.Compile(string(sourceBytes))
		if err != nil {
			log.Fatalf("Compilation failed: %v", err)
		}
	}
	if showAsm {
		fmt.Printf("Generated assembly:\n%s\n", listing)
	}

	spec := cpu.DefaultSpec()
	words, srcMap, err := asm.NewAssembler(spec).Assemble(listing)
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	vm := cpu.NewCPU(spec)
	display := cpu.NewDisplay(spec)
	vm.Mount(display)
	if err := vm.LoadProgram(words); err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	game := &Game{
		vm:          vm,
		display:     display,
		srcMap:      srcMap,
		asmLines:    strings.Split(listing, "\n"),
		snapshotDir: ".",
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(2*displaySide*displayScale, displaySide*displayScale)
	ebiten.SetWindowTitle("jscpu")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
