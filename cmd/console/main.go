package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"jscpu/pkg/asm"
	"jscpu/pkg/compiler"
	"jscpu/pkg/cpu"
	"jscpu/pkg/utils"
)

func main() {
	maxSteps := flag.Uint64("max-steps", 1_000_000, "instruction budget before giving up")
	showAsm := flag.Bool("show-asm", false, "print the assembly listing before running")
	loadBin := flag.Bool("bin", false, "treat the input as an assembled binary image")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("usage: console [-max-steps n] [-show-asm] [-bin] <program>")
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to resolve input path: %v", err)
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	spec := cpu.DefaultSpec()
	var words []uint16
	switch {
	case *loadBin:
		if words, err = cpu.BytesToWords(raw); err != nil {
			log.Fatalf("Bad binary image: %v", err)
		}
	case strings.HasSuffix(fullPath, ".js"):
		listing, compiled, err := compiler.Compile(string(raw))
		if err != nil {
			log.Fatalf("Compilation failed: %v", err)
		}
		words = compiled
		if *showAsm {
			fmt.Printf("Generated assembly:\n%s\n", listing)
		}
	default:
		assembled, _, err := asm.Assemble(string(raw))
		if err != nil {
			log.Fatalf("Assembly failed: %v", err)
		}
		words = assembled
		if *showAsm {
			fmt.Print(string(raw))
		}
	}

	vm := cpu.NewCPU(spec)
	display := cpu.NewDisplay(spec)
	vm.Mount(display)
	if err := vm.LoadProgram(words); err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	if err := vm.Run(*maxSteps); err != nil {
		log.Printf("Run stopped: %v", err)
	}

	printState(vm)
	printFramebuffer(display)
}

func printState(vm *cpu.CPU) {
	fmt.Printf("halted=%t steps=%d PC=%d Z=%t N=%t\n", vm.Halted, vm.Steps, vm.PC, vm.Z, vm.N)
	for i, v := range vm.Regs {
		fmt.Printf("r%-2d=0x%04X", i, v)
		if (i+1)%4 == 0 {
			fmt.Println()
		} else {
			fmt.Print("  ")
		}
	}
	fmt.Printf("slot=%d\n", vm.Data[int(vm.Spec.SPInit())+1])
}

func printFramebuffer(d *cpu.Display) {
	fmt.Println("framebuffer:")
	for _, row := range d.Rows() {
		var b strings.Builder
		for x := 0; x < 16; x++ {
			if row&(1<<(15-x)) != 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		fmt.Println(b.String())
	}
}
