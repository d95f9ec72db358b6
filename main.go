package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"jscpu/pkg/asm"
	"jscpu/pkg/compiler"
	"jscpu/pkg/cpu"
	"jscpu/pkg/utils"
)

// runBudget bounds a -run invocation so a looping program cannot wedge the
// CLI.
const runBudget = 5_000_000

func main() {
	inPath := flag.String("in", "", "input file: .js is compiled, anything else is assembled")
	outPath := flag.String("out", "", "output binary file path (default: input with .bin extension)")
	runProgram := flag.Bool("run", false, "run the generated binary on the simulator")
	runBinPath := flag.String("run-bin", "", "run an existing binary on the simulator")
	flag.Parse()

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}

	assembledOutput := ""
	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		var words []uint16
		if strings.HasSuffix(*inPath, ".js") {
			_, words, err = compiler.Compile(string(source))
			if err != nil {
				fmt.Fprintf(os.Stderr, "compilation failed: %v\n", err)
				os.Exit(1)
			}
		} else {
			words, _, err = asm.Assemble(string(source))
			if err != nil {
				fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
				os.Exit(1)
			}
		}

		output := *outPath
		if output == "" {
			output = utils.WithExt(*inPath, ".bin")
		}

		if err := os.WriteFile(output, cpu.WordsToBytes(words), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write binary file %q: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("assembled %d words -> %s\n", len(words), output)
		assembledOutput = output
	}

	if *inPath == "" && *runBinPath == "" && !*runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to build, -run to run the build output, or -run-bin <file> to run an existing binary")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case *runBinPath != "":
		runTarget = *runBinPath
	case *runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	if err := runBinary(runTarget); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", runTarget, err)
		os.Exit(1)
	}
}

func runBinary(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	words, err := cpu.BytesToWords(raw)
	if err != nil {
		return err
	}

	vm := cpu.NewCPU(cpu.DefaultSpec())
	if err := vm.LoadProgram(words); err != nil {
		return err
	}
	if err := vm.Run(runBudget); err != nil {
		return err
	}

	slot := vm.Data[int(vm.Spec.SPInit())+1]
	fmt.Printf(
		"run complete (%s): steps=%d PC=%d Z=%t N=%t r1=0x%04X r2=0x%04X r3=0x%04X slot=%d\n",
		path,
		vm.Steps,
		vm.PC,
		vm.Z,
		vm.N,
		vm.Regs[1],
		vm.Regs[2],
		vm.Regs[3],
		slot,
	)
	return nil
}
