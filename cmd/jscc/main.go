package main

import (
	"flag"
	"fmt"
	"os"

	"jscpu/pkg/asm"
	"jscpu/pkg/compiler"
	"jscpu/pkg/cpu"
)

func main() {
	inPath := flag.String("in", "", "source file to compile")
	asmPath := flag.String("asm", "", "write the assembly listing to this file")
	binPath := flag.String("bin", "", "write the assembled program to this file")
	dump := flag.Bool("dump", false, "print tokens, AST, assembly and the symbol table")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: jscc -in program.js [-asm out.asm] [-bin out.bin] [-dump]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}
	src := string(data)

	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}
	if *dump {
		fmt.Printf("Tokens (%d)\n", len(tokens))
		for _, tok := range tokens {
			fmt.Println(" ", tok)
		}
		fmt.Println()
	}

	stmts, err := compiler.Parse(tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}
	if *dump {
		fmt.Println("AST")
		for _, s := range stmts {
			fmt.Println(" ", s)
		}
		fmt.Println()
	}

	spec := cpu.DefaultSpec()
	syms := compiler.NewSymbolTable()
	listing, err := compiler.Generate(stmts, spec, syms)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}
	if *dump {
		fmt.Println("Generated Assembly")
		fmt.Print(listing)
		fmt.Println()
		fmt.Print(syms)
	}

	words, _, err := asm.NewAssembler(spec).Assemble(listing)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assemble error:", err)
		os.Exit(1)
	}

	if *asmPath != "" {
		if err := os.WriteFile(*asmPath, []byte(listing), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write error:", err)
			os.Exit(1)
		}
	}
	if *binPath != "" {
		if err := os.WriteFile(*binPath, cpu.WordsToBytes(words), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write error:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("compiled %s: %d words\n", *inPath, len(words))
}
