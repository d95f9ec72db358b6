package compiler

import (
	"fmt"

	"jscpu/pkg/asm"
	"jscpu/pkg/cpu"
)

// Compile runs the whole pipeline over one source text against the reference
// machine: lex, parse, lower, assemble. It returns the assembly listing
// alongside the machine words, since drivers usually want to keep the text
// for listings and source maps.
func Compile(src string) (string, []uint16, error) {
	return CompileForSpec(src, cpu.DefaultSpec())
}

// CompileForSpec is Compile against an arbitrary machine spec.
func CompileForSpec(src string, spec cpu.Spec) (string, []uint16, error) {
	if err := spec.Validate(); err != nil {
		return "", nil, err
	}
	tokens, err := Lex(src)
	if err != nil {
		return "", nil, err
	}
	stmts, err := Parse(tokens, src)
	if err != nil {
		return "", nil, err
	}
	asmText, err := Generate(stmts, spec, NewSymbolTable())
	if err != nil {
		return "", nil, err
	}
	words, _, err := asm.NewAssembler(spec).Assemble(asmText)
	if err != nil {
		return "", nil, fmt.Errorf("internal: generated assembly does not assemble: %w", err)
	}
	if len(words) > spec.MaxProgramWords() {
		return "", nil, fmt.Errorf("program needs %d words, the address field reaches %d",
			len(words), spec.MaxProgramWords())
	}
	return asmText, words, nil
}
