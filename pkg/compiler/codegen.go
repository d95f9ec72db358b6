package compiler

import (
	"strconv"

	"jscpu/pkg/cpu"
)

// functionInfo is what a call site needs to know about a declared function.
type functionInfo struct {
	Label  string
	Params int
}

// CodeGen lowers the parsed program to assembly text in a single pass.
// Registers, data cells, scopes and labels are all allocated as the walk
// reaches them; nothing is emitted speculatively and nothing already emitted
// is patched, so the output order is the source order.
type CodeGen struct {
	spec   cpu.Spec
	regs   *RegisterFile
	mem    *MemoryAllocator
	scopes *ScopeTracker
	syms   *SymbolTable
	labels *LabelGen
	buf    *Buffer

	functions  map[string]*functionInfo
	inFunction bool
}

// Generate lowers a parsed program into assembly for pkg/asm. The symbol
// table is supplied by the caller so drivers can dump the surviving bindings
// after generation.
func Generate(stmts []Stmt, spec cpu.Spec, syms *SymbolTable) (string, error) {
	cg := &CodeGen{
		spec:      spec,
		regs:      NewRegisterFile(spec),
		mem:       NewMemoryAllocator(spec),
		scopes:    NewScopeTracker(),
		syms:      syms,
		labels:    NewLabelGen(),
		buf:       &Buffer{},
		functions: make(map[string]*functionInfo),
	}
	for _, s := range stmts {
		if err := cg.lowerStmt(s); err != nil {
			return "", err
		}
	}
	cg.op("HLT")
	cg.note("end of program")
	return cg.buf.String(), nil
}

func (cg *CodeGen) op(mnemonic string, operands ...string) {
	cg.buf.Instr(mnemonic, operands...)
}

func (cg *CodeGen) note(text string) {
	cg.buf.Annotate(text)
}

func (cg *CodeGen) label(name string) {
	cg.buf.Label(name)
}

func (cg *CodeGen) blank() {
	cg.buf.Blank()
}

func (cg *CodeGen) enterScope() {
	cg.scopes.Enter()
}

// exitScope closes the innermost scope, drops its bindings and returns their
// registers to the pool.
func (cg *CodeGen) exitScope() error {
	id, err := cg.scopes.Exit()
	if err != nil {
		return err
	}
	cg.regs.Release(cg.syms.DropScope(id)...)
	return nil
}

// isTemp reports whether r is a live register that no binding owns, i.e. an
// expression temporary the current caller is responsible for.
func (cg *CodeGen) isTemp(r Reg) bool {
	return cg.regs.InUse(r) && !cg.syms.OwnsRegister(r)
}

// freeIfTemp releases r unless a binding owns it. Safe on the zero register
// and the stack pointer.
func (cg *CodeGen) freeIfTemp(r Reg) {
	if !cg.syms.OwnsRegister(r) {
		cg.regs.Release(r)
	}
}

// popLoopTargets unwinds the break and continue targets a loop pushed.
func (cg *CodeGen) popLoopTargets() error {
	if err := cg.labels.PopBreak(); err != nil {
		return err
	}
	return cg.labels.PopContinue()
}

// loadScalar reads the data cell at addr into dest. Cells inside the offset
// window ride on the zero register; the rest need the address materialized
// first.
func (cg *CodeGen) loadScalar(dest Reg, addr int, name string) error {
	if addr >= cg.spec.OffsetMin() && addr <= cg.spec.OffsetMax() {
		cg.op("LD", dest.String(), memOperand(regZero, addr))
		cg.note(name)
		return nil
	}
	taddr, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	cg.op("LDI", taddr.String(), strconv.Itoa(addr))
	cg.op("LD", dest.String(), memOperand(taddr, 0))
	cg.note(name)
	cg.regs.Release(taddr)
	return nil
}

// storeScalar writes src into the data cell at addr, mirroring loadScalar.
func (cg *CodeGen) storeScalar(src Reg, addr int, name string) error {
	if addr >= cg.spec.OffsetMin() && addr <= cg.spec.OffsetMax() {
		cg.op("ST", src.String(), memOperand(regZero, addr))
		cg.note(name)
		return nil
	}
	taddr, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	cg.op("LDI", taddr.String(), strconv.Itoa(addr))
	cg.op("ST", src.String(), memOperand(taddr, 0))
	cg.note(name)
	cg.regs.Release(taddr)
	return nil
}
