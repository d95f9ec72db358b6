package compiler

import (
	"fmt"

	"jscpu/pkg/cpu"
)

// Reg identifies a machine register in emitted code. The zero register and
// the stack pointer are legal operands but are never handed out by the
// allocator; everything in between is a generic register the lowering core
// acquires and releases as values come and go.
type Reg uint16

const (
	regZero = Reg(cpu.RegZero)
	regSP   = Reg(cpu.RegSP)
)

// String renders the register the way the assembler spells it.
func (r Reg) String() string {
	if uint16(r) == cpu.RegSP {
		return "sp"
	}
	return fmt.Sprintf("r%d", uint16(r))
}

// RegisterFile tracks which generic registers are in use. Acquire always
// returns the lowest-numbered free register, so freeing and reacquiring is
// deterministic and generated code stays stable across compiles of the same
// source.
type RegisterFile struct {
	generics int
	used     []bool
}

// NewRegisterFile returns a file with every generic register free.
func NewRegisterFile(spec cpu.Spec) *RegisterFile {
	return &RegisterFile{
		generics: spec.GenericRegisters(),
		used:     make([]bool, spec.GenericRegisters()+1),
	}
}

// Acquire claims the lowest-numbered free register.
func (rf *RegisterFile) Acquire() (Reg, error) {
	for i := 1; i <= rf.generics; i++ {
		if !rf.used[i] {
			rf.used[i] = true
			return Reg(i), nil
		}
	}
	return 0, fmt.Errorf("all %d generic registers live: %w", rf.generics, ErrOutOfRegisters)
}

// Release returns registers to the pool. Registers that are already free,
// the zero register and the stack pointer are ignored, so callers can
// release unconditionally.
func (rf *RegisterFile) Release(regs ...Reg) {
	for _, r := range regs {
		if i := int(r); i >= 1 && i <= rf.generics {
			rf.used[i] = false
		}
	}
}

// InUse reports whether r is currently handed out.
func (rf *RegisterFile) InUse(r Reg) bool {
	i := int(r)
	return i >= 1 && i <= rf.generics && rf.used[i]
}

// Free counts the registers still available.
func (rf *RegisterFile) Free() int {
	n := 0
	for i := 1; i <= rf.generics; i++ {
		if !rf.used[i] {
			n++
		}
	}
	return n
}
