package cpu

import (
	"encoding/binary"
	"fmt"
)

// Instruction opcodes, bits 15..12 of every instruction word.
const (
	OpNOP  uint16 = 0x0
	OpHLT  uint16 = 0x1
	OpADD  uint16 = 0x2
	OpSUB  uint16 = 0x3
	OpAND  uint16 = 0x4
	OpOR   uint16 = 0x5
	OpXOR  uint16 = 0x6
	OpLDI  uint16 = 0x7
	OpADDI uint16 = 0x8
	OpLD   uint16 = 0x9
	OpST   uint16 = 0xA
	OpJMP  uint16 = 0xB
	OpCALL uint16 = 0xC
	OpRET  uint16 = 0xD
)

// Jump conditions, bits 11..10 of a jump instruction.
const (
	CondAlways   uint16 = 0x0
	CondZero     uint16 = 0x1
	CondNotZero  uint16 = 0x2
	CondNegative uint16 = 0x3
)

// Registers with architectural roles. r0 always reads zero and drops writes;
// r15 is the stack pointer, initialised by reset and never moved by code the
// compiler emits.
const (
	RegZero uint16 = 0
	RegSP   uint16 = 15
)

// Spec fixes the machine parameters shared by the compiler, the assembler and
// the simulator. The allocation core reads region boundaries and the offset
// window from here rather than hard-coding them, so a machine variant with a
// different memory split or offset width only needs a different Spec value.
type Spec struct {
	Registers  int // addressable registers including zero and sp
	ImmBits    int // immediate operand width (LDI unsigned, ADDI signed)
	AddrBits   int // jump/call address field width
	OffsetBits int // signed offset field width for LD/ST
	MemWords   int // data memory size in 16-bit cells
	StackStart int // first cell of the stack region
	IOStart    int // first cell of the memory-mapped I/O region
}

// DefaultSpec returns the reference machine: 16 registers, 8-bit immediates,
// 10-bit jump addresses, a 4-bit offset field and 256 data cells split
// 224/16/16 between data, stack and I/O.
func DefaultSpec() Spec {
	return Spec{
		Registers:  16,
		ImmBits:    8,
		AddrBits:   10,
		OffsetBits: 4,
		MemWords:   256,
		StackStart: 224,
		IOStart:    240,
	}
}

// GenericRegisters is the number of allocatable registers: everything except
// the zero register and the stack pointer.
func (s Spec) GenericRegisters() int { return s.Registers - 2 }

// OffsetMax is the largest load/store offset the field encodes.
func (s Spec) OffsetMax() int { return 1 << (s.OffsetBits - 1) }

// OffsetMin is the most negative load/store offset the field encodes.
func (s Spec) OffsetMin() int { return -(1 << (s.OffsetBits - 1)) + 1 }

// MaxImm is the largest unsigned immediate (LDI operand ceiling).
func (s Spec) MaxImm() int { return (1 << s.ImmBits) - 1 }

// MaxProgramWords is the number of instruction words the address field can
// reach.
func (s Spec) MaxProgramWords() int { return 1 << s.AddrBits }

// SPInit is the reset value of the stack pointer. Parameter slots grow down
// from it; the shared return/exception slot sits one above it.
func (s Spec) SPInit() uint16 { return uint16(s.IOStart - 2) }

// MaxParams is how many parameter slots [sp-0]..[sp-n] the offset window can
// address.
func (s Spec) MaxParams() int { return -s.OffsetMin() + 1 }

func (s Spec) Validate() error {
	if s.Registers < 3 || s.Registers > 16 {
		return fmt.Errorf("spec: register count %d outside 3..16", s.Registers)
	}
	if s.ImmBits < 1 || s.ImmBits > 8 {
		return fmt.Errorf("spec: immediate width %d outside 1..8", s.ImmBits)
	}
	if s.AddrBits < 1 || s.AddrBits > 10 {
		return fmt.Errorf("spec: address width %d outside 1..10", s.AddrBits)
	}
	if s.OffsetBits < 2 || s.OffsetBits > 4 {
		return fmt.Errorf("spec: offset width %d outside 2..4", s.OffsetBits)
	}
	if s.MemWords < 1 || s.MemWords > 1<<16 {
		return fmt.Errorf("spec: memory size %d outside 1..65536", s.MemWords)
	}
	if s.StackStart <= 0 || s.StackStart >= s.IOStart || s.IOStart > s.MemWords {
		return fmt.Errorf("spec: bad region split data=[0,%d) stack=[%d,%d) io=[%d,%d)",
			s.StackStart, s.StackStart, s.IOStart, s.IOStart, s.MemWords)
	}
	if int(s.SPInit())+1 >= s.MemWords {
		return fmt.Errorf("spec: return slot %d outside memory", s.SPInit()+1)
	}
	return nil
}

// EncodeOffset packs a signed load/store offset into its excess-coded field.
func (s Spec) EncodeOffset(off int) uint16 {
	return uint16(off-s.OffsetMin()) & uint16(1<<s.OffsetBits-1)
}

// DecodeOffset unpacks an excess-coded offset field.
func (s Spec) DecodeOffset(field uint16) int {
	return int(field&uint16(1<<s.OffsetBits-1)) + s.OffsetMin()
}

// EncodeRRR packs a three-register ALU instruction.
func EncodeRRR(op, rd, ra, rb uint16) uint16 {
	return op<<12 | (rd&0xF)<<8 | (ra&0xF)<<4 | rb&0xF
}

// EncodeRI packs a register-immediate instruction. The caller has already
// range-checked and, for ADDI, two's-complement-folded the immediate.
func EncodeRI(op, rd uint16, imm uint8) uint16 {
	return op<<12 | (rd&0xF)<<8 | uint16(imm)
}

// EncodeMem packs a load or store. rd is the destination for LD and the
// source for ST.
func (s Spec) EncodeMem(op, rd, ra uint16, off int) uint16 {
	return op<<12 | (rd&0xF)<<8 | (ra&0xF)<<4 | s.EncodeOffset(off)
}

// EncodeJump packs a conditional or unconditional jump.
func EncodeJump(cond, addr uint16) uint16 {
	return OpJMP<<12 | (cond&0x3)<<10 | addr&0x3FF
}

// EncodeCall packs a call.
func EncodeCall(addr uint16) uint16 {
	return OpCALL<<12 | addr&0x3FF
}

// WordsToBytes flattens program words little-endian for binary files.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[i*2:], w)
	}
	return out
}

// BytesToWords is the inverse of WordsToBytes.
func BytesToWords(b []byte) ([]uint16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("binary image has odd length %d", len(b))
	}
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return words, nil
}
