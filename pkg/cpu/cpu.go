package cpu

import "fmt"

const returnStackDepth = 16

// CPU simulates the target machine: a Harvard layout with a small program
// store, a 256-cell data store, 16 registers, Z/N flags and a hardware return
// stack that CALL/RET use instead of data memory.
type CPU struct {
	Spec Spec

	Regs [16]uint16
	PC   uint16

	Z bool
	N bool

	Program []uint16
	Data    []uint16

	returnStack []uint16

	Steps  uint64
	Halted bool

	device Peripheral
}

func NewCPU(spec Spec) *CPU {
	c := &CPU{
		Spec:        spec,
		Data:        make([]uint16, spec.MemWords),
		returnStack: make([]uint16, 0, returnStackDepth),
	}
	c.Reset()
	return c
}

// Reset clears registers, flags, the step counter and the return stack, and
// re-applies the hardware stack pointer. Program and data memory are left
// untouched so a loaded program can be re-run.
func (c *CPU) Reset() {
	c.Regs = [16]uint16{}
	c.Regs[RegSP] = c.Spec.SPInit()
	c.PC = 0
	c.Z = false
	c.N = false
	c.returnStack = c.returnStack[:0]
	c.Steps = 0
	c.Halted = false
}

// LoadProgram replaces the program store.
func (c *CPU) LoadProgram(words []uint16) error {
	if len(words) > c.Spec.MaxProgramWords() {
		return fmt.Errorf("program too large: %d words > %d", len(words), c.Spec.MaxProgramWords())
	}
	c.Program = append(c.Program[:0], words...)
	return nil
}

// Mount attaches the peripheral serving the I/O region. One device window
// exists; mounting nil detaches it. Unmounted I/O reads zero and drops
// writes.
func (c *CPU) Mount(p Peripheral) {
	c.device = p
}

// Device returns the mounted peripheral, if any.
func (c *CPU) Device() Peripheral {
	return c.device
}

func (c *CPU) setReg(idx, val uint16) {
	if idx == RegZero {
		return
	}
	c.Regs[idx] = val
}

func (c *CPU) updateFlags(result uint16) {
	c.Z = result == 0
	c.N = result&0x8000 != 0
}

func (c *CPU) readMem(addr int) (uint16, error) {
	if addr < 0 || addr >= c.Spec.MemWords {
		return 0, fmt.Errorf("memory read out of range: %d", addr)
	}
	if addr >= c.Spec.IOStart {
		if c.device == nil {
			return 0, nil
		}
		return c.device.Read16(uint16(addr - c.Spec.IOStart)), nil
	}
	return c.Data[addr], nil
}

func (c *CPU) writeMem(addr int, val uint16) error {
	if addr < 0 || addr >= c.Spec.MemWords {
		return fmt.Errorf("memory write out of range: %d", addr)
	}
	if addr >= c.Spec.IOStart {
		if c.device != nil {
			c.device.Write16(uint16(addr-c.Spec.IOStart), val)
		}
		return nil
	}
	c.Data[addr] = val
	return nil
}

func (c *CPU) fault(format string, args ...any) error {
	c.Halted = true
	return fmt.Errorf(format, args...)
}

// Step executes one instruction. A fault (reserved opcode, address out of
// range, return-stack misuse, PC past the program) halts the machine and is
// returned as an error.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.device != nil {
		c.device.Step()
	}
	if int(c.PC) >= len(c.Program) {
		return c.fault("PC %d past end of program (%d words)", c.PC, len(c.Program))
	}

	instr := c.Program[c.PC]
	c.PC++
	c.Steps++

	op := instr >> 12
	rd := (instr >> 8) & 0xF
	ra := (instr >> 4) & 0xF
	rb := instr & 0xF

	switch op {
	case OpNOP:
		// No operation.

	case OpHLT:
		c.Halted = true

	case OpADD:
		result := c.Regs[ra] + c.Regs[rb]
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpSUB:
		result := c.Regs[ra] - c.Regs[rb]
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpAND:
		result := c.Regs[ra] & c.Regs[rb]
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpOR:
		result := c.Regs[ra] | c.Regs[rb]
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpXOR:
		result := c.Regs[ra] ^ c.Regs[rb]
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpLDI:
		c.setReg(rd, instr&0xFF)

	case OpADDI:
		// Sign-extended 8-bit immediate added in place.
		imm := uint16(int16(int8(instr & 0xFF)))
		result := c.Regs[rd] + imm
		c.setReg(rd, result)
		c.updateFlags(result)

	case OpLD:
		addr := int(c.Regs[ra]) + c.Spec.DecodeOffset(rb)
		val, err := c.readMem(addr)
		if err != nil {
			return c.fault("LD at PC %d: %v", c.PC-1, err)
		}
		c.setReg(rd, val)

	case OpST:
		addr := int(c.Regs[ra]) + c.Spec.DecodeOffset(rb)
		if err := c.writeMem(addr, c.Regs[rd]); err != nil {
			return c.fault("ST at PC %d: %v", c.PC-1, err)
		}

	case OpJMP:
		cond := (instr >> 10) & 0x3
		target := instr & 0x3FF
		take := false
		switch cond {
		case CondAlways:
			take = true
		case CondZero:
			take = c.Z
		case CondNotZero:
			take = !c.Z
		case CondNegative:
			take = c.N
		}
		if take {
			c.PC = target
		}

	case OpCALL:
		if len(c.returnStack) >= returnStackDepth {
			return c.fault("call stack overflow at PC %d", c.PC-1)
		}
		c.returnStack = append(c.returnStack, c.PC)
		c.PC = instr & 0x3FF

	case OpRET:
		if len(c.returnStack) == 0 {
			return c.fault("RET with empty call stack at PC %d", c.PC-1)
		}
		c.PC = c.returnStack[len(c.returnStack)-1]
		c.returnStack = c.returnStack[:len(c.returnStack)-1]

	default:
		return c.fault("reserved opcode 0x%X at PC %d", op, c.PC-1)
	}

	return nil
}

// Run steps until the machine halts, faults, or the step budget runs out.
func (c *CPU) Run(maxSteps uint64) error {
	for !c.Halted {
		if c.Steps >= maxSteps {
			return fmt.Errorf("step budget exhausted after %d instructions", maxSteps)
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}
