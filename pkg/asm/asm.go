package asm

import (
	"fmt"
	"jscpu/pkg/cpu"
	"strconv"
	"strings"
	"unicode"
)

var zeroOperandOps = map[string]uint16{
	"NOP": cpu.OpNOP,
	"HLT": cpu.OpHLT,
	"RET": cpu.OpRET,
}

var threeRegisterOps = map[string]uint16{
	"ADD": cpu.OpADD,
	"SUB": cpu.OpSUB,
	"AND": cpu.OpAND,
	"OR":  cpu.OpOR,
	"XOR": cpu.OpXOR,
}

var regImmediateOps = map[string]uint16{
	"LDI":  cpu.OpLDI,
	"ADDI": cpu.OpADDI,
}

var memoryOps = map[string]uint16{
	"LD": cpu.OpLD,
	"ST": cpu.OpST,
}

var jumpConds = map[string]uint16{
	"JMP": cpu.CondAlways,
	"JZ":  cpu.CondZero,
	"JNZ": cpu.CondNotZero,
	"JN":  cpu.CondNegative,
}

// SourceMap records which assembly source line produced each program word.
type SourceMap struct {
	lines map[uint16]int
}

// Line returns the 1-based source line behind the instruction at addr.
func (m *SourceMap) Line(addr uint16) (int, bool) {
	n, ok := m.lines[addr]
	return n, ok
}

type Assembler struct {
	spec   cpu.Spec
	labels map[string]uint16
	consts map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler(spec cpu.Spec) *Assembler {
	return &Assembler{
		spec:   spec,
		labels: make(map[string]uint16),
		consts: make(map[string]int),
	}
}

// Assemble translates source text for the reference machine.
func Assemble(code string) ([]uint16, *SourceMap, error) {
	return NewAssembler(cpu.DefaultSpec()).Assemble(code)
}

// Assemble translates source text into program words. Labels and DEF
// constants may be referenced before the line that defines them.
func (a *Assembler) Assemble(code string) ([]uint16, *SourceMap, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = uint16(address)
		}

		switch p.mnemonic {
		case "":
		case "DEF":
			if err := a.define(p); err != nil {
				return err
			}
		default:
			address++
			if address > a.spec.MaxProgramWords() {
				return fmt.Errorf("program larger than %d words near line %d", a.spec.MaxProgramWords(), lineNo)
			}
		}
	}

	return nil
}

func (a *Assembler) define(p parsedLine) error {
	if len(p.operands) != 2 {
		return fmt.Errorf("DEF expects a name and a value on line %d", p.lineNo)
	}

	name := p.operands[0]
	if !isIdentifier(name) {
		return fmt.Errorf("invalid constant name '%s' on line %d", name, p.lineNo)
	}

	value, err := strconv.ParseInt(p.operands[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid constant value '%s' on line %d", p.operands[1], p.lineNo)
	}
	if value < -0x8000 || value > 0xFFFF {
		return fmt.Errorf("constant '%s' outside 16-bit range on line %d", name, p.lineNo)
	}

	if _, exists := a.consts[name]; exists {
		return fmt.Errorf("duplicate constant '%s' on line %d", name, p.lineNo)
	}
	a.consts[name] = int(value)
	return nil
}

func (a *Assembler) pass2(lines []string) ([]uint16, *SourceMap, error) {
	program := make([]uint16, 0, len(lines))
	srcMap := &SourceMap{lines: make(map[uint16]int)}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" || p.mnemonic == "DEF" {
			continue
		}

		instr, err := a.encodeLine(p)
		if err != nil {
			return nil, nil, err
		}

		srcMap.lines[uint16(len(program))] = lineNo
		program = append(program, instr)
	}

	return program, srcMap, nil
}

func (a *Assembler) encodeLine(p parsedLine) (uint16, error) {
	mnemonic, ops, lineNo := p.mnemonic, p.operands, p.lineNo

	if opcode, ok := zeroOperandOps[mnemonic]; ok {
		if len(ops) != 0 {
			return 0, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
		}
		return cpu.EncodeRRR(opcode, 0, 0, 0), nil
	}

	// CMP and MOV are sugar over the three-register ALU forms.
	if mnemonic == "CMP" || mnemonic == "MOV" {
		if len(ops) != 2 {
			return 0, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		first, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		second, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		if mnemonic == "CMP" {
			return cpu.EncodeRRR(cpu.OpSUB, cpu.RegZero, first, second), nil
		}
		return cpu.EncodeRRR(cpu.OpADD, first, second, cpu.RegZero), nil
	}

	if opcode, ok := threeRegisterOps[mnemonic]; ok {
		if len(ops) != 3 {
			return 0, fmt.Errorf("%s expects 3 operands on line %d", mnemonic, lineNo)
		}
		rd, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		ra, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		rb, err := parseRegister(ops[2], lineNo)
		if err != nil {
			return 0, err
		}
		return cpu.EncodeRRR(opcode, rd, ra, rb), nil
	}

	if opcode, ok := regImmediateOps[mnemonic]; ok {
		if len(ops) != 2 {
			return 0, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		rd, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		value, err := a.resolveValue(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		if mnemonic == "LDI" {
			if value < 0 || value > a.spec.MaxImm() {
				return 0, fmt.Errorf("LDI immediate %d outside 0..%d on line %d", value, a.spec.MaxImm(), lineNo)
			}
			return cpu.EncodeRI(opcode, rd, uint8(value)), nil
		}
		lo, hi := -(1 << (a.spec.ImmBits - 1)), 1<<(a.spec.ImmBits-1)-1
		if value < lo || value > hi {
			return 0, fmt.Errorf("ADDI immediate %d outside %d..%d on line %d", value, lo, hi, lineNo)
		}
		return cpu.EncodeRI(opcode, rd, uint8(int8(value))), nil
	}

	if opcode, ok := memoryOps[mnemonic]; ok {
		if len(ops) != 2 && len(ops) != 3 {
			return 0, fmt.Errorf("%s expects a register and a memory operand on line %d", mnemonic, lineNo)
		}
		rd, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		ra, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		offset := 0
		if len(ops) == 3 {
			offset, err = a.resolveValue(ops[2], lineNo)
			if err != nil {
				return 0, err
			}
		}
		if offset < a.spec.OffsetMin() || offset > a.spec.OffsetMax() {
			return 0, fmt.Errorf("offset %d outside %d..%d on line %d", offset, a.spec.OffsetMin(), a.spec.OffsetMax(), lineNo)
		}
		return a.spec.EncodeMem(opcode, rd, ra, offset), nil
	}

	if cond, ok := jumpConds[mnemonic]; ok {
		if len(ops) != 1 {
			return 0, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		addr, err := a.resolveTarget(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		return cpu.EncodeJump(cond, addr), nil
	}

	if mnemonic == "CALL" {
		if len(ops) != 1 {
			return 0, fmt.Errorf("CALL expects 1 operand on line %d", lineNo)
		}
		addr, err := a.resolveTarget(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		return cpu.EncodeCall(addr), nil
	}

	return 0, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
}

// resolveValue evaluates an immediate or offset operand, substituting DEF
// constants by name.
func (a *Assembler) resolveValue(token string, lineNo int) (int, error) {
	if value, err := strconv.ParseInt(token, 0, 32); err == nil {
		return int(value), nil
	}

	if value, ok := a.consts[token]; ok {
		return value, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined constant '%s' on line %d", token, lineNo)
	}
	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

// resolveTarget evaluates a jump or call operand. Labels win over numeric
// addresses.
func (a *Assembler) resolveTarget(token string, lineNo int) (uint16, error) {
	if addr, ok := a.labels[token]; ok {
		if int(addr) >= a.spec.MaxProgramWords() {
			return 0, fmt.Errorf("label '%s' points past program space on line %d", token, lineNo)
		}
		return addr, nil
	}

	if value, err := strconv.ParseInt(token, 0, 32); err == nil {
		if value < 0 || int(value) >= a.spec.MaxProgramWords() {
			return 0, fmt.Errorf("jump target %d outside program space on line %d", value, lineNo)
		}
		return uint16(value), nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}
	return 0, fmt.Errorf("invalid jump target '%s' on line %d", token, lineNo)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "[", " ", "]", " ")
	return replacer.Replace(line)
}

func parseRegister(token string, lineNo int) (uint16, error) {
	name := strings.ToLower(token)
	switch name {
	case "zero":
		return cpu.RegZero, nil
	case "sp":
		return cpu.RegSP, nil
	}

	if strings.HasPrefix(name, "r") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < 16 {
			return uint16(n), nil
		}
	}

	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
