package compiler

import (
	"fmt"
	"strconv"
)

// lowerExpr emits the code that leaves the expression's value in the
// returned register. hint names the variable the value is about to be
// assigned to, or is empty; a matching hint is what licenses the in-place
// immediate forms, so x = x + 5 mutates x's register directly while
// y = x + 5 copies first. The result is either a temporary the caller must
// release through freeIfTemp, or a register backing a live binding, which
// freeIfTemp leaves alone.
func (cg *CodeGen) lowerExpr(e Expr, hint string) (Reg, error) {
	switch n := e.(type) {
	case *Literal:
		return cg.lowerLiteral(n.Value)
	case *VarRef:
		return cg.lowerVarRef(n)
	case *IndexExpr:
		return cg.lowerIndexLoad(n)
	case *FunctionCall:
		return cg.lowerCall(n)
	case *UnaryExpr:
		return cg.lowerUnary(n)
	case *BinaryExpr:
		return cg.lowerBinary(n, hint)
	case *ArrayLit:
		return 0, fmt.Errorf("array literal outside a declaration: %w", ErrUnsupportedOperator)
	default:
		return 0, fmt.Errorf("codegen: unknown expression node %T", e)
	}
}

// lowerLiteral materializes an integer. Zero is free: the zero register
// already holds it. Negative values have no load form, so they are built by
// subtracting the magnitude from zero.
func (cg *CodeGen) lowerLiteral(v int) (Reg, error) {
	if v == 0 {
		return regZero, nil
	}
	if v > cg.spec.MaxImm() || v < -cg.spec.MaxImm() {
		return 0, fmt.Errorf("literal %d outside the representable range %d..%d",
			v, -cg.spec.MaxImm(), cg.spec.MaxImm())
	}
	dest, err := cg.regs.Acquire()
	if err != nil {
		return 0, err
	}
	if v > 0 {
		cg.op("LDI", dest.String(), strconv.Itoa(v))
	} else {
		cg.op("LDI", dest.String(), strconv.Itoa(-v))
		cg.op("SUB", dest.String(), regZero.String(), dest.String())
		cg.note(strconv.Itoa(v))
	}
	return dest, nil
}

// lowerVarRef resolves a name in value position. Register bindings cost
// nothing, memory bindings load into a fresh temporary, consts materialize
// through their DEF name. An undeclared name silently becomes a fresh
// zeroed register binding, unless the name once belonged to a const.
func (cg *CodeGen) lowerVarRef(n *VarRef) (Reg, error) {
	sym, ok := cg.syms.Lookup(n.Name)
	if !ok {
		if cg.syms.WasEverConst(n.Name) {
			return 0, fmt.Errorf("const %q is out of scope: %w", n.Name, ErrUnknownIdentifier)
		}
		auto, err := cg.autoAllocate(n.Name, true)
		if err != nil {
			return 0, err
		}
		return auto.Reg, nil
	}
	switch sym.Kind {
	case SymRegister:
		return sym.Reg, nil
	case SymMemory:
		dest, err := cg.regs.Acquire()
		if err != nil {
			return 0, err
		}
		if err := cg.loadScalar(dest, sym.Addr, n.Name); err != nil {
			cg.regs.Release(dest)
			return 0, err
		}
		return dest, nil
	case SymConst:
		return cg.materializeConst(sym)
	default:
		return 0, fmt.Errorf("array %q used as a scalar value: %w", n.Name, ErrUnsupportedOperator)
	}
}

// materializeConst loads a const's value, spelling the immediate with the
// DEF name whenever the instruction can carry it.
func (cg *CodeGen) materializeConst(sym *Symbol) (Reg, error) {
	if sym.Value == 0 {
		return regZero, nil
	}
	dest, err := cg.regs.Acquire()
	if err != nil {
		return 0, err
	}
	if sym.Value > 0 {
		cg.op("LDI", dest.String(), sym.Name)
	} else {
		cg.op("LDI", dest.String(), strconv.Itoa(-sym.Value))
		cg.op("SUB", dest.String(), regZero.String(), dest.String())
		cg.note(sym.Name)
	}
	return dest, nil
}

// autoAllocate gives an undeclared name a register binding in the current
// scope. Reads zero the register first, because a freed temporary may have
// left anything in it; writes skip that, the store follows immediately.
func (cg *CodeGen) autoAllocate(name string, zero bool) (*Symbol, error) {
	r, err := cg.regs.Acquire()
	if err != nil {
		return nil, err
	}
	if zero {
		cg.op("LDI", r.String(), "0")
		cg.note(name + " (auto)")
	}
	sym := &Symbol{Name: name, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: r}
	if err := cg.syms.Bind(sym); err != nil {
		cg.regs.Release(r)
		return nil, err
	}
	return sym, nil
}

// literalValue reports whether e denotes a compile-time value: an integer
// literal or a reference to a live const. The returned text is the operand
// spelling; consts keep their DEF name so the assembly stays symbolic.
func (cg *CodeGen) literalValue(e Expr) (text string, value int, ok bool) {
	switch n := e.(type) {
	case *Literal:
		return strconv.Itoa(n.Value), n.Value, true
	case *VarRef:
		if sym, found := cg.syms.Lookup(n.Name); found && sym.Kind == SymConst {
			return sym.Name, sym.Value, true
		}
	}
	return "", 0, false
}

// arithMnemonics maps operators the ALU implements to their mnemonic.
var arithMnemonics = map[TokenType]string{
	PLUS:  "ADD",
	MINUS: "SUB",
	AND:   "AND",
	PIPE:  "OR",
	CARET: "XOR",
}

// lowerBinary picks the cheapest lowering for a two-operand expression.
// identifier +/- literal collapses to one immediate add, commuted when the
// literal comes first; everything else evaluates both sides and runs the
// full register-register instruction into a fresh destination.
func (cg *CodeGen) lowerBinary(n *BinaryExpr, hint string) (Reg, error) {
	switch n.Op {
	case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		return 0, fmt.Errorf("comparison %s outside a condition: %w", n.Op, ErrUnsupportedOperator)
	case STAR, SLASH, PERCENT, SHL_OP, SHR_OP, AND_LOGICAL, OR_LOGICAL:
		return 0, fmt.Errorf("operator %s has no machine instruction: %w", n.Op, ErrUnsupportedOperator)
	}
	mnem, ok := arithMnemonics[n.Op]
	if !ok {
		return 0, fmt.Errorf("codegen: unknown binary operator %s", n.Op)
	}

	if n.Op == PLUS || n.Op == MINUS {
		if text, v, isLit := cg.literalValue(n.Right); isLit {
			if r, handled, err := cg.lowerImmediate(n.Op, n.Left, text, v, hint); handled || err != nil {
				return r, err
			}
		} else if n.Op == PLUS {
			// addition commutes, so 5 + x folds the same way as x + 5
			if text, v, isLit := cg.literalValue(n.Left); isLit {
				if r, handled, err := cg.lowerImmediate(PLUS, n.Right, text, v, hint); handled || err != nil {
					return r, err
				}
			}
		}
	}

	lr, err := cg.lowerExpr(n.Left, "")
	if err != nil {
		return 0, err
	}
	rr, err := cg.lowerExpr(n.Right, "")
	if err != nil {
		cg.freeIfTemp(lr)
		return 0, err
	}
	dest, err := cg.regs.Acquire()
	if err != nil {
		cg.freeIfTemp(lr)
		cg.freeIfTemp(rr)
		return 0, err
	}
	cg.op(mnem, dest.String(), lr.String(), rr.String())
	cg.freeIfTemp(lr)
	cg.freeIfTemp(rr)
	return dest, nil
}

// lowerImmediate handles identifier +/- compile-time value. The identifier
// is lowered once; if the result is being assigned straight back to that
// identifier the immediate add runs in place, otherwise it runs on a copy.
// Returns handled=false when the form does not apply, letting the general
// path take over.
func (cg *CodeGen) lowerImmediate(op TokenType, operand Expr, text string, v int, hint string) (Reg, bool, error) {
	ident, ok := operand.(*VarRef)
	if !ok {
		return 0, false, nil
	}
	if sym, found := cg.syms.Lookup(ident.Name); found && (sym.Kind == SymConst || sym.Kind == SymArray) {
		return 0, false, nil
	}
	imm, immText := v, text
	if op == MINUS {
		imm, immText = -v, strconv.Itoa(-v)
	}
	lo := -(1 << (cg.spec.ImmBits - 1))
	hi := (1 << (cg.spec.ImmBits - 1)) - 1
	if imm < lo || imm > hi {
		return 0, false, nil
	}

	r, err := cg.lowerVarRef(ident)
	if err != nil {
		return 0, false, err
	}
	if !cg.isTemp(r) && hint != ident.Name {
		dest, err := cg.regs.Acquire()
		if err != nil {
			return 0, false, err
		}
		cg.op("MOV", dest.String(), r.String())
		r = dest
	}
	cg.op("ADDI", r.String(), immText)
	return r, true, nil
}

// lowerUnary handles negation. Logical not has no machine form.
func (cg *CodeGen) lowerUnary(n *UnaryExpr) (Reg, error) {
	if n.Op != MINUS {
		return 0, fmt.Errorf("operator %s has no machine instruction: %w", n.Op, ErrUnsupportedOperator)
	}
	r, err := cg.lowerExpr(n.Right, "")
	if err != nil {
		return 0, err
	}
	if cg.isTemp(r) {
		cg.op("SUB", r.String(), regZero.String(), r.String())
		return r, nil
	}
	dest, err := cg.regs.Acquire()
	if err != nil {
		return 0, err
	}
	cg.op("SUB", dest.String(), regZero.String(), r.String())
	return dest, nil
}

// lowerCall implements the stack-slot calling convention: argument i is
// stored to [sp-i], the call runs, and the callee's result is read back from
// the shared return slot at [sp+1].
func (cg *CodeGen) lowerCall(n *FunctionCall) (Reg, error) {
	fn, ok := cg.functions[n.Name]
	if !ok {
		return 0, fmt.Errorf("call to undefined function %q: %w", n.Name, ErrUnknownIdentifier)
	}
	if len(n.Args) != fn.Params {
		return 0, fmt.Errorf("function %q takes %d arguments, got %d", n.Name, fn.Params, len(n.Args))
	}
	for i, a := range n.Args {
		r, err := cg.lowerExpr(a, "")
		if err != nil {
			return 0, err
		}
		cg.op("ST", r.String(), memOperand(regSP, -i))
		cg.note(fmt.Sprintf("arg %d of %s", i, n.Name))
		cg.freeIfTemp(r)
	}
	cg.op("CALL", fn.Label)
	dest, err := cg.regs.Acquire()
	if err != nil {
		return 0, err
	}
	cg.op("LD", dest.String(), memOperand(regSP, 1))
	cg.note(n.Name + " result")
	return dest, nil
}

// lowerIndexLoad reads one array element.
func (cg *CodeGen) lowerIndexLoad(n *IndexExpr) (Reg, error) {
	sym, err := cg.arraySymbol(n.Target)
	if err != nil {
		return 0, err
	}
	addr, off, desc, err := cg.lowerElementAddr(sym, n.Index)
	if err != nil {
		return 0, err
	}
	dest, err := cg.regs.Acquire()
	if err != nil {
		cg.freeIfTemp(addr)
		return 0, err
	}
	cg.op("LD", dest.String(), memOperand(addr, off))
	cg.note(desc)
	cg.freeIfTemp(addr)
	return dest, nil
}

// arraySymbol resolves the target of an index expression to an array
// binding.
func (cg *CodeGen) arraySymbol(target Expr) (*Symbol, error) {
	ident, ok := target.(*VarRef)
	if !ok {
		return nil, fmt.Errorf("only named arrays can be indexed: %w", ErrUnsupportedOperator)
	}
	sym, found := cg.syms.Lookup(ident.Name)
	if !found {
		return nil, fmt.Errorf("undefined array %q: %w", ident.Name, ErrUnknownIdentifier)
	}
	if sym.Kind != SymArray {
		return nil, fmt.Errorf("%q is not an array: %w", ident.Name, ErrUnsupportedOperator)
	}
	return sym, nil
}

// lowerElementAddr produces the register+offset pair that addresses one
// element. A compile-time index inside the offset window rides on the base
// register for free; outside the window the absolute address is known
// anyway and loads in one instruction. A computed index falls back to
// base-plus-index arithmetic with a zero offset. Compile-time indexes are
// bounds-checked here; computed ones are unchecked by design.
func (cg *CodeGen) lowerElementAddr(sym *Symbol, index Expr) (Reg, int, string, error) {
	if _, v, isLit := cg.literalValue(index); isLit {
		if v < 0 || v >= sym.Array.Length {
			return 0, 0, "", fmt.Errorf("index %d outside %s[0..%d]: %w",
				v, sym.Name, sym.Array.Length-1, ErrOutOfBounds)
		}
		desc := fmt.Sprintf("%s[%d]", sym.Name, v)
		if off, fits := cg.mem.offsetFor(sym.Array, v); fits {
			return sym.BaseReg, off, desc, nil
		}
		addr, err := cg.regs.Acquire()
		if err != nil {
			return 0, 0, "", err
		}
		cg.op("LDI", addr.String(), strconv.Itoa(sym.Array.Start+v))
		return addr, 0, desc, nil
	}

	start, err := cg.regs.Acquire()
	if err != nil {
		return 0, 0, "", err
	}
	cg.op("LDI", start.String(), strconv.Itoa(sym.Array.Start))
	cg.note(sym.Name)
	idx, err := cg.lowerExpr(index, "")
	if err != nil {
		cg.regs.Release(start)
		return 0, 0, "", err
	}
	addr, err := cg.regs.Acquire()
	if err != nil {
		cg.regs.Release(start)
		cg.freeIfTemp(idx)
		return 0, 0, "", err
	}
	cg.op("ADD", addr.String(), start.String(), idx.String())
	cg.regs.Release(start)
	cg.freeIfTemp(idx)
	return addr, 0, sym.Name + "[...]", nil
}

// comparison is a normalized relational operator. a<=b and a>b are rewritten
// with swapped operands so only four forms reach emission.
type comparison int

const (
	cmpEq comparison = iota
	cmpNe
	cmpLt
	cmpGe
)

func normalizeComparison(op TokenType) (cmp comparison, swap, ok bool) {
	switch op {
	case EQUALS:
		return cmpEq, false, true
	case NOT_EQ:
		return cmpNe, false, true
	case LESS:
		return cmpLt, false, true
	case GREATER_EQ:
		return cmpGe, false, true
	case GREATER:
		return cmpLt, true, true
	case LESS_EQ:
		return cmpGe, true, true
	}
	return 0, false, false
}

// lowerCondition evaluates cond and branches: control reaches trueLabel when
// it holds and falseLabel when it does not, never by fallthrough. A bare
// non-relational expression means "is nonzero". The flags feeding the
// branches come from the CMP immediately before them; nothing that touches
// flags may be emitted in between.
func (cg *CodeGen) lowerCondition(cond Expr, trueLabel, falseLabel string) error {
	if b, ok := cond.(*BinaryExpr); ok {
		if cmp, swap, rel := normalizeComparison(b.Op); rel {
			left, right := b.Left, b.Right
			if swap {
				left, right = right, left
			}
			lr, err := cg.lowerExpr(left, "")
			if err != nil {
				return err
			}
			rr, err := cg.lowerExpr(right, "")
			if err != nil {
				cg.freeIfTemp(lr)
				return err
			}
			cg.op("CMP", lr.String(), rr.String())
			cg.freeIfTemp(lr)
			cg.freeIfTemp(rr)
			switch cmp {
			case cmpEq:
				cg.op("JZ", trueLabel)
				cg.op("JMP", falseLabel)
			case cmpNe:
				cg.op("JNZ", trueLabel)
				cg.op("JMP", falseLabel)
			case cmpLt:
				cg.op("JN", trueLabel)
				cg.op("JMP", falseLabel)
			case cmpGe:
				cg.op("JN", falseLabel)
				cg.op("JMP", trueLabel)
			}
			return nil
		}
	}

	r, err := cg.lowerExpr(cond, "")
	if err != nil {
		return err
	}
	cg.op("CMP", r.String(), regZero.String())
	cg.freeIfTemp(r)
	cg.op("JNZ", trueLabel)
	cg.op("JMP", falseLabel)
	return nil
}
