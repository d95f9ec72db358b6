package compiler

import (
	"fmt"
	"strconv"
)

// lowerStmt dispatches one statement to its lowering.
func (cg *CodeGen) lowerStmt(s Stmt) error {
	switch n := s.(type) {
	case *VarDecl:
		return cg.lowerVarDecl(n)
	case *DestructuringDecl:
		return cg.lowerDestructuring(n)
	case *Assignment:
		return cg.lowerAssignment(n)
	case *ExprStmt:
		r, err := cg.lowerExpr(n.Expr, "")
		if err != nil {
			return err
		}
		cg.freeIfTemp(r)
		return nil
	case *BlockStmt:
		return cg.lowerBlock(n)
	case *IfStmt:
		return cg.lowerIf(n)
	case *WhileStmt:
		return cg.lowerWhile(n)
	case *DoWhileStmt:
		return cg.lowerDoWhile(n)
	case *ForStmt:
		return cg.lowerFor(n)
	case *ForEachStmt:
		return cg.lowerForEach(n)
	case *SwitchStmt:
		return cg.lowerSwitch(n)
	case *BreakStmt:
		target, err := cg.labels.BreakTarget()
		if err != nil {
			return err
		}
		cg.op("JMP", target)
		return nil
	case *ContinueStmt:
		target, err := cg.labels.ContinueTarget()
		if err != nil {
			return err
		}
		cg.op("JMP", target)
		return nil
	case *FunctionDecl:
		return cg.lowerFunction(n)
	case *ReturnStmt:
		return cg.lowerReturn(n)
	case *ThrowStmt:
		return cg.lowerThrow(n)
	case *TryStmt:
		return cg.lowerTry(n)
	default:
		return fmt.Errorf("codegen: unknown statement node %T", s)
	}
}

func (cg *CodeGen) lowerVarDecl(n *VarDecl) error {
	if lit, ok := n.Init.(*ArrayLit); ok && n.Kind != CONST {
		return cg.lowerArrayDecl(n.Name, lit)
	}
	switch n.Kind {
	case CONST:
		return cg.lowerConstDecl(n)
	case LET:
		if n.Init == nil {
			return cg.bindScalarLet(n.Name, &Literal{Value: 0})
		}
		return cg.bindScalarLet(n.Name, n.Init)
	default: // var
		return cg.bindScalarVar(n.Name, n.Init)
	}
}

// lowerConstDecl records a compile-time value and emits its DEF directive.
// The initializer must itself be compile-time: a literal or another const.
func (cg *CodeGen) lowerConstDecl(n *VarDecl) error {
	_, v, ok := cg.literalValue(n.Init)
	if !ok {
		return fmt.Errorf("const %q initializer must be a compile-time value", n.Name)
	}
	if v > cg.spec.MaxImm() || v < -cg.spec.MaxImm() {
		return fmt.Errorf("const %q value %d outside the representable range %d..%d",
			n.Name, v, -cg.spec.MaxImm(), cg.spec.MaxImm())
	}
	sym := &Symbol{Name: n.Name, Kind: SymConst, ScopeID: cg.scopes.Current(), Value: v}
	if err := cg.syms.Bind(sym); err != nil {
		return err
	}
	cg.buf.Define(n.Name, v)
	return nil
}

// bindScalarLet evaluates init and gives name a register binding. A
// temporary result is adopted as the variable's home register; a value that
// lives in another binding's register, or in the zero register, is copied
// out first.
func (cg *CodeGen) bindScalarLet(name string, init Expr) error {
	r, err := cg.lowerExpr(init, "")
	if err != nil {
		return err
	}
	if !cg.isTemp(r) {
		dest, err := cg.regs.Acquire()
		if err != nil {
			return err
		}
		cg.op("MOV", dest.String(), r.String())
		r = dest
	}
	cg.note(name)
	sym := &Symbol{Name: name, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: r}
	if err := cg.syms.Bind(sym); err != nil {
		cg.regs.Release(r)
		return err
	}
	return nil
}

// bindScalarVar gives name a data cell. The cell starts zeroed by the
// machine, so a missing initializer emits nothing.
func (cg *CodeGen) bindScalarVar(name string, init Expr) error {
	addr, err := cg.mem.AllocScalar()
	if err != nil {
		return err
	}
	if init != nil {
		r, err := cg.lowerExpr(init, "")
		if err != nil {
			return err
		}
		if err := cg.storeScalar(r, addr, name); err != nil {
			return err
		}
		cg.freeIfTemp(r)
	}
	sym := &Symbol{Name: name, Kind: SymMemory, ScopeID: cg.scopes.Current(), Addr: addr}
	return cg.syms.Bind(sym)
}

// lowerArrayDecl claims the cells, points a dedicated base register at the
// placement target and stores each element. Elements inside the offset
// window store through the base; stragglers of a long array go through their
// absolute address.
func (cg *CodeGen) lowerArrayDecl(name string, lit *ArrayLit) error {
	alloc, err := cg.mem.AllocArray(len(lit.Elems))
	if err != nil {
		return err
	}
	base, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	cg.op("LDI", base.String(), strconv.Itoa(alloc.Base()))
	if alloc.Length > 0 {
		cg.note(fmt.Sprintf("%s base, cells %d..%d", name, alloc.Start, alloc.Start+alloc.Length-1))
	} else {
		cg.note(name + " base, empty")
	}
	for i, el := range lit.Elems {
		r, err := cg.lowerExpr(el, "")
		if err != nil {
			cg.regs.Release(base)
			return err
		}
		if off, fits := cg.mem.offsetFor(alloc, i); fits {
			cg.op("ST", r.String(), memOperand(base, off))
		} else {
			taddr, err := cg.regs.Acquire()
			if err != nil {
				cg.regs.Release(base)
				return err
			}
			cg.op("LDI", taddr.String(), strconv.Itoa(alloc.Start+i))
			cg.op("ST", r.String(), memOperand(taddr, 0))
			cg.regs.Release(taddr)
		}
		cg.note(fmt.Sprintf("%s[%d]", name, i))
		cg.freeIfTemp(r)
	}
	sym := &Symbol{Name: name, Kind: SymArray, ScopeID: cg.scopes.Current(), Array: alloc, BaseReg: base}
	if err := cg.syms.Bind(sym); err != nil {
		cg.regs.Release(base)
		return err
	}
	return nil
}

// lowerDestructuring unpacks let [a, b] = [x, y] into per-name bindings,
// left to right. The right side must be an array literal of exactly matching
// length.
func (cg *CodeGen) lowerDestructuring(n *DestructuringDecl) error {
	lit, ok := n.Init.(*ArrayLit)
	if !ok {
		return fmt.Errorf("destructuring needs an array literal on the right: %w", ErrBadDestructuring)
	}
	if len(lit.Elems) != len(n.Names) {
		return fmt.Errorf("%d names but %d values: %w", len(n.Names), len(lit.Elems), ErrBadDestructuring)
	}
	for i, name := range n.Names {
		var err error
		if n.Kind == VAR {
			err = cg.bindScalarVar(name, lit.Elems[i])
		} else {
			err = cg.bindScalarLet(name, lit.Elems[i])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) lowerAssignment(n *Assignment) error {
	switch target := n.Left.(type) {
	case *VarRef:
		return cg.assignVar(target.Name, n.Value)
	case *IndexExpr:
		return cg.assignElement(target, n.Value)
	default:
		return fmt.Errorf("cannot assign to %s: %w", n.Left, ErrUnsupportedOperator)
	}
}

// assignVar stores a value into a named binding. The value is lowered with
// the target name as hint, so x = x + 5 comes back already folded into x's
// register and nothing more is emitted. Assigning to an undeclared name
// creates a register binding on the spot.
func (cg *CodeGen) assignVar(name string, value Expr) error {
	sym, found := cg.syms.Lookup(name)
	if found {
		switch sym.Kind {
		case SymConst:
			return fmt.Errorf("cannot assign to const %q: %w", name, ErrConstReassignment)
		case SymArray:
			return fmt.Errorf("cannot assign to array %q as a whole: %w", name, ErrUnsupportedOperator)
		}
	} else if cg.syms.WasEverConst(name) {
		return fmt.Errorf("cannot assign to const %q after its scope closed: %w", name, ErrConstReassignment)
	}

	r, err := cg.lowerExpr(value, name)
	if err != nil {
		return err
	}

	// lowering the value may itself have bound the name (x = x + 1 with x
	// undeclared reads x first), so resolve again before deciding
	sym, found = cg.syms.Lookup(name)
	if !found {
		if cg.isTemp(r) {
			cg.note(name)
			sym := &Symbol{Name: name, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: r}
			if err := cg.syms.Bind(sym); err != nil {
				cg.regs.Release(r)
				return err
			}
			return nil
		}
		dest, err := cg.regs.Acquire()
		if err != nil {
			return err
		}
		cg.op("MOV", dest.String(), r.String())
		cg.note(name)
		sym := &Symbol{Name: name, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: dest}
		if err := cg.syms.Bind(sym); err != nil {
			cg.regs.Release(dest)
			return err
		}
		return nil
	}

	switch sym.Kind {
	case SymRegister:
		if r == sym.Reg {
			return nil // folded in place by the hint
		}
		cg.op("MOV", sym.Reg.String(), r.String())
		cg.note(name)
		cg.freeIfTemp(r)
		return nil
	case SymMemory:
		if err := cg.storeScalar(r, sym.Addr, name); err != nil {
			return err
		}
		cg.freeIfTemp(r)
		return nil
	default:
		return fmt.Errorf("cannot assign to %q: %w", name, ErrUnsupportedOperator)
	}
}

// assignElement stores a value into one array element. The value is lowered
// before the address so the short-lived address temporaries do not sit
// across the value computation.
func (cg *CodeGen) assignElement(target *IndexExpr, value Expr) error {
	sym, err := cg.arraySymbol(target.Target)
	if err != nil {
		return err
	}
	r, err := cg.lowerExpr(value, "")
	if err != nil {
		return err
	}
	addr, off, desc, err := cg.lowerElementAddr(sym, target.Index)
	if err != nil {
		cg.freeIfTemp(r)
		return err
	}
	cg.op("ST", r.String(), memOperand(addr, off))
	cg.note(desc)
	cg.freeIfTemp(addr)
	cg.freeIfTemp(r)
	return nil
}

func (cg *CodeGen) lowerBlock(n *BlockStmt) error {
	cg.enterScope()
	for _, s := range n.Stmts {
		if err := cg.lowerStmt(s); err != nil {
			return err
		}
	}
	return cg.exitScope()
}

func (cg *CodeGen) lowerIf(n *IfStmt) error {
	lbl := cg.labels.NewLabelSet(LabelIf)
	falseTarget := lbl.End
	if n.Else != nil {
		falseTarget = lbl.Else
	}
	if err := cg.lowerCondition(n.Cond, lbl.Start, falseTarget); err != nil {
		return err
	}
	cg.label(lbl.Start)
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	if n.Else != nil {
		cg.op("JMP", lbl.End)
		cg.label(lbl.Else)
		if err := cg.lowerStmt(n.Else); err != nil {
			return err
		}
	}
	cg.label(lbl.End)
	return nil
}

func (cg *CodeGen) lowerWhile(n *WhileStmt) error {
	lbl := cg.labels.NewLabelSet(LabelWhile)
	cg.labels.PushBreak(lbl.End)
	cg.labels.PushContinue(lbl.Start)
	cg.label(lbl.Start)
	if err := cg.lowerCondition(n.Cond, lbl.Body, lbl.End); err != nil {
		return err
	}
	cg.label(lbl.Body)
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	cg.op("JMP", lbl.Start)
	cg.label(lbl.End)
	return cg.popLoopTargets()
}

// lowerDoWhile runs the body before the first test. continue targets the
// test, never the body, so a guarded continue still honors the loop
// condition.
func (cg *CodeGen) lowerDoWhile(n *DoWhileStmt) error {
	lbl := cg.labels.NewLabelSet(LabelDoWhile)
	cg.labels.PushBreak(lbl.End)
	cg.labels.PushContinue(lbl.Start)
	cg.label(lbl.Body)
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	cg.label(lbl.Start)
	if err := cg.lowerCondition(n.Cond, lbl.Body, lbl.End); err != nil {
		return err
	}
	cg.label(lbl.End)
	return cg.popLoopTargets()
}

func (cg *CodeGen) lowerFor(n *ForStmt) error {
	cg.enterScope() // the init clause lives for the whole loop
	if n.Init != nil {
		if err := cg.lowerStmt(n.Init); err != nil {
			return err
		}
	}
	lbl := cg.labels.NewLabelSet(LabelFor)
	cg.labels.PushBreak(lbl.End)
	cg.labels.PushContinue(lbl.Update)
	cg.label(lbl.Start)
	if n.Cond != nil {
		if err := cg.lowerCondition(n.Cond, lbl.Body, lbl.End); err != nil {
			return err
		}
	}
	cg.label(lbl.Body)
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	cg.label(lbl.Update)
	if n.Update != nil {
		if err := cg.lowerStmt(n.Update); err != nil {
			return err
		}
	}
	cg.op("JMP", lbl.Start)
	cg.label(lbl.End)
	if err := cg.popLoopTargets(); err != nil {
		return err
	}
	return cg.exitScope()
}

// lowerForEach compiles for-in and for-of as a counting loop over the
// array's compile-time length. The counter and limit live in registers the
// user cannot name; for-of additionally keeps the element address chain in
// two more. continue lands on the increment.
func (cg *CodeGen) lowerForEach(n *ForEachStmt) error {
	sym, err := cg.arraySymbol(n.Array)
	if err != nil {
		return err
	}
	kind := LabelForIn
	if n.Mode == OF {
		kind = LabelForOf
	}
	cg.enterScope()
	lbl := cg.labels.NewLabelSet(kind)

	counter, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	cg.op("LDI", counter.String(), "0")
	cg.note("index into " + sym.Name)
	limit, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	cg.op("LDI", limit.String(), strconv.Itoa(sym.Array.Length))
	cg.note("length of " + sym.Name)

	var start, addr Reg
	if n.Mode == OF {
		if start, err = cg.regs.Acquire(); err != nil {
			return err
		}
		cg.op("LDI", start.String(), strconv.Itoa(sym.Array.Start))
		cg.note(sym.Name)
		if addr, err = cg.regs.Acquire(); err != nil {
			return err
		}
	}

	vreg, err := cg.regs.Acquire()
	if err != nil {
		return err
	}
	loopVar := &Symbol{Name: n.Name, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: vreg}
	if err := cg.syms.Bind(loopVar); err != nil {
		cg.regs.Release(vreg)
		return err
	}

	cg.labels.PushBreak(lbl.End)
	cg.labels.PushContinue(lbl.Update)
	cg.label(lbl.Start)
	cg.op("CMP", counter.String(), limit.String())
	cg.op("JN", lbl.Body)
	cg.op("JMP", lbl.End)
	cg.label(lbl.Body)
	if n.Mode == OF {
		cg.op("ADD", addr.String(), start.String(), counter.String())
		cg.op("LD", vreg.String(), memOperand(addr, 0))
		cg.note(fmt.Sprintf("%s = next of %s", n.Name, sym.Name))
	} else {
		cg.op("MOV", vreg.String(), counter.String())
		cg.note(n.Name)
	}
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	cg.label(lbl.Update)
	cg.op("ADDI", counter.String(), "1")
	cg.op("JMP", lbl.Start)
	cg.label(lbl.End)
	if err := cg.popLoopTargets(); err != nil {
		return err
	}
	cg.regs.Release(counter, limit, start, addr)
	return cg.exitScope()
}

// lowerSwitch evaluates the discriminant once, runs every case test as a
// compare-and-branch, then lays the bodies out in order so a body without a
// break falls through into the next one.
func (cg *CodeGen) lowerSwitch(n *SwitchStmt) error {
	lbl := cg.labels.NewLabelSet(LabelSwitch)
	r, err := cg.lowerExpr(n.Target, "")
	if err != nil {
		return err
	}
	cg.label(lbl.Start)
	for i, c := range n.Cases {
		tv, err := cg.lowerExpr(c.Value, "")
		if err != nil {
			cg.freeIfTemp(r)
			return err
		}
		cg.op("CMP", r.String(), tv.String())
		cg.freeIfTemp(tv)
		cg.op("JZ", lbl.Case(i+1))
	}
	if n.HasDefault {
		cg.op("JMP", lbl.Default())
	} else {
		cg.op("JMP", lbl.End)
	}
	cg.freeIfTemp(r)

	cg.labels.PushBreak(lbl.End)
	cg.enterScope()
	for i, c := range n.Cases {
		cg.label(lbl.Case(i + 1))
		for _, s := range c.Body {
			if err := cg.lowerStmt(s); err != nil {
				return err
			}
		}
	}
	if n.HasDefault {
		cg.label(lbl.Default())
		for _, s := range n.Default {
			if err := cg.lowerStmt(s); err != nil {
				return err
			}
		}
	}
	if err := cg.exitScope(); err != nil {
		return err
	}
	if err := cg.labels.PopBreak(); err != nil {
		return err
	}
	cg.label(lbl.End)
	return nil
}

// lowerFunction emits the body inline behind a jump that skips it, so
// declarations can sit anywhere in the statement stream. Parameters load
// from the stack slots the caller filled, lowest offset first. A body whose
// own statement list never returns gets a bare return appended.
func (cg *CodeGen) lowerFunction(n *FunctionDecl) error {
	if _, exists := cg.functions[n.Name]; exists {
		return fmt.Errorf("function %q already declared: %w", n.Name, ErrDuplicateBinding)
	}
	if len(n.Params) > cg.spec.MaxParams() {
		return fmt.Errorf("function %q has %d parameters, the stack window fits %d",
			n.Name, len(n.Params), cg.spec.MaxParams())
	}
	lbl := cg.labels.NewFunctionLabels(n.Name)
	cg.functions[n.Name] = &functionInfo{Label: lbl.Start, Params: len(n.Params)}

	cg.blank()
	cg.op("JMP", lbl.End)
	cg.note("skip over " + n.Name)
	cg.label(lbl.Start)
	prev := cg.labels.SetFunction(n.Name)
	cg.inFunction = true
	cg.enterScope()
	for i, p := range n.Params {
		preg, err := cg.regs.Acquire()
		if err != nil {
			return err
		}
		cg.op("LD", preg.String(), memOperand(regSP, -i))
		cg.note("param " + p)
		sym := &Symbol{Name: p, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: preg}
		if err := cg.syms.Bind(sym); err != nil {
			cg.regs.Release(preg)
			return err
		}
	}
	implicit := true
	for _, s := range n.Body.Stmts {
		if _, ok := s.(*ReturnStmt); ok {
			implicit = false
		}
	}
	for _, s := range n.Body.Stmts {
		if err := cg.lowerStmt(s); err != nil {
			return err
		}
	}
	if implicit {
		cg.op("RET")
		cg.note("implicit return")
	}
	if err := cg.exitScope(); err != nil {
		return err
	}
	cg.inFunction = false
	cg.labels.SetFunction(prev)
	cg.label(lbl.End)
	return nil
}

// lowerReturn writes the value, if any, to the shared slot above the stack
// pointer. At top level there is no caller, so the program halts with its
// result parked in that slot.
func (cg *CodeGen) lowerReturn(n *ReturnStmt) error {
	if n.Expr != nil {
		r, err := cg.lowerExpr(n.Expr, "")
		if err != nil {
			return err
		}
		cg.op("ST", r.String(), memOperand(regSP, 1))
		cg.note("return value")
		cg.freeIfTemp(r)
	}
	if cg.inFunction {
		cg.op("RET")
	} else {
		cg.op("HLT")
		cg.note("return at top level")
	}
	return nil
}

// lowerThrow stores the thrown value into the same slot returns use and
// jumps to the innermost catch. With no handler anywhere, the program halts
// with the value still in the slot.
func (cg *CodeGen) lowerThrow(n *ThrowStmt) error {
	r, err := cg.lowerExpr(n.Expr, "")
	if err != nil {
		return err
	}
	cg.op("ST", r.String(), memOperand(regSP, 1))
	cg.note("thrown value")
	cg.freeIfTemp(r)
	if target, ok := cg.labels.CatchTarget(); ok {
		cg.op("JMP", target)
	} else {
		cg.op("HLT")
		cg.note("uncaught exception")
	}
	return nil
}

// lowerTry arms the catch handler for exactly the extent of the try block.
// The catch body reads the thrown value out of the shared slot into a fresh
// binding. A finally block runs on the fallthrough and catch paths.
func (cg *CodeGen) lowerTry(n *TryStmt) error {
	lbl := cg.labels.NewLabelSet(LabelTry)
	after := lbl.End
	if n.Finally != nil {
		after = lbl.Finally
	}
	cg.label(lbl.Start)
	if n.Catch != nil {
		cg.labels.PushCatch(lbl.Catch)
	}
	if err := cg.lowerStmt(n.Body); err != nil {
		return err
	}
	if n.Catch != nil {
		if err := cg.labels.PopCatch(); err != nil {
			return err
		}
	}
	cg.op("JMP", after)
	cg.note("no exception")
	if n.Catch != nil {
		cg.label(lbl.Catch)
		cg.enterScope()
		creg, err := cg.regs.Acquire()
		if err != nil {
			return err
		}
		cg.op("LD", creg.String(), memOperand(regSP, 1))
		cg.note("caught " + n.CatchName)
		sym := &Symbol{Name: n.CatchName, Kind: SymRegister, ScopeID: cg.scopes.Current(), Reg: creg}
		if err := cg.syms.Bind(sym); err != nil {
			cg.regs.Release(creg)
			return err
		}
		for _, s := range n.Catch.Stmts {
			if err := cg.lowerStmt(s); err != nil {
				return err
			}
		}
		if err := cg.exitScope(); err != nil {
			return err
		}
	}
	if n.Finally != nil {
		cg.label(lbl.Finally)
		if err := cg.lowerStmt(n.Finally); err != nil {
			return err
		}
	}
	cg.label(lbl.End)
	return nil
}
