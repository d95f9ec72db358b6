package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// SymbolKind is the storage class behind a bound name.
type SymbolKind int

const (
	SymRegister SymbolKind = iota // let: lives in a generic register
	SymMemory                     // var: lives in one data cell
	SymArray                      // array literal: data cells plus a base register
	SymConst                      // const: a compile-time value, emitted as DEF
)

var symbolKindNames = [...]string{"register", "memory", "array", "const"}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// Symbol is one binding of a name to storage. Which fields are meaningful
// depends on the kind: Reg for register bindings, Addr for memory bindings,
// Array and BaseReg for arrays, Value for consts.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	ScopeID int
	Reg     Reg
	Addr    int
	Array   ArrayAllocation
	BaseReg Reg
	Value   int
}

func (s *Symbol) describe() string {
	switch s.Kind {
	case SymRegister:
		return fmt.Sprintf("register %s", s.Reg)
	case SymMemory:
		return fmt.Sprintf("memory cell %d", s.Addr)
	case SymArray:
		return fmt.Sprintf("array cells %d..%d, base %d in %s",
			s.Array.Start, s.Array.Start+s.Array.Length-1, s.Array.Base(), s.BaseReg)
	case SymConst:
		return fmt.Sprintf("const %d", s.Value)
	}
	return "unknown"
}

// SymbolTable resolves names to bindings. Each name carries a stack of
// bindings, innermost last, so shadowing hides but does not destroy the outer
// binding; dropping a scope pops every binding tagged with its id. Const
// names are additionally recorded forever: once a name has been const it may
// never be bound again, because the assembler-level DEF substitution it
// produced is global to the output text.
type SymbolTable struct {
	bindings  map[string][]*Symbol
	byScope   map[int][]*Symbol
	everConst map[string]bool
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		bindings:  make(map[string][]*Symbol),
		byScope:   make(map[int][]*Symbol),
		everConst: make(map[string]bool),
	}
}

// Bind records a new binding in the scope named by sym.ScopeID. Rebinding a
// name inside its own scope is an error, as is binding any name a const ever
// reserved.
func (st *SymbolTable) Bind(sym *Symbol) error {
	if st.everConst[sym.Name] {
		return fmt.Errorf("%q is reserved by a const declaration: %w", sym.Name, ErrDuplicateBinding)
	}
	if bs := st.bindings[sym.Name]; len(bs) > 0 && bs[len(bs)-1].ScopeID == sym.ScopeID {
		return fmt.Errorf("%q already declared in this scope: %w", sym.Name, ErrDuplicateBinding)
	}
	st.bindings[sym.Name] = append(st.bindings[sym.Name], sym)
	st.byScope[sym.ScopeID] = append(st.byScope[sym.ScopeID], sym)
	if sym.Kind == SymConst {
		st.everConst[sym.Name] = true
	}
	return nil
}

// Lookup resolves a name to its innermost live binding.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	bs := st.bindings[name]
	if len(bs) == 0 {
		return nil, false
	}
	return bs[len(bs)-1], true
}

// IsConst reports whether the innermost live binding of name is a const.
func (st *SymbolTable) IsConst(name string) bool {
	sym, ok := st.Lookup(name)
	return ok && sym.Kind == SymConst
}

// WasEverConst reports whether name was const at any point of the
// compilation, live or not. The lowering core uses it to tell an undefined
// identifier, which auto-allocates, from an out-of-scope constant, which is
// an error.
func (st *SymbolTable) WasEverConst(name string) bool {
	return st.everConst[name]
}

// OwnsRegister reports whether r currently backs a live binding, either as a
// scalar's register or as an array's base. Expression lowering consults this
// to decide whether a result register is a temporary it must free.
func (st *SymbolTable) OwnsRegister(r Reg) bool {
	for _, bs := range st.bindings {
		for _, sym := range bs {
			switch sym.Kind {
			case SymRegister:
				if sym.Reg == r {
					return true
				}
			case SymArray:
				if sym.BaseReg == r {
					return true
				}
			}
		}
	}
	return false
}

// DropScope removes every binding tagged with the scope id and returns the
// registers those bindings held, in declaration order, for the caller to
// release. Memory cells and const reservations survive.
func (st *SymbolTable) DropScope(id int) []Reg {
	var released []Reg
	for _, sym := range st.byScope[id] {
		bs := st.bindings[sym.Name]
		for i := len(bs) - 1; i >= 0; i-- {
			if bs[i] == sym {
				st.bindings[sym.Name] = append(bs[:i], bs[i+1:]...)
				break
			}
		}
		switch sym.Kind {
		case SymRegister:
			released = append(released, sym.Reg)
		case SymArray:
			released = append(released, sym.BaseReg)
		}
	}
	delete(st.byScope, id)
	return released
}

// String dumps the live bindings sorted by name, for debugging and the
// compiler driver's stage output.
func (st *SymbolTable) String() string {
	names := make([]string, 0, len(st.bindings))
	for name, bs := range st.bindings {
		if len(bs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		bs := st.bindings[name]
		sym := bs[len(bs)-1]
		fmt.Fprintf(&sb, "%-16s scope %-3d %s\n", name, sym.ScopeID, sym.describe())
	}
	return sb.String()
}
