package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("Expected code NOT to contain %q, but it did.\nCode:\n%s", unexpected, code)
	}
}

func TestGenerate_Constants(t *testing.T) {
	code := generate(t, `
	const LIMIT = 10;
	let x = LIMIT;
	`)

	// The const is a directive, not a data cell, and its uses stay symbolic.
	assertContains(t, code, "DEF LIMIT, 10")
	assertContains(t, code, "LDI  r1, LIMIT")
	assertNotContains(t, code, "LDI  r1, 10")
}

func TestGenerate_ConstInImmediate(t *testing.T) {
	code := generate(t, `
	const STEP = 3;
	let x = 1;
	x = x + STEP;
	`)

	// A const on the right of +/- keeps its name in the immediate field.
	assertContains(t, code, "DEF STEP, 3")
	assertContains(t, code, "ADDI r1, STEP")
}

func TestGenerate_NegativeConst(t *testing.T) {
	code := generate(t, `
	const OFFSET = -4;
	let x = OFFSET;
	`)

	// Negative values have no load form; the magnitude is subtracted from
	// the zero register.
	assertContains(t, code, "DEF OFFSET, -4")
	assertContains(t, code, "LDI  r1, 4")
	assertContains(t, code, "SUB  r1, r0, r1")
}

func TestGenerate_ImmediateFolding(t *testing.T) {
	t.Run("assignment back to the same variable runs in place", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		x = x + 5;
		`)
		assertContains(t, code, "ADDI r1, 5")
		assertNotContains(t, code, "MOV")
	})

	t.Run("assignment to a different variable copies first", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		let y = 0;
		y = x + 5;
		`)
		// x lives in r1 and must survive, so the fold works on a copy.
		assertContains(t, code, "MOV  r3, r1")
		assertContains(t, code, "ADDI r3, 5")
	})

	t.Run("subtraction folds as a negative immediate", func(t *testing.T) {
		code := generate(t, `
		let x = 9;
		x = x - 4;
		`)
		assertContains(t, code, "ADDI r1, -4")
	})

	t.Run("literal on the left commutes", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		x = 5 + x;
		`)
		assertContains(t, code, "ADDI r1, 5")
	})

	t.Run("immediate outside the field uses the general path", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		x = x + 200;
		`)
		assertNotContains(t, code, "ADDI")
		assertContains(t, code, "LDI  r2, 200")
		assertContains(t, code, "ADD")
	})
}

func TestGenerate_Arrays(t *testing.T) {
	t.Run("short array rides on its base register", func(t *testing.T) {
		code := generate(t, `
		let a = [10, 20, 30];
		let v = a[1];
		`)
		assertContains(t, code, "LDI  r1, 0")
		assertContains(t, code, "ST   r2, [r1, 1]")
		assertContains(t, code, "LD   r2, [r1, 1]")
	})

	t.Run("long array places its base inside the window", func(t *testing.T) {
		var elems []string
		for i := 0; i < 20; i++ {
			elems = append(elems, fmt.Sprintf("%d", i))
		}
		code := generate(t, fmt.Sprintf(`
		let big = [%s];
		let first = big[0];
		let last = big[19];
		`, strings.Join(elems, ", ")))

		// Base cell 11 puts indexes 4..19 in the offset window; the first
		// four elements go through their absolute addresses.
		assertContains(t, code, "LDI  r1, 11")
		assertContains(t, code, "[r1, -7]")
		assertContains(t, code, "[r1, 8]")
	})

	t.Run("computed index adds into a fresh address register", func(t *testing.T) {
		code := generate(t, `
		let a = [1, 2, 3];
		let i = 2;
		let v = a[i];
		`)
		assertContains(t, code, "ADD  r4, r3, r2")
		assertContains(t, code, "LD   r3, [r4]")
	})

	t.Run("element store after value", func(t *testing.T) {
		code := generate(t, `
		let a = [0, 0];
		a[1] = 7;
		`)
		assertContains(t, code, "LDI  r2, 7")
		assertContains(t, code, "ST   r2, [r1, 1]")
	})
}

func TestGenerate_MemoryVars(t *testing.T) {
	t.Run("near cells ride on the zero register", func(t *testing.T) {
		code := generate(t, `
		var m = 7;
		let x = m;
		`)
		assertContains(t, code, "ST   r1, [r0]")
		assertContains(t, code, "LD   r1, [r0]")
	})

	t.Run("far cells load their address first", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&b, "var m%d = %d;\n", i, i+1)
		}
		code := generate(t, b.String())

		// Cell 9 is past the offset ceiling, so the store needs the
		// address materialized.
		assertContains(t, code, "LDI  r2, 9")
		assertContains(t, code, "ST   r1, [r2]")
	})

	t.Run("uninitialized var emits nothing", func(t *testing.T) {
		code := generate(t, `var m;`)
		assertNotContains(t, code, "ST")
	})
}

func TestGenerate_Conditions(t *testing.T) {
	t.Run("equality branches on zero", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		if (x == 1) { x = 2; }
		`)
		assertContains(t, code, "CMP  r1, r2\n    JZ   if_1_start\n    JMP  if_1_end")
		assertContains(t, code, "if_1_start:")
		assertContains(t, code, "if_1_end:")
	})

	t.Run("less-than branches on negative", func(t *testing.T) {
		code := generate(t, `
		let x = 1;
		if (x < 3) { x = 2; }
		`)
		assertContains(t, code, "JN   if_1_start")
	})

	t.Run("greater-than swaps its operands", func(t *testing.T) {
		code := generate(t, `
		let x = 5;
		if (x > 3) { x = 2; }
		`)
		// x > 3 compares 3 - x, so the literal is lowered first.
		assertContains(t, code, "CMP  r2, r1")
		assertContains(t, code, "JN   if_1_start")
	})

	t.Run("greater-equal inverts the branch sense", func(t *testing.T) {
		code := generate(t, `
		let x = 5;
		if (x >= 3) { x = 2; }
		`)
		assertContains(t, code, "JN   if_1_end\n    JMP  if_1_start")
	})

	t.Run("bare expression tests against zero", func(t *testing.T) {
		code := generate(t, `
		let x = 5;
		if (x) { x = 2; }
		`)
		assertContains(t, code, "CMP  r1, r0")
		assertContains(t, code, "JNZ  if_1_start")
	})
}

func TestGenerate_Functions(t *testing.T) {
	code := generate(t, `
	function add(a, b) {
		return a + b;
	}
	let r = add(2, 3);
	`)

	// Body sits behind a jump so the statement stream flows around it.
	assertContains(t, code, "JMP  func_add_1_end")
	assertContains(t, code, "func_add_1:")

	// Parameters come from the caller's stack slots, lowest offset first.
	assertContains(t, code, "LD   r1, [sp]")
	assertContains(t, code, "LD   r2, [sp, -1]")

	// The result travels through the shared slot above the stack pointer.
	assertContains(t, code, "ST   r3, [sp, 1]")
	assertContains(t, code, "RET")
	assertContains(t, code, "CALL func_add_1")
	assertContains(t, code, "LD   r1, [sp, 1]")
}

func TestGenerate_FunctionLabelsCarryTheirName(t *testing.T) {
	code := generate(t, `
	function f() {
		while (1) { break; }
		return 1;
	}
	let x = f();
	`)

	// Labels inside a function are prefixed with the function name so two
	// functions' loops cannot collide.
	assertContains(t, code, "f_while_2_start:")
	assertContains(t, code, "f_while_2_end:")
}

func TestGenerate_ImplicitReturn(t *testing.T) {
	code := generate(t, `
	function noop() {
		let x = 1;
	}
	noop();
	`)
	assertContains(t, code, "RET")
}

func TestGenerate_Switch(t *testing.T) {
	code := generate(t, `
	let x = 2;
	let r = 0;
	switch (x) {
	case 1:
		r = 10;
		break;
	case 2:
		r = 20;
		break;
	default:
		r = 99;
	}
	`)

	assertContains(t, code, "switch_1_start:")
	assertContains(t, code, "JZ   switch_1_case_1")
	assertContains(t, code, "JZ   switch_1_case_2")
	assertContains(t, code, "JMP  switch_1_default")
	assertContains(t, code, "switch_1_case_1:")
	assertContains(t, code, "switch_1_default:")
	assertContains(t, code, "switch_1_end:")
}

func TestGenerate_SwitchWithoutDefaultJumpsToEnd(t *testing.T) {
	code := generate(t, `
	let x = 5;
	switch (x) {
	case 1:
		x = 10;
		break;
	}
	`)
	assertContains(t, code, "JMP  switch_1_end")
	assertNotContains(t, code, "switch_1_default")
}

func TestGenerate_TryCatch(t *testing.T) {
	code := generate(t, `
	try {
		throw 7;
	} catch (e) {
		let x = e;
	}
	`)

	assertContains(t, code, "try_1_start:")
	// throw parks the value in the shared slot and jumps to the handler
	assertContains(t, code, "ST   r1, [sp, 1]")
	assertContains(t, code, "JMP  try_1_catch")
	// the fallthrough path skips the handler
	assertContains(t, code, "JMP  try_1_end")
	assertContains(t, code, "try_1_catch:")
	assertContains(t, code, "LD   r1, [sp, 1]")
}

func TestGenerate_UncaughtThrowHalts(t *testing.T) {
	code := generate(t, `throw 5;`)
	assertContains(t, code, "ST   r1, [sp, 1]")
	assertContains(t, code, "HLT")
	assertNotContains(t, code, "JMP")
}

func TestGenerate_TryFinally(t *testing.T) {
	code := generate(t, `
	try {
		let x = 1;
	} finally {
		let y = 2;
	}
	`)
	assertContains(t, code, "JMP  try_1_finally")
	assertContains(t, code, "try_1_finally:")
	assertContains(t, code, "try_1_end:")
}

func TestGenerate_ForEach(t *testing.T) {
	t.Run("for-of walks the elements", func(t *testing.T) {
		code := generate(t, `
		let a = [1, 2, 3];
		let s = 0;
		for (v of a) { s = s + v; }
		`)
		assertContains(t, code, "forof_1_start:")
		assertContains(t, code, "CMP  r3, r4")
		assertContains(t, code, "JN   forof_1_body")
		assertContains(t, code, "forof_1_update:")
		assertContains(t, code, "ADDI r3, 1")
		assertContains(t, code, "JMP  forof_1_start")
	})

	t.Run("for-in copies the counter", func(t *testing.T) {
		code := generate(t, `
		let a = [5, 6];
		let s = 0;
		for (i in a) { s = s + i; }
		`)
		assertContains(t, code, "forin_1_start:")
		assertContains(t, code, "MOV  r7, r3")
	})
}

func TestGenerate_ContinueInSwitchTargetsLoop(t *testing.T) {
	code := generate(t, `
	let i = 0;
	let s = 0;
	while (i < 5) {
		i = i + 1;
		switch (i) {
		case 2:
			continue;
		}
		s = s + 1;
	}
	`)

	// break belongs to the switch, continue to the enclosing while.
	assertContains(t, code, "JMP  while_1_start")
	assertContains(t, code, "switch_2_end:")
}

func TestGenerate_TopLevelReturnHalts(t *testing.T) {
	code := generate(t, `return 9;`)
	assertContains(t, code, "ST   r1, [sp, 1]")
	assertContains(t, code, "HLT")
	assertNotContains(t, code, "RET")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"Const Reassignment", "const C = 1; C = 2;", ErrConstReassignment},
		{"Const Read After Scope", "{ const C = 1; } let x = C;", ErrUnknownIdentifier},
		{"Const Write After Scope", "{ const C = 1; } C = 5;", ErrConstReassignment},
		{"Const Name Reuse", "{ const C = 1; } let C = 2;", ErrDuplicateBinding},
		{"Duplicate Binding", "let x = 1; let x = 2;", ErrDuplicateBinding},
		{"Index Out Of Bounds", "let a = [1, 2]; let v = a[5];", ErrOutOfBounds},
		{"Negative Index", "let a = [1, 2]; let v = a[-1];", ErrOutOfBounds},
		{"Multiplication Unsupported", "let x = 2 * 3;", ErrUnsupportedOperator},
		{"Division Unsupported", "let x = 6 / 2;", ErrUnsupportedOperator},
		{"Shift Unsupported", "let x = 1 << 2;", ErrUnsupportedOperator},
		{"Logical And Unsupported", "let x = 1 && 2;", ErrUnsupportedOperator},
		{"Comparison Outside Condition", "let x = 1 < 2;", ErrUnsupportedOperator},
		{"Array As Scalar", "let a = [1]; let b = a + a;", ErrUnsupportedOperator},
		{"Assign To Whole Array", "let a = [1, 2]; a = 5;", ErrUnsupportedOperator},
		{"Index Into Scalar", "let x = 1; let v = x[0];", ErrUnsupportedOperator},
		{"Break Outside Loop", "break;", ErrEmptyHandlerStack},
		{"Continue Outside Loop", "continue;", ErrEmptyHandlerStack},
		{"Undefined Function", "let x = nope(1);", ErrUnknownIdentifier},
		{"Destructuring Non-Literal", "let a = [1, 2]; let [x, y] = a;", ErrBadDestructuring},
		{"Destructuring Length Mismatch", "let [x, y] = [1];", ErrBadDestructuring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileErr(t, tt.source)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestGenerate_RegisterExhaustion(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "let a%d = 1;\n", i)
	}
	err := compileErr(t, b.String())
	if !errors.Is(err, ErrOutOfRegisters) {
		t.Errorf("expected register exhaustion, got: %v", err)
	}
}

func TestGenerate_MemoryExhaustion(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 225; i++ {
		fmt.Fprintf(&b, "var m%d;\n", i)
	}
	err := compileErr(t, b.String())
	if !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("expected memory exhaustion, got: %v", err)
	}
}

func TestGenerate_LiteralRange(t *testing.T) {
	err := compileErr(t, "let x = 300;")
	if !strings.Contains(err.Error(), "outside the representable range") {
		t.Errorf("expected a range error, got: %v", err)
	}
}

func TestGenerate_ArgumentCountMismatch(t *testing.T) {
	err := compileErr(t, `
	function f(a) { return a; }
	let x = f(1, 2);
	`)
	if !strings.Contains(err.Error(), "takes 1 arguments, got 2") {
		t.Errorf("expected an arity error, got: %v", err)
	}
}

func TestGenerate_TooManyParams(t *testing.T) {
	err := compileErr(t, `
	function f(a, b, c, d, e, f, g, h, i) { return 0; }
	`)
	if !strings.Contains(err.Error(), "parameters") {
		t.Errorf("expected a parameter-count error, got: %v", err)
	}
}
