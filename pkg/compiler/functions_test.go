package compiler

import (
	"fmt"
	"testing"
)

func TestFunctionCall_E2E(t *testing.T) {
	src := `
	function answer() {
		return 42;
	}
	return answer();
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 42 {
		t.Errorf("expected 42, got %d", resultSlot(vm))
	}
}

func TestFunctionArguments_E2E(t *testing.T) {
	src := `
	function add(a, b) {
		return a + b;
	}
	return add(5, 3);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 8 {
		t.Errorf("expected 8, got %d", resultSlot(vm))
	}
}

func TestArgumentExpressions_E2E(t *testing.T) {
	src := `
	function add(a, b) {
		return a + b;
	}
	let x = 4;
	return add(x + 1, x - 1);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 8 {
		t.Errorf("expected 8, got %d", resultSlot(vm))
	}
}

func TestChainedCalls_E2E(t *testing.T) {
	src := `
	function inc(n) {
		return n + 1;
	}
	function twice(n) {
		let a = inc(n);
		return inc(a);
	}
	return twice(3);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 5 {
		t.Errorf("expected 5, got %d", resultSlot(vm))
	}
}

func TestFunctionWithLoop_E2E(t *testing.T) {
	src := `
	function mul(a, b) {
		let acc = 0;
		let i = 0;
		while (i < b) {
			acc = acc + a;
			i = i + 1;
		}
		return acc;
	}
	return mul(6, 7);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 42 {
		t.Errorf("expected 42, got %d", resultSlot(vm))
	}
}

func TestEarlyReturn_E2E(t *testing.T) {
	// Results land in memory-backed vars because a later call overwrites
	// whatever registers the previous call result was sitting in.
	src := `
	function clamp(n) {
		if (n > 10) {
			return 10;
		}
		return n;
	}
	var lo = 0;
	var hi = 0;
	lo = clamp(3);
	hi = clamp(12);
	return lo + hi;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 13 {
		t.Errorf("expected 13, got %d", resultSlot(vm))
	}
}

func TestMaxParams_E2E(t *testing.T) {
	src := `
	function f8(a, b, c, d, e, f, g, h) {
		return a + h;
	}
	return f8(1, 2, 3, 4, 5, 6, 7, 8);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 9 {
		t.Errorf("expected 9, got %d", resultSlot(vm))
	}
}

func TestImplicitReturnYieldsZero_E2E(t *testing.T) {
	src := `
	function noop() {
		let x = 1;
	}
	var a = 0;
	a = noop();
	return a + 5;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 5 {
		t.Errorf("expected 5, got %d", resultSlot(vm))
	}
}

func TestFunctionLocalTryCatch_E2E(t *testing.T) {
	tests := []struct {
		arg      int
		expected int
	}{
		{5, 6},
		{0, 0},
	}
	for _, tt := range tests {
		src := fmt.Sprintf(`
		function safeInc(n) {
			try {
				if (n == 0) {
					throw 1;
				}
				return n + 1;
			} catch (e) {
				return 0;
			}
		}
		return safeInc(%d);
		`, tt.arg)
		vm := runCode(t, src)
		if int(resultSlot(vm)) != tt.expected {
			t.Errorf("safeInc(%d): expected %d, got %d", tt.arg, tt.expected, resultSlot(vm))
		}
	}
}

func TestRecursionUnwinds_E2E(t *testing.T) {
	src := `
	function down(n) {
		if (n == 0) {
			return 99;
		}
		return down(n - 1);
	}
	return down(5);
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 99 {
		t.Errorf("expected 99, got %d", resultSlot(vm))
	}
}

func TestSharedReturnSlot_E2E(t *testing.T) {
	// The throw slot and the return slot are the same cell, so a caught
	// value must be moved aside before the next call overwrites it.
	src := `
	function f() {
		return 42;
	}
	var a = 0;
	try {
		throw 7;
	} catch (e) {
		a = e;
	}
	let r = f();
	return a + r;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 49 {
		t.Errorf("expected 49, got %d", resultSlot(vm))
	}
}
