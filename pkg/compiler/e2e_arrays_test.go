package compiler

import (
	"fmt"
	"testing"
)

func TestArrayIndexing_E2E(t *testing.T) {
	tests := []struct {
		index    int
		expected uint16
	}{
		{0, 10},
		{1, 20},
		{3, 40},
	}
	for _, tt := range tests {
		src := fmt.Sprintf(`
		let a = [10, 20, 30, 40];
		return a[%d];
		`, tt.index)
		vm := runCode(t, src)
		if resultSlot(vm) != tt.expected {
			t.Errorf("a[%d]: expected %d, got %d", tt.index, tt.expected, resultSlot(vm))
		}
	}
}

func TestArrayElementUpdate_E2E(t *testing.T) {
	src := `
	let a = [10, 20, 30];
	a[1] = 50;
	return a[1];
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 50 {
		t.Errorf("expected 50, got %d", resultSlot(vm))
	}
}

func TestComputedIndex_E2E(t *testing.T) {
	src := `
	let a = [10, 20, 30];
	let i = 1;
	return a[i + 1];
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 30 {
		t.Errorf("expected 30, got %d", resultSlot(vm))
	}
}

func TestArrayRewriteInLoop_E2E(t *testing.T) {
	src := `
	let a = [1, 2, 3, 4, 5];
	let i = 0;
	while (i < 5) {
		a[i] = a[i] + 2;
		i = i + 1;
	}
	let sum = 0;
	for (let v of a) {
		sum = sum + v;
	}
	return sum;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 25 {
		t.Errorf("expected 25, got %d", resultSlot(vm))
	}
}

func TestLargeArrayAddressing_E2E(t *testing.T) {
	// Twenty cells put the tail well past the +8 offset window, so both
	// windowed and absolute addressing get exercised.
	src := `
	let big = [10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10];
	big[2] = 40;
	let sum = 0;
	for (let v of big) {
		sum = sum + v;
	}
	return sum;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 230 {
		t.Errorf("expected 230, got %d", resultSlot(vm))
	}
}

func TestForInSumsIndexes_E2E(t *testing.T) {
	src := `
	let a = [7, 8, 9];
	let sum = 0;
	for (let k in a) {
		sum = sum + k;
	}
	return sum;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 3 {
		t.Errorf("expected 3, got %d", resultSlot(vm))
	}
}

func TestForOfSumsValues_E2E(t *testing.T) {
	src := `
	let a = [3, 6, 9];
	let sum = 0;
	for (let v of a) {
		sum = sum + v;
	}
	return sum;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 18 {
		t.Errorf("expected 18, got %d", resultSlot(vm))
	}
}

func TestDestructuringIntoMemory_E2E(t *testing.T) {
	src := `
	var [m, n] = [4, 5];
	return m + n;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 9 {
		t.Errorf("expected 9, got %d", resultSlot(vm))
	}
}

func TestEmptyArrayForOf_E2E(t *testing.T) {
	src := `
	let a = [];
	let count = 0;
	for (let v of a) {
		count = count + 1;
	}
	return count;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 0 {
		t.Errorf("expected 0, got %d", resultSlot(vm))
	}
}

func TestForInWritesThenForOfReads_E2E(t *testing.T) {
	// The for-in body rewrites each element through its index; the second
	// loop observes the updates.
	src := `
	let a = [5, 10, 15];
	for (let i in a) {
		a[i] = a[i] + 2;
	}
	let total = 0;
	for (let v of a) {
		total = total + v;
	}
	return total;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 36 {
		t.Errorf("expected 36, got %d", resultSlot(vm))
	}
}
