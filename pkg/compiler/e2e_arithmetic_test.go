package compiler

import (
	"fmt"
	"testing"
)

func TestArithmetic_E2E(t *testing.T) {
	tests := []struct {
		expr     string
		expected int
	}{
		{"2 + 3", 5},
		{"10 - 3", 7},
		{"1 + 2 + 3 + 4", 10},
		{"(10 - 4) - (3 - 1)", 4},
		{"100 + 100", 200},
		{"255 - 255", 0},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("return %s;", tt.expr)
		vm := runCode(t, src)
		if int(resultSlot(vm)) != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, resultSlot(vm))
		}
	}
}

func TestBitwise_E2E(t *testing.T) {
	tests := []struct {
		expr     string
		expected int
	}{
		{"12 & 10", 8},
		{"12 | 3", 15},
		{"12 ^ 10", 6},
		{"0x0F & 0x09", 9},
		{"0xF0 | 0x0F", 255},
		{"0xFF ^ 0x0F", 0xF0},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("return %s;", tt.expr)
		vm := runCode(t, src)
		if int(resultSlot(vm)) != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, resultSlot(vm))
		}
	}
}

func TestNegativeResults_E2E(t *testing.T) {
	tests := []struct {
		expr     string
		expected int16
	}{
		{"7 - 10", -3},
		{"0 - 1", -1},
		{"-5 + 2", -3},
		{"0 - 255", -255},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("return %s;", tt.expr)
		vm := runCode(t, src)
		if int16(resultSlot(vm)) != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, int16(resultSlot(vm)))
		}
	}
}

func TestSixteenBitWrap_E2E(t *testing.T) {
	src := `
	let x = 0 - 1;
	return x;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 0xFFFF {
		t.Errorf("expected 0xFFFF, got 0x%X", resultSlot(vm))
	}
}

func TestRepeatedDoubling_E2E(t *testing.T) {
	// 200 doubled nine times is 102400, which wraps to 36864 in 16 bits.
	src := `
	let x = 200;
	let i = 0;
	while (i < 9) {
		x = x + x;
		i = i + 1;
	}
	return x;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 36864 {
		t.Errorf("expected 36864, got %d", resultSlot(vm))
	}
}

func TestConstArithmetic_E2E(t *testing.T) {
	src := `
	const A = 6;
	const B = 7;
	let x = A + B;
	return x;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 13 {
		t.Errorf("expected 13, got %d", resultSlot(vm))
	}
}

func TestLargestLiteral_E2E(t *testing.T) {
	src := `
	let x = 255;
	return x;
	`
	vm := runCode(t, src)
	if resultSlot(vm) != 255 {
		t.Errorf("expected 255, got %d", resultSlot(vm))
	}
}
