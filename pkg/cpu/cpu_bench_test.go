package cpu

import "testing"

// BenchmarkStep measures the raw fetch-decode-execute loop on a tight
// counting program.
func BenchmarkStep(b *testing.B) {
	s := DefaultSpec()
	c := NewCPU(s)
	// r1 counts up forever; the budget in the loop below ends each pass.
	if err := c.LoadProgram([]uint16{
		EncodeRI(OpADDI, 1, 1),
		EncodeJump(CondAlways, 0),
	}); err != nil {
		b.Fatalf("LoadProgram: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Step(); err != nil {
			b.Fatalf("Step: %v", err)
		}
	}
}

func BenchmarkRunLoop(b *testing.B) {
	s := DefaultSpec()
	for i := 0; i < b.N; i++ {
		c := NewCPU(s)
		// Count r1 down from 200 to zero, then halt.
		if err := c.LoadProgram([]uint16{
			EncodeRI(OpLDI, 1, 200),
			EncodeRI(OpADDI, 1, 0xFF), // -1
			EncodeJump(CondNotZero, 1),
			OpHLT << 12,
		}); err != nil {
			b.Fatalf("LoadProgram: %v", err)
		}
		if err := c.Run(1000); err != nil {
			b.Fatalf("Run: %v", err)
		}
	}
}
