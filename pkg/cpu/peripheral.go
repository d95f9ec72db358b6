package cpu

// Peripheral is a memory-mapped device serving the I/O region. Offsets are
// relative to IOStart. Step is called once per executed instruction.
type Peripheral interface {
	Read16(offset uint16) uint16
	Write16(offset uint16, val uint16)
	Step()
}
