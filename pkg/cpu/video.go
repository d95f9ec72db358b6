package cpu

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// displayWidth is the pixel width of one framebuffer row: one bit per pixel
// of a 16-bit row word, bit 15 leftmost.
const displayWidth = 16

var (
	pixelOff = [4]byte{0x10, 0x12, 0x10, 0xFF}
	pixelOn  = [4]byte{0x3C, 0xE8, 0x6E, 0xFF}
)

// Display is the monochrome framebuffer mapped over the I/O region: one word
// per row, written and read by ordinary ST/LD instructions.
type Display struct {
	rows []uint16
}

// NewDisplay sizes the framebuffer to the spec's I/O window, one row per
// cell.
func NewDisplay(spec Spec) *Display {
	return &Display{rows: make([]uint16, spec.MemWords-spec.IOStart)}
}

func (d *Display) Read16(offset uint16) uint16 {
	if int(offset) >= len(d.rows) {
		return 0
	}
	return d.rows[offset]
}

func (d *Display) Write16(offset uint16, val uint16) {
	if int(offset) >= len(d.rows) {
		return
	}
	d.rows[offset] = val
}

func (d *Display) Step() {}

// Rows returns a copy of the raw row bitmasks. The console front-end renders
// these as ASCII.
func (d *Display) Rows() []uint16 {
	out := make([]uint16, len(d.rows))
	copy(out, d.rows)
	return out
}

// GetFramebufferRGBA decodes the framebuffer into an RGBA8888 byte slice,
// one pixel per bit.
func (d *Display) GetFramebufferRGBA() []byte {
	pixels := make([]byte, len(d.rows)*displayWidth*4)
	for y, row := range d.rows {
		for x := 0; x < displayWidth; x++ {
			px := pixelOff
			if row&(1<<(displayWidth-1-x)) != 0 {
				px = pixelOn
			}
			i := (y*displayWidth + x) * 4
			copy(pixels[i:i+4], px[:])
		}
	}
	return pixels
}

// GetFramebufferImage returns the framebuffer as an *image.RGBA.
func (d *Display) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    d.GetFramebufferRGBA(),
		Stride: displayWidth * 4,
		Rect:   image.Rect(0, 0, displayWidth, len(d.rows)),
	}
}

// SaveScreenshot encodes the framebuffer as a PNG scaled up by the given
// factor (nearest-neighbour, so pixels stay crisp) and writes it to filename.
func (d *Display) SaveScreenshot(filename string, scale int) error {
	if scale < 1 {
		scale = 1
	}
	src := d.GetFramebufferImage()
	dst := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx()*scale, src.Rect.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}
