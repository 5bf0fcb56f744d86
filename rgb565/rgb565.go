package rgb565

import (
	"image"
	"image/color"
)

// RGB565 is a packed 16-bit color: 5 bits red, 6 bits green, 5 bits blue.
type RGB565 uint16

// Black is the all-zero color.
const Black RGB565 = 0

// New packs 8-bit channels into an RGB565, dropping the low bits.
func New(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA converts the RGB565 color to standard RGBA.
// Each channel is scaled so that its maximum maps to 0xFFFF.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r = uint32(c>>11&0x1F) * 0xFFFF / 0x1F
	g = uint32(c>>5&0x3F) * 0xFFFF / 0x3F
	b = uint32(c&0x1F) * 0xFFFF / 0x1F
	return r, g, b, 0xFFFF
}

// Bytes returns the color in panel byte order (high byte first).
func (c RGB565) Bytes() (hi, lo byte) {
	return byte(c >> 8), byte(c)
}

// toRGB565 converts any color.Color to RGB565.
func toRGB565(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB565(uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11))
}

// Model converts colors to RGB565.
var Model = color.ModelFunc(toRGB565)

// Image is an RGB565 image stored in panel byte order.
// Each pixel occupies 2 bytes: high byte first.
type Image struct {
	Pix    []byte          // Pixel data (2 bytes per pixel)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewImage creates a new Image with the specified bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	return &Image{
		Pix:    make([]byte, 2*w*h),
		Stride: 2 * w,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the RGB565 color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) RGB565 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Black
	}
	i := p.PixOffset(x, y)
	return RGB565(p.Pix[i])<<8 | RGB565(p.Pix[i+1])
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(RGB565))
}

// SetRGB565 sets the RGB565 color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c RGB565) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i], p.Pix[i+1] = c.Bytes()
}

// Fill sets every pixel of the image to c.
func (p *Image) Fill(c RGB565) {
	hi, lo := c.Bytes()
	for i := 0; i+1 < len(p.Pix); i += 2 {
		p.Pix[i], p.Pix[i+1] = hi, lo
	}
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}
