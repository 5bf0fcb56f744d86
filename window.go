package ili9341

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/flavioheleno/ili9341/rgb565"
)

// CharInfo describes one rendered character cell. Data, XLoc and YLoc are
// parallel: either all have NumPixels entries or all are nil.
type CharInfo struct {
	Data          []rgb565.RGB565 // Color of each pixel
	XLoc, YLoc    []int           // Pixel offsets from the cursor
	XDim, YDim    int
	NumPixels     int
	Show          bool // false for placeholder characters
	CausesNewline bool
}

// Window is a rectangular drawing surface.
//
// Bounds are inclusive panel coordinates. The cursor and reset point are
// relative to the window's top-left corner and always lie inside the window.
type Window struct {
	xMin, yMin, xMax, yMax int
	cursorX, cursorY       int
	xReset, yReset         int

	buffered  bool
	buf       *rgb565.Image // owned, only in buffer mode
	shown     []byte        // buffer contents last sent by Show, nil if unknown
	numPixels int
	dynamic   bool

	colors []rgb565.RGB565 // nil until a sequence is set
	last   CharInfo
}

// Bounds returns the inclusive bounds of the window.
func (w *Window) Bounds() (xMin, yMin, xMax, yMax int) {
	return w.xMin, w.yMin, w.xMax, w.yMax
}

// Rect returns the window as a half-open image.Rectangle.
func (w *Window) Rect() image.Rectangle {
	return image.Rect(w.xMin, w.yMin, w.xMax+1, w.yMax+1)
}

// Width returns the number of columns covered by the window.
func (w *Window) Width() int {
	return w.xMax - w.xMin + 1
}

// Height returns the number of rows covered by the window.
func (w *Window) Height() int {
	return w.yMax - w.yMin + 1
}

// SetBounds moves the window. A buffered window keeps its buffer size unless
// it is dynamic, in which case the buffer is reallocated.
func (w *Window) SetBounds(xMin, yMin, xMax, yMax int) error {
	if xMin > xMax || yMin > yMax {
		return fmt.Errorf("ili9341: window (%d,%d)-(%d,%d): %w", xMin, yMin, xMax, yMax, ErrInvalidParam)
	}
	sameSize := xMax-xMin == w.xMax-w.xMin && yMax-yMin == w.yMax-w.yMin
	if w.buffered && !w.dynamic && !sameSize {
		return fmt.Errorf("ili9341: resize of static buffered window: %w", ErrInvalidParam)
	}
	w.xMin, w.yMin, w.xMax, w.yMax = xMin, yMin, xMax, yMax
	if w.buffered {
		if sameSize {
			// Keep pixel contents, only the origin moves. The panel area
			// under the new origin has not been written.
			w.buf.Rect = w.Rect()
			w.shown = nil
		} else {
			w.allocate()
		}
	}
	w.clampCursor()
	return nil
}

// Cursor returns the window-relative cursor position.
func (w *Window) Cursor() (x, y int) {
	return w.cursorX, w.cursorY
}

// SetCursor moves the cursor, clamped to the window.
func (w *Window) SetCursor(x, y int) {
	w.cursorX, w.cursorY = x, y
	w.clampCursor()
}

// ResetPoint returns the position the cursor returns to on a new line.
func (w *Window) ResetPoint() (x, y int) {
	return w.xReset, w.yReset
}

// SetResetPoint sets the reset point, clamped to the window.
func (w *Window) SetResetPoint(x, y int) {
	w.xReset = clamp(x, 0, w.xMax-w.xMin)
	w.yReset = clamp(y, 0, w.yMax-w.yMin)
}

// Newline returns the cursor to the reset column and advances it by the
// height of the last character, or one row when none was drawn.
func (w *Window) Newline() {
	dy := w.last.YDim
	if dy <= 0 {
		dy = 1
	}
	w.cursorX = w.xReset
	w.cursorY += dy
	if w.cursorY > w.yMax-w.yMin {
		w.cursorY = w.yReset
	}
	w.clampCursor()
}

func (w *Window) clampCursor() {
	w.cursorX = clamp(w.cursorX, 0, w.xMax-w.xMin)
	w.cursorY = clamp(w.cursorY, 0, w.yMax-w.yMin)
	w.xReset = clamp(w.xReset, 0, w.xMax-w.xMin)
	w.yReset = clamp(w.yReset, 0, w.yMax-w.yMin)
}

// Buffered reports whether pixel writes go to the owned buffer.
func (w *Window) Buffered() bool {
	return w.buffered
}

// Buffer returns the owned buffer, nil in direct mode.
func (w *Window) Buffer() *rgb565.Image {
	return w.buf
}

// NumPixels returns the number of pixels held by the owned buffer, 0 in
// direct mode.
func (w *Window) NumPixels() int {
	return w.numPixels
}

// SetBufferMode switches between buffered and direct drawing. Entering
// buffer mode allocates a cleared buffer; leaving it releases the buffer.
func (w *Window) SetBufferMode(on bool) {
	if on == w.buffered {
		return
	}
	w.buffered = on
	if on {
		w.allocate()
		return
	}
	w.buf = nil
	w.shown = nil
	w.numPixels = 0
}

func (w *Window) allocate() {
	w.buf = rgb565.NewImage(w.Rect())
	w.shown = nil
	w.numPixels = w.Width() * w.Height()
}

// Invalidate makes the next Show transfer the whole buffer. Call it after the
// panel area under the window was written by other means, such as Draw or a
// fill through another window.
func (w *Window) Invalidate() {
	w.shown = nil
}

// changed returns the smallest rectangle, in panel coordinates, holding every
// pixel that differs from what Show last sent.
func (w *Window) changed() image.Rectangle {
	if w.shown == nil {
		return w.Rect()
	}
	width, height := w.Width(), w.Height()
	stride := w.buf.Stride
	minX, minY, maxX, maxY := width, height, -1, -1

	for y := 0; y < height; y++ {
		row := w.buf.Pix[y*stride : y*stride+2*width]
		prev := w.shown[y*stride : y*stride+2*width]
		if bytes.Equal(row, prev) {
			continue
		}
		minY = min(minY, y)
		maxY = y
		for x := 0; x < width; x++ {
			if row[2*x] != prev[2*x] || row[2*x+1] != prev[2*x+1] {
				minX = min(minX, x)
				maxX = max(maxX, x)
			}
		}
	}
	if maxY < 0 {
		return image.Rectangle{}
	}
	return image.Rect(w.xMin+minX, w.yMin+minY, w.xMin+maxX+1, w.yMin+maxY+1)
}

// Dynamic reports whether the window may be resized after creation.
func (w *Window) Dynamic() bool {
	return w.dynamic
}

// SetDynamic allows or forbids resizing a buffered window.
func (w *Window) SetDynamic(dynamic bool) {
	w.dynamic = dynamic
}

// ColorSequenceSet reports whether a color sequence has been set.
func (w *Window) ColorSequenceSet() bool {
	return len(w.colors) > 0
}

// ColorSequence returns a copy of the color sequence, nil when unset.
func (w *Window) ColorSequence() []rgb565.RGB565 {
	if w.colors == nil {
		return nil
	}
	return append([]rgb565.RGB565(nil), w.colors...)
}

// SetColorSequence sets the colors cycled by sequence fills. Calling it with
// no colors returns the window to the unset state.
func (w *Window) SetColorSequence(colors ...color.Color) {
	if len(colors) == 0 {
		w.colors = nil
		return
	}
	w.colors = make([]rgb565.RGB565, len(colors))
	for i, c := range colors {
		w.colors[i] = rgb565.Model.Convert(c).(rgb565.RGB565)
	}
}

// LastCharacter returns the most recently drawn character.
func (w *Window) LastCharacter() CharInfo {
	return w.last
}

// SetLastCharacter records ci as the most recently drawn character.
func (w *Window) SetLastCharacter(ci CharInfo) error {
	if ci.Data == nil {
		if ci.XLoc != nil || ci.YLoc != nil {
			return fmt.Errorf("ili9341: character offsets without pixel data: %w", ErrInvalidParam)
		}
	} else if len(ci.XLoc) != len(ci.Data) || len(ci.YLoc) != len(ci.Data) || ci.NumPixels != len(ci.Data) {
		return fmt.Errorf("ili9341: character arrays differ in length: %w", ErrInvalidParam)
	}
	w.last = ci
	return nil
}

// SetWindowDefaults resets w to span the whole panel with the cursor and
// reset point at the origin, direct mode, no character history and an unset
// color sequence. It performs no I/O.
func (d *Dev) SetWindowDefaults(w *Window) {
	*w = Window{
		xMin: d.panel.StartCol,
		yMin: d.panel.StartRow,
		xMax: d.panel.StopCol,
		yMax: d.panel.StopRow,
	}
}

// Window returns the current window.
func (d *Dev) Window() *Window {
	return d.current
}

// SetWindow installs w as the current window.
func (d *Dev) SetWindow(w *Window) error {
	if err := d.checkWindow(w); err != nil {
		return err
	}
	d.current = w
	return nil
}

// UseWindow installs w as the current window until the returned function is
// called, which restores the previous one. Substitutions must not be nested
// out of order; the device is not safe for concurrent use.
func (d *Dev) UseWindow(w *Window) (restore func(), err error) {
	if err := d.checkWindow(w); err != nil {
		return nil, err
	}
	prev := d.current
	d.current = w
	return func() { d.current = prev }, nil
}

// withWindow runs fn with w as the current window and always restores the
// previous window, including when fn fails or panics.
func (d *Dev) withWindow(w *Window, fn func() error) error {
	prev := d.current
	d.current = w
	defer func() { d.current = prev }()
	return fn()
}

func (d *Dev) checkWindow(w *Window) error {
	if w == nil {
		return fmt.Errorf("ili9341: nil window: %w", ErrInvalidParam)
	}
	if w.xMin > w.xMax || w.yMin > w.yMax ||
		w.xMin < d.panel.StartCol || w.xMax > d.panel.StopCol ||
		w.yMin < d.panel.StartRow || w.yMax > d.panel.StopRow {
		return fmt.Errorf("ili9341: window (%d,%d)-(%d,%d) outside panel: %w", w.xMin, w.yMin, w.xMax, w.yMax, ErrInvalidParam)
	}
	return nil
}

// ClearDisplay fills the whole panel with black. The current window is left
// untouched: a temporary full-panel window is installed for the fill and the
// previous one is restored afterwards, even if the fill fails. A buffered
// window shown before must be invalidated to be repainted by its next Show.
func (d *Dev) ClearDisplay() error {
	var w Window
	return d.withWindow(&w, func() error {
		d.SetWindowDefaults(&w)
		return d.fillWindow(rgb565.Black)
	})
}

// FillWindow sets every pixel of the current window to c. In buffer mode the
// owned buffer is filled; call Show to transfer it. The cursor is not moved.
// The current window must have been installed by Begin or SetWindow.
func (d *Dev) FillWindow(c color.Color) error {
	return d.fillWindow(rgb565.Model.Convert(c).(rgb565.RGB565))
}

func (d *Dev) fillWindow(c rgb565.RGB565) error {
	if err := d.ready(); err != nil {
		return err
	}
	w := d.current
	if err := d.checkWindow(w); err != nil {
		return err
	}
	if w.buffered {
		w.buf.Fill(c)
		return nil
	}
	return d.memoryWrite(w.Rect(), func(int) rgb565.RGB565 { return c })
}

// FillWindowSequence fills the current window cycling through its color
// sequence pixel by pixel in row-major order. It fails with ErrColorUnset
// when no sequence was set.
func (d *Dev) FillWindowSequence() error {
	if err := d.ready(); err != nil {
		return err
	}
	w := d.current
	if err := d.checkWindow(w); err != nil {
		return err
	}
	if !w.ColorSequenceSet() {
		return ErrColorUnset
	}
	colors := w.colors
	next := func(i int) rgb565.RGB565 { return colors[i%len(colors)] }
	if w.buffered {
		for i := 0; i < w.numPixels; i++ {
			hi, lo := next(i).Bytes()
			w.buf.Pix[2*i], w.buf.Pix[2*i+1] = hi, lo
		}
		return nil
	}
	return d.memoryWrite(w.Rect(), next)
}

// Show transfers the owned buffer of the current window to the panel. Only
// the smallest rectangle covering the pixels changed since the previous Show
// is sent; nothing is sent when the buffer is unchanged. The first Show after
// the buffer is allocated, moved or invalidated sends the whole buffer. It is
// a no-op in direct mode.
func (d *Dev) Show() error {
	if err := d.ready(); err != nil {
		return err
	}
	w := d.current
	if err := d.checkWindow(w); err != nil {
		return err
	}
	if !w.buffered {
		return nil
	}
	r := w.changed()
	if r.Empty() {
		return nil
	}
	img, dx := w.buf, r.Dx()
	err := d.memoryWrite(r, func(i int) rgb565.RGB565 {
		return img.RGB565At(r.Min.X+i%dx, r.Min.Y+i/dx)
	})
	if err != nil {
		// The panel contents are unknown after a failed transfer.
		w.shown = nil
		return err
	}
	if w.shown == nil {
		w.shown = make([]byte, len(img.Pix))
	}
	copy(w.shown, img.Pix)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
