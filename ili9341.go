package ili9341

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/flavioheleno/ili9341/internal/log"
	"github.com/flavioheleno/ili9341/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"
)

// DefaultFrequency is the SPI clock used when Begin is given 0.
const DefaultFrequency = 10 * physic.MegaHertz

// DefaultBacklightFrequency is the PWM frequency of the backlight line.
const DefaultBacklightFrequency = 12 * physic.KiloHertz

// maxChunk bounds a single data transfer when the bus reports no limit.
const maxChunk = 4096

var (
	// ErrNotReady is returned when the bus has not been connected by Begin.
	ErrNotReady = errors.New("ili9341: not ready")
	// ErrHalted is returned by drawing operations after Halt.
	ErrHalted = errors.New("ili9341: halted")
	// ErrInvalidParam is wrapped by geometry, panel table and window errors.
	ErrInvalidParam = errors.New("ili9341: invalid parameter")
	// ErrColorUnset is returned by sequence fills on a window with no colors.
	ErrColorUnset = errors.New("ili9341: color sequence unset")
)

// Opts is the configuration for the ILI9341 display.
type Opts struct {
	// Panel table (default: PanelILI9341)
	Panel *Panel

	// Optional hardware reset pin (nil or gpio.INVALID if not used)
	RST gpio.PinOut

	// Used by NewSPI only; see Begin.
	CS gpio.PinOut      // Chip select (nil if driven by the SPI port)
	BL gpio.PinOut      // Backlight (nil if not connected)
	Hz physic.Frequency // SPI clock (default: DefaultFrequency)

	BacklightHz physic.Frequency // Backlight PWM (default: DefaultBacklightFrequency)
}

// Dev is the device handle for an ILI9341 based TFT panel.
//
// Dev is not safe for concurrent use. Drawing operations act on the current
// window, which is owned by the calling goroutine.
type Dev struct {
	panel Panel
	rect  image.Rectangle

	// Communication
	c    spi.Conn
	dc   gpio.PinOut
	cs   gpio.PinOut
	bl   gpio.PinOut
	rst  gpio.PinOut
	hz   physic.Frequency
	blHz physic.Frequency

	// Windows
	def     Window  // panel default, lives as long as the device
	current *Window // target of drawing operations

	// Vertical scrolling fixed areas, in lines
	scrollTop, scrollBottom int

	sleep  func(time.Duration)
	halted bool
}

var (
	_ display.Drawer    = (*Dev)(nil)
	_ drivers.Displayer = (*Dev)(nil)
)

// New creates a device for the panel described by opts without touching the
// hardware. Call Begin to bring the panel up.
//
// opts can be nil to use defaults (bare ILI9341 240x320 module).
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	panel := PanelILI9341
	if opts.Panel != nil {
		panel = *opts.Panel
	}
	if err := panel.Validate(); err != nil {
		return nil, err
	}
	blHz := opts.BacklightHz
	if blHz == 0 {
		blHz = DefaultBacklightFrequency
	}
	return &Dev{
		panel: panel,
		rect:  image.Rect(panel.StartCol, panel.StartRow, panel.StopCol+1, panel.StopRow+1),
		rst:   opts.RST,
		blHz:  blHz,
		sleep: time.Sleep,
	}, nil
}

// NewSPI creates a device and brings it up in one call, using opts.CS,
// opts.BL and opts.Hz for Begin.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := d.Begin(p, dc, opts.CS, opts.BL, opts.Hz); err != nil {
		return nil, err
	}
	return d, nil
}

// Begin connects to the SPI port and brings the panel up:
//
//  1. connect at hz (DefaultFrequency when 0), Mode0, 8 bits
//  2. drive CS high, DC high and the backlight low
//  3. install the panel default window as current
//  4. clock out one dummy byte so the bus driver finishes its setup
//  5. hardware reset
//  6. run the register configuration pipeline
//
// cs and bl may be nil. The backlight line is active low (see SetBacklight),
// so driving it low at step 2 turns the backlight fully on; call
// SetBacklight(0) after Begin to keep it dark.
//
// The first failing step is returned; the panel may then be partially
// configured and Begin should be called again.
func (d *Dev) Begin(p spi.Port, dc, cs, bl gpio.PinOut, hz physic.Frequency) error {
	if p == nil || dc == nil {
		return fmt.Errorf("ili9341: SPI port and DC pin are required: %w", ErrInvalidParam)
	}
	if hz == 0 {
		hz = DefaultFrequency
	}

	c, err := p.Connect(hz, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("ili9341: failed to connect SPI: %w", err)
	}
	d.c, d.dc, d.cs, d.bl, d.hz = c, dc, cs, bl, hz
	d.halted = false
	d.scrollTop, d.scrollBottom = 0, 0

	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return fmt.Errorf("ili9341: failed to drive CS high: %w", err)
		}
	}
	if err := dc.Out(gpio.High); err != nil {
		return fmt.Errorf("ili9341: failed to drive DC high: %w", err)
	}
	if bl != nil {
		if err := bl.Out(gpio.Low); err != nil {
			return fmt.Errorf("ili9341: failed to drive BL low: %w", err)
		}
	}

	d.SetWindowDefaults(&d.def)
	d.current = &d.def

	if err := d.transaction(func() error { return d.c.Tx([]byte{0}, nil) }); err != nil {
		return fmt.Errorf("ili9341: bus wake-up: %w", err)
	}

	if err := d.reset(); err != nil {
		return err
	}
	if err := d.configure(); err != nil {
		return err
	}
	log.Info("ili9341: panel ready", "panel", d.panel.Name, "hz", d.hz, "reset", d.hasReset())
	return nil
}

// transaction selects the panel for the duration of fn. Chip select is
// released on every path, including when fn fails.
func (d *Dev) transaction(fn func() error) (err error) {
	if d.c == nil {
		return ErrNotReady
	}
	if d.cs != nil {
		if err := d.cs.Out(gpio.Low); err != nil {
			return err
		}
		defer func() {
			if e := d.cs.Out(gpio.High); err == nil {
				err = e
			}
		}()
	}
	return fn()
}

// writeCmd sends a command byte followed by its parameters in a single
// transaction.
func (d *Dev) writeCmd(cmd byte, params ...byte) error {
	return d.transaction(func() error {
		if err := d.sendCommand(cmd); err != nil {
			return err
		}
		if len(params) == 0 {
			return nil
		}
		return d.sendData(params)
	})
}

// sendCommand sends a single command byte.
func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx([]byte{cmd}, nil)
}

// sendData sends a slice of data bytes.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(data, nil)
}

// chunkSize returns the transfer size used to stream n pixels.
func (d *Dev) chunkSize(n int) int {
	size := maxChunk
	if l, ok := d.c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && m < size {
			size = m
		}
	}
	size &^= 1
	if size < 2 {
		size = 2
	}
	if 2*n < size {
		size = 2 * n
	}
	return size
}

// memoryWrite sets the address window to r and streams one pixel per
// position, produced in row-major order by next.
func (d *Dev) memoryWrite(r image.Rectangle, next func(i int) rgb565.RGB565) error {
	if r.Empty() {
		return nil
	}
	if err := d.setColumnAddress(uint16(r.Min.X), uint16(r.Max.X-1)); err != nil {
		return err
	}
	if err := d.setRowAddress(uint16(r.Min.Y), uint16(r.Max.Y-1)); err != nil {
		return err
	}
	n := r.Dx() * r.Dy()
	return d.transaction(func() error {
		if err := d.sendCommand(cmdRAMWR); err != nil {
			return err
		}
		buf := make([]byte, d.chunkSize(n))
		for i := 0; i < n; {
			j := 0
			for ; j < len(buf) && i < n; j, i = j+2, i+1 {
				buf[j], buf[j+1] = next(i).Bytes()
			}
			if err := d.sendData(buf[:j]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Dev) ready() error {
	if d.halted {
		return ErrHalted
	}
	if d.c == nil {
		return ErrNotReady
	}
	return nil
}

// backlightDuty inverts the level: the backlight line is active low, so full
// brightness is the minimum duty cycle.
func backlightDuty(level uint8) uint8 {
	return 255 - level
}

// SetBacklight sets the brightness, 0 (off) to 255 (maximum). It is a no-op
// when no backlight pin was given to Begin.
func (d *Dev) SetBacklight(level uint8) error {
	if d.bl == nil {
		return nil
	}
	duty := gpio.Duty(uint64(backlightDuty(level)) * uint64(gpio.DutyMax) / 255)
	return d.bl.PWM(duty, d.blHz)
}

// DisplayOn turns the panel output on.
func (d *Dev) DisplayOn() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setPower(true)
}

// DisplayOff blanks the panel output. Frame memory is kept.
func (d *Dev) DisplayOff() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setPower(false)
}

// Invert inverts the display colors. Panels whose table enables inversion at
// bring-up show normal colors with Invert(true).
func (d *Dev) Invert(on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setInversion(on)
}

// SetScrollArea defines the vertical scrolling area as the frame memory lines
// between a fixed top area and a fixed bottom area. top+bottom must not exceed
// the panel height.
func (d *Dev) SetScrollArea(top, bottom int) error {
	if err := d.ready(); err != nil {
		return err
	}
	h := d.panel.Height
	if top < 0 || bottom < 0 || top+bottom > h {
		return fmt.Errorf("ili9341: scroll area top %d bottom %d: %w", top, bottom, ErrInvalidParam)
	}
	d.scrollTop, d.scrollBottom = top, bottom
	return d.setScrollArea(uint16(top), uint16(h-top-bottom), uint16(bottom))
}

// Scroll shows frame memory line top+offset at the top of the scrolling area.
// The offset wraps within the area set by SetScrollArea.
func (d *Dev) Scroll(offset int) error {
	if err := d.ready(); err != nil {
		return err
	}
	n := d.panel.Height - d.scrollTop - d.scrollBottom
	if n <= 0 {
		return fmt.Errorf("ili9341: empty scroll area: %w", ErrInvalidParam)
	}
	offset %= n
	if offset < 0 {
		offset += n
	}
	return d.setScrollStart(uint16(d.scrollTop + offset))
}

// StopScroll returns to normal display mode, which ends vertical scrolling.
func (d *Dev) StopScroll() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.normalMode()
}

// Sleep puts the controller into sleep mode. Frame memory is kept.
func (d *Dev) Sleep() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.sleepIn()
}

// Wake leaves sleep mode and waits for the supply to settle.
func (d *Dev) Wake() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.sleepOut(); err != nil {
		return err
	}
	d.sleep(stepSettle)
	return nil
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the addressable rectangle of the panel.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Panel returns the panel table the device was created with.
func (d *Dev) Panel() Panel {
	return d.panel
}

// Draw writes src to the panel, bypassing the current window.
// The dst rectangle is clipped to the panel bounds.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if err := d.ready(); err != nil {
		return err
	}
	clipped := dst.Intersect(d.rect)
	if clipped.Empty() {
		return nil
	}
	sp = sp.Add(clipped.Min.Sub(dst.Min))
	w := clipped.Dx()
	return d.memoryWrite(clipped, func(i int) rgb565.RGB565 {
		return rgb565.Model.Convert(src.At(sp.X+i%w, sp.Y+i/w)).(rgb565.RGB565)
	})
}

// Size returns the size of the current window.
func (d *Dev) Size() (x, y int16) {
	if d.current == nil {
		return int16(d.rect.Dx()), int16(d.rect.Dy())
	}
	return int16(d.current.Width()), int16(d.current.Height())
}

// SetPixel sets one pixel at window-relative (x, y) in the current window.
// Out of window coordinates are ignored. In direct mode the pixel is written
// immediately and transfer errors are logged.
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	w := d.current
	if w == nil || x < 0 || y < 0 || int(x) >= w.Width() || int(y) >= w.Height() {
		return
	}
	px := rgb565.Model.Convert(c).(rgb565.RGB565)
	if w.buffered {
		w.buf.SetRGB565(w.xMin+int(x), w.yMin+int(y), px)
		return
	}
	if err := d.ready(); err != nil {
		log.Error("ili9341: set pixel", err, "x", x, "y", y)
		return
	}
	r := image.Rect(w.xMin+int(x), w.yMin+int(y), w.xMin+int(x)+1, w.yMin+int(y)+1)
	if err := d.memoryWrite(r, func(int) rgb565.RGB565 { return px }); err != nil {
		log.Error("ili9341: set pixel", err, "x", x, "y", y)
	}
}

// Display transfers the current window buffer, see Show.
func (d *Dev) Display() error {
	return d.Show()
}

// Halt blanks the panel and puts the controller to sleep.
// After calling Halt, drawing fails until Begin is called again.
func (d *Dev) Halt() error {
	if d.c == nil {
		d.halted = true
		return nil
	}
	err := d.setPower(false)
	if err == nil {
		err = d.sleepIn()
	}
	d.halted = true
	return err
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ili9341.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
