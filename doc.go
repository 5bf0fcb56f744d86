// Package ili9341 controls ILI9341 based TFT panels via SPI.
//
// The ILI9341 is a 240×320 RGB controller. This driver brings the panel up
// from a per-model table, then draws through rectangular windows. It
// implements the display.Drawer interface from periph.io and the Displayer
// interface from tinygo.org/x/drivers.
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCK         → SPI Clock (SCLK)
//	SDI/MOSI    → SPI Data (MOSI)
//	D/C         → GPIO (any available pin)
//	CS          → SPI Chip Select, or a GPIO passed as cs
//	RESET       → Optional: GPIO for hardware reset
//	LED         → Optional: PWM capable GPIO for the backlight (active low)
//
// # Basic Usage
//
//	host.Init()
//	p, _ := spireg.Open("")
//	dc := gpioreg.ByName("GPIO25")
//
//	dev, err := ili9341.NewSPI(p, dc, &ili9341.Opts{
//		RST: gpioreg.ByName("GPIO24"),
//		BL:  gpioreg.ByName("GPIO18"),
//	})
//	if err != nil {
//		// The error names the bring-up step that failed.
//	}
//	defer dev.Halt()
//
//	dev.ClearDisplay()
//	dev.SetBacklight(255)
//
// New and Begin can be called separately when the device must exist before
// the bus is available.
//
// # Bring-up
//
// Begin pulses the reset line when one is wired (10ms high, 10ms low, high),
// waits 120ms, then sends the register table of the selected Panel: sleep out,
// gamma curve, frame rate, power and VCOM control, optional inversion, pixel
// format, address window, memory access control, gamma correction tables and
// display on. The first failing step aborts bring-up and is returned.
//
// Two tables are built in, PanelILI9341 and Panel4DLCD320240. Others can be
// loaded from YAML with LoadPanel; keys missing from the file keep the value
// of the built-in base table.
//
// # Windows
//
// Drawing operations act on the current window. Begin installs a window
// covering the whole panel. A Window can be prepared with SetWindowDefaults,
// resized with SetBounds and installed with SetWindow or, temporarily, with
// UseWindow:
//
//	var w ili9341.Window
//	dev.SetWindowDefaults(&w)
//	w.SetBounds(0, 0, 119, 159)
//	restore, _ := dev.UseWindow(&w)
//	dev.FillWindow(color.RGBA{R: 255, A: 255})
//	restore()
//
// A window in buffer mode owns an RGB565 image. Fills then only touch the
// image and Show transfers it in one burst.
//
// Show sends only the rectangle that changed since the previous Show. Call
// Window.Invalidate after drawing under a shown window by other means.
//
// ClearDisplay blanks the whole panel and leaves the current window as it was.
//
// # Inversion and Scrolling
//
//	dev.Invert(true)
//
//	dev.SetScrollArea(16, 0) // 16 fixed lines at the top
//	for i := 0; i < 304; i++ {
//		dev.Scroll(i)
//	}
//	dev.StopScroll()
//
// # Colors
//
// The panel is driven in 16-bit RGB565. Standard Go colors are converted with
// rgb565.Model; rgb565.Image can be used with image/draw and passed to Draw.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/ILI9341.pdf
package ili9341
