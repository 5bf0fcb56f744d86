package ili9341

import (
	"fmt"
	"time"

	"github.com/flavioheleno/ili9341/internal/log"
	"periph.io/x/conn/v3/gpio"
)

// Bring-up timings.
const (
	resetPulse  = 10 * time.Millisecond  // RST high and low phases
	resetSettle = 120 * time.Millisecond // wait before the first command
	stepSettle  = 20 * time.Millisecond  // after sleep out and after the gamma tables
)

// reset pulses the hardware reset line high, low, high and waits for the
// controller to settle. Without a reset line only the settle wait is done and
// the panel is assumed to have reset itself at power-up.
func (d *Dev) reset() error {
	if d.hasReset() {
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ili9341: failed to drive RST high: %w", err)
		}
		d.sleep(resetPulse)

		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("ili9341: failed to pull RST low: %w", err)
		}
		d.sleep(resetPulse)

		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ili9341: failed to release RST: %w", err)
		}
	}
	d.sleep(resetSettle)
	return nil
}

func (d *Dev) hasReset() bool {
	return d.rst != nil && d.rst != gpio.INVALID
}

// configStep is one named register operation of the bring-up pipeline.
type configStep struct {
	name   string
	run    func() error
	settle time.Duration // wait after the step succeeded
}

// configSteps returns the ordered bring-up pipeline for the panel table.
func (d *Dev) configSteps() []configStep {
	p := &d.panel
	steps := []configStep{
		{"sleep out", d.sleepOut, stepSettle},
		{"gamma curve", func() error { return d.selectGammaCurve(p.GammaCurve) }, 0},
		{"frame rate", func() error { return d.setNormalFramerate(p.FrameRate[0], p.FrameRate[1]) }, 0},
		{"power control 1", func() error { return d.setPowerControl1(p.PowerControl1[0], p.PowerControl1[1]) }, 0},
		{"power control 2", func() error { return d.setPowerControl2(p.PowerControl2) }, 0},
		{"vcom control", func() error { return d.setVCOMControl1(p.VCOM[0], p.VCOM[1]) }, 0},
		{"vcom offset", func() error { return d.setVCOMOffsetControl(p.VCOMOffsetNVM, p.VCOMOffset) }, 0},
	}
	if p.Inversion {
		steps = append(steps, configStep{"inversion", func() error { return d.setInversion(true) }, 0})
	}
	return append(steps,
		configStep{"pixel format", func() error { return d.setInterfacePixelFormat(p.PixelFormat) }, 0},
		configStep{"column address", func() error { return d.setColumnAddress(uint16(p.StartCol), uint16(p.StopCol)) }, 0},
		configStep{"row address", func() error { return d.setRowAddress(uint16(p.StartRow), uint16(p.StopRow)) }, 0},
		configStep{"memory access control", func() error { return d.setMemoryAccessControl(p.Orientation) }, 0},
		configStep{"positive gamma", func() error { return d.setPositiveGamCorr(p.PositiveGamma) }, 0},
		configStep{"negative gamma", func() error { return d.setNegativeGamCorr(p.NegativeGamma) }, stepSettle},
		configStep{"display on", func() error { return d.setPower(true) }, 0},
	)
}

// configure runs the bring-up pipeline and stops at the first failing step.
// Registers written before the failure are not rolled back; the caller is
// expected to restart bring-up from reset.
func (d *Dev) configure() error {
	for _, s := range d.configSteps() {
		log.Debug("ili9341: configure", "step", s.name)
		if err := s.run(); err != nil {
			log.Error("ili9341: configure step failed", err, "step", s.name)
			return fmt.Errorf("ili9341: %s: %w", s.name, err)
		}
		if s.settle > 0 {
			d.sleep(s.settle)
		}
	}
	return nil
}
