package ili9341

// ILI9341 datasheet, section 8 (level 1 and level 2 command sets).
const (
	cmdSLPIN   = 0x10 // Enter sleep mode
	cmdSLPOUT  = 0x11 // Sleep out
	cmdNORON   = 0x13 // Normal display mode on
	cmdINVOFF  = 0x20 // Display inversion off
	cmdINVON   = 0x21 // Display inversion on
	cmdGAMSET  = 0x26 // Gamma set
	cmdDISPOFF = 0x28 // Display off
	cmdDISPON  = 0x29 // Display on
	cmdCASET   = 0x2A // Column address set
	cmdPASET   = 0x2B // Page (row) address set
	cmdRAMWR   = 0x2C // Memory write
	cmdVSCRDEF = 0x33 // Vertical scrolling definition
	cmdMADCTL  = 0x36 // Memory access control
	cmdVSCRSAD = 0x37 // Vertical scrolling start address
	cmdPIXSET  = 0x3A // Pixel format set
	cmdFRMCTR1 = 0xB1 // Frame rate control (normal mode)
	cmdPWCTR1  = 0xC0 // Power control 1
	cmdPWCTR2  = 0xC1 // Power control 2
	cmdVMCTR1  = 0xC5 // VCOM control 1
	cmdVMCTR2  = 0xC7 // VCOM control 2
	cmdPGAMCTL = 0xE0 // Positive gamma correction
	cmdNGAMCTL = 0xE1 // Negative gamma correction
)

// MADCTL bits.
const (
	madctlMY  = 0x80 // Row address order
	madctlMX  = 0x40 // Column address order
	madctlMV  = 0x20 // Row/column exchange
	madctlML  = 0x10 // Vertical refresh order
	madctlBGR = 0x08 // RGB-BGR order
	madctlMH  = 0x04 // Horizontal refresh order
)

func (d *Dev) sleepOut() error {
	return d.writeCmd(cmdSLPOUT)
}

func (d *Dev) sleepIn() error {
	return d.writeCmd(cmdSLPIN)
}

func (d *Dev) selectGammaCurve(curve byte) error {
	return d.writeCmd(cmdGAMSET, curve)
}

func (d *Dev) setNormalFramerate(diva, rtna byte) error {
	return d.writeCmd(cmdFRMCTR1, diva, rtna)
}

func (d *Dev) setPowerControl1(vrh, vc byte) error {
	return d.writeCmd(cmdPWCTR1, vrh, vc)
}

func (d *Dev) setPowerControl2(bt byte) error {
	return d.writeCmd(cmdPWCTR2, bt)
}

func (d *Dev) setVCOMControl1(vmh, vml byte) error {
	return d.writeCmd(cmdVMCTR1, vmh, vml)
}

// setVCOMOffsetControl writes VMF in the low 7 bits and nVM in bit 7.
func (d *Dev) setVCOMOffsetControl(nvm bool, vmf byte) error {
	b := vmf & 0x7F
	if nvm {
		b |= 0x80
	}
	return d.writeCmd(cmdVMCTR2, b)
}

func (d *Dev) setInversion(on bool) error {
	if on {
		return d.writeCmd(cmdINVON)
	}
	return d.writeCmd(cmdINVOFF)
}

func (d *Dev) setInterfacePixelFormat(format byte) error {
	return d.writeCmd(cmdPIXSET, format)
}

func (d *Dev) setColumnAddress(start, end uint16) error {
	return d.writeCmd(cmdCASET, byte(start>>8), byte(start), byte(end>>8), byte(end))
}

func (d *Dev) setRowAddress(start, end uint16) error {
	return d.writeCmd(cmdPASET, byte(start>>8), byte(start), byte(end>>8), byte(end))
}

// setScrollArea defines the top fixed, scrolling and bottom fixed areas in
// frame memory lines.
func (d *Dev) setScrollArea(top, scroll, bottom uint16) error {
	return d.writeCmd(cmdVSCRDEF,
		byte(top>>8), byte(top),
		byte(scroll>>8), byte(scroll),
		byte(bottom>>8), byte(bottom))
}

func (d *Dev) setScrollStart(line uint16) error {
	return d.writeCmd(cmdVSCRSAD, byte(line>>8), byte(line))
}

func (d *Dev) normalMode() error {
	return d.writeCmd(cmdNORON)
}

func (d *Dev) setMemoryAccessControl(o Orientation) error {
	return d.writeCmd(cmdMADCTL, o.Byte())
}

func (d *Dev) setPositiveGamCorr(table [15]byte) error {
	return d.writeCmd(cmdPGAMCTL, table[:]...)
}

func (d *Dev) setNegativeGamCorr(table [15]byte) error {
	return d.writeCmd(cmdNGAMCTL, table[:]...)
}

// setPower switches the panel output on or off. Frame memory is kept.
func (d *Dev) setPower(on bool) error {
	if on {
		return d.writeCmd(cmdDISPON)
	}
	return d.writeCmd(cmdDISPOFF)
}
