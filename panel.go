package ili9341

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Orientation holds the memory access control (MADCTL) flags.
type Orientation struct {
	RowOrder          bool `yaml:"row_order"`           // MY: address bottom to top
	ColumnOrder       bool `yaml:"column_order"`        // MX: address right to left
	RowColumnExchange bool `yaml:"row_column_exchange"` // MV: swap rows and columns
	VerticalRefresh   bool `yaml:"vertical_refresh"`    // ML: refresh bottom to top
	BGR               bool `yaml:"bgr"`                 // BGR instead of RGB subpixel order
	HorizontalRefresh bool `yaml:"horizontal_refresh"`  // MH: refresh right to left
}

// Byte packs the flags into the MADCTL parameter.
func (o Orientation) Byte() byte {
	var b byte
	if o.RowOrder {
		b |= madctlMY
	}
	if o.ColumnOrder {
		b |= madctlMX
	}
	if o.RowColumnExchange {
		b |= madctlMV
	}
	if o.VerticalRefresh {
		b |= madctlML
	}
	if o.BGR {
		b |= madctlBGR
	}
	if o.HorizontalRefresh {
		b |= madctlMH
	}
	return b
}

// Panel is the per-model bring-up table. The numeric values come from the
// panel datasheet and are sent verbatim during configuration.
type Panel struct {
	Name string

	// Addressable rectangle
	Width, Height     int
	StartRow, StopRow int
	StartCol, StopCol int

	GammaCurve    byte    // GAMSET curve selector
	FrameRate     [2]byte // FRMCTR1: DIVA, RTNA
	PowerControl1 [2]byte // PWCTR1
	PowerControl2 byte    // PWCTR2
	VCOM          [2]byte // VMCTR1: VMH, VML
	VCOMOffsetNVM bool    // VMCTR2 nVM bit
	VCOMOffset    byte    // VMCTR2 VMF
	Inversion     bool    // send INVON during bring-up
	PixelFormat   byte    // PIXSET
	Orientation   Orientation

	PositiveGamma [15]byte
	NegativeGamma [15]byte
}

var (
	defaultPositiveGamma = [15]byte{0x0F, 0x16, 0x14, 0x0A, 0x0D, 0x06, 0x43, 0x75, 0x33, 0x06, 0x0E, 0x00, 0x0C, 0x09, 0x08}
	defaultNegativeGamma = [15]byte{0x08, 0x2B, 0x2D, 0x04, 0x10, 0x04, 0x3E, 0x24, 0x4E, 0x04, 0x0F, 0x0E, 0x35, 0x38, 0x0F}
	defaultOrientation   = Orientation{ColumnOrder: true, BGR: true}
)

// PanelILI9341 is the bare ILI9341 240x320 module.
var PanelILI9341 = Panel{
	Name:          "ili9341",
	Width:         240,
	Height:        320,
	StartRow:      0,
	StopRow:       319,
	StartCol:      0,
	StopCol:       239,
	GammaCurve:    0x01,
	FrameRate:     [2]byte{0x00, 0x1B},
	PowerControl1: [2]byte{0x21, 0x00},
	PowerControl2: 0x10,
	VCOM:          [2]byte{0x3E, 0x28},
	VCOMOffsetNVM: true,
	VCOMOffset:    0x86,
	Inversion:     false,
	PixelFormat:   0x55,
	Orientation:   defaultOrientation,
	PositiveGamma: defaultPositiveGamma,
	NegativeGamma: defaultNegativeGamma,
}

// Panel4DLCD320240 is the 4D Systems 4DLCD-320240 module. Its glass needs
// inversion on and takes a different pixel format byte than the bare module.
var Panel4DLCD320240 = Panel{
	Name:          "4dlcd-320240",
	Width:         240,
	Height:        320,
	StartRow:      0,
	StopRow:       319,
	StartCol:      0,
	StopCol:       239,
	GammaCurve:    0x01,
	FrameRate:     [2]byte{0x00, 0x1B},
	PowerControl1: [2]byte{0x21, 0x00},
	PowerControl2: 0x10,
	VCOM:          [2]byte{0x3E, 0x28},
	VCOMOffsetNVM: true,
	VCOMOffset:    0x86,
	Inversion:     true,
	PixelFormat:   0x05,
	Orientation:   defaultOrientation,
	PositiveGamma: defaultPositiveGamma,
	NegativeGamma: defaultNegativeGamma,
}

// PanelByName returns a built-in panel table.
func PanelByName(name string) (Panel, error) {
	switch strings.ToLower(name) {
	case "", PanelILI9341.Name:
		return PanelILI9341, nil
	case Panel4DLCD320240.Name, "4dlcd":
		return Panel4DLCD320240, nil
	}
	return Panel{}, fmt.Errorf("ili9341: unknown panel %q: %w", name, ErrInvalidParam)
}

// Validate checks that the addressable rectangle is consistent.
func (p *Panel) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("ili9341: panel size %dx%d: %w", p.Width, p.Height, ErrInvalidParam)
	}
	if p.StartCol < 0 || p.StartCol > p.StopCol || p.StopCol-p.StartCol+1 > p.Width {
		return fmt.Errorf("ili9341: columns %d-%d: %w", p.StartCol, p.StopCol, ErrInvalidParam)
	}
	if p.StartRow < 0 || p.StartRow > p.StopRow || p.StopRow-p.StartRow+1 > p.Height {
		return fmt.Errorf("ili9341: rows %d-%d: %w", p.StartRow, p.StopRow, ErrInvalidParam)
	}
	// CASET/PASET carry 16-bit addresses
	if p.StopCol > 0xFFFF || p.StopRow > 0xFFFF {
		return fmt.Errorf("ili9341: address out of range: %w", ErrInvalidParam)
	}
	return nil
}

// panelFile is the YAML form of Panel. Byte values are ints so that range
// errors can be reported instead of silently truncated.
type panelFile struct {
	Base          string      `yaml:"base"`
	Name          string      `yaml:"name"`
	Width         int         `yaml:"width"`
	Height        int         `yaml:"height"`
	StartRow      int         `yaml:"start_row"`
	StopRow       int         `yaml:"stop_row"`
	StartCol      int         `yaml:"start_col"`
	StopCol       int         `yaml:"stop_col"`
	GammaCurve    int         `yaml:"gamma_curve"`
	FrameRate     []int       `yaml:"frame_rate"`
	PowerControl1 []int       `yaml:"power_control_1"`
	PowerControl2 int         `yaml:"power_control_2"`
	VCOM          []int       `yaml:"vcom"`
	VCOMOffsetNVM bool        `yaml:"vcom_offset_nvm"`
	VCOMOffset    int         `yaml:"vcom_offset"`
	Inversion     bool        `yaml:"inversion"`
	PixelFormat   int         `yaml:"pixel_format"`
	Orientation   Orientation `yaml:"orientation"`
	PositiveGamma []int       `yaml:"positive_gamma"`
	NegativeGamma []int       `yaml:"negative_gamma"`
}

func newPanelFile(p Panel) panelFile {
	ints := func(b []byte) []int {
		out := make([]int, len(b))
		for i, v := range b {
			out[i] = int(v)
		}
		return out
	}
	return panelFile{
		Name:          p.Name,
		Width:         p.Width,
		Height:        p.Height,
		StartRow:      p.StartRow,
		StopRow:       p.StopRow,
		StartCol:      p.StartCol,
		StopCol:       p.StopCol,
		GammaCurve:    int(p.GammaCurve),
		FrameRate:     ints(p.FrameRate[:]),
		PowerControl1: ints(p.PowerControl1[:]),
		PowerControl2: int(p.PowerControl2),
		VCOM:          ints(p.VCOM[:]),
		VCOMOffsetNVM: p.VCOMOffsetNVM,
		VCOMOffset:    int(p.VCOMOffset),
		Inversion:     p.Inversion,
		PixelFormat:   int(p.PixelFormat),
		Orientation:   p.Orientation,
		PositiveGamma: ints(p.PositiveGamma[:]),
		NegativeGamma: ints(p.NegativeGamma[:]),
	}
}

func (f *panelFile) panel() (Panel, error) {
	var errs []error
	one := func(field string, v int) byte {
		if v < 0 || v > 0xFF {
			errs = append(errs, fmt.Errorf("ili9341: %s: value %d out of byte range: %w", field, v, ErrInvalidParam))
		}
		return byte(v)
	}
	many := func(field string, vs []int, dst []byte) {
		if len(vs) != len(dst) {
			errs = append(errs, fmt.Errorf("ili9341: %s: want %d entries, got %d: %w", field, len(dst), len(vs), ErrInvalidParam))
			return
		}
		for i, v := range vs {
			dst[i] = one(fmt.Sprintf("%s[%d]", field, i), v)
		}
	}

	p := Panel{
		Name:          f.Name,
		Width:         f.Width,
		Height:        f.Height,
		StartRow:      f.StartRow,
		StopRow:       f.StopRow,
		StartCol:      f.StartCol,
		StopCol:       f.StopCol,
		GammaCurve:    one("gamma_curve", f.GammaCurve),
		PowerControl2: one("power_control_2", f.PowerControl2),
		VCOMOffsetNVM: f.VCOMOffsetNVM,
		VCOMOffset:    one("vcom_offset", f.VCOMOffset),
		Inversion:     f.Inversion,
		PixelFormat:   one("pixel_format", f.PixelFormat),
		Orientation:   f.Orientation,
	}
	many("frame_rate", f.FrameRate, p.FrameRate[:])
	many("power_control_1", f.PowerControl1, p.PowerControl1[:])
	many("vcom", f.VCOM, p.VCOM[:])
	many("positive_gamma", f.PositiveGamma, p.PositiveGamma[:])
	many("negative_gamma", f.NegativeGamma, p.NegativeGamma[:])
	if len(errs) > 0 {
		return Panel{}, errors.Join(errs...)
	}
	if err := p.Validate(); err != nil {
		return Panel{}, err
	}
	return p, nil
}

// ParsePanel decodes a YAML panel table. Keys that are absent keep the value
// of the built-in table named by "base" (default "ili9341"), so a file only
// needs to list what differs:
//
//	base: ili9341
//	name: my-panel
//	inversion: true
//	pixel_format: 0x05
func ParsePanel(data []byte) (*Panel, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("ili9341: parse panel: %w", err)
	}
	base, err := PanelByName(head.Base)
	if err != nil {
		return nil, err
	}

	f := newPanelFile(base)
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ili9341: parse panel: %w", err)
	}
	p, err := f.panel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPanel reads a YAML panel table from path.
func LoadPanel(path string) (*Panel, error) {
	if path == "" {
		return nil, errors.New("ili9341: panel path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePanel(data)
}
