package ili9341

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/flavioheleno/ili9341/internal/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var errBus = errors.New("bus fault")

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// trace collects pin changes and sleeps in call order.
type trace struct {
	events []string
}

func (t *trace) add(format string, args ...any) {
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *trace) sleep(d time.Duration) {
	t.add("sleep %v", d)
}

// fakePin records every level and PWM setting.
type fakePin struct {
	name   string
	t      *trace
	level  gpio.Level
	levels []gpio.Level
	duty   gpio.Duty
	freq   physic.Frequency
	pwms   int
}

func newPin(name string, t *trace) *fakePin {
	return &fakePin{name: name, t: t}
}

func (p *fakePin) String() string   { return p.name }
func (p *fakePin) Halt() error      { return nil }
func (p *fakePin) Name() string     { return p.name }
func (p *fakePin) Number() int      { return -1 }
func (p *fakePin) Function() string { return "Out" }

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.levels = append(p.levels, l)
	if p.t != nil {
		p.t.add("%s=%s", p.name, l)
	}
	return nil
}

func (p *fakePin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.duty, p.freq = duty, f
	p.pwms++
	return nil
}

// busOp is one command and the data bytes that followed it.
type busOp struct {
	cmd  byte
	data []byte
}

// fakeBus is an spi.Port and spi.Conn that decodes the DC line into
// command/data operations.
type fakeBus struct {
	dc, cs *fakePin

	hz     physic.Frequency
	maxTx  int
	wake   [][]byte // data written before the first command
	ops    []busOp
	txs    int // Tx calls carrying data
	failAt int // 1-based command index that fails, 0 never
	err    error

	unselected int // transfers made with CS high
}

func newBus(t *trace) *fakeBus {
	return &fakeBus{
		dc: newPin("DC", nil),
		cs: newPin("CS", t),
	}
}

func (b *fakeBus) String() string { return "fakeBus" }

func (b *fakeBus) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	b.hz = f
	return b, nil
}

func (b *fakeBus) Duplex() conn.Duplex { return conn.Half }

func (b *fakeBus) MaxTxSize() int { return b.maxTx }

func (b *fakeBus) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := b.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBus) Tx(w, r []byte) error {
	if b.cs.level != gpio.Low {
		b.unselected++
	}
	if b.dc.level == gpio.Low {
		b.ops = append(b.ops, busOp{cmd: w[0]})
		if b.failAt > 0 && len(b.ops) == b.failAt {
			return b.err
		}
		return nil
	}
	if len(b.ops) == 0 {
		b.wake = append(b.wake, append([]byte(nil), w...))
		return nil
	}
	b.txs++
	last := &b.ops[len(b.ops)-1]
	last.data = append(last.data, w...)
	return nil
}

func (b *fakeBus) cmds() []byte {
	out := make([]byte, len(b.ops))
	for i, op := range b.ops {
		out[i] = op.cmd
	}
	return out
}

// rig is a device wired to fakes with a recorded clock.
type rig struct {
	t   *trace
	bus *fakeBus
	bl  *fakePin
	rst *fakePin
	dev *Dev
}

func newRig(opts *Opts) (*rig, error) {
	t := &trace{}
	r := &rig{
		t:   t,
		bus: newBus(t),
		bl:  newPin("BL", nil),
	}
	if opts == nil {
		opts = &Opts{}
	}
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	d.sleep = t.sleep
	r.dev = d
	return r, nil
}

func (r *rig) begin() error {
	return r.dev.Begin(r.bus, r.bus.dc, r.bus.cs, r.bl, 0)
}

// ramWrites returns the data of every RAMWR operation.
func (r *rig) ramWrites() [][]byte {
	var out [][]byte
	for _, op := range r.bus.ops {
		if op.cmd == cmdRAMWR {
			out = append(out, op.data)
		}
	}
	return out
}

// since returns the operations recorded after the first n.
func (r *rig) since(n int) []busOp {
	return r.bus.ops[n:]
}
