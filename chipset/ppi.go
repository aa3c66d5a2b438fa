package chipset

import "vxtcore/system"

// PPI is the PC/XT 8255, generalized to also serve as the AT 8042 KBC when
// constructed with WithATVariant(true) (the KBC "embeds" a PPI per
// spec.md §4.7). It owns the scancode FIFO, the speaker/turbo/refresh bits
// of port 0x61, the DIP-switch readback of port 0x62, and (AT only) the
// status/command port 0x64 and Fast-A20 port 0x92.
type PPI struct {
	opts options

	scancodes *boundedFIFO
	latch     uint8

	portB uint8 // last value written/read at port 0x61 (bit 4 toggles on every read)
	dip   uint8 // DIP switch byte selected nibble-at-a-time via portB bit 3

	turboEnabled bool // port 0x61 bit 2
	kbReset      bool // edge-triggered by port 0x61 bits 6,7; gates the scancode timer

	pit *PIT

	onSpeaker func(hz float64)

	sys *system.System
	p   *system.Peripheral
}

// PPIOption configures DIP switches or the speaker callback; both are
// device-specific enough to not belong in the shared Option set.
type PPIOption func(*PPI)

// WithDIPSwitches sets the emulated RAM-size/video-mode/floppy-count/FPU
// switch byte read back through port 0x62.
func WithDIPSwitches(b uint8) PPIOption { return func(p *PPI) { p.dip = b } }

// WithSpeakerCallback registers a frontend hook invoked with the current
// speaker tone frequency (0 when the speaker is gated off) on every
// transition, taken from PIT channel 2.
func WithSpeakerCallback(fn func(hz float64)) PPIOption {
	return func(p *PPI) { p.onSpeaker = fn }
}

// NewPPI creates an uninstalled PC/XT PPI bound to pit for channel-2
// speaker tone export. Pass WithATVariant(true) (via a shared Option) to
// additionally claim ports 0x64/0x92 as an AT KBC.
func NewPPI(pit *PIT, opts []Option, ppiOpts ...PPIOption) *system.Peripheral {
	c := &PPI{
		opts:      newOptions(1, 0x60, opts...),
		scancodes: newBoundedFIFO(16),
		pit:       pit,
	}
	for _, o := range ppiOpts {
		o(c)
	}
	p := &system.Peripheral{Name: "ppi", Class: "ppi", State: c}
	if c.opts.atVariant {
		p.Name = "kbc"
	}
	p.Install = func(s *system.System) error {
		c.sys = s
		if err := s.InstallIO(p, 0x60, 0x63); err != nil {
			return err
		}
		if c.opts.atVariant {
			if err := s.InstallIOAt(p, 0x64); err != nil {
				return err
			}
			if err := s.InstallIOAt(p, 0x92); err != nil {
				return err
			}
		}
		_, err := s.InstallTimer(p, 1_000_000) // one scancode per millisecond
		return err
	}
	p.Reset = func([]byte) error {
		c.scancodes.drain()
		c.latch = 0
		c.portB = 0
		c.turboEnabled = false
		c.kbReset = false
		c.scancodes.push(0xAA, false) // keyboard self-test-passed code
		return nil
	}
	p.In = c.in
	p.Out = c.out
	p.Timer = c.timer
	c.p = p
	return p
}

// NewKBC is NewPPI with the AT command/status port surface enabled.
func NewKBC(pit *PIT, opts []Option, ppiOpts ...PPIOption) *system.Peripheral {
	return NewPPI(pit, append(append([]Option{}, opts...), WithATVariant(true)), ppiOpts...)
}

// PushScancode enqueues a scancode byte for the keyboard's timer to latch
// and deliver, implementing spec.md §4.7's push_event(key, force).
func (c *PPI) PushScancode(code uint8, force bool) bool {
	return c.scancodes.push(code, force)
}

// TurboEnabled reports port 0x61 bit 2's last-written state, mirroring
// lib/vxt/ppi.c's vxtu_ppi_turbo_enabled.
func (c *PPI) TurboEnabled() bool { return c.turboEnabled }

func (c *PPI) in(port uint16) uint8 {
	switch port {
	case 0x60:
		data := c.latch
		if c.kbReset { // reset latches 0xAA; the first read after it clears the latch
			c.kbReset = false
			c.latch = 0
		}
		return data
	case 0x61:
		c.portB ^= 0x10 // refresh bit toggles every read
		return c.portB
	case 0x62:
		if c.portB&0x08 != 0 {
			return c.dip >> 4
		}
		return c.dip & 0x0F
	case 0x64:
		return c.kbcStatus()
	case 0x92:
		var v uint8
		if c.sys != nil && c.sys.A20Enabled() {
			v |= 0x02
		}
		return v
	}
	return 0
}

func (c *PPI) kbcStatus() uint8 {
	var status uint8 = 0x04 // self-test-OK bit, always set once installed
	if !c.scancodes.empty() {
		status |= 0x01 // output buffer full
	}
	return status
}

func (c *PPI) out(port uint16, val uint8) {
	switch port {
	case 0x61:
		prev := c.portB
		c.portB = (c.portB & 0x10) | (val &^ 0x10)
		if (prev^c.portB)&0x03 != 0 { // speaker enable bits changed
			c.notifySpeaker()
		}
		c.turboEnabled = c.portB&0x04 != 0
		if prev&0xC0 == 0 && c.portB&0xC0 != 0 { // keyboard-reset edge (bits 6,7)
			c.kbReset = true
		}
		if c.kbReset && c.latch != 0xAA {
			c.scancodes.drain()
			c.latch = 0xAA
			if c.sys != nil {
				_ = c.sys.Interrupt(c.opts.irq)
			}
		}
	case 0x64:
		c.kbcCommand(val)
	case 0x92:
		if c.sys != nil {
			c.sys.SetA20(val&0x02 != 0)
		}
	}
}

func (c *PPI) kbcCommand(cmd uint8) {
	switch cmd {
	case 0xAA: // self-test
		c.latch = 0x55
	case 0xC0: // read input port
		c.latch = 0x84
	}
}

func (c *PPI) notifySpeaker() {
	if c.onSpeaker == nil {
		return
	}
	if c.portB&0x03 != 0x03 {
		c.onSpeaker(0)
		return
	}
	if c.pit != nil {
		c.onSpeaker(c.pit.Frequency(2))
	} else {
		c.onSpeaker(0)
	}
}

// timer pulls one scancode per millisecond into the latch and raises IRQ1
// whenever the queue was non-empty, the behaviour spec.md §9 documents as
// the correct, unstubbed path for both the PPI and the KBC variant.
func (c *PPI) timer(s *system.System) error {
	if c.kbReset {
		return nil
	}
	b, ok := c.scancodes.pop()
	if !ok {
		return nil
	}
	c.latch = b
	return s.Interrupt(c.opts.irq)
}
