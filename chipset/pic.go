// Package chipset implements the canonical PC/XT peripherals spec.md §4.4-4.10
// describes on top of the system substrate: the 8259 PIC, the 8253 PIT, the
// 8237 DMA controller, the 8255 PPI and 8042 KBC, the disk BIOS trap, the
// 8250 UART, and a UART-like serial mouse.
package chipset

import "vxtcore/system"

// PIC is a single 8259A: fixed priority IRQ0..IRQ7, no cascade (spec.md §4.4
// models the PC/XT's lone PIC, not the AT's master/slave pair).
type PIC struct {
	mask, irr, isr uint8

	icwStep  uint8 // 0 before any ICW1; 2..4 while ICW2..ICW4 are expected; 5 once the sequence completes
	icw      [5]uint8
	readISR  bool // OCW3 read-register select: false=IRR, true=ISR

	p *system.Peripheral
}

// NewPIC creates an uninstalled PIC peripheral claiming ports 0x20-0x21.
func NewPIC() *system.Peripheral {
	c := &PIC{}
	p := &system.Peripheral{Name: "pic", Class: "pic", State: c}
	p.Install = func(s *system.System) error { return s.InstallIO(p, 0x20, 0x21) }
	p.Reset = func([]byte) error { *c = PIC{}; return nil }
	p.In = c.in
	p.Out = c.out
	p.PICIrq = func(n int) error { c.irq(n); return nil }
	p.PICNext = c.next
	c.p = p
	return p
}

func (c *PIC) in(port uint16) uint8 {
	switch port {
	case 0x20:
		if c.readISR {
			return c.isr
		}
		return c.irr
	case 0x21:
		return c.mask
	}
	return 0
}

func (c *PIC) out(port uint16, val uint8) {
	switch port {
	case 0x20:
		c.outCommand(val)
	case 0x21:
		c.outData(val)
	}
}

func (c *PIC) outCommand(val uint8) {
	if val&0x10 != 0 { // ICW1: begins initialization
		c.icwStep = 1
		c.mask = 0
		c.irr = 0
		c.isr = 0
		c.icw[1] = val
		c.icwStep = 2
		return
	}
	if val&0x18 == 0x08 { // OCW3: bits 4,3 = 0,1
		c.outOCW3(val)
		return
	}
	c.outOCW2(val) // OCW2
}

func (c *PIC) outOCW3(val uint8) {
	if val&0x04 != 0 { // poll command: handled via Poll(), nothing to latch here
		return
	}
	if val&0x02 != 0 { // read register select valid
		c.readISR = val&0x01 != 0
	}
}

func (c *PIC) outOCW2(val uint8) {
	if val&0x20 == 0 { // only EOI bit is implemented; rotate modes are not
		return
	}
	if val&0x40 != 0 { // specific EOI
		c.isr &^= 1 << (val & 0x07)
		return
	}
	for i := 0; i < 8; i++ { // non-specific EOI: clear lowest set ISR bit
		bit := uint8(1) << uint(i)
		if c.isr&bit != 0 {
			c.isr &^= bit
			return
		}
	}
}

func (c *PIC) outData(val uint8) {
	if c.icwStep == 3 && c.icw[1]&0x02 != 0 { // single-PIC (ICW1.SNGL): no ICW3
		c.icwStep = 4
	}
	if c.icwStep >= 2 && c.icwStep < 5 {
		c.icw[c.icwStep] = val
		c.icwStep++
		return
	}
	c.mask = val // post-init: OCW1 (mask register)
}

// irq sets bit n of IRR, per spec.md §4.4's irq(n).
func (c *PIC) irq(n int) { c.irr |= 1 << uint(n) }

// next implements spec.md §4.4's next(): fixed IRQ0..7 priority scan,
// returns ICW[2]+i and sets ISR[i] unless ICW4's auto-EOI bit is set.
func (c *PIC) next() int {
	pending := c.irr &^ c.mask
	for i := 0; i < 8; i++ {
		bit := uint8(1) << uint(i)
		if pending&bit == 0 || c.isr&bit != 0 { // IRR set, unmasked, and not already in service
			continue
		}
		c.irr &^= bit
		if c.icw[4]&0x02 == 0 { // not auto-EOI
			c.isr |= bit
		}
		return int(c.icw[2]) + i
	}
	return -1
}

// Poll mirrors the 8259's OCW3 poll command: returns the highest-priority
// pending, unmasked IRQ line (not a vector), clearing its IRR bit and
// setting its ISR bit, without requiring the executor's IF-gated path.
// Unlike next(), it does not skip a line already in service and sets ISR
// even in ICW4 auto-EOI mode.
func (c *PIC) Poll() int {
	pending := c.irr &^ c.mask
	for i := 0; i < 8; i++ {
		bit := uint8(1) << uint(i)
		if pending&bit == 0 {
			continue
		}
		c.irr &^= bit
		c.isr |= bit
		return i
	}
	return -1
}
