package chipset

import "vxtcore/system"

const mouseBufferSize = 128

// Mouse button bits as packed into a pushed event's buttons field.
const (
	MouseButtonLeft  uint8 = 1 << 0
	MouseButtonRight uint8 = 1 << 1
)

// Mouse is a Microsoft-protocol serial mouse attached at a UART-like port
// base (default 0x3F8/COM1), IRQ4. It has no divisor/LCR logic of its own —
// only the bounded packet queue and the raw passthrough registers real
// mouse driver INIT sequences probe.
type Mouse struct {
	opts options

	registers [8]uint8
	buffer    []uint8

	sys *system.System
	p   *system.Peripheral
}

// NewMouse creates an uninstalled serial mouse claiming 8 consecutive ports
// starting at opts' base port (default 0x3F8) and raising opts' IRQ
// (default 4).
func NewMouse(opts ...Option) *system.Peripheral {
	m := &Mouse{opts: newOptions(4, 0x3F8, opts...)}
	p := &system.Peripheral{Name: "mouse", Class: "mouse", State: m}
	p.Install = func(s *system.System) error {
		m.sys = s
		return s.InstallIO(p, m.opts.basePort, m.opts.basePort+7)
	}
	p.Reset = func([]byte) error {
		m.registers = [8]uint8{}
		m.buffer = m.buffer[:0]
		return nil
	}
	p.In = m.in
	p.Out = m.out
	m.p = p
	return p
}

// push appends data to the bounded queue, dropping it if the queue is full,
// and raises the interrupt line exactly when the queue transitions from
// empty to non-empty (spec.md §4.10's push_data).
func (m *Mouse) push(data uint8) bool {
	if len(m.buffer) == mouseBufferSize {
		return false
	}
	if len(m.buffer) == 0 {
		_ = m.sys.Interrupt(m.opts.irq)
	}
	m.buffer = append(m.buffer, data)
	return true
}

func (m *Mouse) pop() uint8 {
	data := m.buffer[0]
	m.buffer = m.buffer[1:]
	return data
}

// PushEvent encodes a button/movement sample into the 3-byte Microsoft
// packet `{0x40 | (buttons<<4) | upper, dx&0x3F, dy&0x3F}` and enqueues it,
// returning false if the queue was full and any byte had to be dropped
// (mirroring the original's push-per-byte short-circuit).
func (m *Mouse) PushEvent(buttons uint8, dx, dy int8) bool {
	var upper uint8
	if dx < 0 {
		upper = 0x3
	}
	if dy < 0 {
		upper |= 0xC
	}
	return m.push(0x40|((buttons&3)<<4)|upper) &&
		m.push(uint8(dx)&0x3F) &&
		m.push(uint8(dy)&0x3F)
}

func (m *Mouse) in(port uint16) uint8 {
	reg := port & 7
	switch reg {
	case 0: // serial data register
		var data uint8
		if len(m.buffer) > 0 {
			data = m.pop()
			_ = m.sys.Interrupt(m.opts.irq)
		}
		return data
	case 5: // line status register
		if len(m.buffer) > 0 {
			return 0x61
		}
		return 0x60
	}
	return m.registers[reg]
}

func (m *Mouse) out(port uint16, val uint8) {
	reg := port & 7
	m.registers[reg] = val
	if reg == 4 && val&0x02 != 0 { // MCR bit 1: reset
		m.buffer = m.buffer[:0]
		m.push('M')
	}
}
