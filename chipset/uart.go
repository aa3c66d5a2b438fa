package chipset

import "vxtcore/system"

const (
	pendingRX  uint8 = 0x1
	pendingTX  uint8 = 0x2
	pendingMSR uint8 = 0x4
	pendingLSR uint8 = 0x8

	ienRX  uint8 = 0x1
	ienTX  uint8 = 0x2
	ienLSR uint8 = 0x4
	ienMSR uint8 = 0x8
)

var dataBitsMask = [4]uint8{0x1F, 0x3F, 0x7F, 0xFF}

// UART is a National Semiconductor 8250: divisor-latch access over ports
// base+0/1, LCR/MCR/LSR/MSR/IIR registers, and priority-ordered pending
// interrupt sources (TX-empty > RX-ready > LSR-change > MSR-change).
type UART struct {
	opts options

	lcr, mcr, ien uint8
	divisor       uint16
	msr, prevMSR  uint8

	pending uint8

	hasRXData      bool
	rxData, txData uint8

	onConfig func(reg int)
	onData   func(b uint8)
	onReady  func()

	sys *system.System
	p   *system.Peripheral
}

// UARTOption configures the host-side callback interface spec.md §4.9 calls
// `{config, data, ready, udata}`.
type UARTOption func(*UART)

// WithUARTConfig registers a hook invoked with the register index (0 for
// the divisor latch, 1/3/4 for IEN/LCR/MCR) after any register write.
func WithUARTConfig(fn func(reg int)) UARTOption { return func(u *UART) { u.onConfig = fn } }

// WithUARTData registers a hook invoked with each byte the guest transmits.
func WithUARTData(fn func(b uint8)) UARTOption { return func(u *UART) { u.onData = fn } }

// WithUARTReady registers a hook invoked once the RX buffer has been
// drained by a guest read, signalling room for the next injected byte.
func WithUARTReady(fn func()) UARTOption { return func(u *UART) { u.onReady = fn } }

// NewUART creates an uninstalled UART at opts' base port (default 0x3F8,
// COM1) and IRQ (default 4, COM1's line), claiming 8 consecutive ports.
func NewUART(opts []Option, uartOpts ...UARTOption) *system.Peripheral {
	u := &UART{opts: newOptions(4, 0x3F8, opts...)}
	for _, o := range uartOpts {
		o(u)
	}
	p := &system.Peripheral{Name: "uart", Class: "uart", State: u}
	p.Install = func(s *system.System) error {
		u.sys = s
		return s.InstallIO(p, u.opts.basePort, u.opts.basePort+7)
	}
	p.Reset = func([]byte) error {
		u.lcr, u.mcr, u.ien = 0, 0, 0
		u.divisor = 12
		u.msr = 0x30
		u.prevMSR = 0
		u.pending = 0
		u.hasRXData = false
		u.rxData, u.txData = 0, 0
		return nil
	}
	p.In = u.in
	p.Out = u.out
	u.p = p
	return p
}

// Address returns the UART's base I/O port.
func (u *UART) Address() uint16 { return u.opts.basePort }

// Ready reports whether the RX buffer is empty and able to accept an
// injected byte, spec.md §4.9's `vxtu_uart_ready`.
func (u *UART) Ready() bool { return !u.hasRXData }

// WriteRX injects a byte into the RX side, as if received over the wire,
// and raises the UART's interrupt line if RX interrupts are enabled —
// spec.md §4.9's `vxtu_uart_write`.
func (u *UART) WriteRX(data uint8) error {
	u.rxData = data
	u.hasRXData = true
	if u.ien&ienRX != 0 {
		u.pending |= pendingRX
		return u.sys.Interrupt(u.opts.irq)
	}
	return nil
}

func (u *UART) dlab() bool { return u.lcr&0x80 != 0 }

func (u *UART) notifyConfig(reg int) {
	if u.onConfig != nil {
		u.onConfig(reg)
	}
}

func (u *UART) in(port uint16) uint8 {
	switch port - u.opts.basePort {
	case 0: // data / divisor LSB
		if u.dlab() {
			return uint8(u.divisor)
		}
		u.hasRXData = false
		u.pending &^= pendingRX
		if u.ien&ienLSR != 0 {
			u.pending |= pendingLSR
			_ = u.sys.Interrupt(u.opts.irq)
		}
		data := u.rxData
		if u.onReady != nil {
			u.onReady()
		}
		return data
	case 1: // IEN / divisor MSB
		if u.dlab() {
			return uint8(u.divisor >> 8)
		}
		return u.ien
	case 2: // IIR
		var ret uint8
		if u.pending == 0 {
			ret = 1
		}
		switch {
		case u.pending&pendingTX != 0:
			ret |= 0x2
			u.pending &^= pendingTX
		case u.pending&pendingRX != 0:
			ret |= 0x4
		case u.pending&pendingLSR != 0:
			ret |= 0x6
		}
		if u.pending != 0 {
			_ = u.sys.Interrupt(u.opts.irq)
		}
		return ret
	case 3: // LCR
		return u.lcr
	case 4: // MCR
		return u.mcr
	case 5: // LSR
		u.pending &^= pendingLSR
		if u.hasRXData {
			return 0x61
		}
		return 0x60
	case 6: // MSR
		ret := u.msr & 0xF0
		if (u.msr & 0x10) != (u.prevMSR & 0x10) {
			ret |= 0x1
		}
		if (u.msr & 0x20) != (u.prevMSR & 0x20) {
			ret |= 0x2
		}
		if (u.msr & 0x80) != (u.prevMSR & 0x80) {
			ret |= 0x8
		}
		u.prevMSR = u.msr
		u.pending &^= pendingMSR
		return ret
	}
	return 0xFF
}

func (u *UART) out(port uint16, val uint8) {
	switch port - u.opts.basePort {
	case 0: // data / divisor LSB
		if u.dlab() {
			u.divisor = (u.divisor & 0xFF00) | uint16(val)
			u.notifyConfig(0)
			return
		}
		u.txData = dataBitsMask[u.lcr&3] & val
		if u.mcr&0x10 != 0 { // loop-back: route TX straight back to RX
			_ = u.WriteRX(u.txData)
			return
		}
		if u.ien&ienTX != 0 {
			u.pending |= pendingTX
			_ = u.sys.Interrupt(u.opts.irq)
		}
		if u.ien&ienLSR != 0 {
			u.pending |= pendingLSR
			_ = u.sys.Interrupt(u.opts.irq)
		}
		if u.onData != nil {
			u.onData(u.txData)
		}
	case 1: // IEN / divisor MSB
		if u.dlab() {
			u.divisor = (u.divisor & 0x00FF) | uint16(val)<<8
			u.notifyConfig(0)
		} else {
			u.ien = val
			u.notifyConfig(1)
		}
	case 3: // LCR
		u.lcr = val
		u.notifyConfig(3)
	case 4: // MCR
		u.mcr = val
		u.notifyConfig(4)
	}
}
