// Package system implements the device-composition substrate of the PC/XT
// emulator core: the peripheral table, the flat address/port dispatch maps,
// the timer list, the interrupt path, and the cycle clock. It hosts an
// external Executor (the 8088/V20 decoder, out of scope here) and an
// arbitrary set of Peripherals.
package system

import (
	"errors"
	"fmt"
	"log"
)

const (
	// MaxPeripherals bounds the peripheral table; id 0 is the reserved "none" device.
	MaxPeripherals = 32
	// memSlots is the number of paragraph-granularity slots across the
	// addressable range. Sized to 0x110000 bytes (1 MiB plus the classic
	// ~64 KiB high memory area above 0x100000) rather than exactly 1 MiB:
	// with A20 enabled, addresses in 0x100000-0x10FFFF must resolve to
	// distinct slots from their wrapped 0x000000-0x0FFFF counterparts, or
	// the A20-disabled wraparound test (spec.md §8) would be vacuous.
	memSlots = 0x11000
	// portSlots is the number of one-byte-granularity I/O ports.
	portSlots = 1 << 16
	// a20Bit is address bit 20, forced low when the A20 gate is disabled.
	a20Bit = 1 << 20
)

var (
	errNilPeripheral = errors.New("nil peripheral")
	errBadRange      = errors.New("lo > hi")
	errOutOfRange    = errors.New("address out of range")
	errTooMany       = fmt.Errorf("system: at most %d peripherals", MaxPeripherals-1)
)

// System is the process-wide emulation context: CPU frequency/variant,
// register file, physical memory map, port dispatch map, interrupt line,
// A20 gate, timer list, and peripheral table (spec.md §3).
type System struct {
	variant   CPUVariant
	freqHz    uint64
	allocator Allocator
	executor  Executor

	regs Registers

	memMap  [memSlots]uint8
	portMap [portSlots]uint8

	peripherals [MaxPeripherals]*Peripheral
	count       uint8

	a20 bool

	timers  []timerEntry
	clockNs uint64

	debugTrap  bool
	waitCycles int

	strict bool // when true, unhandled I/O/memory access is logged
}

// Create allocates a System, copies the peripheral list, and assigns ids
// 1..N in registration order. Id 0 is the "none" device: reads return 0xFF,
// writes are discarded. Peripheral.Install is NOT called here; call
// Initialize once the System and all peripherals have been constructed.
func Create(alloc Allocator, variant CPUVariant, freqHz uint64, executor Executor, peripherals []*Peripheral) (*System, error) {
	if len(peripherals) >= MaxPeripherals {
		return nil, errTooMany
	}
	if alloc == nil {
		alloc = DefaultAllocator{}
	}
	s := &System{
		variant:   variant,
		freqHz:    freqHz,
		allocator: alloc,
		executor:  executor,
		a20:       true,
	}
	none := &Peripheral{Name: "none", Class: "none"}
	s.peripherals[0] = none
	for i, p := range peripherals {
		if p == nil {
			return nil, &Error{Kind: KindInstall, Cause: errNilPeripheral}
		}
		p.id = uint8(i + 1)
		s.peripherals[i+1] = p
	}
	s.count = uint8(len(peripherals))
	return s, nil
}

// SetStrict toggles logging of port/address accesses that reach a
// peripheral lacking the matching callback, and of Interrupt calls made with
// no PIC-class peripheral installed, useful while bringing up a new
// peripheral set. Accesses to unmapped ports/addresses are not logged. Real PC behaviour (return 0xFF / discard)
// is unchanged either way; this only affects diagnostics.
func (s *System) SetStrict(strict bool) { s.strict = strict }

// Initialize calls each peripheral's Install callback in registration
// order. A non-nil return from any Install aborts initialization.
func (s *System) Initialize() error {
	for i := uint8(1); i <= s.count; i++ {
		p := s.peripherals[i]
		if p.Install == nil {
			continue
		}
		if err := p.Install(s); err != nil {
			return &Error{Kind: KindInstall, Peer: p.Name, Cause: err}
		}
	}
	return nil
}

// Reset re-enables A20, disarms the debug trap, drops pending wait cycles,
// rewinds the emulated clock and every timer's deadline, and calls each
// peripheral's Reset(nil) in registration order (the PIC's own reset clears
// its pending requests). It then zeroes the whole register file except
// CS:IP, which it sets to the reset vector F000:FFF0 for the executor to
// resume fetching from.
func (s *System) Reset() error {
	s.a20 = true
	s.debugTrap = false
	s.waitCycles = 0
	s.clockNs = 0
	for i := range s.timers {
		s.timers[i].deadline = s.timers[i].interval
	}
	for i := uint8(1); i <= s.count; i++ {
		p := s.peripherals[i]
		if p.Reset == nil {
			continue
		}
		if err := p.Reset(nil); err != nil {
			return &Error{Kind: KindInstall, Peer: p.Name, Cause: err}
		}
	}
	s.regs = Registers{CS: 0xF000, IP: 0xFFF0}
	return nil
}

// Destroy calls each peripheral's Destroy callback in reverse installation order.
func (s *System) Destroy() error {
	for i := s.count; i >= 1; i-- {
		p := s.peripherals[i]
		if p.Destroy == nil {
			continue
		}
		if err := p.Destroy(s); err != nil {
			return &Error{Kind: KindInstall, Peer: p.Name, Cause: err}
		}
	}
	return nil
}

// Step advances the executor by up to cycleBudget 8088 clocks. Within a
// step: (a) timers are ticked using the whole requested budget converted to
// nanoseconds, coalescing any missed periods; (b) the executor runs one
// instruction at a time until the budget is exhausted or a debug trap is
// set; (c) after each instruction, a pending interrupt is serviced if
// FlagIF is set. Returns the cycles actually consumed and the first error
// from either a timer callback or the executor.
func (s *System) Step(cycleBudget int) (int, error) {
	elapsedNs := uint64(cycleBudget) * 1_000_000_000 / s.freqHz
	if err := s.tickTimers(elapsedNs); err != nil {
		return 0, err
	}

	consumed := 0
	for consumed < cycleBudget {
		if s.waitCycles > 0 {
			take := s.waitCycles
			if take > cycleBudget-consumed {
				take = cycleBudget - consumed
			}
			s.waitCycles -= take
			consumed += take
			continue
		}
		if s.debugTrap {
			break
		}
		if s.executor == nil {
			break
		}
		n, err := s.executor.ExecuteOne(s)
		consumed += n
		if err != nil {
			return consumed, err
		}
		if s.regs.Flags&FlagIF != 0 {
			if vec := s.pendingInterrupt(); vec >= 0 {
				s.executor.Interrupt(s, uint8(vec))
			}
		}
		if n == 0 {
			// An executor that makes no forward progress would spin forever;
			// treat it as the budget being exhausted.
			break
		}
	}
	return consumed, nil
}

// pendingInterrupt asks the PIC-class peripheral (the one with PICNext set)
// for its next vector, or -1 if none is installed or none is pending.
func (s *System) pendingInterrupt() int {
	for i := uint8(1); i <= s.count; i++ {
		p := s.peripherals[i]
		if p.PICNext != nil {
			return p.PICNext()
		}
	}
	return -1
}

// Interrupt injects an IRQ line event, delegated to the PIC-class peripheral.
func (s *System) Interrupt(irq int) error {
	for i := uint8(1); i <= s.count; i++ {
		p := s.peripherals[i]
		if p.PICIrq != nil {
			return p.PICIrq(irq)
		}
	}
	if s.strict {
		log.Printf("system: Interrupt(%d) with no PIC-class peripheral installed", irq)
	}
	return nil
}

// SetA20 toggles the wraparound mask applied before every memory dispatch.
func (s *System) SetA20(enabled bool) { s.a20 = enabled }

// A20Enabled reports the current gate state.
func (s *System) A20Enabled() bool { return s.a20 }

// Wait requests the executor stall for N cycles on the next Step boundary,
// the disk controller's sole means of modelling I/O latency.
func (s *System) Wait(cycles int) { s.waitCycles += cycles }

// SetDebugTrap arms or disarms the single-step trap that stops Step early.
func (s *System) SetDebugTrap(trap bool) { s.debugTrap = trap }

// DebugTrap reports whether the debug trap is currently armed.
func (s *System) DebugTrap() bool { return s.debugTrap }

// Frequency returns the CPU clock rate in Hz.
func (s *System) Frequency() uint64 { return s.freqHz }

// ClockNs returns the total emulated time elapsed since the last Reset, in
// nanoseconds. Timer-driven peripherals (the PIT's oscillator countdown)
// use this to compute the delta since their last invocation.
func (s *System) ClockNs() uint64 { return s.clockNs }

// Debug reports whether the executor's single-step debug trap is armed,
// the condition under which the PIT suppresses counter decrement to keep
// stepping deterministic (spec.md §4.5).
func (s *System) Debug() bool { return s.debugTrap }

// Variant returns the configured CPU variant.
func (s *System) Variant() CPUVariant { return s.variant }

// Registers returns a pointer to the live register file, shared by the
// executor and any peripheral that inspects CPU state (e.g. the disk
// controller's BIOS call convention).
func (s *System) Registers() *Registers { return &s.regs }

// Allocator returns the allocator handle System was created with.
func (s *System) Allocator() Allocator { return s.allocator }

// Peripheral looks up an installed peripheral by id. Id 0 is the always the "none" device.
func (s *System) Peripheral(id uint8) *Peripheral { return s.peripherals[id] }

// PeripheralClass returns the class string of a peripheral, a convenience
// for monitor/inspector code that wants to group devices without importing
// concrete device packages.
func (s *System) PeripheralClass(p *Peripheral) string {
	if p == nil {
		return ""
	}
	return p.Class
}
