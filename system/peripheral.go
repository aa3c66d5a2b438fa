package system

// Peripheral is the uniform capability contract every device presents to
// the substrate (spec C1). A device declares whichever subset of callbacks
// it needs; the substrate never inspects State directly, it only invokes
// whatever callbacks are non-nil. Callers build one with a constructor like
// chipset.NewPIC, which populates the closures over its own device state
// and returns the Peripheral for System.Create.
type Peripheral struct {
	Name  string
	Class string

	// State is the device's own data, opaque to the substrate. Kept here so
	// monitor/inspector code can type-switch on it without a second lookup
	// table; the callbacks below are the only contract the substrate relies on.
	State any

	// Install is called exactly once, during System.Initialize, in
	// registration order. It is expected to call System.InstallIO/
	// InstallIOAt/InstallMem/InstallTimer to claim address/port ranges.
	Install func(s *System) error
	// Destroy is called during teardown, in reverse installation order.
	Destroy func(s *System) error
	// Reset is called on system reset and whenever the executor requests a
	// reset. state == nil means power-on reset; state != nil asks the
	// peripheral to restore from a snapshot, which may fail with a
	// KindCantRestore error.
	Reset func(state []byte) error
	// Timer fires when one of this peripheral's registered timers reaches
	// its deadline.
	Timer func(s *System) error
	// Config re-interprets a late-bound configuration string (the "config"
	// callback of the spec). Most peripherals are fully configured at
	// construction time via functional options and never need this.
	Config func(s *System, cfg string) error

	// In/Out service single-byte port I/O.
	In  func(port uint16) uint8
	Out func(port uint16, val uint8)
	// Read/Write service single-byte memory-mapped access.
	Read  func(addr uint32) uint8
	Write func(addr uint32, val uint8)

	// DMARead/DMAWrite are the DMA-class peripheral's per-channel memory
	// walk (spec.md §4.2's dma.read/dma.write): a requesting peripheral
	// that needs a DMA-mediated byte looks up the DMA peripheral via
	// System.Peripheral and calls these fields directly.
	DMARead  func(channel int) uint8
	DMAWrite func(channel int, val uint8)

	// PICNext/PICIrq are the PIC-class peripheral's contract; exactly one
	// installed peripheral is expected to set these.
	PICNext func() int
	PICIrq  func(n int) error

	id uint8
}

// ID returns the peripheral id assigned at registration (1..N; 0 is the
// reserved "none" sentinel). Valid only after the peripheral has been
// passed to System.Create.
func (p *Peripheral) ID() uint8 { return p.id }

// MonitorEntry is a named (pointer, size, format) tuple a peripheral can
// register for debugger/inspector surfaces. Entries are bookkeeping only;
// the substrate never reads through Ptr itself.
type MonitorEntry struct {
	Name   string
	Ptr    any
	Size   int
	Format string
}
