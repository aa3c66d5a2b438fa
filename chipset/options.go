package chipset

// Option configures a chipset peripheral at construction time. spec.md
// models per-device construction config as a late-bound "config" string;
// SPEC_FULL.md's ambient stack replaces that with typed Go functional
// options, leaving Peripheral.Config (system/config.go's ParseConfig) only
// for the rare late rebind.
type Option func(*options)

type options struct {
	irq       int
	baseFreq  uint64
	basePort  uint16
	atVariant bool
}

func newOptions(irq int, basePort uint16, opts ...Option) options {
	o := options{irq: irq, basePort: basePort, baseFreq: 1_193_182}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIRQ overrides a peripheral's default interrupt line.
func WithIRQ(n int) Option { return func(o *options) { o.irq = n } }

// WithBaseFrequency records a reference oscillator frequency in Hz. No
// peripheral in this package reads it: the PIT takes no options and always
// counts at its fixed 1,193,182 Hz oscillator.
func WithBaseFrequency(hz uint64) Option { return func(o *options) { o.baseFreq = hz } }

// WithBasePort overrides a peripheral's base I/O port (UART COM2 at 0x2F8
// instead of COM1's 0x3F8, or a mouse sharing a non-default UART base).
func WithBasePort(port uint16) Option { return func(o *options) { o.basePort = port } }

// WithATVariant selects AT-style behaviour: the KBC's port 0x64/0x92
// surface and Fast-A20 support, layered over the plain PC/XT PPI.
func WithATVariant(b bool) Option { return func(o *options) { o.atVariant = b } }
