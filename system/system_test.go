package system

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
)

// nopExecutor consumes exactly one cycle per instruction and never touches
// registers; it exists so Step's timer/interrupt bookkeeping can be tested
// without a real 8088 decoder.
type nopExecutor struct {
	executed  int
	acked     []uint8
	execErr   error
	failAfter int
}

func (e *nopExecutor) ExecuteOne(sys *System) (int, error) {
	e.executed++
	if e.failAfter > 0 && e.executed >= e.failAfter {
		return 1, e.execErr
	}
	return 1, nil
}

func (e *nopExecutor) Interrupt(sys *System, vector uint8) {
	e.acked = append(e.acked, vector)
}

func ramPeripheral(size uint32) *Peripheral {
	buf := make([]uint8, size)
	return &Peripheral{
		Name:  "ram",
		Class: "memory",
		Read:  func(addr uint32) uint8 { return buf[addr] },
		Write: func(addr uint32, v uint8) { buf[addr] = v },
	}
}

func romPeripheral(size uint32) *Peripheral {
	buf := make([]uint8, size)
	return &Peripheral{
		Name:  "rom",
		Class: "memory",
		Read:  func(addr uint32) uint8 { return buf[addr] },
		Write: func(addr uint32, v uint8) {},
	}
}

func TestReadWriteByteRAM(t *testing.T) {
	exec := &nopExecutor{}
	ram := ramPeripheral(0x10000)
	sys, err := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{ram})
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.InstallMem(ram, 0, 0xFFFF); err != nil {
		t.Fatal(err)
	}
	sys.WriteByte(0x1234, 0x5A)
	if got := sys.ReadByte(0x1234); got != 0x5A {
		t.Fatalf("got 0x%02x, want 0x5A", got)
	}
}

func TestReadWriteByteROMDiscardsWrites(t *testing.T) {
	exec := &nopExecutor{}
	rom := romPeripheral(0x10000)
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{rom})
	_ = sys.InstallMem(rom, 0, 0xFFFF)
	before := sys.ReadByte(0x100)
	sys.WriteByte(0x100, 0xAA)
	if got := sys.ReadByte(0x100); got != before {
		t.Fatalf("ROM write was not discarded: got 0x%02x, want 0x%02x", got, before)
	}
}

func TestUnmappedMemoryReturnsFF(t *testing.T) {
	exec := &nopExecutor{}
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, nil)
	if got := sys.ReadByte(0x5000); got != 0xFF {
		t.Fatalf("got 0x%02x, want 0xFF", got)
	}
	// Unmapped write must not panic and must be silently discarded.
	sys.WriteByte(0x5000, 0x42)
}

func TestA20Wraparound(t *testing.T) {
	exec := &nopExecutor{}
	ram := ramPeripheral(0x110000)
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{ram})
	_ = sys.InstallMem(ram, 0, 0x10FFFF)

	sys.WriteByte(0x000100, 0x5A)
	sys.SetA20(false)
	if got := sys.ReadByte(0x100100); got != 0x5A {
		t.Fatalf("A20 wraparound failed: got 0x%02x, want 0x5A", got)
	}
	sys.SetA20(true)
	sys.WriteByte(0x100100, 0x77)
	if got := sys.ReadByte(0x000100); got != 0x5A {
		t.Fatalf("A20 enabled must not alias: got 0x%02x, want 0x5A", got)
	}
}

func TestPortDispatchLastWriterWins(t *testing.T) {
	exec := &nopExecutor{}
	var aVal, bVal uint8
	a := &Peripheral{Name: "a", In: func(uint16) uint8 { return 0x11 }, Out: func(_ uint16, v uint8) { aVal = v }}
	b := &Peripheral{Name: "b", In: func(uint16) uint8 { return 0x22 }, Out: func(_ uint16, v uint8) { bVal = v }}
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{a, b})
	_ = sys.InstallIO(a, 0x60, 0x6F)
	_ = sys.InstallIO(b, 0x60, 0x6F) // overlapping, registered later: wins

	if got := sys.In(0x65); got != 0x22 {
		t.Fatalf("got 0x%02x, want 0x22 (last writer wins)", got)
	}
	sys.Out(0x65, 0x99)
	if aVal != 0 || bVal != 0x99 {
		t.Fatalf("Out routed to wrong peripheral: aVal=%d bVal=%d", aVal, bVal)
	}
}

func TestUnmappedPortReadIsZero(t *testing.T) {
	exec := &nopExecutor{}
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, nil)
	if got := sys.In(0x300); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestStepConsumesBudgetAndRunsExecutor(t *testing.T) {
	exec := &nopExecutor{}
	sys, _ := Create(nil, Intel8088, 4_772_727, exec, nil)
	consumed, err := sys.Step(10)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 10 || exec.executed != 10 {
		t.Fatalf("consumed=%d executed=%d, want 10/10", consumed, exec.executed)
	}
}

func TestStepServicesInterruptWhenIFSet(t *testing.T) {
	exec := &nopExecutor{}
	pic := newFakePIC()
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{pic})
	sys.Registers().Flags = FlagIF
	pic.irr = 1 // IRQ0 pending, unmasked

	if _, err := sys.Step(1); err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(exec.acked, []uint8{0x08}); diff != nil {
		t.Fatalf("unexpected interrupt acks: %v", diff)
	}
}

func TestStepPropagatesTimerError(t *testing.T) {
	exec := &nopExecutor{}
	boom := errors.New("boom")
	broken := &Peripheral{Name: "broken", Timer: func(*System) error { return boom }}
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, []*Peripheral{broken})
	if _, err := sys.InstallTimer(broken, 0); err != nil {
		t.Fatal(err)
	}
	_, err := sys.Step(5)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}
	if exec.executed != 0 {
		t.Fatalf("executor ran despite timer error")
	}
}

func TestResetRestoresVector(t *testing.T) {
	exec := &nopExecutor{}
	sys, _ := Create(nil, Intel8088, 1_000_000, exec, nil)
	sys.Registers().CS = 0x1234
	sys.SetA20(false)
	if err := sys.Reset(); err != nil {
		t.Fatal(err)
	}
	if !sys.A20Enabled() {
		t.Fatal("Reset must re-enable A20")
	}
	if sys.Registers().CS != 0xF000 || sys.Registers().IP != 0xFFF0 {
		t.Fatalf("got CS:IP %04x:%04x, want F000:FFF0", sys.Registers().CS, sys.Registers().IP)
	}
}

// a minimal fake PIC-class peripheral exercising only the substrate contract
// (IRR/mask/vector), independent of the real chipset.PIC implementation.
type fakePIC struct {
	irr, mask, isr uint8
}

func newFakePIC() *Peripheral {
	f := &fakePIC{}
	p := &Peripheral{Name: "pic", Class: "pic", State: f}
	p.PICIrq = func(n int) error {
		f.irr |= 1 << uint(n)
		return nil
	}
	p.PICNext = func() int {
		for i := 0; i < 8; i++ {
			bit := uint8(1) << uint(i)
			if f.irr&bit != 0 && f.mask&bit == 0 && f.isr&bit == 0 {
				f.irr &^= bit
				f.isr |= bit
				return 0x08 + i
			}
		}
		return -1
	}
	return p
}
