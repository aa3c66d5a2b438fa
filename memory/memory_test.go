package memory

import (
	"testing"

	"vxtcore/system"
)

func newTestSystem(t *testing.T, peripherals ...*system.Peripheral) *system.System {
	t.Helper()
	sys, err := system.Create(nil, system.Intel8088, 1_000_000, nil, peripherals)
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.Initialize(); err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestRAMReadAfterWrite(t *testing.T) {
	ram := NewRAM(nil, 0, 0x10000)
	sys := newTestSystem(t, ram)
	sys.WriteByte(0x200, 0x42)
	if got := sys.ReadByte(0x200); got != 0x42 {
		t.Fatalf("got 0x%02x, want 0x42", got)
	}
}

func TestROMDiscardsWrites(t *testing.T) {
	rom := NewROM(nil, 0xFE000, 0x2000, []uint8{0x55, 0xAA})
	sys := newTestSystem(t, rom)
	if got := sys.ReadByte(0xFE000); got != 0x55 {
		t.Fatalf("got 0x%02x, want 0x55", got)
	}
	sys.WriteByte(0xFE000, 0x00)
	if got := sys.ReadByte(0xFE000); got != 0x55 {
		t.Fatalf("ROM write was not discarded: got 0x%02x", got)
	}
}

func TestNullFillIsDeterministicPerSeed(t *testing.T) {
	a := NewNullFill(nil, 0, 0x1000, 42)
	b := NewNullFill(nil, 0, 0x1000, 42)
	sysA := newTestSystem(t, a)
	sysB := newTestSystem(t, b)
	for addr := uint32(0); addr < 0x1000; addr++ {
		if sysA.ReadByte(addr) != sysB.ReadByte(addr) {
			t.Fatalf("same-seed null-fill diverged at 0x%x", addr)
		}
	}
}
