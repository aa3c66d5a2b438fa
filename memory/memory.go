// Package memory implements the spec's C3 memory devices: plain RAM, ROM,
// and a randomized null-fill device, all presenting the same Read/Write
// pair to the system substrate. None of them register timers or interrupts;
// ROM is distinguished only by discarding writes.
package memory

import (
	"math/rand"

	"vxtcore/system"
)

// region is the shared backing store for all three variants.
type region struct {
	base uint32
	data []uint8
}

func newRegion(alloc system.Allocator, base uint32, size int) *region {
	if alloc == nil {
		alloc = system.DefaultAllocator{}
	}
	return &region{base: base, data: alloc.Alloc(size)}
}

func (r *region) read(addr uint32) uint8 { return r.data[addr-r.base] }

func newPeripheral(name string, r *region, write func(addr uint32, v uint8)) *system.Peripheral {
	p := &system.Peripheral{Name: name, Class: "memory", State: r, Read: r.read, Write: write}
	hi := r.base + uint32(len(r.data)) - 1
	p.Install = func(s *system.System) error { return s.InstallMem(p, r.base, hi) }
	return p
}

// NewRAM creates a read/write memory device of size bytes starting at base.
func NewRAM(alloc system.Allocator, base uint32, size int) *system.Peripheral {
	r := newRegion(alloc, base, size)
	return newPeripheral("ram", r, func(addr uint32, v uint8) { r.data[addr-r.base] = v })
}

// NewROM creates a read-only memory device of size bytes at base, optionally
// pre-filled with fill (truncated or zero-padded to size). Writes are
// silently discarded, matching real ROM behaviour.
func NewROM(alloc system.Allocator, base uint32, size int, fill []uint8) *system.Peripheral {
	r := newRegion(alloc, base, size)
	copy(r.data, fill)
	return newPeripheral("rom", r, func(addr uint32, v uint8) {})
}

// NewNullFill creates a memory device seeded with random bytes at
// construction time, as real uninitialized RAM would read before a memory
// test runs, writable like RAM thereafter.
func NewNullFill(alloc system.Allocator, base uint32, size int, seed int64) *system.Peripheral {
	r := newRegion(alloc, base, size)
	rand.New(rand.NewSource(seed)).Read(r.data)
	return newPeripheral("null-fill", r, func(addr uint32, v uint8) { r.data[addr-r.base] = v })
}
