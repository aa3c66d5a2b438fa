package system

import "log"

// InstallIO claims ports [lo, hi] (inclusive) for peripheral p. Later
// registrations overwrite earlier ones for any overlapping port.
func (s *System) InstallIO(p *Peripheral, lo, hi uint16) error {
	if p == nil {
		return &Error{Kind: KindInstall, Cause: errNilPeripheral}
	}
	if lo > hi {
		return &Error{Kind: KindInstall, Peer: p.Name, Cause: errBadRange}
	}
	for port := uint32(lo); port <= uint32(hi); port++ {
		s.portMap[port] = p.id
	}
	return nil
}

// InstallIOAt is InstallIO for a single port.
func (s *System) InstallIOAt(p *Peripheral, port uint16) error {
	return s.InstallIO(p, port, port)
}

// InstallMem claims the paragraph-rounded address range [lo, hi] for
// peripheral p. The map granule is 16 bytes; ranges are rounded outward to
// paragraph boundaries. Last writer wins on overlap.
func (s *System) InstallMem(p *Peripheral, lo, hi uint32) error {
	if p == nil {
		return &Error{Kind: KindInstall, Cause: errNilPeripheral}
	}
	if lo > hi {
		return &Error{Kind: KindInstall, Peer: p.Name, Cause: errBadRange}
	}
	first := lo >> 4
	last := hi >> 4
	if last >= memSlots {
		return &Error{Kind: KindInstall, Peer: p.Name, Cause: errOutOfRange}
	}
	for slot := first; slot <= last; slot++ {
		s.memMap[slot] = p.id
	}
	return nil
}

// MemMap exposes the raw paragraph->peripheral-id map, e.g. for a debugger
// surface that wants to render ownership without going through ReadByte.
func (s *System) MemMap() []uint8 { return s.memMap[:] }

// physical applies the A20 gate: with A20 disabled, bit 20 is forced to 0
// before every memory dispatch, producing the classic 1 MiB wraparound.
func (s *System) physical(addr uint32) uint32 {
	if !s.a20 {
		addr &^= a20Bit
	}
	return addr
}

// ReadByte dispatches a physical memory read through the paragraph map.
// Unmapped slots and peripherals with no Read callback return 0xFF.
func (s *System) ReadByte(addr uint32) uint8 {
	addr = s.physical(addr)
	id := s.memMap[addr>>4]
	p := s.peripherals[id]
	if p.Read == nil {
		if s.strict && id != 0 {
			log.Printf("system: peripheral %s has no Read callback (addr 0x%05x)", p.Name, addr)
		}
		return 0xFF
	}
	return p.Read(addr)
}

// WriteByte dispatches a physical memory write. Unmapped slots and
// peripherals with no Write callback discard the write.
func (s *System) WriteByte(addr uint32, v uint8) {
	addr = s.physical(addr)
	id := s.memMap[addr>>4]
	p := s.peripherals[id]
	if p.Write == nil {
		if s.strict && id != 0 {
			log.Printf("system: peripheral %s has no Write callback (addr 0x%05x)", p.Name, addr)
		}
		return
	}
	p.Write(addr, v)
}

// ReadWord is a little-endian 16-bit read; the low and high bytes are
// dispatched independently and may land on different peripherals if the
// word straddles a mapping boundary.
func (s *System) ReadWord(addr uint32) uint16 {
	lo := s.ReadByte(addr)
	hi := s.ReadByte(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

// WriteWord is a little-endian 16-bit write, symmetric with ReadWord.
func (s *System) WriteWord(addr uint32, v uint16) {
	s.WriteByte(addr, uint8(v))
	s.WriteByte(addr+1, uint8(v>>8))
}

// In dispatches a port read. Ports with no registered peripheral or whose
// peripheral has no In callback return 0.
func (s *System) In(port uint16) uint8 {
	id := s.portMap[port]
	p := s.peripherals[id]
	if p.In == nil {
		if s.strict && id != 0 {
			log.Printf("system: peripheral %s has no In callback (port 0x%04x)", p.Name, port)
		}
		return 0
	}
	return p.In(port)
}

// Out dispatches a port write. Ports with no registered peripheral or whose
// peripheral has no Out callback are ignored.
func (s *System) Out(port uint16, v uint8) {
	id := s.portMap[port]
	p := s.peripherals[id]
	if p.Out == nil {
		if s.strict && id != 0 {
			log.Printf("system: peripheral %s has no Out callback (port 0x%04x)", p.Name, port)
		}
		return
	}
	p.Out(port, v)
}
