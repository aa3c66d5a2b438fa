package video

import "vxtcore/system"

const mdaMemSize = 0x1000 // 4 KiB, 2048 (char, attrib) cell pairs; 80x25 = 2000 are on screen

// MDAAttrib is the decoded per-cell text attribute a Traverse callback
// receives, resolved from the raw attribute byte the same way
// lib/vxt/mda.c's vxtu_mda_traverse does.
type MDAAttrib uint8

const (
	MDAUnderline MDAAttrib = 1 << iota
	MDAHighIntensity
	MDABlink
	MDAInverse
)

// MDA is an MDA-compatible text-only video adapter at 0xB0000-0xB7FFF /
// ports 0x3B0-0x3BF.
type MDA struct {
	mem       [mdaMemSize]uint8
	dirtyCell [mdaMemSize / 2]bool
	isDirty   bool

	cursorVisible bool
	cursorOffset  int

	refresh     uint8
	modeCtrlReg uint8
	crtAddr     uint8
	crtReg      [0x100]uint8

	sys *system.System
	p   *system.Peripheral
}

// NewMDA creates an uninstalled MDA adapter.
func NewMDA() *system.Peripheral {
	m := &MDA{}
	p := &system.Peripheral{Name: "mda", Class: "video", State: m}
	p.Install = func(s *system.System) error {
		m.sys = s
		if err := s.InstallMem(p, 0xB0000, 0xB7FFF); err != nil {
			return err
		}
		return s.InstallIO(p, 0x3B0, 0x3BF)
	}
	p.Reset = func(state []byte) error {
		if state != nil {
			return &system.Error{Kind: system.KindCantRestore, Peer: p.Name}
		}
		m.cursorVisible = true
		m.cursorOffset = 0
		m.isDirty = true
		for i := range m.dirtyCell {
			m.dirtyCell[i] = true
		}
		return nil
	}
	p.Read = m.read
	p.Write = m.write
	p.In = m.in
	p.Out = m.out
	m.p = p
	return p
}

func (m *MDA) read(addr uint32) uint8 {
	return m.mem[(addr-0xB0000)&(mdaMemSize-1)]
}

func (m *MDA) write(addr uint32, data uint8) {
	off := (addr - 0xB0000) & (mdaMemSize - 1)
	m.mem[off] = data
	m.dirtyCell[off/2] = true
}

func (m *MDA) in(port uint16) uint8 {
	if port == 0x3BA {
		m.refresh ^= 0x9
		return m.refresh
	}
	if port&1 != 0 { // 0x3B1, 0x3B3, 0x3B5, 0x3B7
		return m.crtReg[m.crtAddr]
	}
	return 0
}

func (m *MDA) out(port uint16, data uint8) {
	m.isDirty = true
	if port == 0x3B8 {
		m.modeCtrlReg = data
		return
	}
	if port&1 != 0 { // 0x3B1, 0x3B3, 0x3B5, 0x3B7
		m.crtReg[m.crtAddr] = data
		dirty := func() { m.dirtyCell[m.cursorOffset&0x7FF] = true }
		switch m.crtAddr {
		case 0xA:
			m.cursorVisible = data&0x20 != 0
			dirty()
		case 0xE:
			dirty()
			m.cursorOffset = (m.cursorOffset &^ 0xFF00) | int(data)<<8
			dirty()
		case 0xF:
			dirty()
			m.cursorOffset = (m.cursorOffset &^ 0x00FF) | int(data)
			dirty()
		}
		return
	}
	m.crtAddr = data
}

// Invalidate forces the next Traverse to report every cell, mirroring
// vxtu_mda_invalidate (used by a frontend that loses and regains its
// surface and needs a full repaint).
func (m *MDA) Invalidate() { m.isDirty = true }

// Traverse visits every dirty cell since the last call (or every cell, the
// first time or after Invalidate), in the combined snapshot+render style of
// vxtu_mda_traverse: MDA's whole working set fits in 4 KiB, so unlike CGA/
// VGA there is no separate frozen copy, just a per-cell dirty bitmap.
// cursor is the character offset of the visible cursor, or -1 if hidden.
func (m *MDA) Traverse(f func(cell int, ch uint8, attrib MDAAttrib, cursor int) error) error {
	cursor := -1
	if m.cursorVisible {
		cursor = m.cursorOffset & 0x7FF
	}

	for i := 0; i < mdaMemSize/2; i++ {
		if !m.isDirty && !m.dirtyCell[i] {
			continue
		}
		ch := m.mem[i*2]
		a := m.mem[i*2+1]

		var attrib MDAAttrib
		if a&7 == 1 {
			attrib |= MDAUnderline
		}
		if a&8 != 0 {
			attrib |= MDAHighIntensity
		}
		if a&0x80 != 0 && m.modeCtrlReg&0x20 != 0 {
			attrib |= MDABlink
		}

		switch a {
		case 0x0, 0x8, 0x80, 0x88:
			attrib = 0
			ch = ' '
		case 0x70, 0x78:
			attrib |= MDAInverse
		case 0xF0, 0xF8:
			attrib |= MDAInverse
			if m.modeCtrlReg&0x20 != 0 {
				attrib |= MDABlink
			}
		}

		if err := f(i, ch, attrib, cursor); err != nil {
			return err
		}
		m.dirtyCell[i] = false
	}

	m.isDirty = false
	return nil
}
