package video

import "vxtcore/system"

// cga.c itself was not present in the retrieved source (only the public
// header modules/cga/cga.h, which declares create/border_color/snapshot/
// render but defines none of them). This adapter's port/register shape is
// grounded on modules/vga/vga.c's CGA-compatible register handling (the
// same 0x3D4/0x3D5/0x3D8/0x3D9/0x3DA ports, mode_ctrl_reg/color_ctrl_reg
// semantics, and cgaPalette) and the text-mode dirty-cell traversal style
// of lib/vxt/mda.c; the even/odd bank-interleaved graphics memory layout
// and mode-control-register bit meanings follow the documented IBM CGA
// hardware behaviour those two sources assume but don't themselves restate.

const (
	cgaMemSize = 0x4000 // 16 KiB, even/odd scanline banks of 0x2000 each
	cgaBase    = 0xB8000
)

// Mode control register bits (port 0x3D8).
const (
	cgaModeText80   = 1 << 0
	cgaModeGraphics = 1 << 1
	cgaModeBW       = 1 << 2
	cgaModeEnable   = 1 << 3
	cgaModeHiRes    = 1 << 4
	cgaModeBlink    = 1 << 5
)

// CGA is a CGA-compatible adapter at 0xB8000-0xBFFFF (16 KiB of VRAM,
// mirrored twice) / ports 0x3D0-0x3DF,
// supporting 80/40-column text and the 320x200x4 and 640x200x1 graphics
// modes.
type CGA struct {
	mem       [cgaMemSize]uint8
	dirtyCell [cgaMemSize / 2]bool
	isDirty   bool

	cursorVisible bool
	cursorOffset  int

	refresh     uint8
	modeCtrlReg uint8
	colorCtrl   uint8
	crtAddr     uint8
	crtReg      [0x100]uint8

	sys *system.System
	p   *system.Peripheral
}

// NewCGA creates an uninstalled CGA adapter.
func NewCGA() *system.Peripheral {
	c := &CGA{}
	p := &system.Peripheral{Name: "cga", Class: "video", State: c}
	p.Install = func(s *system.System) error {
		c.sys = s
		if err := s.InstallMem(p, cgaBase, cgaBase+0x7FFF); err != nil {
			return err
		}
		return s.InstallIO(p, 0x3D0, 0x3DF)
	}
	p.Reset = func(state []byte) error {
		if state != nil {
			return &system.Error{Kind: system.KindCantRestore, Peer: p.Name}
		}
		c.cursorVisible = true
		c.cursorOffset = 0
		c.isDirty = true
		c.modeCtrlReg = cgaModeText80 | cgaModeEnable
		for i := range c.dirtyCell {
			c.dirtyCell[i] = true
		}
		return nil
	}
	p.Read = c.read
	p.Write = c.write
	p.In = c.in
	p.Out = c.out
	c.p = p
	return p
}

func (c *CGA) read(addr uint32) uint8 {
	return c.mem[(addr-cgaBase)&(cgaMemSize-1)]
}

func (c *CGA) write(addr uint32, data uint8) {
	off := (addr - cgaBase) & (cgaMemSize - 1)
	c.mem[off] = data
	c.dirtyCell[off/2] = true
	c.isDirty = true
}

func (c *CGA) in(port uint16) uint8 {
	switch port {
	case 0x3DA:
		c.refresh ^= 0x9
		return c.refresh
	case 0x3D8:
		return c.modeCtrlReg
	case 0x3D9:
		return c.colorCtrl
	case 0x3D4:
		return c.crtAddr
	case 0x3D5:
		return c.crtReg[c.crtAddr]
	}
	return 0
}

func (c *CGA) out(port uint16, data uint8) {
	c.isDirty = true
	switch port {
	case 0x3D8:
		c.modeCtrlReg = data
	case 0x3D9:
		c.colorCtrl = data
	case 0x3D4:
		c.crtAddr = data
	case 0x3D5:
		c.crtReg[c.crtAddr] = data
		dirty := func() { c.dirtyCell[c.cursorOffset&0x7FF] = true }
		switch c.crtAddr {
		case 0xA:
			c.cursorVisible = data&0x20 != 0
			dirty()
		case 0xE:
			dirty()
			c.cursorOffset = (c.cursorOffset &^ 0xFF00) | int(data)<<8
			dirty()
		case 0xF:
			dirty()
			c.cursorOffset = (c.cursorOffset &^ 0x00FF) | int(data)
			dirty()
		}
	}
}

// BorderColor returns the current border/background color, resolved from
// the color control register the same way vga.c's border_color callback
// resolves vga_video.reg.color_ctrl_reg.
func (c *CGA) BorderColor() uint32 { return cgaPalette[c.colorCtrl&0xF] }

// Invalidate forces the next TraverseText to report every cell.
func (c *CGA) Invalidate() { c.isDirty = true }

// TraverseText visits every dirty text-mode cell since the last call (or
// every cell after Invalidate), in the same combined snapshot+render style
// as MDA.Traverse. columns reports the active text width (40 or 80).
func (c *CGA) TraverseText(f func(cell int, ch uint8, fg, bg uint8, blink bool, cursor int) error) (columns int, err error) {
	columns = 40
	if c.modeCtrlReg&cgaModeText80 != 0 {
		columns = 80
	}
	cursor := -1
	if c.cursorVisible {
		cursor = c.cursorOffset & 0x7FF
	}

	cells := columns * 25
	for i := 0; i < cells; i++ {
		if !c.isDirty && !c.dirtyCell[i] {
			continue
		}
		ch := c.mem[i*2]
		a := c.mem[i*2+1]
		fg := a & 0xF
		bg := (a >> 4) & 0x7
		blink := a&0x80 != 0 && c.modeCtrlReg&cgaModeBlink != 0

		if err := f(i, ch, fg, bg, blink, cursor); err != nil {
			return columns, err
		}
		c.dirtyCell[i] = false
	}
	c.isDirty = false
	return columns, nil
}

// SnapshotGraphics freezes the current 320x200 (4-color) or 640x200
// (2-color) graphics-mode VRAM into a pixel Snapshot for Render, using the
// even/odd scanline bank interleave real CGA hardware addresses graphics
// memory with.
func (c *CGA) SnapshotGraphics() *Snapshot {
	hiRes := c.modeCtrlReg&cgaModeHiRes != 0
	width := 320
	if hiRes {
		width = 640
	}
	snap := newSnapshot(width, 200)

	palette := c.graphicsPalette(hiRes)
	bytesPerLine := width / 4
	if hiRes {
		bytesPerLine = width / 8
	}

	for y := 0; y < 200; y++ {
		bank := (y & 1) * 0x2000
		rowOff := bank + (y>>1)*bytesPerLine
		for x := 0; x < width; x++ {
			var idx uint8
			if hiRes {
				b := c.mem[(rowOff+x/8)&(cgaMemSize-1)]
				idx = (b >> (7 - uint(x%8))) & 1
			} else {
				b := c.mem[(rowOff+x/4)&(cgaMemSize-1)]
				shift := 6 - 2*(x%4)
				idx = (b >> uint(shift)) & 3
			}
			snap.set(x, y, palette[idx])
		}
	}
	return snap
}

func (c *CGA) graphicsPalette(hiRes bool) [4]uint32 {
	bg := cgaPalette[c.colorCtrl&0xF]
	if hiRes {
		return [4]uint32{bg, cgaPalette[0xF], 0, 0}
	}
	intensity := uint32(0)
	if c.colorCtrl&0x10 != 0 {
		intensity = 8
	}
	if c.colorCtrl&0x20 != 0 { // palette select: green/red/brown
		return [4]uint32{bg, cgaPalette[intensity+2], cgaPalette[intensity+4], cgaPalette[intensity+6]}
	}
	return [4]uint32{bg, cgaPalette[intensity+3], cgaPalette[intensity+5], cgaPalette[intensity+7]} // cyan/magenta/white
}
