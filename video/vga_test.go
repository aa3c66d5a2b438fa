package video

import (
	"testing"

	"vxtcore/system"
)

func newVGASystem(t *testing.T, vgaP *system.Peripheral) *system.System {
	t.Helper()
	sys, err := system.Create(nil, system.Intel8088, 1_000_000, nil, []*system.Peripheral{vgaP})
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.Initialize(); err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestVGADACPaletteReadAfterWrite(t *testing.T) {
	vgaP := NewVGA()
	sys := newVGASystem(t, vgaP)

	sys.Out(0x3C8, 0x05) // write index 5
	sys.Out(0x3C9, 0x3F) // R
	sys.Out(0x3C9, 0x20) // G
	sys.Out(0x3C9, 0x10) // B

	sys.Out(0x3C7, 0x05) // read index 5
	r := sys.In(0x3C9)
	g := sys.In(0x3C9)
	b := sys.In(0x3C9)
	if r != 0x3F || g != 0x20 || b != 0x10 {
		t.Fatalf("palette[5] readback = %x %x %x, want 3f 20 10", r, g, b)
	}
}

func TestVGAWriteModeZeroMapMaskRestrictsPlanes(t *testing.T) {
	vgaP := NewVGA()
	v := vgaP.State.(*VGA)
	sys := newVGASystem(t, vgaP)

	v.videoMode = 0x12 // planar 16-color mode
	sys.Out(0x3C4, 2)
	sys.Out(0x3C5, 0x1) // sequencer map mask: plane 0 only
	sys.Out(0x3CE, 8)
	sys.Out(0x3CF, 0xFF) // bit mask: all bits
	sys.Out(0x3CE, 5)
	sys.Out(0x3CF, 0x00) // write mode 0, no rotate
	sys.Out(0x3CE, 3)
	sys.Out(0x3CF, 0x00) // no function select (replace)
	sys.Out(0x3CE, 1)
	sys.Out(0x3CF, 0x00) // enable-set/reset off

	sys.WriteByte(0xA0000, 0xAA)

	if v.mem[0] != 0xAA {
		t.Fatalf("plane 0 byte = 0x%02x, want 0xAA", v.mem[0])
	}
	if v.mem[vgaPlaneSize] != 0 {
		t.Fatalf("plane 1 byte = 0x%02x, want 0 (map mask excluded it)", v.mem[vgaPlaneSize])
	}
}

func TestVGATextModeBypassesPlanarPipeline(t *testing.T) {
	vgaP := NewVGA()
	v := vgaP.State.(*VGA)
	sys := newVGASystem(t, vgaP)

	v.videoMode = 0x03 // text mode: not one of the planar-pipeline modes
	sys.WriteByte(0xA0000, 0x41)
	if v.mem[0] != 0x41 {
		t.Fatalf("direct byte write in text mode = 0x%02x, want 0x41", v.mem[0])
	}
}

func TestVGAVideoModeBDAByteSwitchesChainedMode(t *testing.T) {
	vgaP := NewVGA()
	v := vgaP.State.(*VGA)
	sys := newVGASystem(t, vgaP)

	v.reg.seqReg[4] = 0xFF
	sys.WriteByte(0x449, 0x13)
	if v.videoMode != 0x13 {
		t.Fatalf("videoMode = 0x%02x, want 0x13", v.videoMode)
	}
	if v.reg.seqReg[4] != 0 {
		t.Fatal("seqReg[4] must be cleared to chained mode on a mode switch")
	}
	if got := sys.ReadByte(0x449); got != 0x13 {
		t.Fatalf("BDA video mode readback = 0x%02x, want 0x13", got)
	}
}

func TestVGAScanlineTimerAdvancesStatusRegister(t *testing.T) {
	vgaP := NewVGA()
	v := vgaP.State.(*VGA)
	sys := newVGASystem(t, vgaP)

	if err := v.onTimer(sys); err != nil {
		t.Fatal(err)
	}
	if v.reg.statusReg&6 != 6 {
		t.Fatalf("status register = 0x%02x, want bits 0x06 set after a tick", v.reg.statusReg)
	}
}

func TestVGALinear256SnapshotIndexesDAC(t *testing.T) {
	vgaP := NewVGA()
	v := vgaP.State.(*VGA)
	_ = newVGASystem(t, vgaP)

	v.mem[0] = 4
	snap := v.SnapshotLinear256()
	if got, want := snap.pixels[0], v.palette[4]; got != want {
		t.Fatalf("pixel(0,0) = 0x%06x, want palette[4] = 0x%06x", got, want)
	}
}
