package video

import (
	"testing"

	"vxtcore/system"
)

func newMDASystem(t *testing.T, mdaP *system.Peripheral) *system.System {
	t.Helper()
	sys, err := system.Create(nil, system.Intel8088, 1_000_000, nil, []*system.Peripheral{mdaP})
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.Initialize(); err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestMDAMemoryReadAfterWrite(t *testing.T) {
	mdaP := NewMDA()
	sys := newMDASystem(t, mdaP)

	sys.WriteByte(0xB0000, 'A')
	sys.WriteByte(0xB0001, 0x07)
	if got := sys.ReadByte(0xB0000); got != 'A' {
		t.Fatalf("mem[0] = %q, want 'A'", got)
	}
	if got := sys.ReadByte(0xB7FFF); got != sys.ReadByte(0xB0000+0xFFF) {
		t.Fatalf("0xB7FFF must alias 0xB0FFF within the 4 KiB window")
	}
}

func TestMDACursorPositionAndVisibility(t *testing.T) {
	mdaP := NewMDA()
	m := mdaP.State.(*MDA)
	sys := newMDASystem(t, mdaP)

	sys.Out(0x3B4, 0xE) // CRT index: cursor offset high
	sys.Out(0x3B5, 0x01)
	sys.Out(0x3B4, 0xF) // cursor offset low
	sys.Out(0x3B5, 0x50)
	if m.cursorOffset != 0x150 {
		t.Fatalf("cursorOffset = 0x%x, want 0x150", m.cursorOffset)
	}

	sys.Out(0x3B4, 0xA)
	sys.Out(0x3B5, 0x20) // bit 0x20 set: cursor visible per the original's convention
	if !m.cursorVisible {
		t.Fatal("cursor must be visible after setting CRT reg 0xA bit 0x20")
	}
}

func TestMDATraverseReportsBlankForZeroAttribute(t *testing.T) {
	mdaP := NewMDA()
	m := mdaP.State.(*MDA)
	sys := newMDASystem(t, mdaP)

	sys.WriteByte(0xB0000, 'X')
	sys.WriteByte(0xB0001, 0x00) // attribute 0x0: rendered as a blank space

	var gotCh uint8
	var gotAttrib MDAAttrib
	err := m.Traverse(func(cell int, ch uint8, attrib MDAAttrib, cursor int) error {
		if cell == 0 {
			gotCh, gotAttrib = ch, attrib
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotCh != ' ' || gotAttrib != 0 {
		t.Fatalf("cell 0 = (%q, %v), want (' ', 0)", gotCh, gotAttrib)
	}
}

func TestMDATraverseOnlyVisitsDirtyCellsAfterFirstPass(t *testing.T) {
	mdaP := NewMDA()
	m := mdaP.State.(*MDA)
	sys := newMDASystem(t, mdaP)

	sys.WriteByte(0xB0000, 'A')
	if err := m.Traverse(func(int, uint8, MDAAttrib, int) error { return nil }); err != nil {
		t.Fatal(err)
	}

	visited := 0
	if err := m.Traverse(func(int, uint8, MDAAttrib, int) error { visited++; return nil }); err != nil {
		t.Fatal(err)
	}
	if visited != 0 {
		t.Fatalf("second Traverse visited %d cells, want 0 (nothing changed)", visited)
	}

	sys.WriteByte(0xB0002, 'B')
	visited = 0
	if err := m.Traverse(func(cell int, _ uint8, _ MDAAttrib, _ int) error {
		visited++
		if cell != 1 {
			t.Fatalf("dirtied cell = %d, want 1", cell)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Fatalf("visited = %d, want 1", visited)
	}
}
