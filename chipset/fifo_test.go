package chipset

import "testing"

func TestBoundedFIFOPreservesOrder(t *testing.T) {
	f := newBoundedFIFO(16)
	for i := uint8(0); i < 16; i++ {
		if !f.push(i, false) {
			t.Fatalf("push %d failed, queue should have room", i)
		}
	}
	for i := uint8(0); i < 16; i++ {
		got, ok := f.pop()
		if !ok || got != i {
			t.Fatalf("pop %d = (%d, %v), want (%d, true)", i, got, ok, i)
		}
	}
}

func TestBoundedFIFODropsWhenFullWithoutForce(t *testing.T) {
	f := newBoundedFIFO(16)
	for i := uint8(0); i < 16; i++ {
		f.push(i, false)
	}
	if f.push(0xFF, false) {
		t.Fatal("push on full queue without force should drop")
	}
	got, _ := f.pop()
	if got != 0 {
		t.Fatalf("queue contents changed after dropped push: head = %d, want 0", got)
	}
}

func TestBoundedFIFOForcePushOverwritesLastSlot(t *testing.T) {
	f := newBoundedFIFO(16)
	for i := uint8(0); i < 16; i++ {
		f.push(i, false)
	}
	if !f.push(0xFF, true) {
		t.Fatal("forced push must always succeed")
	}
	for i := 0; i < 15; i++ {
		got, _ := f.pop()
		if got != uint8(i) {
			t.Fatalf("slot %d = %d, want %d (unaffected by forced push)", i, got, i)
		}
	}
	got, _ := f.pop()
	if got != 0xFF {
		t.Fatalf("last slot = %d, want 0xFF (overwritten by forced push)", got)
	}
}
