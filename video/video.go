// Package video implements the three display adapters spec.md §4.11 calls
// for (MDA, CGA, VGA). The graphics modes use a two-phase contract: a
// snapshot call (CGA.SnapshotGraphics, VGA.SnapshotPlanar,
// VGA.SnapshotLinear256) freezes VRAM into a Snapshot raster, then
// Snapshot.Render walks that frozen copy invoking a per-pixel callback.
// Separating the two lets a frontend take the snapshot on the emulation
// goroutine and render from a UI goroutine without a lock held across the
// whole walk. Text modes have no such split: MDA.Traverse and
// CGA.TraverseText read live VRAM directly, visiting dirty cells in one
// call, and MDA has no snapshot, render or border-color method.
package video

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// PixelFunc receives one frozen pixel's device coordinates and packed
// 0xRRGGBB color during a graphics-mode Render walk.
type PixelFunc func(x, y int, rgb uint32)

// Snapshot is a frozen, render-safe RGB raster produced by a graphics-mode
// adapter's snapshot call.
type Snapshot struct {
	Width, Height int
	pixels        []uint32
}

func newSnapshot(w, h int) *Snapshot {
	return &Snapshot{Width: w, Height: h, pixels: make([]uint32, w*h)}
}

func (s *Snapshot) set(x, y int, rgb uint32) {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return
	}
	s.pixels[y*s.Width+x] = rgb
}

// Render walks every pixel of the frozen raster in row-major order.
func (s *Snapshot) Render(f PixelFunc) {
	for y := 0; y < s.Height; y++ {
		row := y * s.Width
		for x := 0; x < s.Width; x++ {
			f(x, y, s.pixels[row+x])
		}
	}
}

// Image converts the snapshot into a standard image.Image, for tests and
// for frontends that want a plain bitmap instead of driving Render by hand.
func (s *Snapshot) Image() image.Image {
	src := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			rgb := s.pixels[y*s.Width+x]
			src.SetRGBA(x, y, color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF})
		}
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	return dst
}
