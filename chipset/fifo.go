package chipset

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// boundedFIFO is the bounded, drop-on-full event queue spec.md §5 calls
// "lock-free in practice because producers only append" — the PPI's
// scancode queue (the serial mouse keeps its own slice-backed queue).
// semaphore.Weighted's TryAcquire gives the exact
// non-blocking bounded-push semantics without a hand-rolled ring buffer;
// ordering and the "force overwrites the last slot" rule still need the
// mutex-guarded ring underneath.
type boundedFIFO struct {
	mu    sync.Mutex
	sem   *semaphore.Weighted
	buf   []uint8
	head  int
	count int
}

func newBoundedFIFO(capacity int) *boundedFIFO {
	return &boundedFIFO{
		sem: semaphore.NewWeighted(int64(capacity)),
		buf: make([]uint8, capacity),
	}
}

// push appends b if the queue has room; with force=true a full queue
// instead overwrites its last (most recently queued) slot rather than
// dropping b, matching spec.md §4.7's scancode queue contract.
func (f *boundedFIFO) push(b uint8, force bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sem.TryAcquire(1) {
		f.buf[(f.head+f.count)%len(f.buf)] = b
		f.count++
		return true
	}
	if !force {
		return false
	}
	last := (f.head + len(f.buf) - 1) % len(f.buf)
	f.buf[last] = b
	return true
}

func (f *boundedFIFO) pop() (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count == 0 {
		return 0, false
	}
	b := f.buf[f.head]
	f.head = (f.head + 1) % len(f.buf)
	f.count--
	f.sem.Release(1)
	return b, true
}

func (f *boundedFIFO) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count == 0
}

// drain empties the queue, returning the number of bytes discarded.
func (f *boundedFIFO) drain() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.count
	for i := 0; i < n; i++ {
		f.sem.Release(1)
	}
	f.head, f.count = 0, 0
	return n
}
