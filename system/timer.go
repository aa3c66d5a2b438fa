package system

// timerEntry is (peripheral id, interval in ns, next deadline in ns), owned
// by the substrate. A timer with interval 0 fires on every Step call. At
// N<=32 a linear scan per Step is simpler and fast enough; no heap.
type timerEntry struct {
	id       uint8
	interval uint64
	deadline uint64
}

// TimerID is the stable opaque handle a peripheral receives from
// InstallTimer.
type TimerID int

// InstallTimer registers a periodic callback for peripheral p, to fire
// every intervalNs nanoseconds of emulated time (0 means "every Step").
// Returns the timer's stable id.
func (s *System) InstallTimer(p *Peripheral, intervalNs uint64) (TimerID, error) {
	if p == nil {
		return -1, &Error{Kind: KindInstall, Cause: errNilPeripheral}
	}
	s.timers = append(s.timers, timerEntry{id: p.id, interval: intervalNs, deadline: s.clockNs + intervalNs})
	return TimerID(len(s.timers) - 1), nil
}

// tickTimers advances the emulated clock by elapsedNs and fires any timer
// whose deadline has been reached. Missed periods are coalesced: a timer's
// deadline is advanced by its interval until it is back in the future,
// without invoking the callback more than once per Step.
func (s *System) tickTimers(elapsedNs uint64) error {
	s.clockNs += elapsedNs
	for i := range s.timers {
		t := &s.timers[i]
		due := t.interval == 0 || s.clockNs >= t.deadline
		if !due {
			continue
		}
		p := s.peripherals[t.id]
		if p != nil && p.Timer != nil {
			if err := p.Timer(s); err != nil {
				return err
			}
		}
		if t.interval == 0 {
			continue
		}
		t.deadline += t.interval
		for t.deadline <= s.clockNs {
			t.deadline += t.interval
		}
	}
	return nil
}
