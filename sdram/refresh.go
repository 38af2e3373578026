package sdram

import "github.com/Thewbi/ULX3S/timing"

// refreshScheduler tracks when the next AUTO REFRESH is owed. It requests
// the refresh a configurable margin before the deadline so that an
// in-flight request can finish without pushing the refresh past it.
type refreshScheduler struct {
	interval    int
	margin      int
	lastRefresh timing.Tick
}

// due reports whether a refresh should preempt normal traffic now.
func (s *refreshScheduler) due(now timing.Tick) bool {
	return now >= s.lastRefresh+timing.Tick(s.interval-s.margin)
}

// deadline returns the tick by which the next refresh must have issued.
func (s *refreshScheduler) deadline() timing.Tick {
	return s.lastRefresh + timing.Tick(s.interval)
}

// missed reports whether the deadline already passed.
func (s *refreshScheduler) missed(now timing.Tick) bool {
	return now > s.deadline()
}

// refreshed records a completed AUTO REFRESH issue.
func (s *refreshScheduler) refreshed(now timing.Tick) {
	s.lastRefresh = now
}
