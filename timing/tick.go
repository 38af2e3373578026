// Package timing provides the clock that drives the simulation: a
// monotonically increasing tick counter, a cycle-stepped engine, and the
// ticking-component pattern that the controller and the device model build
// on. All timing in this repository is expressed in ticks, never in wall
// clock time.
package timing

import "math"

// Tick is the number of clock cycles elapsed since the simulation started.
type Tick uint64

// Freq defines the type of clock frequency.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// PeriodNS returns the clock period in nanoseconds.
func (f Freq) PeriodNS() float64 {
	if f == 0 {
		panic("frequency cannot be 0")
	}

	return 1e9 / float64(f)
}

// Cycles converts a datasheet duration in nanoseconds to the minimum number
// of whole clock cycles that covers it.
func (f Freq) Cycles(ns float64) int {
	return int(math.Ceil(ns / f.PeriodNS()))
}
