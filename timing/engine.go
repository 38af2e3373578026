package timing

import (
	"errors"

	"github.com/Thewbi/ULX3S/hooking"
)

// HookPosCycleEnd is a hook position that triggers after every simulated
// cycle, with the just-completed tick as the item.
var HookPosCycleEnd = &hooking.HookPos{Name: "CycleEnd"}

// ErrCycleLimitReached is returned by RunUntil when the condition did not
// hold within the given cycle budget.
var ErrCycleLimitReached = errors.New("cycle limit reached")

// A Ticker updates its state by one clock cycle and reports whether it made
// any progress during that cycle.
type Ticker interface {
	Tick() bool
}

// An Engine advances the simulation in lock step with a single clock. Every
// cycle, all primary tickers run first, then all secondary tickers. The
// split mirrors the two phases of a clocked design: the controller drives
// the bus in the primary phase and the device reacts in the secondary
// phase of the same cycle.
type Engine struct {
	hooking.HookableBase

	now       Tick
	primary   []Ticker
	secondary []Ticker
}

// NewEngine creates an engine with the tick counter at zero.
func NewEngine() *Engine {
	return &Engine{}
}

// Now returns the current tick count.
func (e *Engine) Now() Tick {
	return e.now
}

// RegisterTicker adds a ticker to the primary phase.
func (e *Engine) RegisterTicker(t Ticker) {
	e.primary = append(e.primary, t)
}

// RegisterSecondaryTicker adds a ticker to the secondary phase. Secondary
// tickers see the pin state that the primary tickers established in the
// same cycle.
func (e *Engine) RegisterSecondaryTicker(t Ticker) {
	e.secondary = append(e.secondary, t)
}

// RunCycles advances the simulation by exactly n cycles.
func (e *Engine) RunCycles(n uint64) {
	for i := uint64(0); i < n; i++ {
		e.step()
	}
}

// RunUntil advances the simulation until cond holds, checking after every
// cycle. It gives up after limit cycles.
func (e *Engine) RunUntil(cond func() bool, limit uint64) error {
	if cond() {
		return nil
	}

	for i := uint64(0); i < limit; i++ {
		e.step()

		if cond() {
			return nil
		}
	}

	return ErrCycleLimitReached
}

func (e *Engine) step() {
	for _, t := range e.primary {
		t.Tick()
	}

	for _, t := range e.secondary {
		t.Tick()
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosCycleEnd,
		Item:   e.now,
	})

	e.now++
}
