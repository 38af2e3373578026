package timing

import (
	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/naming"
)

// TickingComponent is the base for components that advance once per clock
// cycle. The embedding component registers itself with the engine and
// forwards Tick to its middlewares.
type TickingComponent struct {
	naming.NamedBase
	hooking.HookableBase

	engine *Engine
}

// NewTickingComponent creates a new TickingComponent and registers the
// given ticker with the engine's primary phase.
func NewTickingComponent(
	name string,
	engine *Engine,
	t Ticker,
) *TickingComponent {
	naming.NameMustBeValid(name)

	c := &TickingComponent{
		NamedBase: naming.MakeNamedBase(name),
		engine:    engine,
	}

	engine.RegisterTicker(t)

	return c
}

// Engine returns the engine that drives the component.
func (c *TickingComponent) Engine() *Engine {
	return c.engine
}

// CurrentTick returns the engine's tick counter.
func (c *TickingComponent) CurrentTick() Tick {
	return c.engine.Now()
}

// A Middleware is one slice of a component's per-cycle behavior.
type Middleware interface {
	Ticker
}

// MiddlewareHolder holds middlewares and runs them in registration order on
// every tick.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware registers a middleware.
func (h *MiddlewareHolder) AddMiddleware(m Middleware) {
	h.middlewares = append(h.middlewares, m)
}

// Middlewares returns the registered middlewares.
func (h *MiddlewareHolder) Middlewares() []Middleware {
	return h.middlewares
}

// Tick runs all the middlewares and reports whether any of them made
// progress.
func (h *MiddlewareHolder) Tick() (madeProgress bool) {
	for _, m := range h.middlewares {
		madeProgress = m.Tick() || madeProgress
	}

	return madeProgress
}
