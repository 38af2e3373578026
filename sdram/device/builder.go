package device

import (
	"github.com/Thewbi/ULX3S/naming"
	"github.com/Thewbi/ULX3S/sdram/internal/bus"
	"github.com/Thewbi/ULX3S/timing"
)

// A Builder can build SDRAM device models.
type Builder struct {
	engine  *timing.Engine
	dataBus *bus.Bus

	numBanks  int
	numRows   int
	numCols   int
	wordBytes int

	retentionCycles int
}

// MakeBuilder returns a builder with the geometry of the board's 32 MB
// chip.
func MakeBuilder() Builder {
	return Builder{
		numBanks:  4,
		numRows:   8192,
		numCols:   512,
		wordBytes: 2,

		// 64 ms retention at 100 MHz, spread evenly over the rows.
		retentionCycles: 6_400_000 / 8192,
	}
}

// WithEngine sets the engine that drives the device.
func (b Builder) WithEngine(engine *timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithBus attaches the device to the bus the controller drives.
func (b Builder) WithBus(dataBus *bus.Bus) Builder {
	b.dataBus = dataBus
	return b
}

// WithGeometry sets the bank, row, and column counts.
func (b Builder) WithGeometry(banks, rows, cols int) Builder {
	b.numBanks = banks
	b.numRows = rows
	b.numCols = cols
	return b
}

// WithDataWidth sets the width of the data bus in bits.
func (b Builder) WithDataWidth(bits int) Builder {
	b.wordBytes = bits / 8
	return b
}

// WithRetentionCycles sets the longest gap between AUTO REFRESH commands
// the model tolerates before recording a retention violation. Zero
// disables the check.
func (b Builder) WithRetentionCycles(cycles int) Builder {
	b.retentionCycles = cycles
	return b
}

// Build creates a device model with the given name, registered with the
// engine's secondary phase so it reacts to the pin state the controller
// establishes each cycle.
func (b Builder) Build(name string) *Comp {
	naming.NameMustBeValid(name)

	if b.engine == nil {
		panic("an engine is required to build an SDRAM device model")
	}

	if b.dataBus == nil {
		panic("a bus is required to build an SDRAM device model")
	}

	c := &Comp{
		NamedBase:       naming.MakeNamedBase(name),
		engine:          b.engine,
		dataBus:         b.dataBus,
		numBanks:        b.numBanks,
		numRows:         b.numRows,
		numCols:         b.numCols,
		wordBytes:       b.wordBytes,
		retentionCycles: b.retentionCycles,
		storage:         NewStorage(b.numCols * b.wordBytes),
		banks:           make([]bankModel, b.numBanks),
	}

	b.engine.RegisterSecondaryTicker(c)

	return c
}
