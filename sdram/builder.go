package sdram

import (
	"fmt"

	"github.com/Thewbi/ULX3S/sdram/internal/bus"
	"github.com/Thewbi/ULX3S/sdram/internal/cmdq"
	"github.com/Thewbi/ULX3S/sdram/internal/org"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
	"github.com/Thewbi/ULX3S/timing"
)

// TimingParams holds the datasheet timing constraints, all in clock
// cycles.
type TimingParams struct {
	// TRP is the precharge-to-activate delay.
	TRP int
	// TRCD is the activate-to-column-command delay.
	TRCD int
	// TRC is the minimum activate-to-activate spacing in one bank.
	TRC int
	// TRRD is the minimum activate-to-activate spacing across banks.
	TRRD int
	// TRFC is the refresh cycle time.
	TRFC int
	// TWR is the write recovery time before a precharge.
	TWR int
	// TMRD is the mode-register-set settle time.
	TMRD int
}

// DefaultTimingParams returns the timing of the 166 MHz speed grade part
// run at 100 MHz, the configuration of the board's onboard chip.
func DefaultTimingParams() TimingParams {
	return TimingParams{
		TRP:  2,
		TRCD: 2,
		TRC:  7,
		TRRD: 2,
		TRFC: 8,
		TWR:  2,
		TMRD: 2,
	}
}

// A Builder can build SDRAM controllers.
type Builder struct {
	engine *timing.Engine
	freq   timing.Freq

	numBanks  int
	numRows   int
	numCols   int
	wordBytes int

	burstLength int
	burstType   signal.BurstType
	casLatency  int

	tp TimingParams

	reqQueueCapacity int
	cmdQueueCapacity int

	refreshIntervalCycles int
	refreshMarginCycles   int
	powerOnRampTicks      int
	syncCycleLimit        uint64
}

// MakeBuilder returns a builder with the geometry of the board's 32 MB
// chip: 4 banks of 8192 rows by 512 columns, 16 data pins.
func MakeBuilder() Builder {
	return Builder{
		freq:             100 * timing.MHz,
		numBanks:         4,
		numRows:          8192,
		numCols:          512,
		wordBytes:        2,
		burstLength:      2,
		burstType:        signal.BurstSequential,
		casLatency:       2,
		tp:               DefaultTimingParams(),
		reqQueueCapacity: 8,
		cmdQueueCapacity: 8,
		syncCycleLimit:   1_000_000,
	}
}

// WithEngine sets the engine that drives the controller.
func (b Builder) WithEngine(engine *timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq timing.Freq) Builder {
	b.freq = freq
	return b
}

// WithGeometry sets the bank, row, and column counts.
func (b Builder) WithGeometry(banks, rows, cols int) Builder {
	b.numBanks = banks
	b.numRows = rows
	b.numCols = cols
	return b
}

// WithDataWidth sets the width of the data bus in bits. Must be a multiple
// of 8, one byte per DQM lane.
func (b Builder) WithDataWidth(bits int) Builder {
	if bits%8 != 0 {
		panic(fmt.Sprintf("data width %d is not a whole number of bytes", bits))
	}

	b.wordBytes = bits / 8
	return b
}

// WithBurst sets the burst length and order programmed into the mode
// register. Use FullPageBurst for full-page bursts, which must be
// sequential.
func (b Builder) WithBurst(length int, t signal.BurstType) Builder {
	b.burstLength = length
	b.burstType = t
	return b
}

// WithCASLatency sets the CAS latency in cycles.
func (b Builder) WithCASLatency(cl int) Builder {
	b.casLatency = cl
	return b
}

// WithTimingParams sets the datasheet timing constraints.
func (b Builder) WithTimingParams(tp TimingParams) Builder {
	b.tp = tp
	return b
}

// WithRequestQueueCapacity sets how many host requests may be pending.
func (b Builder) WithRequestQueueCapacity(n int) Builder {
	b.reqQueueCapacity = n
	return b
}

// WithCommandQueueCapacity sets the depth of the command queue.
func (b Builder) WithCommandQueueCapacity(n int) Builder {
	b.cmdQueueCapacity = n
	return b
}

// WithRefreshInterval overrides the per-row refresh interval in cycles.
// The default distributes the 64 ms retention period evenly over the rows.
func (b Builder) WithRefreshInterval(cycles int) Builder {
	b.refreshIntervalCycles = cycles
	return b
}

// WithRefreshMargin overrides how many cycles before its deadline a
// refresh starts preempting host traffic.
func (b Builder) WithRefreshMargin(cycles int) Builder {
	b.refreshMarginCycles = cycles
	return b
}

// WithPowerOnRamp overrides the number of ticks CKE stays low while the
// clock stabilizes. The default covers the datasheet's 100 us.
func (b Builder) WithPowerOnRamp(ticks int) Builder {
	b.powerOnRampTicks = ticks
	return b
}

// WithSyncCycleLimit sets the cycle budget of the blocking Read and Write
// calls.
func (b Builder) WithSyncCycleLimit(limit uint64) Builder {
	b.syncCycleLimit = limit
	return b
}

// Build creates an SDRAM controller with the given name. The controller
// registers itself with the engine's primary phase; it is not usable until
// Init runs.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("an engine is required to build an SDRAM controller")
	}

	if b.burstLength == signal.FullPageBurst &&
		b.burstType == signal.BurstInterleaved {
		panic("full-page bursts must use sequential order")
	}

	modeReg := signal.ModeRegister{
		BurstLength: b.burstLength,
		BurstType:   b.burstType,
		CASLatency:  b.casLatency,
	}

	burstBeats := b.burstLength
	if b.burstLength == signal.FullPageBurst {
		burstBeats = b.numCols
	}

	c := &Comp{
		numBanks:         b.numBanks,
		numRows:          b.numRows,
		numCols:          b.numCols,
		wordBytes:        b.wordBytes,
		modeReg:          modeReg,
		burstBeats:       burstBeats,
		reqQueueCapacity: b.reqQueueCapacity,
		syncCycleLimit:   b.syncCycleLimit,
	}

	c.TickingComponent = timing.NewTickingComponent(name, b.engine, c)
	c.AddMiddleware(&middleware{Comp: c})

	c.dataBus = bus.NewBus(b.wordBytes)
	c.driver = bus.NewDriver(c.dataBus, b.casLatency)

	c.timing = b.generateTiming(burstBeats)
	c.rank = b.buildRank(name, c.timing, burstBeats)
	c.cmdQueue = &cmdq.CommandQueueImpl{
		Capacity: b.cmdQueueCapacity,
		Rank:     c.rank,
	}

	c.refresh = b.buildRefreshScheduler(burstBeats)
	c.initSeq = b.buildInitFSM(c, modeReg)

	return c
}

func (b Builder) buildRank(
	name string,
	timing org.Timing,
	burstBeats int,
) org.Rank {
	rank := &org.RankImpl{Timing: timing}

	cmdCycles := b.commandCycles(burstBeats)

	for i := 0; i < b.numBanks; i++ {
		bank := org.NewBankImpl(fmt.Sprintf("%s.Bank%d", name, i), i)
		bank.CmdCycles = cmdCycles
		rank.Banks = append(rank.Banks, bank)
	}

	return rank
}

// commandCycles maps each command kind to the number of cycles it occupies
// its bank before its effect lands.
func (b Builder) commandCycles(bb int) map[signal.CommandKind]int {
	cl := b.casLatency
	tp := b.tp

	return map[signal.CommandKind]int{
		signal.CmdKindActivate:        tp.TRCD,
		signal.CmdKindRead:            cl + bb,
		signal.CmdKindReadPrecharge:   cl + bb + tp.TRP,
		signal.CmdKindWrite:           bb,
		signal.CmdKindWritePrecharge:  bb + tp.TWR + tp.TRP,
		signal.CmdKindPrecharge:       tp.TRP,
		signal.CmdKindPrechargeAll:    tp.TRP,
		signal.CmdKindRefresh:         tp.TRFC,
		signal.CmdKindModeRegisterSet: tp.TMRD,
	}
}

// generateTiming derives the command-to-command spacing tables from the
// timing parameters, following the datasheet command truth table. The
// same-bank rules carry the row-cycle constraints; the other-bank rules
// carry shared data-bus occupancy and tRRD.
func (b Builder) generateTiming(bb int) org.Timing {
	cl := b.casLatency
	tp := b.tp

	same := org.MakeTimeTable()
	other := org.MakeTimeTable()

	same[signal.CmdKindActivate] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: tp.TRCD},
		{NextCmdKind: signal.CmdKindReadPrecharge, MinCycleInBetween: tp.TRCD},
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: tp.TRCD},
		{NextCmdKind: signal.CmdKindWritePrecharge, MinCycleInBetween: tp.TRCD},
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: tp.TRC},
		// tRAS: the row must stay open at least tRC - tRP cycles.
		{NextCmdKind: signal.CmdKindPrecharge, MinCycleInBetween: tp.TRC - tp.TRP},
		{NextCmdKind: signal.CmdKindPrechargeAll, MinCycleInBetween: tp.TRC - tp.TRP},
	}

	same[signal.CmdKindRead] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindReadPrecharge, MinCycleInBetween: bb},
		// Bus turnaround: the last read beat leaves the bus at CL+BL; one
		// dead cycle before the controller drives write data.
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: cl + bb + 1},
		{NextCmdKind: signal.CmdKindWritePrecharge, MinCycleInBetween: cl + bb + 1},
		{NextCmdKind: signal.CmdKindPrecharge, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindPrechargeAll, MinCycleInBetween: bb},
	}

	same[signal.CmdKindReadPrecharge] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: cl + bb + tp.TRP},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: cl + bb + tp.TRP},
	}

	same[signal.CmdKindWrite] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindWritePrecharge, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: bb + 1},
		{NextCmdKind: signal.CmdKindReadPrecharge, MinCycleInBetween: bb + 1},
		{NextCmdKind: signal.CmdKindPrecharge, MinCycleInBetween: bb + tp.TWR},
		{NextCmdKind: signal.CmdKindPrechargeAll, MinCycleInBetween: bb + tp.TWR},
	}

	same[signal.CmdKindWritePrecharge] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: bb + tp.TWR + tp.TRP},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: bb + tp.TWR + tp.TRP},
	}

	prechargeRules := []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: tp.TRP},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: tp.TRP},
		{NextCmdKind: signal.CmdKindModeRegisterSet, MinCycleInBetween: tp.TRP},
	}
	same[signal.CmdKindPrecharge] = prechargeRules
	same[signal.CmdKindPrechargeAll] = prechargeRules

	same[signal.CmdKindRefresh] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: tp.TRFC},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: tp.TRFC},
		{NextCmdKind: signal.CmdKindModeRegisterSet, MinCycleInBetween: tp.TRFC},
	}

	same[signal.CmdKindModeRegisterSet] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: tp.TMRD},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: tp.TMRD},
		{NextCmdKind: signal.CmdKindModeRegisterSet, MinCycleInBetween: tp.TMRD},
	}

	other[signal.CmdKindActivate] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: tp.TRRD},
	}

	// Column commands on other banks share the data bus, so they obey the
	// same occupancy and turnaround spacing as on the issuing bank.
	other[signal.CmdKindRead] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindReadPrecharge, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: cl + bb + 1},
		{NextCmdKind: signal.CmdKindWritePrecharge, MinCycleInBetween: cl + bb + 1},
	}
	other[signal.CmdKindReadPrecharge] = other[signal.CmdKindRead]

	other[signal.CmdKindWrite] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindWritePrecharge, MinCycleInBetween: bb},
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: bb + 1},
		{NextCmdKind: signal.CmdKindReadPrecharge, MinCycleInBetween: bb + 1},
	}
	other[signal.CmdKindWritePrecharge] = other[signal.CmdKindWrite]

	return org.Timing{SameBank: same, OtherBanks: other}
}

func (b Builder) buildRefreshScheduler(bb int) *refreshScheduler {
	interval := b.refreshIntervalCycles
	if interval == 0 {
		// 64 ms retention spread over the rows of one bank.
		interval = b.freq.Cycles(64e6) / b.numRows
	}

	margin := b.refreshMarginCycles
	if margin == 0 {
		// Room for one worst-case request to finish: row cycle, data
		// burst, recovery, plus the refresh itself.
		margin = b.tp.TRC + b.casLatency + bb +
			b.tp.TWR + b.tp.TRP + b.tp.TRFC
	}

	return &refreshScheduler{interval: interval, margin: margin}
}

func (b Builder) buildInitFSM(c *Comp, modeReg signal.ModeRegister) *initFSM {
	ramp := b.powerOnRampTicks
	if ramp == 0 {
		ramp = b.freq.Cycles(100_000)
	}

	f := &initFSM{
		rampTicks:      ramp,
		tRP:            b.tp.TRP,
		tRFC:           b.tp.TRFC,
		tMRD:           b.tp.TMRD,
		modeWord:       modeReg.Encode(),
		setClockEnable: c.driver.SetClockEnable,
		issue:          c.issueCommand,
		onReady:        c.initSequenceDone,
	}

	f.Reset()

	return f
}
