// Package sdram implements a cycle-accurate controller for a single-rank
// SDR SDRAM device. The controller accepts host-level read and write
// requests, translates them into burst-aligned column commands, and drives
// the command and data pins of the bus while honoring the datasheet timing
// constraints, the power-up initialization sequence, and the periodic
// refresh obligation.
package sdram

import (
	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/sdram/internal/bus"
	"github.com/Thewbi/ULX3S/sdram/internal/cmdq"
	"github.com/Thewbi/ULX3S/sdram/internal/org"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
	"github.com/Thewbi/ULX3S/timing"
)

// HookPosCommandIssue triggers when a command goes on the bus, with the
// command as the item and the issue tick as the detail.
var HookPosCommandIssue = &hooking.HookPos{Name: "CommandIssue"}

// Comp is the SDRAM controller component.
type Comp struct {
	*timing.TickingComponent
	timing.MiddlewareHolder

	numBanks  int
	numRows   int
	numCols   int
	wordBytes int

	modeReg    signal.ModeRegister
	burstBeats int

	reqQueueCapacity int
	reqQueue         []*signal.Transaction
	inflight         []*signal.Transaction
	cmdsToQueue      []*signal.Command

	cmdQueue cmdq.CommandQueue
	rank     org.Rank
	timing   org.Timing
	dataBus  *bus.Bus
	driver   *bus.Driver
	refresh  *refreshScheduler
	initSeq  *initFSM

	syncCycleLimit uint64
	fault          error
}

// Tick runs the controller for one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// DataBus returns the bus the controller drives. The device model attaches
// to the same bus.
func (c *Comp) DataBus() *bus.Bus {
	return c.dataBus
}

// ModeRegister returns the configuration the controller programs into the
// device during initialization.
func (c *Comp) ModeRegister() signal.ModeRegister {
	return c.modeReg
}

// Timing returns the command spacing tables the controller enforces.
func (c *Comp) Timing() org.Timing {
	return c.timing
}

// NumBanks returns the number of banks of the attached device.
func (c *Comp) NumBanks() int {
	return c.numBanks
}

// Fault returns the first unrecoverable error the controller observed, or
// nil. A faulted controller keeps ticking but its data is suspect until
// Reset.
func (c *Comp) Fault() error {
	return c.fault
}

// InitState names the current step of the initialization sequence.
func (c *Comp) InitState() string {
	return c.initSeq.State()
}

// Ready reports whether initialization has completed.
func (c *Comp) Ready() bool {
	return c.initSeq.Ready()
}

// QueuedRequests returns the number of host requests not yet translated.
func (c *Comp) QueuedRequests() int {
	return len(c.reqQueue)
}

// InflightRequests returns the number of translated, unfinished requests.
func (c *Comp) InflightRequests() int {
	return len(c.inflight)
}

// QueuedCommands returns the occupancy of the command queue.
func (c *Comp) QueuedCommands() int {
	return c.cmdQueue.Size()
}

// NextRefreshDeadline returns the tick by which the next AUTO REFRESH must
// issue.
func (c *Comp) NextRefreshDeadline() timing.Tick {
	return c.refresh.deadline()
}

func (c *Comp) issueCommand(cmd *signal.Command) {
	if err := c.driver.Issue(cmd); err != nil {
		c.faultAndReinit(&ProtocolViolationError{
			Cmd:    cmd.Kind.String(),
			Detail: err.Error(),
		})

		return
	}

	c.rank.StartCommand(cmd)
	c.rank.UpdateTiming(cmd)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosCommandIssue,
		Item:   cmd,
		Detail: c.CurrentTick(),
	})
}

func (c *Comp) initSequenceDone() {
	c.refresh.refreshed(c.CurrentTick())
}

// faultAndReinit latches the first fatal error and forces the sequencer
// back to power-on, since device state can no longer be trusted. The fault
// stays visible until the host runs Init again.
func (c *Comp) faultAndReinit(err error) {
	if c.fault == nil {
		c.fault = err
	}

	c.reqQueue = nil
	c.cmdsToQueue = nil
	c.inflight = nil
	c.cmdQueue.Clear()
	c.initSeq.Reset()
}

// middleware holds the per-cycle behavior of the controller.
type middleware struct {
	*Comp
}

// Tick runs one controller cycle. The order matters: data phases and bank
// countdowns advance before this cycle's issue decision, so a countdown of
// N set at issue reaches zero exactly N cycles later.
func (m *middleware) Tick() bool {
	m.driver.BeginCycle()

	madeProgress := m.respond()
	madeProgress = m.driver.Tick() || madeProgress
	madeProgress = m.rank.Tick() || madeProgress

	if !m.initSeq.Ready() {
		return m.initSeq.Tick() || madeProgress
	}

	m.checkRefreshDeadline()

	madeProgress = m.issue() || madeProgress
	madeProgress = m.translate() || madeProgress

	return madeProgress
}

func (m *middleware) respond() (madeProgress bool) {
	remaining := m.inflight[:0]

	for _, t := range m.inflight {
		if t.IsCompleted() {
			madeProgress = true

			continue
		}

		remaining = append(remaining, t)
	}

	m.inflight = remaining

	return madeProgress
}

func (m *middleware) checkRefreshDeadline() {
	now := m.CurrentTick()

	if m.refresh.missed(now) {
		m.faultAndReinit(&RefreshDeadlineMissedError{
			Deadline: m.refresh.deadline(),
			Now:      now,
		})
	}
}

// issue places at most one command on the bus per cycle. A due refresh
// preempts the command queue; the rank may first demand a PRECHARGE ALL to
// drain open rows.
func (m *middleware) issue() bool {
	now := m.CurrentTick()

	if m.refresh.due(now) {
		refreshCmd := signal.NewCommand(signal.CmdKindRefresh)

		ready := m.rank.GetReadyCommand(refreshCmd)
		if ready == nil {
			return false
		}

		m.issueCommand(ready)

		if ready.Kind == signal.CmdKindRefresh {
			m.refresh.refreshed(now)
		}

		return true
	}

	cmd := m.cmdQueue.GetCommandToIssue()
	if cmd == nil {
		return false
	}

	m.issueCommand(cmd)

	return true
}

func (m *middleware) translate() (madeProgress bool) {
	for len(m.cmdsToQueue) > 0 && m.cmdQueue.CanAccept() {
		m.cmdQueue.Accept(m.cmdsToQueue[0])
		m.cmdsToQueue = m.cmdsToQueue[1:]
		madeProgress = true
	}

	if len(m.cmdsToQueue) == 0 && len(m.reqQueue) > 0 {
		t := m.reqQueue[0]
		m.reqQueue = m.reqQueue[1:]

		m.cmdsToQueue = m.transactionCommands(t)
		m.inflight = append(m.inflight, t)
		madeProgress = true
	}

	return madeProgress
}

// transactionCommands splits a transaction into one column command per
// burst window. Sequential bursts wrap within their naturally aligned
// block, so a window never extends past a block boundary. When the
// transaction asks for auto-precharge, only the final command carries it.
func (c *Comp) transactionCommands(
	t *signal.Transaction,
) []*signal.Command {
	var cmds []*signal.Command

	col := t.Col
	remaining := len(t.Data) / c.wordBytes

	for remaining > 0 {
		window := c.burstWindow(col, remaining)

		st := signal.NewSubTransaction(t)
		st.Col = col
		st.Offset = (col - t.Col) * c.wordBytes
		st.NumBytes = window * c.wordBytes
		t.SubTransactions = append(t.SubTransactions, st)

		last := remaining == window

		cmd := signal.NewCommand(c.columnCommandKind(t, last))
		cmd.Bank = t.Bank
		cmd.Row = t.Row
		cmd.Col = col
		cmd.AutoPrecharge = last && t.AutoPrecharge
		cmd.Data = t.Data[st.Offset : st.Offset+st.NumBytes]
		cmd.SubTrans = st

		if t.IsWrite() {
			cmd.Mask = t.Mask[st.Offset : st.Offset+st.NumBytes]
		}

		cmds = append(cmds, cmd)

		col += window
		remaining -= window
	}

	return cmds
}

func (c *Comp) columnCommandKind(
	t *signal.Transaction,
	last bool,
) signal.CommandKind {
	ap := last && t.AutoPrecharge

	switch {
	case t.IsRead() && ap:
		return signal.CmdKindReadPrecharge
	case t.IsRead():
		return signal.CmdKindRead
	case ap:
		return signal.CmdKindWritePrecharge
	default:
		return signal.CmdKindWrite
	}
}

func (c *Comp) burstWindow(col, remainingWords int) int {
	blockEnd := (col &^ (c.burstBeats - 1)) + c.burstBeats
	if c.burstBeats >= c.numCols {
		// A full-page burst covers the whole row.
		blockEnd = c.numCols
	}

	window := blockEnd - col
	if window > remainingWords {
		window = remainingWords
	}

	return window
}
