// Package device provides a behavioral model of the SDRAM chip itself. It
// attaches to the same bus as the controller, decodes the pin state every
// cycle, and services bursts out of a lazily allocated cell storage. The
// model doubles as a test oracle: command sequences that a real part would
// reject are recorded as violations.
package device

import (
	"fmt"

	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/naming"
	"github.com/Thewbi/ULX3S/sdram/internal/bus"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
	"github.com/Thewbi/ULX3S/timing"
)

type bankModel struct {
	open bool
	row  int
}

// A burst is one in-flight data transfer. Read bursts drive the bus after
// the CAS latency; write bursts sample it starting at the command cycle.
type burst struct {
	read bool

	bank     int
	row      int
	startCol int
	beats    int
	ap       bool

	age int

	// dqmByAge records the DQM pins sampled on each command-relative
	// cycle. Read DQM latency is fixed at two cycles regardless of CAS
	// latency: the DQM sampled at age k gates the beat the controller
	// samples at age k+2.
	dqmByAge [][]bool
}

// Comp is the SDRAM device model. It runs in the engine's secondary phase
// so that it sees the pin state the controller established in the same
// cycle.
type Comp struct {
	naming.NamedBase
	hooking.HookableBase

	engine  *timing.Engine
	dataBus *bus.Bus

	numBanks  int
	numRows   int
	numCols   int
	wordBytes int

	// retentionCycles is the longest tolerated gap between AUTO REFRESH
	// commands before cell contents are considered decayed.
	retentionCycles int

	storage *Storage
	banks   []bankModel

	modeReg signal.ModeRegister
	modeSet bool

	refreshCount int
	lastRefresh  timing.Tick

	bursts []*burst

	violations []string
}

// ModeRegister returns the programmed device configuration and whether a
// MODE REGISTER SET has been received.
func (c *Comp) ModeRegister() (signal.ModeRegister, bool) {
	return c.modeReg, c.modeSet
}

// RefreshCount returns the number of AUTO REFRESH commands received.
func (c *Comp) RefreshCount() int {
	return c.refreshCount
}

// LastRefresh returns the tick of the most recent AUTO REFRESH.
func (c *Comp) LastRefresh() timing.Tick {
	return c.lastRefresh
}

// BankOpenRow returns the open row of a bank, if any.
func (c *Comp) BankOpenRow(bank int) (int, bool) {
	b := c.banks[bank]

	return b.row, b.open
}

// Violations lists the datasheet rules the controller broke so far.
func (c *Comp) Violations() []string {
	return c.violations
}

// Poke stores bytes directly into the cell array, bypassing the bus.
func (c *Comp) Poke(bank, row, col int, data []byte) {
	base := col * c.wordBytes
	for i, v := range data {
		c.storage.WriteByte(bank, c.numRows, row, base+i, v)
	}
}

// Peek reads bytes directly from the cell array, bypassing the bus.
func (c *Comp) Peek(bank, row, col, numBytes int) []byte {
	base := col * c.wordBytes
	data := make([]byte, numBytes)

	for i := range data {
		data[i] = c.storage.ReadByte(bank, c.numRows, row, base+i)
	}

	return data
}

// Tick processes one cycle of pin state.
func (c *Comp) Tick() bool {
	if !c.dataBus.CKE {
		return false
	}

	madeProgress := c.decodeCommand()
	madeProgress = c.advanceBursts() || madeProgress

	return madeProgress
}

func (c *Comp) decodeCommand() bool {
	kind := signal.DecodePins(c.dataBus.CmdPins, c.dataBus.AddrBit10())
	if kind == signal.CmdKindNop {
		return false
	}

	c.checkRetention(kind)

	switch kind {
	case signal.CmdKindModeRegisterSet:
		c.handleModeRegisterSet()
	case signal.CmdKindRefresh:
		c.handleRefresh()
	case signal.CmdKindActivate:
		c.handleActivate()
	case signal.CmdKindPrecharge:
		c.bankAt(c.dataBus.BankSel).open = false
	case signal.CmdKindPrechargeAll:
		for i := range c.banks {
			c.banks[i].open = false
		}
	default:
		c.handleColumnCommand(kind)
	}

	return true
}

// checkRetention flags commands that arrive after the refresh gap
// exceeded the retention budget. Before the first AUTO REFRESH the cell
// contents are undefined anyway, so checking starts with the
// initialization refreshes.
func (c *Comp) checkRetention(kind signal.CommandKind) {
	if c.retentionCycles <= 0 || c.refreshCount == 0 {
		return
	}

	gap := int(c.engine.Now() - c.lastRefresh)
	if gap > c.retentionCycles {
		c.violate("%s after %d cycles without AUTO REFRESH (budget %d)",
			kind, gap, c.retentionCycles)
	}
}

func (c *Comp) handleModeRegisterSet() {
	if c.anyBankOpen() {
		c.violate("MODE REGISTER SET with a row open")

		return
	}

	m, err := signal.DecodeModeRegister(c.dataBus.Addr)
	if err != nil {
		c.violate("MODE REGISTER SET: %v", err)

		return
	}

	c.modeReg = m
	c.modeSet = true
}

func (c *Comp) handleRefresh() {
	if c.anyBankOpen() {
		c.violate("AUTO REFRESH with a row open")

		return
	}

	c.refreshCount++
	c.lastRefresh = c.engine.Now()
}

func (c *Comp) handleActivate() {
	bank := c.bankAt(c.dataBus.BankSel)

	if !c.modeSet {
		c.violate("ACTIVE before the mode register is programmed")
	}

	if bank.open {
		c.violate("ACTIVE on bank %d with row %d already open",
			c.dataBus.BankSel, bank.row)

		return
	}

	bank.open = true
	bank.row = int(c.dataBus.Addr) % c.numRows
}

func (c *Comp) handleColumnCommand(kind signal.CommandKind) {
	bankID := int(c.dataBus.BankSel) % c.numBanks
	bank := c.bankAt(c.dataBus.BankSel)

	if !c.modeSet {
		c.violate("%s before the mode register is programmed", kind)

		return
	}

	if !bank.open {
		c.violate("%s on bank %d with no row open", kind, bankID)

		return
	}

	c.bursts = append(c.bursts, &burst{
		read:     kind.IsRead(),
		bank:     bankID,
		row:      bank.row,
		startCol: int(c.dataBus.Addr&0x3ff) % c.numCols,
		beats:    c.burstBeats(),
		ap:       kind == signal.CmdKindReadPrecharge ||
			kind == signal.CmdKindWritePrecharge,
	})
}

func (c *Comp) burstBeats() int {
	if c.modeReg.BurstLength == signal.FullPageBurst {
		return c.numCols
	}

	return c.modeReg.BurstLength
}

// advanceBursts runs every in-flight burst for one cycle. A burst created
// this cycle starts at age zero, so write bursts sample their first beat
// in the same cycle as the WRITE command.
func (c *Comp) advanceBursts() bool {
	madeProgress := false
	remaining := c.bursts[:0]

	for _, b := range c.bursts {
		madeProgress = true

		if c.advanceBurst(b) {
			remaining = append(remaining, b)
		}
	}

	c.bursts = remaining

	return madeProgress
}

func (c *Comp) advanceBurst(b *burst) (keep bool) {
	if b.age < c.dqmWindow(b) {
		dqm := make([]bool, len(c.dataBus.DQM))
		copy(dqm, c.dataBus.DQM)
		b.dqmByAge = append(b.dqmByAge, dqm)
	}

	if b.read {
		keep = c.advanceReadBurst(b)
	} else {
		keep = c.advanceWriteBurst(b)
	}

	b.age++

	if !keep && b.ap {
		c.banks[b.bank].open = false
	}

	return keep
}

// dqmWindow returns how many command-relative cycles of DQM a burst
// needs. Writes use the live pins per beat; reads need DQM sampled up to
// two cycles before their last beat arrives at the controller.
func (c *Comp) dqmWindow(b *burst) int {
	if b.read {
		return b.beats + c.modeReg.CASLatency - 2
	}

	return b.beats
}

func (c *Comp) advanceReadBurst(b *burst) (keep bool) {
	driveDelay := c.modeReg.CASLatency - 1

	beat := b.age - driveDelay
	if beat < 0 {
		return true
	}

	if beat >= b.beats {
		// The controller sampled the last beat this cycle; tri-state.
		c.dataBus.Release(bus.DQDevice)

		return false
	}

	if err := c.dataBus.Claim(bus.DQDevice); err != nil {
		c.violate("read burst drive on bank %d: %v", b.bank, err)

		return false
	}

	c.driveReadBeat(b, beat)

	return true
}

func (c *Comp) driveReadBeat(b *burst, beat int) {
	col := signal.BurstColumn(
		b.startCol, beat, b.beats, c.modeReg.BurstType, c.numCols)
	base := col * c.wordBytes

	data := make([]byte, c.wordBytes)
	valid := make([]bool, c.wordBytes)

	// The beat reaches the controller at age CL+beat; the DQM that gates
	// it was sampled two cycles before that. At CL 1 that cycle precedes
	// the command for beat 0, so no mask applies.
	var dqm []bool
	if idx := beat + c.modeReg.CASLatency - 2; idx >= 0 {
		dqm = b.dqmByAge[idx]
	}

	for lane := 0; lane < c.wordBytes; lane++ {
		if dqm != nil && dqm[lane] {
			continue
		}

		data[lane] = c.storage.ReadByte(b.bank, c.numRows, b.row, base+lane)
		valid[lane] = true
	}

	_ = c.dataBus.DriveDQ(bus.DQDevice, data, valid)
}

func (c *Comp) advanceWriteBurst(b *burst) (keep bool) {
	beat := b.age
	if beat >= b.beats {
		return false
	}

	col := signal.BurstColumn(
		b.startCol, beat, b.beats, c.modeReg.BurstType, c.numCols)
	base := col * c.wordBytes

	data, valid := c.dataBus.SampleDQ()

	for lane := 0; lane < c.wordBytes; lane++ {
		if c.dataBus.DQM[lane] || !valid[lane] {
			continue
		}

		c.storage.WriteByte(b.bank, c.numRows, b.row, base+lane, data[lane])
	}

	return beat < b.beats-1
}

func (c *Comp) bankAt(sel uint8) *bankModel {
	return &c.banks[int(sel)%c.numBanks]
}

func (c *Comp) anyBankOpen() bool {
	for _, b := range c.banks {
		if b.open {
			return true
		}
	}

	return false
}

func (c *Comp) violate(format string, args ...any) {
	c.violations = append(c.violations,
		fmt.Sprintf("tick %d: %s",
			c.engine.Now(), fmt.Sprintf(format, args...)))
}
