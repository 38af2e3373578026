package org

import (
	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/naming"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

// BankState is the lifecycle state of one bank.
type BankState int

// The bank states. Activating, Closing and Refreshing are the windows in
// which a row transition is in flight and no command may target the bank.
const (
	BankStateClosed BankState = iota
	BankStateActivating
	BankStateOpen
	BankStateClosing
	BankStateRefreshing
)

func (s BankState) String() string {
	switch s {
	case BankStateClosed:
		return "closed"
	case BankStateActivating:
		return "activating"
	case BankStateOpen:
		return "open"
	case BankStateClosing:
		return "closing"
	case BankStateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// HookPosBankCmdComplete triggers on a bank when a started command finishes
// its occupancy, with the command as the item.
var HookPosBankCmdComplete = &hooking.HookPos{Name: "BankCmdComplete"}

// A Bank tracks one bank's row state and timing obligations.
type Bank interface {
	naming.Named
	hooking.Hookable

	State() BankState
	OpenRow() (row int, open bool)

	// GetReadyCommand answers a desired column command with the command
	// that may actually be issued this cycle: the command itself, a
	// preparatory ACTIVE or PRECHARGE, or nil if timing forbids anything.
	GetReadyCommand(cmd *signal.Command) *signal.Command

	// ReadyForRankCommand tells whether this bank currently permits the
	// given rank-wide command.
	ReadyForRankCommand(kind signal.CommandKind) bool

	StartCommand(cmd *signal.Command)
	UpdateTiming(kind signal.CommandKind, cycleNeeded int)
	Tick() bool
}

type pendingCommand struct {
	cmd        *signal.Command
	cyclesLeft int
}

// BankImpl implements Bank with per-command-kind countdowns.
type BankImpl struct {
	naming.NamedBase
	hooking.HookableBase

	// CmdCycles is the number of cycles each command kind occupies the
	// bank before its effect (row open, row closed, data transferred)
	// lands.
	CmdCycles map[signal.CommandKind]int

	id      int
	state   BankState
	openRow int

	cyclesToCmdAvailable [signal.NumCmdKind]int
	inflight             []pendingCommand
}

// NewBankImpl creates a closed, idle bank.
func NewBankImpl(name string, id int) *BankImpl {
	naming.NameMustBeValid(name)

	return &BankImpl{
		NamedBase: naming.MakeNamedBase(name),
		id:        id,
		state:     BankStateClosed,
	}
}

// State returns the bank's current state.
func (b *BankImpl) State() BankState {
	return b.state
}

// OpenRow returns the open row, if any.
func (b *BankImpl) OpenRow() (int, bool) {
	if b.state == BankStateOpen {
		return b.openRow, true
	}

	return 0, false
}

// CanActivate tells whether an ACTIVE command may be issued now. It covers
// the tRC and tRRD obligations through the countdowns the rank maintains.
func (b *BankImpl) CanActivate() bool {
	return b.state == BankStateClosed &&
		b.cyclesToCmdAvailable[signal.CmdKindActivate] == 0
}

// CanPrecharge tells whether a PRECHARGE may be issued now. The minimum
// row-open time and write recovery are covered by the countdowns.
func (b *BankImpl) CanPrecharge() bool {
	return b.state == BankStateOpen &&
		b.cyclesToCmdAvailable[signal.CmdKindPrecharge] == 0
}

// CanAccess tells whether the given column command may target the given
// row now.
func (b *BankImpl) CanAccess(row int, kind signal.CommandKind) bool {
	return b.state == BankStateOpen &&
		b.openRow == row &&
		b.cyclesToCmdAvailable[kind] == 0
}

func (b *BankImpl) GetReadyCommand(cmd *signal.Command) *signal.Command {
	if !cmd.Kind.IsColumnCommand() {
		panic("banks only resolve column commands")
	}

	switch b.state {
	case BankStateClosed:
		if b.CanActivate() {
			activate := signal.NewCommand(signal.CmdKindActivate)
			activate.Bank = cmd.Bank
			activate.Row = cmd.Row

			return activate
		}

	case BankStateOpen:
		if b.openRow != cmd.Row {
			if b.CanPrecharge() {
				precharge := signal.NewCommand(signal.CmdKindPrecharge)
				precharge.Bank = cmd.Bank

				return precharge
			}

			return nil
		}

		if b.CanAccess(cmd.Row, cmd.Kind) {
			return cmd
		}
	}

	return nil
}

func (b *BankImpl) ReadyForRankCommand(kind signal.CommandKind) bool {
	switch kind {
	case signal.CmdKindRefresh, signal.CmdKindModeRegisterSet:
		return b.state == BankStateClosed &&
			b.cyclesToCmdAvailable[kind] == 0
	case signal.CmdKindPrechargeAll:
		if b.state == BankStateClosed {
			return true
		}

		return b.CanPrecharge()
	default:
		panic("not a rank-wide command")
	}
}

func (b *BankImpl) StartCommand(cmd *signal.Command) {
	switch cmd.Kind {
	case signal.CmdKindActivate:
		b.state = BankStateActivating
		b.openRow = cmd.Row
	case signal.CmdKindPrecharge, signal.CmdKindPrechargeAll:
		if b.state == BankStateClosed {
			// PRECHARGE ALL is a no-op on banks that are already
			// closed.
			return
		}
		b.state = BankStateClosing
	case signal.CmdKindReadPrecharge, signal.CmdKindWritePrecharge:
		b.state = BankStateClosing
	case signal.CmdKindRefresh:
		b.state = BankStateRefreshing
	}

	b.inflight = append(b.inflight, pendingCommand{
		cmd:        cmd,
		cyclesLeft: b.CmdCycles[cmd.Kind],
	})
}

func (b *BankImpl) UpdateTiming(kind signal.CommandKind, cycleNeeded int) {
	if cycleNeeded > b.cyclesToCmdAvailable[kind] {
		b.cyclesToCmdAvailable[kind] = cycleNeeded
	}
}

func (b *BankImpl) Tick() (madeProgress bool) {
	for i := range b.cyclesToCmdAvailable {
		if b.cyclesToCmdAvailable[i] > 0 {
			b.cyclesToCmdAvailable[i]--
			madeProgress = true
		}
	}

	remaining := b.inflight[:0]
	for i := range b.inflight {
		p := &b.inflight[i]
		p.cyclesLeft--
		madeProgress = true

		if p.cyclesLeft <= 0 {
			b.completeCommand(p.cmd)
			continue
		}

		remaining = append(remaining, *p)
	}
	b.inflight = remaining

	return madeProgress
}

func (b *BankImpl) completeCommand(cmd *signal.Command) {
	switch cmd.Kind {
	case signal.CmdKindActivate:
		b.state = BankStateOpen
	case signal.CmdKindPrecharge,
		signal.CmdKindPrechargeAll,
		signal.CmdKindReadPrecharge,
		signal.CmdKindWritePrecharge,
		signal.CmdKindRefresh:
		b.state = BankStateClosed
	}

	if cmd.SubTrans != nil {
		cmd.SubTrans.Completed = true
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    HookPosBankCmdComplete,
		Item:   cmd,
	})
}
