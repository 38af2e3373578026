package org

import "github.com/Thewbi/ULX3S/sdram/internal/signal"

// A Rank aggregates the banks of the device and applies the timing tables
// on every issued command.
type Rank interface {
	GetReadyCommand(cmd *signal.Command) *signal.Command
	StartCommand(cmd *signal.Command)
	UpdateTiming(cmd *signal.Command)
	AllBanksClosed() bool
	Bank(id int) Bank
	Tick() bool
}

// RankImpl implements Rank over a fixed set of banks.
type RankImpl struct {
	Banks  []Bank
	Timing Timing
}

// Bank returns the bank with the given id.
func (r *RankImpl) Bank(id int) Bank {
	return r.Banks[id]
}

// AllBanksClosed reports whether every bank is closed and idle.
func (r *RankImpl) AllBanksClosed() bool {
	for _, b := range r.Banks {
		if b.State() != BankStateClosed {
			return false
		}
	}

	return true
}

func (r *RankImpl) GetReadyCommand(cmd *signal.Command) *signal.Command {
	if cmd.Kind.IsColumnCommand() {
		return r.Banks[cmd.Bank].GetReadyCommand(cmd)
	}

	switch cmd.Kind {
	case signal.CmdKindRefresh, signal.CmdKindModeRegisterSet:
		if r.allBanksReadyFor(cmd.Kind) {
			return cmd
		}

		// The rank must first be drained to all-banks-closed.
		if !r.AllBanksClosed() && r.allBanksReadyFor(signal.CmdKindPrechargeAll) {
			prechargeAll := signal.NewCommand(signal.CmdKindPrechargeAll)
			prechargeAll.AutoPrecharge = true

			return prechargeAll
		}

		return nil
	case signal.CmdKindPrechargeAll:
		if r.allBanksReadyFor(cmd.Kind) {
			return cmd
		}

		return nil
	default:
		return nil
	}
}

func (r *RankImpl) allBanksReadyFor(kind signal.CommandKind) bool {
	for _, b := range r.Banks {
		if !b.ReadyForRankCommand(kind) {
			return false
		}
	}

	return true
}

func (r *RankImpl) StartCommand(cmd *signal.Command) {
	if r.isRankWide(cmd.Kind) {
		for _, b := range r.Banks {
			b.StartCommand(cmd)
		}

		return
	}

	r.Banks[cmd.Bank].StartCommand(cmd)
}

func (r *RankImpl) UpdateTiming(cmd *signal.Command) {
	if r.isRankWide(cmd.Kind) {
		for _, b := range r.Banks {
			r.applyEntries(b, r.Timing.SameBank[cmd.Kind])
		}

		return
	}

	for i, b := range r.Banks {
		if i == cmd.Bank {
			r.applyEntries(b, r.Timing.SameBank[cmd.Kind])
		} else {
			r.applyEntries(b, r.Timing.OtherBanks[cmd.Kind])
		}
	}
}

func (r *RankImpl) applyEntries(b Bank, entries []TimeTableEntry) {
	for _, e := range entries {
		b.UpdateTiming(e.NextCmdKind, e.MinCycleInBetween)
	}
}

func (r *RankImpl) isRankWide(kind signal.CommandKind) bool {
	switch kind {
	case signal.CmdKindPrechargeAll,
		signal.CmdKindRefresh,
		signal.CmdKindModeRegisterSet:
		return true
	default:
		return false
	}
}

func (r *RankImpl) Tick() (madeProgress bool) {
	for _, b := range r.Banks {
		madeProgress = b.Tick() || madeProgress
	}

	return madeProgress
}
