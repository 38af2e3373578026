// Package org models the organization of the SDRAM device as the
// controller sees it: four banks aggregated into one rank, with the
// datasheet timing constraints expressed as declarative tables.
package org

import "github.com/Thewbi/ULX3S/sdram/internal/signal"

// A TimeTableEntry says that after a command of some kind, a command of
// NextCmdKind must wait at least MinCycleInBetween cycles.
type TimeTableEntry struct {
	NextCmdKind       signal.CommandKind
	MinCycleInBetween int
}

// TimeTable lists the spacing rules keyed by the earlier command's kind.
type TimeTable map[signal.CommandKind][]TimeTableEntry

// MakeTimeTable creates an empty TimeTable.
func MakeTimeTable() TimeTable {
	return make(TimeTable)
}

// Timing aggregates the spacing rules by scope. SameBank applies to the
// bank a command targets; OtherBanks applies to its neighbors in the rank.
// Rank-wide commands (PRECHARGE ALL, AUTO REFRESH, MODE REGISTER SET)
// apply their SameBank rules to every bank.
type Timing struct {
	SameBank   TimeTable
	OtherBanks TimeTable
}
