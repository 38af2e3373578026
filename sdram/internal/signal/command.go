// Package signal defines the commands, bus-level encodings, and
// transactions that flow between the sequencer, the banks, and the bus
// driver.
package signal

import (
	"fmt"

	"github.com/rs/xid"
)

// CommandKind enumerates the commands the controller can place on the bus.
type CommandKind int

// A list of all command kinds.
const (
	CmdKindNop CommandKind = iota
	CmdKindActivate
	CmdKindRead
	CmdKindReadPrecharge
	CmdKindWrite
	CmdKindWritePrecharge
	CmdKindPrecharge
	CmdKindPrechargeAll
	CmdKindRefresh
	CmdKindModeRegisterSet
	NumCmdKind
)

func (k CommandKind) String() string {
	switch k {
	case CmdKindNop:
		return "NOP"
	case CmdKindActivate:
		return "ACTIVE"
	case CmdKindRead:
		return "READ"
	case CmdKindReadPrecharge:
		return "READ_AP"
	case CmdKindWrite:
		return "WRITE"
	case CmdKindWritePrecharge:
		return "WRITE_AP"
	case CmdKindPrecharge:
		return "PRECHARGE"
	case CmdKindPrechargeAll:
		return "PRECHARGE_ALL"
	case CmdKindRefresh:
		return "AUTO_REFRESH"
	case CmdKindModeRegisterSet:
		return "MODE_REGISTER_SET"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// IsColumnCommand returns true for the commands that move data (and
// therefore occupy the DQ bus).
func (k CommandKind) IsColumnCommand() bool {
	switch k {
	case CmdKindRead, CmdKindReadPrecharge, CmdKindWrite, CmdKindWritePrecharge:
		return true
	default:
		return false
	}
}

// IsRead returns true for the read-direction column commands.
func (k CommandKind) IsRead() bool {
	return k == CmdKindRead || k == CmdKindReadPrecharge
}

// IsWrite returns true for the write-direction column commands.
func (k CommandKind) IsWrite() bool {
	return k == CmdKindWrite || k == CmdKindWritePrecharge
}

// The 4-bit {CS, RAS, CAS, WE} encodings from the datasheet. All strobes
// are low-active; a set bit means the pin is high.
const (
	PinsNop             = 0b0111
	PinsActivate        = 0b0011
	PinsRead            = 0b0101
	PinsWrite           = 0b0100
	PinsPrecharge       = 0b0010
	PinsRefresh         = 0b0001
	PinsModeRegisterSet = 0b0000
)

// EncodePins returns the {CS, RAS, CAS, WE} bit pattern for a command kind.
// Auto-precharge and the all-banks flag are carried on address bit 10, not
// in the strobe pattern.
func EncodePins(kind CommandKind) uint8 {
	switch kind {
	case CmdKindNop:
		return PinsNop
	case CmdKindActivate:
		return PinsActivate
	case CmdKindRead, CmdKindReadPrecharge:
		return PinsRead
	case CmdKindWrite, CmdKindWritePrecharge:
		return PinsWrite
	case CmdKindPrecharge, CmdKindPrechargeAll:
		return PinsPrecharge
	case CmdKindRefresh:
		return PinsRefresh
	case CmdKindModeRegisterSet:
		return PinsModeRegisterSet
	default:
		panic(fmt.Sprintf("cannot encode %s", kind))
	}
}

// DecodePins maps a {CS, RAS, CAS, WE} pattern plus the address bit 10 flag
// back to a command kind. Unknown patterns decode as NOP, matching how a
// real device treats them as inhibited.
func DecodePins(pins uint8, addrBit10 bool) CommandKind {
	switch pins {
	case PinsActivate:
		return CmdKindActivate
	case PinsRead:
		if addrBit10 {
			return CmdKindReadPrecharge
		}
		return CmdKindRead
	case PinsWrite:
		if addrBit10 {
			return CmdKindWritePrecharge
		}
		return CmdKindWrite
	case PinsPrecharge:
		if addrBit10 {
			return CmdKindPrechargeAll
		}
		return CmdKindPrecharge
	case PinsRefresh:
		return CmdKindRefresh
	case PinsModeRegisterSet:
		return CmdKindModeRegisterSet
	default:
		return CmdKindNop
	}
}

// A Command is one bus command, issued for exactly one clock cycle.
type Command struct {
	ID   string
	Kind CommandKind

	Bank int
	Row  int
	Col  int

	// AutoPrecharge is encoded as address bit 10 on READ/WRITE. On
	// PRECHARGE the same bit selects all banks.
	AutoPrecharge bool

	// ModeWord is the address-pin payload of a MODE REGISTER SET command.
	ModeWord uint16

	// Data and Mask carry the write burst payload, one entry per byte.
	// Mask follows DQM polarity: true suppresses the byte lane.
	Data []byte
	Mask []bool

	SubTrans *SubTransaction
}

// NewCommand creates a command with a fresh ID.
func NewCommand(kind CommandKind) *Command {
	return &Command{
		ID:   xid.New().String(),
		Kind: kind,
	}
}
