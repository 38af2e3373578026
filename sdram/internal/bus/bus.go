// Package bus models the physical command/address/data bus between the
// controller and the SDRAM device, including the tri-state arbitration of
// the bidirectional data lines.
package bus

import "errors"

// DQOwner identifies which side currently drives the data lines.
type DQOwner int

// The possible owners of the data bus. Released means both sides are
// tri-stated.
const (
	DQReleased DQOwner = iota
	DQController
	DQDevice
)

func (o DQOwner) String() string {
	switch o {
	case DQController:
		return "controller"
	case DQDevice:
		return "device"
	default:
		return "released"
	}
}

// ErrBusContention reports an attempt to drive the data bus while the other
// side owns it.
var ErrBusContention = errors.New("data bus contention")

// A Bus carries one cycle's pin state. The controller establishes the
// command pins in the primary tick phase; the device samples them in the
// secondary phase of the same cycle. Data placed on DQ during one cycle is
// sampled by the other side in the following cycle.
type Bus struct {
	CKE     bool
	CmdPins uint8
	BankSel uint8
	Addr    uint16
	DQM     []bool

	owner   DQOwner
	dq      []byte
	dqValid []bool
}

// NewBus creates a bus with the given number of byte lanes.
func NewBus(byteLanes int) *Bus {
	return &Bus{
		CmdPins: 0b0111, // NOP
		DQM:     make([]bool, byteLanes),
		dq:      make([]byte, byteLanes),
		dqValid: make([]bool, byteLanes),
	}
}

// ByteLanes returns the width of the data bus in bytes.
func (b *Bus) ByteLanes() int {
	return len(b.dq)
}

// BeginCycle reverts the command pins to NOP and masks all byte lanes.
// Ownership of the data bus persists across cycles until released.
func (b *Bus) BeginCycle() {
	b.CmdPins = 0b0111
	b.BankSel = 0
	b.Addr = 0

	for i := range b.DQM {
		b.DQM[i] = true
	}
}

// SetCommand drives the command, bank and address pins for this cycle.
func (b *Bus) SetCommand(cmdPins uint8, bankSel uint8, addr uint16) {
	b.CmdPins = cmdPins
	b.BankSel = bankSel
	b.Addr = addr
}

// AddrBit10 reports the auto-precharge / all-banks flag.
func (b *Bus) AddrBit10() bool {
	return b.Addr&(1<<10) != 0
}

// Claim takes ownership of the data bus for one side.
func (b *Bus) Claim(owner DQOwner) error {
	if b.owner != DQReleased && b.owner != owner {
		return ErrBusContention
	}

	b.owner = owner

	return nil
}

// Release gives up ownership. Releasing a bus owned by the other side is a
// no-op.
func (b *Bus) Release(owner DQOwner) {
	if b.owner == owner {
		b.owner = DQReleased

		for i := range b.dqValid {
			b.dqValid[i] = false
		}
	}
}

// Owner returns the current data bus owner.
func (b *Bus) Owner() DQOwner {
	return b.owner
}

// DriveDQ places one word on the data lines. valid marks the lanes that
// carry defined data; unmarked lanes read back as high impedance.
func (b *Bus) DriveDQ(owner DQOwner, data []byte, valid []bool) error {
	if b.owner != owner {
		return ErrBusContention
	}

	copy(b.dq, data)
	copy(b.dqValid, valid)

	return nil
}

// SampleDQ returns the word currently on the data lines along with the
// per-lane validity.
func (b *Bus) SampleDQ() (data []byte, valid []bool) {
	return b.dq, b.dqValid
}
