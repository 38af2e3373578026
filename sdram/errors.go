package sdram

import (
	"fmt"

	"github.com/Thewbi/ULX3S/timing"
)

// An InvalidAddressError reports a request whose bank, row, column, or
// length falls outside the device geometry.
type InvalidAddressError struct {
	Field string
	Value int
	Limit int
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address: %s %d exceeds limit %d",
		e.Field, e.Value, e.Limit)
}

// A BankConflictError reports that the controller cannot accept another
// request until in-flight work drains.
type BankConflictError struct {
	QueueCapacity int
}

func (e *BankConflictError) Error() string {
	return fmt.Sprintf(
		"request queue full (capacity %d)", e.QueueCapacity)
}

// A ProtocolViolationError reports a command sequence that breaks a
// datasheet rule.
type ProtocolViolationError struct {
	Cmd    string
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation on %s: %s", e.Cmd, e.Detail)
}

// A RefreshDeadlineMissedError reports that a row refresh deadline passed
// without an AUTO REFRESH command. Data retention is no longer guaranteed.
type RefreshDeadlineMissedError struct {
	Deadline timing.Tick
	Now      timing.Tick
}

func (e *RefreshDeadlineMissedError) Error() string {
	return fmt.Sprintf(
		"refresh deadline %d missed at tick %d", e.Deadline, e.Now)
}
