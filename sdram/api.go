package sdram

import (
	"errors"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

// Transaction is the handle returned for a submitted host request.
type Transaction = signal.Transaction

// Command is one bus command, exposed for hook consumers.
type Command = signal.Command

// CommandKind enumerates the commands the controller can place on the bus.
type CommandKind = signal.CommandKind

// BurstType selects the intra-burst column order.
type BurstType = signal.BurstType

// The burst configuration values accepted by the builder.
const (
	BurstSequential  = signal.BurstSequential
	BurstInterleaved = signal.BurstInterleaved
	FullPageBurst    = signal.FullPageBurst
)

// ErrNotInitialized reports a request submitted before Init completed.
var ErrNotInitialized = errors.New("controller not initialized")

// Init runs the power-up initialization sequence to completion, discarding
// any queued work. It must be called once before requests are submitted,
// and may be called again to recover a faulted controller.
func (c *Comp) Init() error {
	c.Reset()

	limit := uint64(c.initSeq.rampTicks +
		c.initSeq.tRP +
		2*c.initSeq.tRFC +
		c.initSeq.tMRD +
		16)

	return c.Engine().RunUntil(c.Ready, limit)
}

// Reset clears all queued and in-flight work, clears any latched fault,
// and restarts the initialization sequence. Bank state and the mode
// register are invalid until the sequence completes.
func (c *Comp) Reset() {
	c.fault = nil
	c.reqQueue = nil
	c.cmdsToQueue = nil
	c.inflight = nil
	c.cmdQueue.Clear()
	c.initSeq.Reset()
}

// SubmitRead enqueues a read of numBytes starting at the given address.
// The returned transaction's Data buffer fills as bursts complete; it is
// done when IsCompleted reports true.
func (c *Comp) SubmitRead(
	bank, row, col, numBytes int,
	autoPrecharge bool,
) (*Transaction, error) {
	if err := c.validateRequest(bank, row, col, numBytes); err != nil {
		return nil, err
	}

	t := signal.NewTransaction(signal.TransactionTypeRead)
	t.Bank = bank
	t.Row = row
	t.Col = col
	t.Data = make([]byte, numBytes)
	t.AutoPrecharge = autoPrecharge

	c.reqQueue = append(c.reqQueue, t)

	return t, nil
}

// SubmitWrite enqueues a write of the given data starting at the given
// address. mask follows DQM polarity: true suppresses the byte. A nil mask
// writes every byte.
func (c *Comp) SubmitWrite(
	bank, row, col int,
	data []byte,
	mask []bool,
	autoPrecharge bool,
) (*Transaction, error) {
	if err := c.validateRequest(bank, row, col, len(data)); err != nil {
		return nil, err
	}

	if mask == nil {
		mask = make([]bool, len(data))
	}

	if len(mask) != len(data) {
		return nil, &InvalidAddressError{
			Field: "mask length",
			Value: len(mask),
			Limit: len(data),
		}
	}

	t := signal.NewTransaction(signal.TransactionTypeWrite)
	t.Bank = bank
	t.Row = row
	t.Col = col
	t.Data = data
	t.Mask = mask
	t.AutoPrecharge = autoPrecharge

	c.reqQueue = append(c.reqQueue, t)

	return t, nil
}

// Read performs a blocking read, running the simulation until the data is
// captured.
func (c *Comp) Read(bank, row, col, numBytes int) ([]byte, error) {
	t, err := c.SubmitRead(bank, row, col, numBytes, false)
	if err != nil {
		return nil, err
	}

	if err := c.waitFor(t); err != nil {
		return nil, err
	}

	return t.Data, nil
}

// Write performs a blocking write, running the simulation until the burst
// has been transferred.
func (c *Comp) Write(bank, row, col int, data []byte, mask []bool) error {
	t, err := c.SubmitWrite(bank, row, col, data, mask, false)
	if err != nil {
		return err
	}

	return c.waitFor(t)
}

// Cancel withdraws a transaction that has not yet been translated into
// commands. It reports whether the cancellation took effect; once
// translation starts, the transaction always runs to completion.
func (c *Comp) Cancel(t *Transaction) bool {
	for i, queued := range c.reqQueue {
		if queued == t {
			c.reqQueue = append(c.reqQueue[:i], c.reqQueue[i+1:]...)
			t.MarkCancelled()

			return true
		}
	}

	return false
}

func (c *Comp) waitFor(t *Transaction) error {
	err := c.Engine().RunUntil(func() bool {
		return t.IsCompleted() || c.fault != nil
	}, c.syncCycleLimit)
	if err != nil {
		return err
	}

	if c.fault != nil {
		return c.fault
	}

	return nil
}

func (c *Comp) validateRequest(bank, row, col, numBytes int) error {
	if !c.Ready() {
		return ErrNotInitialized
	}

	if c.fault != nil {
		return c.fault
	}

	switch {
	case bank < 0 || bank >= c.numBanks:
		return &InvalidAddressError{
			Field: "bank", Value: bank, Limit: c.numBanks - 1}
	case row < 0 || row >= c.numRows:
		return &InvalidAddressError{
			Field: "row", Value: row, Limit: c.numRows - 1}
	case col < 0 || col >= c.numCols:
		return &InvalidAddressError{
			Field: "column", Value: col, Limit: c.numCols - 1}
	}

	if numBytes <= 0 || numBytes%c.wordBytes != 0 {
		return &InvalidAddressError{
			Field: "length", Value: numBytes, Limit: c.wordBytes}
	}

	numWords := numBytes / c.wordBytes
	if col+numWords > c.numCols {
		return &InvalidAddressError{
			Field: "length", Value: col + numWords, Limit: c.numCols}
	}

	// Interleaved burst order only lines up with a linear byte buffer when
	// the access covers whole aligned burst blocks.
	if c.modeReg.BurstType == signal.BurstInterleaved {
		if col%c.burstBeats != 0 || numWords%c.burstBeats != 0 {
			return &InvalidAddressError{
				Field: "interleaved alignment",
				Value: col,
				Limit: c.burstBeats,
			}
		}
	}

	if len(c.reqQueue) >= c.reqQueueCapacity {
		return &BankConflictError{QueueCapacity: c.reqQueueCapacity}
	}

	return nil
}
