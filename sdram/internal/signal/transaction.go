package signal

import "github.com/rs/xid"

// TransactionType tells read and write transactions apart.
type TransactionType int

// The two transaction types.
const (
	TransactionTypeRead TransactionType = iota
	TransactionTypeWrite
)

// Transaction is the state associated with the processing of one host-level
// read or write request.
type Transaction struct {
	ID   string
	Type TransactionType

	Bank int
	Row  int
	Col  int

	// Data holds the bytes to write, or receives the bytes read. Mask
	// follows DQM polarity (true suppresses the byte lane) and is only
	// meaningful for writes.
	Data []byte
	Mask []bool

	// AutoPrecharge asks the device to close the row when the last burst
	// of the transaction completes.
	AutoPrecharge bool

	SubTransactions []*SubTransaction

	cancelled bool
}

// NewTransaction creates a transaction with a fresh ID.
func NewTransaction(t TransactionType) *Transaction {
	return &Transaction{
		ID:   xid.New().String(),
		Type: t,
	}
}

// IsRead returns true if the transaction is a read transaction.
func (t *Transaction) IsRead() bool {
	return t.Type == TransactionTypeRead
}

// IsWrite returns true if the transaction is a write transaction.
func (t *Transaction) IsWrite() bool {
	return t.Type == TransactionTypeWrite
}

// ByteSize returns the number of bytes the transaction accesses.
func (t *Transaction) ByteSize() int {
	return len(t.Data)
}

// IsCompleted returns true once every sub-transaction has finished its data
// phase.
func (t *Transaction) IsCompleted() bool {
	if len(t.SubTransactions) == 0 {
		return false
	}

	for _, st := range t.SubTransactions {
		if !st.Completed {
			return false
		}
	}

	return true
}

// Cancelled reports whether the transaction was withdrawn before issue.
func (t *Transaction) Cancelled() bool {
	return t.cancelled
}

// MarkCancelled records a successful cancellation.
func (t *Transaction) MarkCancelled() {
	t.cancelled = true
}

// A SubTransaction is the portion of a transaction that one burst-aligned
// column command transfers.
type SubTransaction struct {
	ID          string
	Transaction *Transaction

	// Col is the first column the host actually needs within this burst
	// window; Offset/NumBytes locate the covered bytes in the parent
	// transaction's buffer.
	Col      int
	Offset   int
	NumBytes int

	Completed bool
}

// NewSubTransaction creates a sub-transaction linked to its parent.
func NewSubTransaction(t *Transaction) *SubTransaction {
	return &SubTransaction{
		ID:          xid.New().String(),
		Transaction: t,
	}
}
