// Package cmdq provides the command queue between transaction translation
// and command issue.
package cmdq

import (
	"github.com/Thewbi/ULX3S/sdram/internal/org"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

// A CommandQueue is a queue of column commands waiting to be issued to the
// rank.
type CommandQueue interface {
	GetCommandToIssue() *signal.Command
	CanAccept() bool
	Accept(cmd *signal.Command)
	Size() int
	Clear()
}

// CommandQueueImpl is a single FIFO. Host requests are serialized into one
// queue and serviced strictly in order; only the refresh scheduler may
// preempt, and it does so upstream of this queue.
type CommandQueueImpl struct {
	Capacity int
	Rank     org.Rank

	commands []*signal.Command
}

// GetCommandToIssue returns the command that may go on the bus this cycle:
// the head command if its bank is ready, or the preparatory command the
// bank asks for, or nil.
func (q *CommandQueueImpl) GetCommandToIssue() *signal.Command {
	if len(q.commands) == 0 {
		return nil
	}

	head := q.commands[0]

	ready := q.Rank.GetReadyCommand(head)
	if ready == nil {
		return nil
	}

	if ready == head {
		q.commands = q.commands[1:]
	}

	return ready
}

// CanAccept tells whether the queue has room for one more command.
func (q *CommandQueueImpl) CanAccept() bool {
	return len(q.commands) < q.Capacity
}

// Accept appends a command to the queue.
func (q *CommandQueueImpl) Accept(cmd *signal.Command) {
	if !q.CanAccept() {
		panic("command queue overflow")
	}

	q.commands = append(q.commands, cmd)
}

// Size returns the number of queued commands.
func (q *CommandQueueImpl) Size() int {
	return len(q.commands)
}

// Clear drops all queued commands. Used when the controller re-enters the
// initialization sequence.
func (q *CommandQueueImpl) Clear() {
	q.commands = nil
}
