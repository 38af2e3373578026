// Package tracing observes the command stream of a controller through its
// hooks. It can persist the stream to a trace database and verify it
// against the datasheet spacing rules.
package tracing

import (
	"github.com/Thewbi/ULX3S/datarecording"
	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/timing"
)

// CommandTraceEntry is one recorded bus command.
type CommandTraceEntry struct {
	Tick          uint64
	Kind          string
	Bank          int
	Row           int
	Col           int
	AutoPrecharge bool
}

// A CommandTracer is a hook that records every issued command into a trace
// database table.
type CommandTracer struct {
	recorder  datarecording.DataRecorder
	tableName string
}

// NewCommandTracer creates a tracer writing to the given table, creating
// it in the recorder.
func NewCommandTracer(
	recorder datarecording.DataRecorder,
	tableName string,
) *CommandTracer {
	recorder.CreateTable(tableName, CommandTraceEntry{})

	return &CommandTracer{
		recorder:  recorder,
		tableName: tableName,
	}
}

// Func records command-issue hook invocations.
func (t *CommandTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sdram.HookPosCommandIssue {
		return
	}

	cmd := ctx.Item.(*sdram.Command)
	tick := ctx.Detail.(timing.Tick)

	t.recorder.InsertData(t.tableName, CommandTraceEntry{
		Tick:          uint64(tick),
		Kind:          cmd.Kind.String(),
		Bank:          cmd.Bank,
		Row:           cmd.Row,
		Col:           cmd.Col,
		AutoPrecharge: cmd.AutoPrecharge,
	})
}

// A CommandLog is a hook that keeps the issued commands in memory. Useful
// in tests and for inspecting short runs.
type CommandLog struct {
	Entries []CommandTraceEntry
}

// Func records command-issue hook invocations.
func (l *CommandLog) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sdram.HookPosCommandIssue {
		return
	}

	cmd := ctx.Item.(*sdram.Command)
	tick := ctx.Detail.(timing.Tick)

	l.Entries = append(l.Entries, CommandTraceEntry{
		Tick:          uint64(tick),
		Kind:          cmd.Kind.String(),
		Bank:          cmd.Bank,
		Row:           cmd.Row,
		Col:           cmd.Col,
		AutoPrecharge: cmd.AutoPrecharge,
	})
}

// CountKind returns how many logged commands have the given kind name.
func (l *CommandLog) CountKind(kind string) int {
	n := 0

	for _, e := range l.Entries {
		if e.Kind == kind {
			n++
		}
	}

	return n
}
