package sdram

import "github.com/Thewbi/ULX3S/sdram/internal/signal"

// initState is one step of the power-up initialization sequence.
type initState int

const (
	initPowerOnIdle initState = iota
	initClockEnabled
	initPrechargeAll
	initRefresh1
	initRefresh2
	initModeRegister
	initReady
)

func (s initState) String() string {
	switch s {
	case initPowerOnIdle:
		return "power-on-idle"
	case initClockEnabled:
		return "clock-enabled"
	case initPrechargeAll:
		return "precharge-all"
	case initRefresh1:
		return "auto-refresh-1"
	case initRefresh2:
		return "auto-refresh-2"
	case initModeRegister:
		return "mode-register-program"
	default:
		return "ready"
	}
}

// initFSM walks the datasheet power-up sequence: CKE low through the clock
// stabilization ramp, then PRECHARGE ALL, two AUTO REFRESH commands, and a
// MODE REGISTER SET, each followed by its guard time. It issues directly,
// bypassing the command queue, which stays empty until the FSM reports
// ready.
type initFSM struct {
	rampTicks int
	tRP       int
	tRFC      int
	tMRD      int
	modeWord  uint16

	setClockEnable func(bool)
	issue          func(*signal.Command)
	onReady        func()

	state initState
	wait  int
}

// Ready reports whether the sequence has completed.
func (f *initFSM) Ready() bool {
	return f.state == initReady
}

// State returns the current step, for inspection and tracing.
func (f *initFSM) State() string {
	return f.state.String()
}

// Reset restarts the sequence from power-on. The mode register and all
// bank state are invalidated until the FSM reaches ready again.
func (f *initFSM) Reset() {
	f.state = initPowerOnIdle
	f.wait = f.rampTicks
	f.setClockEnable(false)
}

// Tick advances the sequence by one cycle.
func (f *initFSM) Tick() bool {
	if f.state == initReady {
		return false
	}

	if f.wait > 0 {
		f.wait--

		return true
	}

	f.advance()

	return true
}

func (f *initFSM) advance() {
	switch f.state {
	case initPowerOnIdle:
		f.setClockEnable(true)
		f.state = initClockEnabled
		f.wait = 1
	case initClockEnabled:
		f.issueKind(signal.CmdKindPrechargeAll)
		f.state = initPrechargeAll
		f.wait = f.tRP
	case initPrechargeAll:
		f.issueKind(signal.CmdKindRefresh)
		f.state = initRefresh1
		f.wait = f.tRFC
	case initRefresh1:
		f.issueKind(signal.CmdKindRefresh)
		f.state = initRefresh2
		f.wait = f.tRFC
	case initRefresh2:
		mrs := signal.NewCommand(signal.CmdKindModeRegisterSet)
		mrs.ModeWord = f.modeWord
		f.issue(mrs)

		f.state = initModeRegister
		f.wait = f.tMRD
	case initModeRegister:
		f.state = initReady
		f.onReady()
	}
}

func (f *initFSM) issueKind(kind signal.CommandKind) {
	cmd := signal.NewCommand(kind)
	if kind == signal.CmdKindPrechargeAll {
		cmd.AutoPrecharge = true
	}

	f.issue(cmd)
}
