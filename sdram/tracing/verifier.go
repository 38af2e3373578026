package tracing

import (
	"fmt"

	"github.com/Thewbi/ULX3S/hooking"
	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/sdram/internal/org"
	"github.com/Thewbi/ULX3S/sdram/internal/signal"
	"github.com/Thewbi/ULX3S/timing"
)

// A TimingVerifier is a hook that independently re-checks every issued
// command against the spacing tables. The controller enforces the rules
// through its bank countdowns; the verifier recomputes them from the raw
// command stream, so a scheduling bug shows up as a recorded violation.
type TimingVerifier struct {
	timing   org.Timing
	numBanks int

	lastIssue [][]int64

	violations []error
}

// NewTimingVerifier creates a verifier for the given controller. Attach it
// with AcceptHook.
func NewTimingVerifier(c *sdram.Comp) *TimingVerifier {
	v := &TimingVerifier{
		timing:   c.Timing(),
		numBanks: c.NumBanks(),
	}

	v.lastIssue = make([][]int64, v.numBanks)
	for b := range v.lastIssue {
		v.lastIssue[b] = make([]int64, signal.NumCmdKind)
		for k := range v.lastIssue[b] {
			v.lastIssue[b][k] = -1
		}
	}

	return v
}

// Violations returns the spacing violations observed so far.
func (v *TimingVerifier) Violations() []error {
	return v.violations
}

// Func checks command-issue hook invocations.
func (v *TimingVerifier) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sdram.HookPosCommandIssue {
		return
	}

	cmd := ctx.Item.(*sdram.Command)
	now := int64(ctx.Detail.(timing.Tick))

	for _, bank := range v.targetBanks(cmd) {
		v.checkBank(cmd, bank, now)
	}

	for _, bank := range v.targetBanks(cmd) {
		v.lastIssue[bank][cmd.Kind] = now
	}
}

func (v *TimingVerifier) targetBanks(cmd *sdram.Command) []int {
	switch cmd.Kind {
	case signal.CmdKindPrechargeAll,
		signal.CmdKindRefresh,
		signal.CmdKindModeRegisterSet:
		banks := make([]int, v.numBanks)
		for i := range banks {
			banks[i] = i
		}

		return banks
	default:
		return []int{cmd.Bank}
	}
}

func (v *TimingVerifier) checkBank(cmd *sdram.Command, bank int, now int64) {
	for prior := signal.CommandKind(0); prior < signal.NumCmdKind; prior++ {
		v.checkAgainst(cmd, now,
			v.lastIssue[bank][prior], v.timing.SameBank[prior])

		for other := 0; other < v.numBanks; other++ {
			if other == bank {
				continue
			}

			v.checkAgainst(cmd, now,
				v.lastIssue[other][prior], v.timing.OtherBanks[prior])
		}
	}
}

func (v *TimingVerifier) checkAgainst(
	cmd *sdram.Command,
	now, last int64,
	entries []org.TimeTableEntry,
) {
	if last < 0 {
		return
	}

	for _, e := range entries {
		if e.NextCmdKind != cmd.Kind {
			continue
		}

		if now-last < int64(e.MinCycleInBetween) {
			v.violations = append(v.violations, &sdram.ProtocolViolationError{
				Cmd: cmd.Kind.String(),
				Detail: fmt.Sprintf(
					"issued %d cycles after the previous constraint, need %d",
					now-last, e.MinCycleInBetween),
			})
		}
	}
}
