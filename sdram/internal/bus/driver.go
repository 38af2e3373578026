package bus

import (
	"fmt"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

// A Driver owns the controller side of the bus. It encodes commands onto
// the pins for exactly one cycle each, drives write bursts, and captures
// read bursts after the CAS latency. It never decides what to send; the
// sequencer does.
type Driver struct {
	bus *Bus

	casLatency int

	writes []*writeBurst
	reads  []*readCapture
}

type writeBurst struct {
	cmd      *signal.Command
	beats    [][]byte
	masks    [][]bool
	nextBeat int
}

type readCapture struct {
	cmd      *signal.Command
	age      int
	beats    int
	captured int
}

// NewDriver creates a driver for the given bus.
func NewDriver(b *Bus, casLatency int) *Driver {
	return &Driver{
		bus:        b,
		casLatency: casLatency,
	}
}

// Bus returns the bus the driver drives.
func (d *Driver) Bus() *Bus {
	return d.bus
}

// SetCASLatency reconfigures the capture delay. Called when the mode
// register is (re)programmed.
func (d *Driver) SetCASLatency(cl int) {
	d.casLatency = cl
}

// SetClockEnable drives the CKE pin.
func (d *Driver) SetClockEnable(on bool) {
	d.bus.CKE = on
}

// BeginCycle reverts the pins to NOP for the new cycle. Any cycle in which
// Issue is not called therefore presents a NOP to the device.
func (d *Driver) BeginCycle() {
	d.bus.BeginCycle()
}

// Issue encodes one command onto the pins for the current cycle. For
// writes it also drives the first data beat; for reads it tri-states the
// data bus before the CAS-latency window begins.
func (d *Driver) Issue(cmd *signal.Command) error {
	d.bus.SetCommand(
		signal.EncodePins(cmd.Kind),
		uint8(cmd.Bank),
		d.commandAddr(cmd),
	)

	switch {
	case cmd.Kind.IsWrite():
		return d.startWriteBurst(cmd)
	case cmd.Kind.IsRead():
		return d.startReadCapture(cmd)
	default:
		return nil
	}
}

func (d *Driver) commandAddr(cmd *signal.Command) uint16 {
	switch cmd.Kind {
	case signal.CmdKindActivate:
		return uint16(cmd.Row)
	case signal.CmdKindRead, signal.CmdKindWrite:
		return uint16(cmd.Col)
	case signal.CmdKindReadPrecharge, signal.CmdKindWritePrecharge:
		return uint16(cmd.Col) | 1<<10
	case signal.CmdKindPrechargeAll:
		return 1 << 10
	case signal.CmdKindModeRegisterSet:
		return cmd.ModeWord
	default:
		return 0
	}
}

func (d *Driver) startWriteBurst(cmd *signal.Command) error {
	wordBytes := d.bus.ByteLanes()

	if len(cmd.Data)%wordBytes != 0 || len(cmd.Mask) != len(cmd.Data) {
		return fmt.Errorf(
			"write burst payload must be whole words: %d data, %d mask bytes",
			len(cmd.Data), len(cmd.Mask))
	}

	if err := d.bus.Claim(DQController); err != nil {
		return err
	}

	burst := &writeBurst{cmd: cmd}
	for off := 0; off < len(cmd.Data); off += wordBytes {
		burst.beats = append(burst.beats, cmd.Data[off:off+wordBytes])
		burst.masks = append(burst.masks, cmd.Mask[off:off+wordBytes])
	}

	d.writes = append(d.writes, burst)

	// Write data is presented in the same cycle as the command.
	d.driveBeat(burst)

	return nil
}

func (d *Driver) startReadCapture(cmd *signal.Command) error {
	// The driver must be tri-stated before the CAS-latency window begins.
	d.bus.Release(DQController)

	wordBytes := d.bus.ByteLanes()

	// Read DQM latency is fixed at two cycles: DQM sampled at cycle t
	// gates the beat arriving at t+2, so the lanes stay enabled from the
	// command cycle until two cycles before the last beat lands.
	d.enableAllLanes()

	d.reads = append(d.reads, &readCapture{
		cmd:   cmd,
		beats: len(cmd.Data) / wordBytes,
	})

	return nil
}

func (d *Driver) enableAllLanes() {
	for i := range d.bus.DQM {
		d.bus.DQM[i] = false
	}
}

// Tick advances the data phases of all in-flight bursts by one cycle.
func (d *Driver) Tick() (madeProgress bool) {
	madeProgress = d.tickWrites() || madeProgress
	madeProgress = d.tickReads() || madeProgress

	return madeProgress
}

func (d *Driver) tickWrites() (madeProgress bool) {
	remaining := d.writes[:0]

	for _, burst := range d.writes {
		if burst.nextBeat >= len(burst.beats) {
			d.bus.Release(DQController)
			madeProgress = true

			continue
		}

		d.driveBeat(burst)
		madeProgress = true

		remaining = append(remaining, burst)
	}

	d.writes = remaining

	return madeProgress
}

func (d *Driver) driveBeat(burst *writeBurst) {
	beat := burst.beats[burst.nextBeat]
	mask := burst.masks[burst.nextBeat]
	burst.nextBeat++

	valid := make([]bool, len(beat))
	for i := range beat {
		// DQM is low-active enable: mask[i] == true keeps the lane
		// suppressed.
		d.bus.DQM[i] = mask[i]
		valid[i] = !mask[i]
	}

	// Claim already succeeded at burst start; contention can no longer
	// occur mid-burst.
	_ = d.bus.DriveDQ(DQController, beat, valid)
}

func (d *Driver) tickReads() (madeProgress bool) {
	wordBytes := d.bus.ByteLanes()
	remaining := d.reads[:0]

	for _, c := range d.reads {
		c.age++
		madeProgress = true

		if c.age < c.beats+d.casLatency-2 {
			d.enableAllLanes()
		}

		if c.age == d.casLatency+c.captured && c.captured < c.beats {
			d.captureBeat(c, wordBytes)
		}

		if c.captured < c.beats {
			remaining = append(remaining, c)
		}
	}

	d.reads = remaining

	return madeProgress
}

func (d *Driver) captureBeat(c *readCapture, wordBytes int) {
	data, valid := d.bus.SampleDQ()

	off := c.captured * wordBytes
	for lane := 0; lane < wordBytes; lane++ {
		// Lanes the device left high-impedance (masked two cycles
		// earlier via DQM) carry no data and are skipped.
		if valid[lane] {
			c.cmd.Data[off+lane] = data[lane]
		}
	}

	c.captured++
}

// Idle reports whether no data phase is in flight and the controller does
// not own the data bus.
func (d *Driver) Idle() bool {
	return len(d.writes) == 0 &&
		len(d.reads) == 0 &&
		d.bus.Owner() != DQController
}
