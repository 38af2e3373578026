package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

var _ = Describe("Driver", func() {
	var (
		b *Bus
		d *Driver
	)

	BeforeEach(func() {
		b = NewBus(2)
		d = NewDriver(b, 2)
	})

	It("should encode an ACTIVE command with the row on the address pins", func() {
		cmd := signal.NewCommand(signal.CmdKindActivate)
		cmd.Bank = 2
		cmd.Row = 1234

		Expect(d.Issue(cmd)).To(Succeed())

		Expect(b.CmdPins).To(Equal(uint8(signal.PinsActivate)))
		Expect(b.BankSel).To(Equal(uint8(2)))
		Expect(b.Addr).To(Equal(uint16(1234)))
	})

	It("should set address bit 10 on auto-precharge column commands", func() {
		cmd := signal.NewCommand(signal.CmdKindWritePrecharge)
		cmd.Col = 7
		cmd.Data = []byte{1, 2}
		cmd.Mask = []bool{false, false}

		Expect(d.Issue(cmd)).To(Succeed())

		Expect(b.Addr).To(Equal(uint16(7 | 1<<10)))
		Expect(b.AddrBit10()).To(BeTrue())
	})

	It("should carry the mode word on a MODE REGISTER SET", func() {
		cmd := signal.NewCommand(signal.CmdKindModeRegisterSet)
		cmd.ModeWord = 0x21

		Expect(d.Issue(cmd)).To(Succeed())

		Expect(b.CmdPins).To(Equal(uint8(signal.PinsModeRegisterSet)))
		Expect(b.Addr).To(Equal(uint16(0x21)))
	})

	It("should drive a write burst one beat per cycle", func() {
		cmd := signal.NewCommand(signal.CmdKindWrite)
		cmd.Data = []byte{1, 2, 3, 4}
		cmd.Mask = []bool{false, true, false, false}

		d.BeginCycle()
		Expect(d.Issue(cmd)).To(Succeed())

		data, valid := b.SampleDQ()
		Expect(b.Owner()).To(Equal(DQController))
		Expect(data).To(Equal([]byte{1, 2}))
		Expect(valid).To(Equal([]bool{true, false}))
		Expect(b.DQM).To(Equal([]bool{false, true}))

		d.BeginCycle()
		d.Tick()

		data, valid = b.SampleDQ()
		Expect(data).To(Equal([]byte{3, 4}))
		Expect(valid).To(Equal([]bool{true, true}))
		Expect(b.DQM).To(Equal([]bool{false, false}))

		d.BeginCycle()
		d.Tick()

		Expect(b.Owner()).To(Equal(DQReleased))
		Expect(d.Idle()).To(BeTrue())
	})

	It("should capture a read burst after the CAS latency", func() {
		cmd := signal.NewCommand(signal.CmdKindRead)
		cmd.Data = make([]byte, 4)

		// Cycle 0: command on the pins, bus tri-stated, lanes enabled.
		d.BeginCycle()
		Expect(d.Issue(cmd)).To(Succeed())
		Expect(b.Owner()).ToNot(Equal(DQController))
		Expect(b.DQM).To(Equal([]bool{false, false}))

		// Cycle 1: the device drives the first beat.
		d.BeginCycle()
		d.Tick()
		Expect(b.Claim(DQDevice)).To(Succeed())
		Expect(b.DriveDQ(DQDevice, []byte{0xAA, 0xBB}, []bool{true, true})).
			To(Succeed())

		// Cycle 2: beat 0 is sampled; the device drives the second beat.
		d.BeginCycle()
		d.Tick()
		Expect(cmd.Data[:2]).To(Equal([]byte{0xAA, 0xBB}))
		Expect(b.DriveDQ(DQDevice, []byte{0xCC, 0xDD}, []bool{true, true})).
			To(Succeed())

		// Cycle 3: beat 1 is sampled.
		d.BeginCycle()
		d.Tick()
		Expect(cmd.Data).To(Equal([]byte{0xAA, 0xBB, 0xCC, 0xDD}))
		Expect(d.Idle()).To(BeTrue())
	})

	It("should skip invalid lanes when capturing", func() {
		cmd := signal.NewCommand(signal.CmdKindRead)
		cmd.Data = []byte{0xFF, 0xFF}

		d.BeginCycle()
		Expect(d.Issue(cmd)).To(Succeed())

		d.BeginCycle()
		d.Tick()
		Expect(b.Claim(DQDevice)).To(Succeed())
		Expect(b.DriveDQ(DQDevice, []byte{0x11, 0x22}, []bool{true, false})).
			To(Succeed())

		d.BeginCycle()
		d.Tick()

		Expect(cmd.Data).To(Equal([]byte{0x11, 0xFF}))
	})

	It("should reject a write burst with a partial word", func() {
		cmd := signal.NewCommand(signal.CmdKindWrite)
		cmd.Data = []byte{1, 2, 3}
		cmd.Mask = []bool{false, false, false}

		Expect(d.Issue(cmd)).ToNot(Succeed())
	})
})
