package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Bus", func() {
	var b *Bus

	BeforeEach(func() {
		b = NewBus(2)
	})

	It("should present NOP with all lanes masked after BeginCycle", func() {
		b.SetCommand(0b0011, 1, 42)
		b.DQM[0] = false

		b.BeginCycle()

		Expect(b.CmdPins).To(Equal(uint8(0b0111)))
		Expect(b.BankSel).To(Equal(uint8(0)))
		Expect(b.Addr).To(Equal(uint16(0)))
		Expect(b.DQM).To(Equal([]bool{true, true}))
	})

	It("should report the auto-precharge flag from address bit 10", func() {
		b.SetCommand(0b0101, 0, 3|1<<10)

		Expect(b.AddrBit10()).To(BeTrue())
	})

	It("should arbitrate data bus ownership", func() {
		Expect(b.Claim(DQController)).To(Succeed())
		Expect(b.Claim(DQController)).To(Succeed())
		Expect(b.Claim(DQDevice)).To(MatchError(ErrBusContention))

		b.Release(DQDevice)
		Expect(b.Owner()).To(Equal(DQController))

		b.Release(DQController)
		Expect(b.Owner()).To(Equal(DQReleased))
		Expect(b.Claim(DQDevice)).To(Succeed())
	})

	It("should reject drives from a non-owner", func() {
		Expect(b.Claim(DQDevice)).To(Succeed())

		err := b.DriveDQ(DQController, []byte{1, 2}, []bool{true, true})

		Expect(err).To(MatchError(ErrBusContention))
	})

	It("should carry driven data until released", func() {
		Expect(b.Claim(DQDevice)).To(Succeed())
		Expect(b.DriveDQ(DQDevice, []byte{0xAA, 0xBB}, []bool{true, false})).
			To(Succeed())

		data, valid := b.SampleDQ()
		Expect(data).To(Equal([]byte{0xAA, 0xBB}))
		Expect(valid).To(Equal([]bool{true, false}))

		b.Release(DQDevice)

		_, valid = b.SampleDQ()
		Expect(valid).To(Equal([]bool{false, false}))
	})
})
