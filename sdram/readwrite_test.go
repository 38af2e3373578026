package sdram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/sdram/device"
	"github.com/Thewbi/ULX3S/sdram/tracing"
	"github.com/Thewbi/ULX3S/timing"
)

func buildSystem(
	b sdram.Builder,
) (*timing.Engine, *sdram.Comp, *device.Comp, *tracing.CommandLog) {
	engine := timing.NewEngine()

	controller := b.
		WithEngine(engine).
		WithPowerOnRamp(40).
		Build("Ctrl")

	dev := device.MakeBuilder().
		WithEngine(engine).
		WithBus(controller.DataBus()).
		Build("Dev")

	log := &tracing.CommandLog{}
	controller.AcceptHook(log)

	return engine, controller, dev, log
}

var _ = Describe("Read and Write", func() {
	var (
		controller *sdram.Comp
		dev        *device.Comp
		log        *tracing.CommandLog
	)

	BeforeEach(func() {
		_, controller, dev, log = buildSystem(sdram.MakeBuilder())

		Expect(controller.Init()).To(Succeed())
	})

	It("should round-trip data through the device", func() {
		want := []byte{0xDE, 0xAD, 0xBE, 0xEF}

		Expect(controller.Write(1, 100, 8, want, nil)).To(Succeed())

		got, err := controller.Read(1, 100, 8, len(want))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(want))

		Expect(controller.Fault()).To(BeNil())
		Expect(dev.Violations()).To(BeEmpty())
	})

	It("should split long requests into one command per burst window", func() {
		data := make([]byte, 16)
		for i := range data {
			data[i] = byte(i)
		}

		Expect(controller.Write(0, 5, 16, data, nil)).To(Succeed())

		// 8 words at burst length 2 make 4 bursts.
		Expect(log.CountKind("WRITE")).To(Equal(4))

		got, err := controller.Read(0, 5, 16, 16)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(data))
	})

	It("should reuse an open row without a second ACTIVE", func() {
		Expect(controller.Write(2, 9, 0, []byte{1, 2}, nil)).To(Succeed())

		activates := log.CountKind("ACTIVE")

		_, err := controller.Read(2, 9, 0, 2)
		Expect(err).ToNot(HaveOccurred())

		Expect(log.CountKind("ACTIVE")).To(Equal(activates))
	})

	It("should precharge before switching rows in a bank", func() {
		Expect(controller.Write(2, 9, 0, []byte{1, 2}, nil)).To(Succeed())
		Expect(controller.Write(2, 10, 0, []byte{3, 4}, nil)).To(Succeed())

		Expect(log.CountKind("PRECHARGE")).To(Equal(1))
		Expect(log.CountKind("ACTIVE")).To(Equal(2))

		got, err := controller.Read(2, 9, 0, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte{1, 2}))
	})

	It("should leave masked byte lanes untouched", func() {
		Expect(controller.Write(0, 1, 0, []byte{0x11, 0x22}, nil)).To(Succeed())

		// DQM polarity: true suppresses the lane.
		err := controller.Write(0, 1, 0, []byte{0xAA, 0xBB},
			[]bool{true, false})
		Expect(err).ToNot(HaveOccurred())

		got, err := controller.Read(0, 1, 0, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte{0x11, 0xBB}))
	})

	It("should round-trip at CAS latency 3", func() {
		_, c3, dev3, _ := buildSystem(
			sdram.MakeBuilder().WithCASLatency(3))
		Expect(c3.Init()).To(Succeed())

		want := []byte{0x10, 0x20, 0x30, 0x40}
		Expect(c3.Write(1, 7, 4, want, nil)).To(Succeed())

		got, err := c3.Read(1, 7, 4, len(want))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(want))

		// Masked lanes stay untouched at the longer latency too.
		err = c3.Write(1, 7, 4, []byte{0xAA, 0xBB, 0xCC, 0xDD},
			[]bool{true, false, false, true})
		Expect(err).ToNot(HaveOccurred())

		got, err = c3.Read(1, 7, 4, len(want))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte{0x10, 0xBB, 0xCC, 0x40}))

		Expect(dev3.Violations()).To(BeEmpty())
	})

	It("should close the bank with auto-precharge and no PRECHARGE command", func() {
		t, err := controller.SubmitWrite(3, 42, 4, []byte{9, 8}, nil, true)
		Expect(err).ToNot(HaveOccurred())

		Expect(waitForCompletion(controller, t)).To(Succeed())

		_, open := dev.BankOpenRow(3)
		Expect(open).To(BeFalse())

		Expect(log.CountKind("PRECHARGE")).To(Equal(0))
		Expect(log.CountKind("WRITE_AP")).To(Equal(1))

		rt, err := controller.SubmitRead(3, 42, 4, 2, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(waitForCompletion(controller, rt)).To(Succeed())

		Expect(rt.Data).To(Equal([]byte{9, 8}))
		Expect(log.CountKind("PRECHARGE")).To(Equal(0))
	})
})

var _ = Describe("Schedule Verification", func() {
	It("should emit a command schedule free of spacing violations", func() {
		engine, controller, dev, _ := buildSystem(sdram.MakeBuilder())

		verifier := tracing.NewTimingVerifier(controller)
		controller.AcceptHook(verifier)

		Expect(controller.Init()).To(Succeed())

		// Mixed traffic: open-row reuse, row switches, cross-bank
		// activity, and auto-precharge, long enough to interleave with
		// several refreshes.
		for i := 0; i < 16; i++ {
			bank := i % 4
			row := (i * 3) % 8
			col := (i * 4) % 64

			want := []byte{byte(i), byte(i + 1), byte(i + 2), byte(i + 3)}
			Expect(controller.Write(bank, row, col, want, nil)).To(Succeed())

			got, err := controller.Read(bank, row, col, len(want))
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(want))
		}

		t, err := controller.SubmitWrite(0, 100, 0, []byte{9, 9}, nil, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(waitForCompletion(controller, t)).To(Succeed())

		engine.RunCycles(2000)

		Expect(verifier.Violations()).To(BeEmpty())
		Expect(dev.Violations()).To(BeEmpty())
		Expect(controller.Fault()).To(BeNil())
	})
})

func waitForCompletion(c *sdram.Comp, t *sdram.Transaction) error {
	return c.Engine().RunUntil(func() bool {
		return t.IsCompleted() || c.Fault() != nil
	}, 100_000)
}
