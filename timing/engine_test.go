package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingTicker struct {
	name string
	log  *[]string
}

func (t *recordingTicker) Tick() bool {
	*t.log = append(*t.log, t.name)

	return true
}

var _ = Describe("Engine", func() {
	var (
		engine *Engine
		log    []string
	)

	BeforeEach(func() {
		engine = NewEngine()
		log = nil
	})

	It("should start at tick zero", func() {
		Expect(engine.Now()).To(Equal(Tick(0)))
	})

	It("should advance the tick counter", func() {
		engine.RunCycles(10)

		Expect(engine.Now()).To(Equal(Tick(10)))
	})

	It("should run primary tickers before secondary tickers", func() {
		engine.RegisterSecondaryTicker(&recordingTicker{name: "dev", log: &log})
		engine.RegisterTicker(&recordingTicker{name: "ctrl", log: &log})

		engine.RunCycles(2)

		Expect(log).To(Equal([]string{"ctrl", "dev", "ctrl", "dev"}))
	})

	It("should stop RunUntil when the condition holds", func() {
		err := engine.RunUntil(func() bool {
			return engine.Now() == 7
		}, 100)

		Expect(err).ToNot(HaveOccurred())
		Expect(engine.Now()).To(Equal(Tick(7)))
	})

	It("should give up RunUntil after the cycle budget", func() {
		err := engine.RunUntil(func() bool { return false }, 20)

		Expect(err).To(MatchError(ErrCycleLimitReached))
		Expect(engine.Now()).To(Equal(Tick(20)))
	})
})

var _ = Describe("Freq", func() {
	It("should convert durations to whole cycles", func() {
		f := 100 * MHz

		Expect(f.PeriodNS()).To(Equal(10.0))
		Expect(f.Cycles(100_000)).To(Equal(10000))
		Expect(f.Cycles(15)).To(Equal(2))
	})
})
