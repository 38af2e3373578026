package sdram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/timing"
)

var _ = Describe("Builder", func() {
	It("should reject an interleaved full-page burst configuration", func() {
		Expect(func() {
			sdram.MakeBuilder().
				WithEngine(timing.NewEngine()).
				WithBurst(sdram.FullPageBurst, sdram.BurstInterleaved).
				Build("Ctrl")
		}).To(Panic())
	})

	It("should require an engine", func() {
		Expect(func() {
			sdram.MakeBuilder().Build("Ctrl")
		}).To(Panic())
	})
})
