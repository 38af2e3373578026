package org

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

func testTiming() Timing {
	same := MakeTimeTable()
	other := MakeTimeTable()

	same[signal.CmdKindActivate] = []TimeTableEntry{
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: 2},
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: 7},
	}
	other[signal.CmdKindActivate] = []TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: 2},
	}

	return Timing{SameBank: same, OtherBanks: other}
}

var _ = Describe("RankImpl", func() {
	var rank *RankImpl

	BeforeEach(func() {
		rank = &RankImpl{Timing: testTiming()}

		for i := 0; i < 4; i++ {
			bank := NewBankImpl(fmt.Sprintf("Rank0.Bank%d", i), i)
			bank.CmdCycles = testCmdCycles()
			rank.Banks = append(rank.Banks, bank)
		}
	})

	openRow := func(bankID, row int) {
		activate := signal.NewCommand(signal.CmdKindActivate)
		activate.Bank = bankID
		activate.Row = row

		rank.StartCommand(activate)
		rank.Tick()
		rank.Tick()
	}

	It("should report all banks closed initially", func() {
		Expect(rank.AllBanksClosed()).To(BeTrue())
	})

	It("should route column commands to their bank", func() {
		openRow(1, 5)

		cmd := readCmd(1, 5, 0)
		Expect(rank.GetReadyCommand(cmd)).To(BeIdenticalTo(cmd))

		otherBank := readCmd(2, 5, 0)
		ready := rank.GetReadyCommand(otherBank)
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
	})

	It("should let a refresh through when all banks are closed", func() {
		refresh := signal.NewCommand(signal.CmdKindRefresh)

		Expect(rank.GetReadyCommand(refresh)).To(BeIdenticalTo(refresh))
	})

	It("should demand a PRECHARGE ALL before a refresh with open rows", func() {
		openRow(1, 5)

		refresh := signal.NewCommand(signal.CmdKindRefresh)
		ready := rank.GetReadyCommand(refresh)

		Expect(ready).ToNot(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindPrechargeAll))
	})

	It("should apply same-bank and other-bank rules on update", func() {
		activate := signal.NewCommand(signal.CmdKindActivate)
		activate.Bank = 0

		rank.UpdateTiming(activate)

		bank0 := rank.Bank(0).(*BankImpl)
		bank1 := rank.Bank(1).(*BankImpl)

		Expect(bank0.CanActivate()).To(BeFalse())
		Expect(bank1.CanActivate()).To(BeFalse())

		rank.Tick()
		rank.Tick()

		// tRRD satisfied for the neighbor, tRC still pending locally.
		Expect(bank0.CanActivate()).To(BeFalse())
		Expect(bank1.CanActivate()).To(BeTrue())
	})

	It("should apply rank-wide command rules to every bank", func() {
		refresh := signal.NewCommand(signal.CmdKindRefresh)
		rank.StartCommand(refresh)

		for _, b := range rank.Banks {
			Expect(b.State()).To(Equal(BankStateRefreshing))
		}

		for i := 0; i < 8; i++ {
			rank.Tick()
		}

		Expect(rank.AllBanksClosed()).To(BeTrue())
	})
})
