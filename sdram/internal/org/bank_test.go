package org

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

func testCmdCycles() map[signal.CommandKind]int {
	return map[signal.CommandKind]int{
		signal.CmdKindActivate:       2,
		signal.CmdKindRead:           4,
		signal.CmdKindReadPrecharge:  6,
		signal.CmdKindWrite:          2,
		signal.CmdKindWritePrecharge: 6,
		signal.CmdKindPrecharge:      2,
		signal.CmdKindPrechargeAll:   2,
		signal.CmdKindRefresh:        8,
	}
}

func readCmd(bank, row, col int) *signal.Command {
	cmd := signal.NewCommand(signal.CmdKindRead)
	cmd.Bank = bank
	cmd.Row = row
	cmd.Col = col

	return cmd
}

var _ = Describe("BankImpl", func() {
	var bank *BankImpl

	BeforeEach(func() {
		bank = NewBankImpl("Bank0", 0)
		bank.CmdCycles = testCmdCycles()
	})

	It("should start closed", func() {
		Expect(bank.State()).To(Equal(BankStateClosed))

		_, open := bank.OpenRow()
		Expect(open).To(BeFalse())
	})

	It("should answer a column command on a closed bank with ACTIVE", func() {
		ready := bank.GetReadyCommand(readCmd(0, 12, 3))

		Expect(ready).ToNot(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
		Expect(ready.Row).To(Equal(12))
	})

	It("should open the row after the activate completes", func() {
		activate := signal.NewCommand(signal.CmdKindActivate)
		activate.Row = 12

		bank.StartCommand(activate)
		Expect(bank.State()).To(Equal(BankStateActivating))

		bank.Tick()
		Expect(bank.State()).To(Equal(BankStateActivating))

		bank.Tick()
		Expect(bank.State()).To(Equal(BankStateOpen))

		row, open := bank.OpenRow()
		Expect(open).To(BeTrue())
		Expect(row).To(Equal(12))
	})

	Context("with row 12 open", func() {
		BeforeEach(func() {
			activate := signal.NewCommand(signal.CmdKindActivate)
			activate.Row = 12
			bank.StartCommand(activate)
			bank.Tick()
			bank.Tick()
		})

		It("should let a matching column command through", func() {
			cmd := readCmd(0, 12, 3)

			Expect(bank.GetReadyCommand(cmd)).To(BeIdenticalTo(cmd))
		})

		It("should answer a row miss with PRECHARGE", func() {
			ready := bank.GetReadyCommand(readCmd(0, 13, 3))

			Expect(ready).ToNot(BeNil())
			Expect(ready.Kind).To(Equal(signal.CmdKindPrecharge))
		})

		It("should hold a column command back until its countdown expires", func() {
			bank.UpdateTiming(signal.CmdKindRead, 2)

			cmd := readCmd(0, 12, 3)
			Expect(bank.GetReadyCommand(cmd)).To(BeNil())

			bank.Tick()
			Expect(bank.GetReadyCommand(cmd)).To(BeNil())

			bank.Tick()
			Expect(bank.GetReadyCommand(cmd)).To(BeIdenticalTo(cmd))
		})

		It("should close after an auto-precharge read completes", func() {
			cmd := signal.NewCommand(signal.CmdKindReadPrecharge)
			cmd.Row = 12

			bank.StartCommand(cmd)
			Expect(bank.State()).To(Equal(BankStateClosing))

			for i := 0; i < 6; i++ {
				bank.Tick()
			}

			Expect(bank.State()).To(Equal(BankStateClosed))
		})
	})

	It("should complete a sub-transaction when its command finishes", func() {
		trans := signal.NewTransaction(signal.TransactionTypeWrite)
		st := signal.NewSubTransaction(trans)
		trans.SubTransactions = append(trans.SubTransactions, st)

		cmd := signal.NewCommand(signal.CmdKindWrite)
		cmd.SubTrans = st

		bank.StartCommand(cmd)
		bank.Tick()
		Expect(st.Completed).To(BeFalse())

		bank.Tick()
		Expect(st.Completed).To(BeTrue())
		Expect(trans.IsCompleted()).To(BeTrue())
	})

	It("should keep the largest of overlapping timing requirements", func() {
		bank.UpdateTiming(signal.CmdKindActivate, 5)
		bank.UpdateTiming(signal.CmdKindActivate, 3)

		Expect(bank.CanActivate()).To(BeFalse())

		for i := 0; i < 4; i++ {
			bank.Tick()
		}
		Expect(bank.CanActivate()).To(BeFalse())

		bank.Tick()
		Expect(bank.CanActivate()).To(BeTrue())
	})

	It("should treat PRECHARGE ALL on a closed bank as a no-op", func() {
		cmd := signal.NewCommand(signal.CmdKindPrechargeAll)

		bank.StartCommand(cmd)

		Expect(bank.State()).To(Equal(BankStateClosed))
	})
})
