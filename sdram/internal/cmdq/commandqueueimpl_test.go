package cmdq

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/Thewbi/ULX3S/sdram/internal/signal"
)

var _ = Describe("CommandQueueImpl", func() {
	var (
		mockCtrl *gomock.Controller
		rank     *MockRank
		q        *CommandQueueImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		rank = NewMockRank(mockCtrl)

		q = &CommandQueueImpl{
			Capacity: 2,
			Rank:     rank,
		}
	})

	It("should return nil when empty", func() {
		Expect(q.GetCommandToIssue()).To(BeNil())
	})

	It("should respect its capacity", func() {
		Expect(q.CanAccept()).To(BeTrue())

		q.Accept(signal.NewCommand(signal.CmdKindRead))
		q.Accept(signal.NewCommand(signal.CmdKindRead))

		Expect(q.CanAccept()).To(BeFalse())
		Expect(q.Size()).To(Equal(2))
	})

	It("should dequeue the head when the rank accepts it", func() {
		cmd := signal.NewCommand(signal.CmdKindRead)
		q.Accept(cmd)

		rank.EXPECT().GetReadyCommand(cmd).Return(cmd)

		Expect(q.GetCommandToIssue()).To(BeIdenticalTo(cmd))
		Expect(q.Size()).To(Equal(0))
	})

	It("should keep the head when the rank asks for a preparatory command", func() {
		cmd := signal.NewCommand(signal.CmdKindRead)
		q.Accept(cmd)

		activate := signal.NewCommand(signal.CmdKindActivate)
		rank.EXPECT().GetReadyCommand(cmd).Return(activate)

		Expect(q.GetCommandToIssue()).To(BeIdenticalTo(activate))
		Expect(q.Size()).To(Equal(1))
	})

	It("should return nil when the rank is not ready", func() {
		cmd := signal.NewCommand(signal.CmdKindRead)
		q.Accept(cmd)

		rank.EXPECT().GetReadyCommand(cmd).Return(nil)

		Expect(q.GetCommandToIssue()).To(BeNil())
		Expect(q.Size()).To(Equal(1))
	})

	It("should drop everything on clear", func() {
		q.Accept(signal.NewCommand(signal.CmdKindRead))
		q.Clear()

		Expect(q.Size()).To(Equal(0))
	})
})
