package leave_test

import (
	"context"

	"github.com/frahmantamala/approval-portal/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Ledger", func() {
	var (
		ctx      context.Context
		balances *memoryBalances
		ledger   *leave.Ledger
	)

	BeforeEach(func() {
		ctx = context.Background()
		balances = newMemoryBalances()
		ledger = leave.NewLedger(balances)
		Expect(balances.CreateBalance(ctx, leave.NewBalance(ownerID, 2025, decimal.NewFromInt(12)))).To(Succeed())
	})

	It("should restore the balance exactly after consume then refund", func() {
		p, err := plan("2025-03-03", "2025-03-04", leave.Selection{"2025-03-04": leave.MorningHalf}, false)
		Expect(err).NotTo(HaveOccurred())

		before, _ := balances.GetBalance(ctx, ownerID, 2025)

		after, err := ledger.Consume(ctx, ownerID, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.RemainingDays.Equal(before.RemainingDays.Sub(decimal.NewFromFloat(1.5)))).To(BeTrue())
		Expect(after.UsedDays.Equal(decimal.NewFromFloat(1.5))).To(BeTrue())

		restored, err := ledger.Refund(ctx, ownerID, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.RemainingDays.Equal(before.RemainingDays)).To(BeTrue())
		Expect(restored.UsedDays.IsZero()).To(BeTrue())
	})

	It("should refuse to drive the bank negative", func() {
		p, err := plan("2025-03-03", "2025-03-21", nil, false)
		Expect(err).NotTo(HaveOccurred())

		_, err = ledger.Consume(ctx, ownerID, p)
		Expect(err).To(MatchError(leave.ErrNegativeBalance))

		stored, _ := balances.GetBalance(ctx, ownerID, 2025)
		Expect(stored.RemainingDays.Equal(decimal.NewFromInt(12))).To(BeTrue())
	})

	It("should track reward leave apart from the bank", func() {
		p, err := plan("2025-03-03", "2025-03-03", nil, true)
		Expect(err).NotTo(HaveOccurred())

		b, err := ledger.Consume(ctx, ownerID, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.RemainingDays.Equal(decimal.NewFromInt(12))).To(BeTrue())
		Expect(b.RewardUsed.Equal(decimal.NewFromInt(1))).To(BeTrue())
	})

	It("should open an empty balance for reward leave in a new year", func() {
		p, err := plan("2026-03-02", "2026-03-02", nil, true)
		Expect(err).NotTo(HaveOccurred())

		b, err := ledger.Consume(ctx, ownerID, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Year).To(Equal(2026))
		Expect(b.TotalDays.IsZero()).To(BeTrue())
		Expect(b.RewardUsed.Equal(decimal.NewFromInt(1))).To(BeTrue())
	})
})
