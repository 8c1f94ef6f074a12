package leave_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/frahmantamala/approval-portal/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type staticEmployees []int64

func (s staticEmployees) ActiveEmployeeIDs(ctx context.Context) ([]int64, error) {
	return s, nil
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		balances *memoryBalances
		calendar *fixedCalendar
		service  *leave.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		balances = newMemoryBalances()
		calendar = &fixedCalendar{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = leave.NewService(balances, staticEmployees{1, 2, 3}, calendar, logger)
	})

	Describe("GrantYear", func() {
		It("should only create missing balances", func() {
			Expect(balances.CreateBalance(ctx, leave.NewBalance(2, 2025, decimal.NewFromInt(20)))).To(Succeed())

			created, err := service.GrantYear(ctx, 2025, decimal.NewFromInt(12))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(Equal(2))

			kept, err := service.GetBalance(ctx, 2, 2025)
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.TotalDays.Equal(decimal.NewFromInt(20))).To(BeTrue())

			again, err := service.GrantYear(ctx, 2025, decimal.NewFromInt(12))
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeZero())
		})

		It("should reject a non-positive grant", func() {
			_, err := service.GrantYear(ctx, 2025, decimal.Zero)
			Expect(err).To(MatchError(leave.ErrInvalidGrantAmount))
		})
	})

	Describe("Quote", func() {
		It("should report the computed days against the balance", func() {
			Expect(balances.CreateBalance(ctx, leave.NewBalance(1, 2025, decimal.NewFromInt(1)))).To(Succeed())
			calendar.spans = append(calendar.spans, span("2025-03-04", "2025-03-04"))

			quote, err := service.Quote(ctx, 1, leave.QuoteDTO{
				StartDate: "2025-03-03",
				EndDate:   "2025-03-04",
				Days:      leave.Selection{"2025-03-04": leave.MorningHalf},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(quote.TotalDays.Equal(decimal.NewFromFloat(1.5))).To(BeTrue())
			Expect(*quote.Covered).To(BeFalse())
			Expect(quote.Overlaps).To(BeTrue())
		})
	})
})
