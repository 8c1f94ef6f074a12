package leave_test

import (
	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func plan(start, end string, sel leave.Selection, reward bool) (*leave.Plan, error) {
	s, err := period.ParseDate(start)
	Expect(err).NotTo(HaveOccurred())
	e, err := period.ParseDate(end)
	Expect(err).NotTo(HaveOccurred())
	return leave.NewPlan(s, e, sel, reward)
}

func days(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var _ = Describe("NewPlan", func() {
	// 2025-03-03 is a Monday
	Context("day count", func() {
		It("should count a full day and a trailing morning half as 1.5", func() {
			p, err := plan("2025-03-03", "2025-03-04", leave.Selection{
				"2025-03-03": leave.Full,
				"2025-03-04": leave.MorningHalf,
			}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TotalDays.Equal(days(1.5))).To(BeTrue())
			Expect(p.Kind).To(Equal(leave.KindAnnual))
			Expect(p.Slot).To(BeNil())
		})

		It("should classify a single morning half as a half day in the am slot", func() {
			p, err := plan("2025-03-04", "2025-03-04", leave.Selection{
				"2025-03-04": leave.MorningHalf,
			}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TotalDays.Equal(days(0.5))).To(BeTrue())
			Expect(p.Kind).To(Equal(leave.KindHalfDay))
			Expect(*p.Slot).To(Equal(leave.SlotAM))
		})

		It("should classify a single afternoon half as pm", func() {
			p, err := plan("2025-03-04", "2025-03-04", leave.Selection{
				"2025-03-04": leave.AfternoonHalf,
			}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(*p.Slot).To(Equal(leave.SlotPM))
		})

		It("should skip weekends and default unselected weekdays to full", func() {
			p, err := plan("2025-03-06", "2025-03-11", nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Days).To(HaveLen(4))
			Expect(p.TotalDays.Equal(days(4))).To(BeTrue())
			Expect(p.Dates()).To(Equal([]string{"2025-03-06", "2025-03-07", "2025-03-10", "2025-03-11"}))
		})

		It("should charge the year of the first day", func() {
			p, err := plan("2025-12-31", "2026-01-02", nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Year()).To(Equal(2025))
		})
	})

	Context("positional rules", func() {
		It("should normalize a two-day afternoon/morning split to two full days", func() {
			p, err := plan("2025-03-03", "2025-03-04", leave.Selection{
				"2025-03-03": leave.AfternoonHalf,
				"2025-03-04": leave.MorningHalf,
			}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Days).To(Equal(leave.Selection{
				"2025-03-03": leave.Full,
				"2025-03-04": leave.Full,
			}))
			Expect(p.TotalDays.Equal(days(2))).To(BeTrue())
		})

		It("should accept an afternoon start and morning end around full days", func() {
			p, err := plan("2025-03-03", "2025-03-05", leave.Selection{
				"2025-03-03": leave.AfternoonHalf,
				"2025-03-05": leave.MorningHalf,
			}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.TotalDays.Equal(days(2))).To(BeTrue())
		})

		DescribeTable("should reject misplaced halves",
			func(sel leave.Selection) {
				_, err := plan("2025-03-03", "2025-03-05", sel, false)
				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
				Expect(appErr.FieldCode()).To(Equal(internal.ErrCodeInvalidGranularity))
			},
			Entry("morning half first", leave.Selection{"2025-03-03": leave.MorningHalf}),
			Entry("afternoon half last", leave.Selection{"2025-03-05": leave.AfternoonHalf}),
			Entry("half in the middle", leave.Selection{"2025-03-04": leave.MorningHalf}),
		)

		It("should reject weekend dates in the selection", func() {
			_, err := plan("2025-03-07", "2025-03-10", leave.Selection{"2025-03-08": leave.Full}, false)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should reject dates outside the range", func() {
			_, err := plan("2025-03-03", "2025-03-04", leave.Selection{"2025-03-05": leave.Full}, false)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should reject a range with only weekend days", func() {
			_, err := plan("2025-03-08", "2025-03-09", nil, false)
			Expect(err).To(MatchError(leave.ErrNoWorkingDays))
		})

		It("should reject an inverted range", func() {
			_, err := plan("2025-03-05", "2025-03-03", nil, false)
			Expect(err).To(MatchError(leave.ErrInvalidRange))
		})
	})

	Context("reward leave", func() {
		It("should classify as award", func() {
			p, err := plan("2025-03-03", "2025-03-04", nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Kind).To(Equal(leave.KindAward))
			Expect(p.Slot).To(BeNil())
		})

		It("should refuse half days", func() {
			_, err := plan("2025-03-04", "2025-03-04", leave.Selection{"2025-03-04": leave.AfternoonHalf}, true)
			Expect(err).To(MatchError(leave.ErrRewardHalfDay))
		})
	})
})
