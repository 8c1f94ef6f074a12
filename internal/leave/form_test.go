package leave_test

import (
	"context"
	"encoding/json"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

const ownerID int64 = 7

func leaveForm(t doc.Type, stage doc.Stage, req leave.Request) doc.FormInput {
	raw, err := json.Marshal(req)
	Expect(err).NotTo(HaveOccurred())
	return doc.FormInput{OwnerID: ownerID, Type: t, Raw: raw, Stage: stage}
}

var _ = Describe("FormValidator", func() {
	var (
		ctx      context.Context
		balances *memoryBalances
		calendar *fixedCalendar
		// Mon 3rd to Wed 5th with a morning half on the 5th: 2.5 days
		request leave.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		balances = newMemoryBalances()
		calendar = &fixedCalendar{}
		Expect(balances.CreateBalance(ctx, leave.NewBalance(ownerID, 2025, decimal.NewFromInt(2)))).To(Succeed())
		request = leave.Request{
			StartDate: "2025-03-03",
			EndDate:   "2025-03-05",
			Days:      leave.Selection{"2025-03-05": leave.MorningHalf},
			Reason:    "family trip",
		}
	})

	Context("balance gate", func() {
		It("should reject annual leave exceeding the remaining days", func() {
			v := leave.NewFormValidator(balances, calendar, false)
			_, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageSubmission, request))
			Expect(err).To(MatchError(leave.ErrInsufficientDays))
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should accept the same request as reward leave when made of full days", func() {
			request.Days = nil
			v := leave.NewFormValidator(balances, calendar, true)
			form, err := v.Validate(ctx, leaveForm(doc.TypeRewardLeave, doc.StageSubmission, request))
			Expect(err).NotTo(HaveOccurred())

			var payload leave.Payload
			Expect(json.Unmarshal(form.Data, &payload)).To(Succeed())
			Expect(payload.LeaveType).To(Equal(leave.KindAward))
			Expect(payload.TotalDays.Equal(decimal.NewFromInt(3))).To(BeTrue())
		})

		It("should skip the balance gate for drafts", func() {
			v := leave.NewFormValidator(balances, calendar, false)
			form, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageDraft, request))
			Expect(err).NotTo(HaveOccurred())
			Expect(form.PeriodStart).NotTo(BeNil())
		})

		It("should reject annual leave when no balance exists for the year", func() {
			request = leave.Request{StartDate: "2026-03-02", EndDate: "2026-03-02", Reason: "x"}
			v := leave.NewFormValidator(balances, calendar, false)
			_, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageSubmission, request))
			Expect(err).To(MatchError(leave.ErrInsufficientDays))
		})
	})

	It("should normalize the payload and describe the period", func() {
		request.EndDate = "2025-03-04"
		request.Days = leave.Selection{"2025-03-03": leave.AfternoonHalf, "2025-03-04": leave.MorningHalf}
		v := leave.NewFormValidator(balances, calendar, false)

		form, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageSubmission, request))
		Expect(err).NotTo(HaveOccurred())

		var payload leave.Payload
		Expect(json.Unmarshal(form.Data, &payload)).To(Succeed())
		Expect(payload.Days).To(Equal(leave.Selection{"2025-03-03": leave.Full, "2025-03-04": leave.Full}))
		Expect(payload.TotalDays.Equal(decimal.NewFromInt(2))).To(BeTrue())
		Expect(form.PeriodStart.Format("2006-01-02")).To(Equal("2025-03-03"))
		Expect(form.PeriodEnd.Format("2006-01-02")).To(Equal("2025-03-04"))

		plan, err := leave.PlanFromPayload(form.Data, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.TotalDays.Equal(payload.TotalDays)).To(BeTrue())
	})

	It("should reject a request overlapping existing leave", func() {
		calendar.spans = append(calendar.spans, span("2025-03-04", "2025-03-04"))
		request.EndDate = "2025-03-04"
		request.Days = nil
		v := leave.NewFormValidator(balances, calendar, false)

		_, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageSubmission, request))
		Expect(err).To(MatchError(leave.ErrLeaveOverlap))
	})

	It("should require a reason on submission", func() {
		request.Reason = ""
		request.EndDate = "2025-03-03"
		request.Days = nil
		v := leave.NewFormValidator(balances, calendar, false)

		_, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageSubmission, request))
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("should keep an undated draft as entered", func() {
		v := leave.NewFormValidator(balances, calendar, false)
		form, err := v.Validate(ctx, leaveForm(doc.TypeLeave, doc.StageDraft, leave.Request{Reason: "tbd"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(form.PeriodStart).To(BeNil())
	})
})
