package document_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/document"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Forms", func() {
	var (
		forms document.Forms
		ctx   context.Context
	)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		forms = document.DefaultForms(nil, nil, func() time.Time { return now })
	})

	submit := func(t doc.Type, raw string) (*doc.Form, error) {
		return forms.Validate(ctx, doc.FormInput{OwnerID: 1, Type: t, Raw: json.RawMessage(raw), Stage: doc.StageSubmission})
	}

	It("should refuse an unknown document type", func() {
		_, err := submit("petty_cash", `{}`)
		Expect(err).To(MatchError(document.ErrUnknownType))
	})

	Describe("expense", func() {
		It("should compute the total and default the currency", func() {
			form, err := submit(doc.TypeExpense, `{"items":[
				{"date":"2026-03-01","description":"taxi","category":"transport","amount":"125000"},
				{"date":"2026-03-03","description":"hotel","category":"lodging","amount":"850000.50"}]}`)
			Expect(err).NotTo(HaveOccurred())

			var stored document.ExpenseForm
			Expect(json.Unmarshal(form.Data, &stored)).To(Succeed())
			Expect(stored.Total.String()).To(Equal("975000.5"))
			Expect(stored.Currency).To(Equal("IDR"))
			Expect(form.PeriodStart.Format("2006-01-02")).To(Equal("2026-03-01"))
			Expect(form.PeriodEnd.Format("2006-01-02")).To(Equal("2026-03-03"))
			Expect(form.Summary).To(ContainSubstring("2 item(s)"))
		})

		It("should reject future expense dates", func() {
			_, err := submit(doc.TypeExpense, `{"items":[{"date":"2026-04-01","description":"x","category":"y","amount":"10"}]}`)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should reject non-positive amounts", func() {
			_, err := submit(doc.TypeExpense, `{"items":[{"date":"2026-03-01","description":"x","category":"y","amount":"0"}]}`)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
			Expect(appErr.FieldCode()).To(Equal(internal.ErrCodeInvalidAmount))
		})

		It("should require at least one item", func() {
			_, err := submit(doc.TypeExpense, `{"items":[]}`)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should reject unknown fields", func() {
			_, err := submit(doc.TypeExpense, `{"items":[],"bonus":true}`)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPayload))
		})
	})

	Describe("overtime", func() {
		It("should compute the minutes worked", func() {
			form, err := submit(doc.TypeOvertime, `{"date":"2026-03-09","start_time":"18:00","end_time":"20:30","reason":"release"}`)
			Expect(err).NotTo(HaveOccurred())

			var stored document.OvertimeForm
			Expect(json.Unmarshal(form.Data, &stored)).To(Succeed())
			Expect(stored.Minutes).To(Equal(150))
		})

		It("should reject a window that ends before it starts", func() {
			_, err := submit(doc.TypeOvertimeReport, `{"date":"2026-03-09","start_time":"20:00","end_time":"18:00","reason":"release"}`)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
			Expect(appErr.FieldCode()).To(Equal(internal.ErrCodeInvalidRange))
		})
	})

	Describe("resignation", func() {
		It("should reject a last working date in the past", func() {
			_, err := submit(doc.TypeResignation, `{"last_working_date":"2026-03-01","reason":"moving"}`)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("should accept a future date", func() {
			form, err := submit(doc.TypeResignation, `{"last_working_date":"2026-04-30","reason":"moving"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Summary).To(Equal("resignation effective 2026-04-30"))
		})
	})

	It("should keep incomplete drafts as typed", func() {
		form, err := forms.Validate(ctx, doc.FormInput{OwnerID: 1, Type: doc.TypeBudget, Raw: json.RawMessage(`{"fiscal_year":2026}`), Stage: doc.StageDraft})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(form.Data)).To(ContainSubstring(`"fiscal_year":2026`))
	})

	It("should treat an empty payload as an empty object", func() {
		_, err := submit(doc.TypeGeneral, ``)
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("should shorten long general bodies in the summary", func() {
		body := ""
		for i := 0; i < 20; i++ {
			body += "lorem ipsum "
		}
		form, err := submit(doc.TypeGeneral, `{"body":"`+body+`"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(form.Summary).To(HaveSuffix("..."))
		Expect([]rune(form.Summary)).To(HaveLen(83))
	})
})
