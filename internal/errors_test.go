package internal_test

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/approval-portal/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	amount := internal.NewValidationFieldError("amount", "amount must be greater than 0", internal.ErrCodeInvalidAmount)
	dateRange := internal.NewValidationFieldError("end_date", "end date must not be before start date", internal.ErrCodeInvalidRange)
	notFound := internal.NewNotFoundError("document not found", internal.ErrCodeDocumentNotFound)

	It("should keep field errors apart even though they share a top-level code", func() {
		Expect(amount.Code).To(Equal(dateRange.Code))
		Expect(errors.Is(amount, dateRange)).To(BeFalse())
		Expect(errors.Is(dateRange, amount)).To(BeFalse())
	})

	It("should match a field error through copies and wrapping", func() {
		wrapped := fmt.Errorf("saving form: %w", amount.WithCause(errors.New("boom")))
		Expect(errors.Is(wrapped, amount)).To(BeTrue())
		Expect(wrapped).To(MatchError(amount))
	})

	It("should match plain sentinels on type and code", func() {
		Expect(errors.Is(notFound.WithMessage("gone"), notFound)).To(BeTrue())
		Expect(errors.Is(notFound, amount)).To(BeFalse())
	})

	It("should expose the field code and fall back to the top-level code", func() {
		Expect(amount.FieldCode()).To(Equal(internal.ErrCodeInvalidAmount))
		Expect(notFound.FieldCode()).To(Equal(internal.ErrCodeDocumentNotFound))
	})
})
