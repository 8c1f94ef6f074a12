package postgres_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/common/period"
	"github.com/frahmantamala/approval-portal/internal/core/doc"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/frahmantamala/approval-portal/internal/document/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("DocumentRepository", func() {
	var (
		db   *gorm.DB
		repo *postgres.DocumentRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = openDB()
		repo = postgres.NewDocumentRepository(db)
	})

	pendingDoc := func() *document.Document {
		current := 1
		requested := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		return &document.Document{
			OwnerID:     1,
			Type:        doc.TypeGeneral,
			Title:       "Access request",
			Status:      doc.StatusPending,
			CurrentStep: &current,
			Visibility:  doc.VisibilityTeam,
			Payload:     json.RawMessage(`{"body":"vpn"}`),
			RequestedAt: &requested,
			Steps: []*approval.Step{
				{Order: 1, ApproverID: 2, Role: approval.RoleApprover, Status: approval.StepPending},
				{Order: 2, ApproverID: 3, Role: approval.RoleApprover, Status: approval.StepWaiting},
			},
			References: []*document.Reference{{EmployeeID: 5}},
		}
	}

	It("should create a document with its children and load it back", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())
		Expect(d.ID).NotTo(BeZero())
		Expect(d.Steps[0].ID).NotTo(BeZero())

		loaded, err := repo.GetByID(ctx, d.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Title).To(Equal("Access request"))
		Expect(loaded.Steps).To(HaveLen(2))
		Expect(loaded.Steps[0].Order).To(Equal(1))
		Expect(loaded.References).To(HaveLen(1))
		Expect(string(loaded.Payload)).To(MatchJSON(`{"body":"vpn"}`))
	})

	It("should report a missing document", func() {
		_, err := repo.GetByID(ctx, 404)
		Expect(err).To(MatchError(document.ErrDocumentNotFound))
	})

	It("should refuse a state change based on a stale read", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())

		next := 2
		d.CurrentStep = &next
		Expect(repo.UpdateState(ctx, d, doc.StatusPending, intPtr(1))).To(Succeed())

		d.Status = doc.StatusApproved
		d.CurrentStep = nil
		err := repo.UpdateState(ctx, d, doc.StatusPending, intPtr(1))
		Expect(err).To(MatchError(document.ErrAlreadyProcessed))
	})

	It("should decide a step only while it is pending", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())

		now := time.Now().UTC()
		step := d.Steps[0]
		step.Status = approval.StepApproved
		step.ApprovedAt = &now
		Expect(repo.DecideStep(ctx, step)).To(Succeed())
		Expect(repo.DecideStep(ctx, step)).To(MatchError(document.ErrAlreadyProcessed))
	})

	It("should stamp a reference once", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())

		changed, err := repo.MarkReferenceRead(ctx, d.ID, 5, time.Now().UTC())
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())

		changed, err = repo.MarkReferenceRead(ctx, d.ID, 5, time.Now().UTC())
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
	})

	It("should list referenced documents without drafts", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())
		draft := pendingDoc()
		draft.Status = doc.StatusDraft
		Expect(repo.Create(ctx, draft)).To(Succeed())

		docs, err := repo.ListReferenced(ctx, 5, document.ListFilter{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].ID).To(Equal(d.ID))
	})

	It("should replace a draft's children", func() {
		draft := pendingDoc()
		draft.Status = doc.StatusDraft
		draft.CurrentStep = nil
		Expect(repo.Create(ctx, draft)).To(Succeed())

		draft.Title = "Access request v2"
		draft.Steps = []*approval.Step{{Order: 1, ApproverID: 4, Role: approval.RoleApprover, Status: approval.StepWaiting}}
		draft.References = nil
		Expect(repo.ReplaceDraft(ctx, draft)).To(Succeed())

		loaded, err := repo.GetByID(ctx, draft.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Title).To(Equal("Access request v2"))
		Expect(loaded.Steps).To(HaveLen(1))
		Expect(loaded.Steps[0].ApproverID).To(Equal(int64(4)))
		Expect(loaded.References).To(BeEmpty())
	})

	It("should append and read the history in order", func() {
		d := pendingDoc()
		Expect(repo.Create(ctx, d)).To(Succeed())
		base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		Expect(repo.AppendHistory(ctx, &document.HistoryEntry{DocumentID: d.ID, ActorID: 1, Action: document.ActionSubmitted, CreatedAt: base})).To(Succeed())
		Expect(repo.AppendHistory(ctx, &document.HistoryEntry{DocumentID: d.ID, ActorID: 2, Action: document.ActionApproved, CreatedAt: base.Add(time.Hour)})).To(Succeed())

		history, err := repo.History(ctx, d.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[1].Action).To(Equal(document.ActionApproved))
	})
})

var _ = Describe("LeaveCalendar", func() {
	It("should return pending and approved leave overlapping the range", func() {
		ctx := context.Background()
		db := openDB()
		repo := postgres.NewDocumentRepository(db)
		calendar := postgres.NewLeaveCalendar(db)

		add := func(status doc.Status, from, to string) {
			start, _ := period.ParseDate(from)
			end, _ := period.ParseDate(to)
			Expect(repo.Create(ctx, &document.Document{
				OwnerID: 1, Type: doc.TypeLeave, Title: "leave", Status: status,
				Visibility: doc.VisibilityPrivate, PeriodStart: &start, PeriodEnd: &end,
			})).To(Succeed())
		}
		add(doc.StatusApproved, "2026-03-02", "2026-03-03")
		add(doc.StatusCancelled, "2026-03-04", "2026-03-04")
		add(doc.StatusPending, "2026-03-20", "2026-03-20")

		from, _ := period.ParseDate("2026-03-03")
		to, _ := period.ParseDate("2026-03-06")
		spans, err := calendar.ActiveLeave(ctx, 1, period.DateSpan(from, to))
		Expect(err).NotTo(HaveOccurred())
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Start.Format(period.DateLayout)).To(Equal("2026-03-02"))
	})
})

func intPtr(v int) *int {
	return &v
}
