package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/frahmantamala/approval-portal/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	submitted := func() events.Event {
		return events.NewDocumentEvent(events.EventTypeDocumentSubmitted, 7, "leave", "Annual leave", 1, 1, "pending", []int64{2}, "")
	}

	It("should deliver published events to every subscriber of the type", func() {
		var calls atomic.Int32
		var got atomic.Value
		handler := func(_ context.Context, e events.Event) error {
			calls.Add(1)
			got.Store(e)
			return nil
		}
		bus.Subscribe(events.EventTypeDocumentSubmitted, handler)
		bus.Subscribe(events.EventTypeDocumentSubmitted, handler)
		var approved atomic.Int32
		bus.Subscribe(events.EventTypeDocumentApproved, func(context.Context, events.Event) error {
			approved.Add(1)
			return nil
		})

		Expect(bus.Publish(ctx, submitted())).To(Succeed())
		bus.Wait()

		Expect(calls.Load()).To(Equal(int32(2)))
		Expect(approved.Load()).To(BeZero())
		e, ok := got.Load().(*events.DocumentEvent)
		Expect(ok).To(BeTrue())
		Expect(e.DocumentID).To(Equal(int64(7)))
		Expect(e.Recipients).To(ConsistOf(int64(2)))
	})

	It("should keep async handlers running after the publishing context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		release := make(chan struct{})
		var ctxErr atomic.Value
		bus.Subscribe(events.EventTypeDocumentSubmitted, func(hctx context.Context, _ events.Event) error {
			<-release
			if err := hctx.Err(); err != nil {
				ctxErr.Store(err)
			}
			return nil
		})

		Expect(bus.Publish(cctx, submitted())).To(Succeed())
		cancel()
		close(release)
		bus.Wait()

		Expect(ctxErr.Load()).To(BeNil())
	})

	It("should stop synchronous delivery at the first failing handler", func() {
		var second atomic.Bool
		bus.Subscribe(events.EventTypeDocumentSubmitted, func(context.Context, events.Event) error {
			return errors.New("webhook down")
		})
		bus.Subscribe(events.EventTypeDocumentSubmitted, func(context.Context, events.Event) error {
			second.Store(true)
			return nil
		})

		err := bus.PublishSync(ctx, submitted())
		Expect(err).To(MatchError(ContainSubstring("webhook down")))
		Expect(second.Load()).To(BeFalse())
	})

	It("should turn a handler panic into an error", func() {
		bus.Subscribe(events.EventTypeRoomBooked, func(context.Context, events.Event) error {
			panic("nil room")
		})

		e := events.NewRoomBookedEvent(1, 2, "Orchid", 3, "2026-03-02", "10:00", "11:00", "Standup")
		err := bus.PublishSync(ctx, e)
		Expect(err).To(MatchError(ContainSubstring("panicked")))

		Expect(bus.Publish(ctx, e)).To(Succeed())
		bus.Wait()
	})

	It("should refuse events once closed", func() {
		bus.Subscribe(events.EventTypeDocumentSubmitted, func(context.Context, events.Event) error { return nil })
		bus.Close()

		Expect(bus.Publish(ctx, submitted())).To(MatchError(events.ErrBusClosed))
		Expect(bus.PublishSync(ctx, submitted())).To(MatchError(events.ErrBusClosed))
	})

	It("should be a no-op for event types nobody listens to", func() {
		Expect(bus.Publish(ctx, submitted())).To(Succeed())
		Expect(bus.PublishSync(ctx, submitted())).To(Succeed())
	})
})
