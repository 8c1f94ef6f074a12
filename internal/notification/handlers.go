package notification

import (
	"context"
	"fmt"

	"github.com/frahmantamala/approval-portal/internal/core/events"
)

// Subscriber is the part of the event bus the notifier registers with.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

var documentEventTypes = []string{
	events.EventTypeDocumentSubmitted,
	events.EventTypeStepActivated,
	events.EventTypeDocumentApproved,
	events.EventTypeDocumentRejected,
	events.EventTypeStepRejected,
	events.EventTypeDocumentCancelled,
	events.EventTypeDocumentRetrieved,
	events.EventTypeStepDelegated,
}

// Subscribe routes document and room events into the worker pool.
func (n *Notifier) Subscribe(bus Subscriber) {
	for _, t := range documentEventTypes {
		bus.Subscribe(t, n.HandleDocumentEvent)
	}
	bus.Subscribe(events.EventTypeRoomBooked, n.HandleRoomBooked)
}

func (n *Notifier) HandleDocumentEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.DocumentEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event, event.EventType())
	}
	if len(e.Recipients) == 0 {
		return nil
	}

	return n.Enqueue(Job{
		EventID:    e.EventID(),
		EventType:  e.EventType(),
		Text:       n.documentText(ctx, e),
		Link:       n.documentLink(e.DocumentID),
		Recipients: n.names(ctx, e.Recipients),
	})
}

func (n *Notifier) HandleRoomBooked(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RoomBookedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event, event.EventType())
	}
	text := fmt.Sprintf("%s booked %s on %s %s-%s: %s",
		n.name(ctx, e.BookedBy), e.RoomName, e.Date, e.Start, e.End, e.Title)
	return n.Enqueue(Job{
		EventID:   e.EventID(),
		EventType: e.EventType(),
		Text:      text,
	})
}

func (n *Notifier) documentText(ctx context.Context, e *events.DocumentEvent) string {
	subject := fmt.Sprintf("[%s] %q", e.DocType, e.Title)
	actor := n.name(ctx, e.ActorID)

	var text string
	switch e.EventType() {
	case events.EventTypeDocumentSubmitted:
		text = fmt.Sprintf("%s submitted by %s is waiting for your approval", subject, actor)
	case events.EventTypeStepActivated:
		text = fmt.Sprintf("%s from %s has reached your step", subject, n.name(ctx, e.OwnerID))
	case events.EventTypeDocumentApproved:
		text = fmt.Sprintf("%s was approved by %s", subject, actor)
	case events.EventTypeDocumentRejected:
		text = fmt.Sprintf("%s was rejected by %s", subject, actor)
	case events.EventTypeStepRejected:
		text = fmt.Sprintf("%s received an objection from reviewer %s", subject, actor)
	case events.EventTypeDocumentCancelled:
		text = fmt.Sprintf("%s was withdrawn by %s", subject, actor)
	case events.EventTypeDocumentRetrieved:
		text = fmt.Sprintf("%s was retrieved by %s after approval", subject, actor)
	case events.EventTypeStepDelegated:
		text = fmt.Sprintf("%s was delegated to you by %s", subject, actor)
	default:
		text = fmt.Sprintf("%s changed to %s", subject, e.Status)
	}
	if e.Comment != "" {
		text += ": " + e.Comment
	}
	return text
}

func (n *Notifier) names(ctx context.Context, ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, n.name(ctx, id))
	}
	return out
}

// name falls back to the numeric id when the directory cannot answer.
func (n *Notifier) name(ctx context.Context, id int64) string {
	if n.people != nil {
		if p, err := n.people.Profile(ctx, id); err == nil && p.Name != "" {
			return p.Name
		}
	}
	return fmt.Sprintf("employee #%d", id)
}
