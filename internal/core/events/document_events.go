package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDocumentSubmitted = "document.submitted"
	EventTypeStepActivated     = "document.step_activated"
	EventTypeDocumentApproved  = "document.approved"
	EventTypeDocumentRejected  = "document.rejected"
	EventTypeStepRejected      = "document.step_rejected"
	EventTypeDocumentCancelled = "document.cancelled"
	EventTypeDocumentRetrieved = "document.retrieved"
	EventTypeStepDelegated     = "document.step_delegated"
	EventTypeRoomBooked        = "meeting_room.booked"
)

// DocumentEvent reports a document transition. Recipients are the employees
// who should hear about it: newly activated approvers, the owner, delegates.
type DocumentEvent struct {
	BaseEvent
	DocumentID int64   `json:"document_id"`
	DocType    string  `json:"doc_type"`
	Title      string  `json:"title"`
	OwnerID    int64   `json:"owner_id"`
	ActorID    int64   `json:"actor_id"`
	Status     string  `json:"status"`
	Recipients []int64 `json:"recipients,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

func NewDocumentEvent(eventType string, documentID int64, docType, title string, ownerID, actorID int64, status string, recipients []int64, comment string) *DocumentEvent {
	return &DocumentEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
		},
		DocumentID: documentID,
		DocType:    docType,
		Title:      title,
		OwnerID:    ownerID,
		ActorID:    actorID,
		Status:     status,
		Recipients: recipients,
		Comment:    comment,
	}
}

type RoomBookedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	RoomID    int64  `json:"room_id"`
	RoomName  string `json:"room_name"`
	BookedBy  int64  `json:"booked_by"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Title     string `json:"title"`
}

func NewRoomBookedEvent(bookingID, roomID int64, roomName string, bookedBy int64, date, start, end, title string) *RoomBookedEvent {
	return &RoomBookedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRoomBooked,
			Timestamp: time.Now(),
		},
		BookingID: bookingID,
		RoomID:    roomID,
		RoomName:  roomName,
		BookedBy:  bookedBy,
		Date:      date,
		Start:     start,
		End:       end,
		Title:     title,
	}
}
