package notify

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	UserID     *uuid.UUID     `json:"userId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

func NewEvent(typ string, userID uuid.UUID, data map[string]any) Event {
	ev := Event{Type: typ, OccurredAt: time.Now().UTC(), Data: data}
	if userID != uuid.Nil {
		ev.UserID = &userID
	}
	return ev
}
