package dto

import (
	"time"

	"github.com/google/uuid"
)

// WSEvent is the wire shape of a resolution event pushed to WebSocket
// subscribers. It mirrors models.ResolutionEvent.
type WSEvent struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	PersonID int64     `json:"person_id"`
	Platform string    `json:"platform,omitempty"`
	Username string    `json:"username,omitempty"`
	Score    int       `json:"score,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}
