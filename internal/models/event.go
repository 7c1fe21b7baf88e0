package models

import (
	"time"

	"github.com/google/uuid"
)

type ResolutionEventType string

const (
	EventProfileMerged    ResolutionEventType = "profile_merged"
	EventPersonChecked    ResolutionEventType = "person_checked"
	EventPlatformAborted  ResolutionEventType = "platform_aborted"
	EventPersonRegistered ResolutionEventType = "person_registered"
)

// ResolutionEvent is emitted by the resolver as a campaign progresses and
// fanned out to WebSocket subscribers for live monitoring.
type ResolutionEvent struct {
	ID       uuid.UUID           `json:"id"`
	Type     ResolutionEventType `json:"type"`
	PersonID int64               `json:"person_id"`
	Platform Platform            `json:"platform,omitempty"`
	Username string              `json:"username,omitempty"`
	Score    int                 `json:"score,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	Time     time.Time           `json:"time"`
}
