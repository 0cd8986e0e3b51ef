// Package sessionstore keeps each admin's conversation state between turns.
package sessionstore

import (
	"context"
	"time"

	"github.com/matheus3301/postbot/internal/post"
)

// Session is the per-user conversation record.
type Session struct {
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`
	State  string `json:"state"`

	Draft *post.Draft `json:"draft,omitempty"`

	// EditingFromSchedule routes the next "finish" in the media or button
	// editor back to the schedule decision menu. Cleared once consumed.
	EditingFromSchedule bool `json:"editing_from_schedule,omitempty"`
	// PendingDate is the calendar day picked while awaiting a time.
	PendingDate string `json:"pending_date,omitempty"`
	// EditingScheduledID is the scheduled post being edited, if any.
	EditingScheduledID int64 `json:"editing_scheduled_id,omitempty"`
	// EditingChannel and EditingMessageID identify a published post being
	// edited by channel key and message id.
	EditingChannel   string `json:"editing_channel,omitempty"`
	EditingMessageID string `json:"editing_message_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists sessions. Get returns nil, nil when there is none.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour
