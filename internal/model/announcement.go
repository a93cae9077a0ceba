package model

import "time"

// Announcement lifecycle states. A draft becomes scheduled when given a
// scheduled_at, and the dispatcher marks it sent after publishing.
const (
	AnnouncementDraft     = "draft"
	AnnouncementScheduled = "scheduled"
	AnnouncementSent      = "sent"
)

// Announcement is an admin-authored broadcast message.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – headline shown to users.
//	Body        – message body.
//	Status      – draft, scheduled or sent.
//	ScheduledAt – when a scheduled announcement becomes due (nullable).
//	SentAt      – when the dispatcher published it (nullable).
//	CreatedBy   – admin who authored it.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Announcement struct {
	ID          int64      // announcements.id
	Title       string     // announcements.title
	Body        string     // announcements.body
	Status      string     // announcements.status
	ScheduledAt *time.Time // announcements.scheduled_at (nullable)
	SentAt      *time.Time // announcements.sent_at (nullable)
	CreatedBy   int64      // announcements.created_by
	CreatedAt   time.Time  // announcements.created_at
	UpdatedAt   time.Time  // announcements.updated_at
}
