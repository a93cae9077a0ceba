// Package queue defines message payloads exchanged over the message broker.
package queue

// AnnouncementSentEvent is published when a scheduled announcement is
// dispatched. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type AnnouncementSentEvent struct {
	AnnouncementID int64  `json:"announcement_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	CreatedBy      int64  `json:"created_by"`
	SentAt         string `json:"sent_at"`
}

// ModerationActionEvent is published after a successful moderation action
// (ban, unban, restrict, unrestrict, comment removal) so that external
// tooling can mirror the audit trail.
type ModerationActionEvent struct {
	Action       string `json:"action"`
	ActorID      int64  `json:"actor_id"`
	TargetUserID int64  `json:"target_user_id"`
	Reason       string `json:"reason,omitempty"`
	Duration     string `json:"duration,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
