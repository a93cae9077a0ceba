package model

import "time"

// Ban records an active ban. At most one ban exists per user (unique
// user_id with upsert semantics: a new ban replaces the old one). A ban
// whose ExpiresAt has passed is treated as inactive and is cleared lazily
// on the next status check rather than by a background sweep.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – banned account (unique).
//	Reason    – human-readable reason.
//	BannedBy  – admin who issued the ban.
//	BannedAt  – when the ban was issued.
//	ExpiresAt – lapse time (nil for permanent).
//	IPAddress – address associated with the ban, when known.
type Ban struct {
	ID        int64      // bans.id
	UserID    int64      // bans.user_id
	Reason    string     // bans.reason
	BannedBy  int64      // bans.banned_by
	BannedAt  time.Time  // bans.banned_at
	ExpiresAt *time.Time // bans.expires_at (nullable)
	IPAddress string     // bans.ip_address
}

// CommentRestriction has the same shape and lifecycle as Ban but only
// blocks commenting. Expiry is evaluated by timestamp comparison at read
// time; there is no background sweep.
type CommentRestriction struct {
	ID           int64      // comment_restrictions.id
	UserID       int64      // comment_restrictions.user_id
	Reason       string     // comment_restrictions.reason
	RestrictedBy int64      // comment_restrictions.restricted_by
	RestrictedAt time.Time  // comment_restrictions.restricted_at
	ExpiresAt    *time.Time // comment_restrictions.expires_at (nullable)
	IPAddress    string     // comment_restrictions.ip_address
}
