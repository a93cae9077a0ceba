package model

import "time"

// User represents an application user record as stored in the `users`
// table. Accounts are created on the first successful OAuth callback and
// are never deleted; moderation state lives directly on the row so the ban
// gate can answer from a single lookup. The json tags are omitted here
// because these structs are used by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	ExternalID   – subject identifier issued by the OAuth provider.
//	Email        – email address reported by the provider.
//	Name         – display name reported by the provider.
//	Picture      – avatar URL reported by the provider.
//	Role         – role name (user, host, mod, co_owner, owner).
//	IsBanned     – whether an active ban is recorded on the account.
//	BanExpiresAt – when the ban lapses (nil for permanent).
//	BanReason    – human-readable reason recorded at ban time.
//	CreatedAt    – timestamp of first sign-in.
type User struct {
	ID           int64      // users.id
	ExternalID   string     // users.external_id
	Email        string     // users.email
	Name         string     // users.name
	Picture      string     // users.picture
	Role         string     // users.role
	IsBanned     bool       // users.is_banned
	BanExpiresAt *time.Time // users.ban_expires_at (nullable)
	BanReason    *string    // users.ban_reason (nullable)
	CreatedAt    time.Time  // users.created_at
}

// SignupLog records the IP address a brand-new account signed up from.
// The ban engine joins through this table to catch evasion via fresh
// accounts created from an already-banned address.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – account created in this signup.
//	IPAddress – remote address observed at signup.
//	CreatedAt – signup timestamp.
type SignupLog struct {
	ID        int64     // signup_logs.id
	UserID    int64     // signup_logs.user_id
	IPAddress string    // signup_logs.ip_address
	CreatedAt time.Time // signup_logs.created_at
}

// UserActivity is one recorded action (login, like, save, comment).
// Feeds the analytics aggregates and the user's own activity view.
type UserActivity struct {
	ID        int64     // user_activity.id
	UserID    int64     // user_activity.user_id
	Action    string    // user_activity.action
	CreatedAt time.Time // user_activity.created_at
}
