package model

import "time"

// VerseLike marks a verse as liked by a user. One row per (user, verse).
type VerseLike struct {
	ID        int64     // verse_likes.id
	UserID    int64     // verse_likes.user_id
	VerseID   int64     // verse_likes.verse_id
	CreatedAt time.Time // verse_likes.created_at
}

// VerseSave marks a verse as saved by a user. One row per (user, verse).
type VerseSave struct {
	ID        int64     // verse_saves.id
	UserID    int64     // verse_saves.user_id
	VerseID   int64     // verse_saves.verse_id
	CreatedAt time.Time // verse_saves.created_at
}

// Comment is a user comment on a verse. Admin deletion is a soft delete:
// the row keeps its id so replies and audit entries stay resolvable, but
// the body is no longer served.
type Comment struct {
	ID        int64      // comments.id
	UserID    int64      // comments.user_id
	VerseID   int64      // comments.verse_id
	Body      string     // comments.body
	CreatedAt time.Time  // comments.created_at
	DeletedAt *time.Time // comments.deleted_at (nullable)
	DeletedBy *int64     // comments.deleted_by (nullable)
}

// CommentReply is a threaded reply under a comment.
type CommentReply struct {
	ID        int64      // comment_replies.id
	CommentID int64      // comment_replies.comment_id
	UserID    int64      // comment_replies.user_id
	Body      string     // comment_replies.body
	CreatedAt time.Time  // comment_replies.created_at
	DeletedAt *time.Time // comment_replies.deleted_at (nullable)
}

// CommentReaction is an emoji reaction on a comment. One row per
// (comment, user, emoji).
type CommentReaction struct {
	ID        int64     // comment_reactions.id
	CommentID int64     // comment_reactions.comment_id
	UserID    int64     // comment_reactions.user_id
	Emoji     string    // comment_reactions.emoji
	CreatedAt time.Time // comment_reactions.created_at
}
