package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestUpsertFromOAuth(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(newTestDB(t))

	u, created, err := users.UpsertFromOAuth(ctx, "ext-1", "Alice@Example.com", "Alice", "pic1")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "user", u.Role)

	// Second sign-in: same row, refreshed profile, created=false.
	u2, created, err := users.UpsertFromOAuth(ctx, "ext-1", "alice@example.com", "Alice B", "pic2")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u.ID, u2.ID)
	require.Equal(t, "Alice B", u2.Name)
	require.Equal(t, "pic2", u2.Picture)
}

func TestVerseInsertIgnoreDeduplicates(t *testing.T) {
	ctx := context.Background()
	verses := NewVerseRepo(newTestDB(t))

	v := model.Verse{Reference: "John 3:16", Text: "For God so loved the world", Translation: "WEB", Source: "test"}
	id1, err := verses.InsertIgnore(ctx, v)
	require.NoError(t, err)
	id2, err := verses.InsertIgnore(ctx, v)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	// Same reference with different text is a distinct verse.
	v.Text = "For God so loved the world (other translation)"
	id3, err := verses.InsertIgnore(ctx, v)
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestBanUpsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	bans := NewBanRepo(newTestDB(t))

	now := time.Now().UTC()
	require.NoError(t, bans.UpsertBan(ctx, model.Ban{UserID: 7, Reason: "spam", BannedBy: 1, BannedAt: now}))
	require.NoError(t, bans.UpsertBan(ctx, model.Ban{UserID: 7, Reason: "abuse", BannedBy: 2, BannedAt: now}))

	b, err := bans.GetBan(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "abuse", b.Reason)
	require.EqualValues(t, 2, b.BannedBy)

	require.NoError(t, bans.DeleteBan(ctx, 7))
	require.NoError(t, bans.DeleteBan(ctx, 7)) // idempotent
	_, err = bans.GetBan(ctx, 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestActiveBanBySignupIP(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	bans := NewBanRepo(db)
	users := NewUserRepo(db)

	u, _, err := users.UpsertFromOAuth(ctx, "ext-banned", "b@example.com", "B", "")
	require.NoError(t, err)
	require.NoError(t, users.RecordSignup(ctx, u.ID, "203.0.113.9"))
	require.NoError(t, bans.UpsertBan(ctx, model.Ban{UserID: u.ID, Reason: "spam", BannedBy: 1, BannedAt: time.Now().UTC()}))

	// The ban row carries no IP; only the signup-log join finds it.
	now := time.Now().UTC()
	_, err = bans.ActiveBanByIP(ctx, "203.0.113.9", now)
	require.ErrorIs(t, err, ErrNotFound)

	b, err := bans.ActiveBanBySignupIP(ctx, "203.0.113.9", now)
	require.NoError(t, err)
	require.Equal(t, u.ID, b.UserID)

	// An expired ban is invisible to both probes.
	past := now.Add(-time.Hour)
	require.NoError(t, bans.UpsertBan(ctx, model.Ban{UserID: u.ID, Reason: "spam", BannedBy: 1, BannedAt: past, ExpiresAt: &past}))
	_, err = bans.ActiveBanBySignupIP(ctx, "203.0.113.9", now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsDefaultsOverlay(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingRepo(newTestDB(t))

	// Migrations seed the defaults; an unknown key reads as "".
	v, err := settings.Get(ctx, "safety_mode")
	require.NoError(t, err)
	require.Equal(t, "balanced", v)

	v, err = settings.Get(ctx, "nonexistent")
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, settings.Set(ctx, "safety_mode", "strict"))
	v, err = settings.Get(ctx, "safety_mode")
	require.NoError(t, err)
	require.Equal(t, "strict", v)

	all, err := settings.All(ctx)
	require.NoError(t, err)
	require.Equal(t, "strict", all["safety_mode"])
	require.Equal(t, "90", all["audit_retention_days"])

	n, err := settings.GetInt(ctx, "verse_interval", 30)
	require.NoError(t, err)
	require.Equal(t, 60, n)
}

func TestAuditListPaginationAndFilter(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepo(newTestDB(t))

	for i := 0; i < 5; i++ {
		action := "ban_user"
		if i%2 == 1 {
			action = "unban_user"
		}
		require.NoError(t, audit.Append(ctx, model.AuditLogEntry{AdminID: 1, Action: action, Details: "{}"}))
	}

	entries, total, err := audit.List(ctx, "", 1, 2)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, entries, 2)
	// Newest first.
	require.Greater(t, entries[0].ID, entries[1].ID)

	entries, total, err = audit.List(ctx, "ban_user", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, entries, 3)

	// Out-of-range values are clamped at this layer.
	entries, _, err = audit.List(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
}

func TestAuditPruneOlderThan(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepo(newTestDB(t))

	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	require.NoError(t, audit.Append(ctx, model.AuditLogEntry{AdminID: 1, Action: "ban_user", Details: "{}", Timestamp: old}))
	require.NoError(t, audit.Append(ctx, model.AuditLogEntry{AdminID: 1, Action: "ban_user", Details: "{}"}))

	n, err := audit.PruneOlderThan(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, total, err := audit.List(ctx, "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestAnnouncementLifecycle(t *testing.T) {
	ctx := context.Background()
	ann := NewAnnouncementRepo(newTestDB(t))

	a, err := ann.Create(ctx, "Welcome", "Hello everyone", 1)
	require.NoError(t, err)
	require.Equal(t, model.AnnouncementDraft, a.Status)

	require.NoError(t, ann.UpdateDraft(ctx, a.ID, "Welcome!", "Hello all"))

	at := time.Now().UTC().Add(time.Minute)
	require.NoError(t, ann.Schedule(ctx, a.ID, at))

	// Scheduled rows are immutable.
	require.ErrorIs(t, ann.UpdateDraft(ctx, a.ID, "x", "y"), ErrConflict)
	require.ErrorIs(t, ann.Schedule(ctx, a.ID, at), ErrConflict)

	due, err := ann.DueScheduled(ctx, at.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)

	// The sent transition happens exactly once.
	won, err := ann.MarkSent(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)
	won, err = ann.MarkSent(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, won)

	got, err := ann.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AnnouncementSent, got.Status)
	require.NotNil(t, got.SentAt)
}

func TestLikeAndSaveIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	verses := NewVerseRepo(db)
	inter := NewInteractionRepo(db)

	vid, err := verses.InsertIgnore(ctx, model.Verse{Reference: "Psalm 23:1", Text: "The Lord is my shepherd"})
	require.NoError(t, err)

	require.NoError(t, inter.Like(ctx, 1, vid))
	require.NoError(t, inter.Like(ctx, 1, vid))
	n, err := inter.LikeCount(ctx, vid)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, inter.Save(ctx, 1, vid))
	require.NoError(t, inter.Save(ctx, 1, vid))
	saved, err := inter.SavedByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "Psalm 23:1", saved[0].Reference)

	require.NoError(t, inter.Unlike(ctx, 1, vid))
	n, err = inter.LikeCount(ctx, vid)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCommentSoftDeleteConflict(t *testing.T) {
	ctx := context.Background()
	comments := NewCommentRepo(newTestDB(t))

	id, err := comments.Create(ctx, 1, 1, "first")
	require.NoError(t, err)
	require.Positive(t, id)

	require.NoError(t, comments.SoftDelete(ctx, id, 9))
	require.ErrorIs(t, comments.SoftDelete(ctx, id, 9), ErrConflict)
	require.ErrorIs(t, comments.SoftDelete(ctx, id+100, 9), ErrNotFound)

	// Deleted comments drop out of the listing but stay readable by id.
	listed, err := comments.ListForVerse(ctx, 1, 10)
	require.NoError(t, err)
	require.Empty(t, listed)

	cm, err := comments.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cm.DeletedAt)
	require.EqualValues(t, 9, *cm.DeletedBy)
}

func TestCommentReactions(t *testing.T) {
	ctx := context.Background()
	comments := NewCommentRepo(newTestDB(t))

	id, err := comments.Create(ctx, 1, 1, "hello")
	require.NoError(t, err)

	require.NoError(t, comments.React(ctx, id, 1, "🙏"))
	require.NoError(t, comments.React(ctx, id, 1, "🙏")) // duplicate is a no-op
	require.NoError(t, comments.React(ctx, id, 2, "🙏"))
	require.NoError(t, comments.React(ctx, id, 2, "❤️"))

	counts, err := comments.ReactionCounts(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, counts["🙏"])
	require.Equal(t, 1, counts["❤️"])

	require.NoError(t, comments.Unreact(ctx, id, 2, "❤️"))
	counts, err = comments.ReactionCounts(ctx, id)
	require.NoError(t, err)
	require.Zero(t, counts["❤️"])

	require.ErrorIs(t, comments.React(ctx, id+50, 1, "🙏"), ErrNotFound)
}

func TestStatsRecentByUser(t *testing.T) {
	ctx := context.Background()
	stats := NewStatsRepo(newTestDB(t))

	stats.Record(ctx, 1, "login")
	stats.Record(ctx, 1, "like")
	stats.Record(ctx, 2, "login")

	items, err := stats.RecentByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first.
	require.Equal(t, "like", items[0].Action)
	require.Equal(t, "login", items[1].Action)

	items, err = stats.RecentByUser(ctx, 3, 10)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUserListFilters(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(newTestDB(t))

	for _, seed := range []struct{ ext, email, name string }{
		{"e1", "alice@example.com", "Alice"},
		{"e2", "bob@example.com", "Bob"},
		{"e3", "carol@other.org", "Carol"},
	} {
		_, _, err := users.UpsertFromOAuth(ctx, seed.ext, seed.email, seed.name, "")
		require.NoError(t, err)
	}
	require.NoError(t, users.UpdateRole(ctx, 2, "mod"))
	reason := "spam"
	require.NoError(t, users.SetBanFields(ctx, 3, true, &reason, nil))

	got, total, err := users.List(ctx, UserFilter{Query: "example.com"}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, got, 2)

	got, total, err = users.List(ctx, UserFilter{Role: "mod"}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Bob", got[0].Name)

	banned := true
	got, total, err = users.List(ctx, UserFilter{Banned: &banned}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Carol", got[0].Name)
	require.Equal(t, "spam", *got[0].BanReason)
}
