package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
)

func newAnnouncerFixture(t *testing.T) (*Announcer, *repository.AnnouncementRepo, *repository.AuditRepo) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	ann := repository.NewAnnouncementRepo(db)
	audit := repository.NewAuditRepo(db)
	settings := repository.NewSettingRepo(db)
	return NewAnnouncer(ann, audit, settings), ann, audit
}

func TestRunOnceDispatchesDueAnnouncements(t *testing.T) {
	an, ann, _ := newAnnouncerFixture(t)
	ctx := context.Background()

	a, err := ann.Create(ctx, "Update", "New features", 1)
	require.NoError(t, err)
	require.NoError(t, ann.Schedule(ctx, a.ID, time.Now().UTC().Add(-time.Minute)))

	draft, err := ann.Create(ctx, "Draft", "Not yet", 1)
	require.NoError(t, err)

	// The broker is unreachable in tests; the publish failure must not
	// roll back the sent transition.
	an.RunOnce(ctx)

	got, err := ann.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AnnouncementSent, got.Status)
	require.NotNil(t, got.SentAt)

	// Drafts and already-sent rows are untouched on later passes.
	an.RunOnce(ctx)
	got2, err := ann.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, model.AnnouncementDraft, got2.Status)
}

func TestRunOncePrunesAuditRetention(t *testing.T) {
	an, _, audit := newAnnouncerFixture(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-120 * 24 * time.Hour)
	require.NoError(t, audit.Append(ctx, model.AuditLogEntry{AdminID: 1, Action: "ban_user", Details: "{}", Timestamp: old}))
	require.NoError(t, audit.Append(ctx, model.AuditLogEntry{AdminID: 1, Action: "ban_user", Details: "{}"}))

	an.RunOnce(ctx)

	_, total, err := audit.List(ctx, "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}
