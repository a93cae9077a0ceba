package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
)

type engineFixture struct {
	engine *Engine
	users  *repository.UserRepo
	bans   *repository.BanRepo
	clock  *time.Time
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	users := repository.NewUserRepo(db)
	bans := repository.NewBanRepo(db)
	e := NewEngine(users, bans, 3*time.Second)

	now := time.Now().UTC()
	e.now = func() time.Time { return now }
	return &engineFixture{engine: e, users: users, bans: bans, clock: &now}
}

func (f *engineFixture) addUser(t *testing.T, ext, name string) model.User {
	t.Helper()
	u, _, err := f.users.UpsertFromOAuth(context.Background(), ext, ext+"@example.com", name, "")
	require.NoError(t, err)
	return u
}

func (f *engineFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestCheckBanStatusCleanUser(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "u1", "Clean")

	status := f.engine.CheckBanStatus(context.Background(), u.ID)
	require.False(t, status.Banned)
}

func TestBanThenStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u1", "Target")

	require.NoError(t, f.engine.Ban(ctx, u.ID, 1, "spam", nil, "198.51.100.1"))

	status := f.engine.CheckBanStatus(ctx, u.ID)
	require.True(t, status.Banned)
	require.Equal(t, "spam", status.Reason)
	require.Nil(t, status.ExpiresAt)

	// The ban is mirrored onto the user row and recorded as a ban row.
	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsBanned)
	b, err := f.bans.GetBan(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "198.51.100.1", b.IPAddress)
}

func TestCacheStalenessWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u1", "Target")

	// Prime the cache with "not banned".
	require.False(t, f.engine.CheckBanStatus(ctx, u.ID).Banned)

	require.NoError(t, f.engine.Ban(ctx, u.ID, 1, "spam", nil, ""))

	// Within the TTL the cached answer still says not banned.
	require.False(t, f.engine.CheckBanStatus(ctx, u.ID).Banned)

	// After the TTL lapses the fresh load sees the ban.
	f.advance(4 * time.Second)
	require.True(t, f.engine.CheckBanStatus(ctx, u.ID).Banned)
}

func TestLazyExpiryClearsBan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u1", "Target")

	expired := f.clock.Add(-time.Hour)
	require.NoError(t, f.engine.Ban(ctx, u.ID, 1, "old ban", &expired, ""))

	status := f.engine.CheckBanStatus(ctx, u.ID)
	require.False(t, status.Banned)

	// The expired ban was cleared from both the user row and the ban row.
	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.IsBanned)
	require.Nil(t, got.BanReason)
	_, err = f.bans.GetBan(ctx, u.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnbanIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u1", "Target")

	require.NoError(t, f.engine.Ban(ctx, u.ID, 1, "spam", nil, ""))
	require.NoError(t, f.engine.Unban(ctx, u.ID))
	require.NoError(t, f.engine.Unban(ctx, u.ID))

	f.advance(4 * time.Second) // step past the status cache
	require.False(t, f.engine.CheckBanStatus(ctx, u.ID).Banned)
}

func TestAutoBanOnMatchingSignupIP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	origin := f.addUser(t, "origin", "BadActor")
	require.NoError(t, f.users.RecordSignup(ctx, origin.ID, "203.0.113.5"))
	expires := f.clock.Add(48 * time.Hour)
	require.NoError(t, f.engine.Ban(ctx, origin.ID, 1, "spam", &expires, ""))

	// A fresh account signs up from the banned address.
	banned, _, originID := f.engine.CheckIPBan(ctx, "203.0.113.5")
	require.True(t, banned)
	require.Equal(t, origin.ID, originID)

	evader := f.addUser(t, "evader", "Fresh")
	require.NoError(t, f.engine.AutoBan(ctx, evader.ID, originID, "203.0.113.5"))

	b, err := f.bans.GetBan(ctx, evader.ID)
	require.NoError(t, err)
	require.Contains(t, b.Reason, "Ban evasion")
	require.Contains(t, b.Reason, "BadActor")
	require.Contains(t, b.Reason, "(ID: 1)")
	require.EqualValues(t, 0, b.BannedBy) // system
	// The auto-ban inherits the origin's expiry.
	require.NotNil(t, b.ExpiresAt)
	require.WithinDuration(t, expires, *b.ExpiresAt, time.Second)
}

func TestCheckIPBanUnknownAddress(t *testing.T) {
	f := newFixture(t)
	banned, _, _ := f.engine.CheckIPBan(context.Background(), "192.0.2.1")
	require.False(t, banned)
	banned, _, _ = f.engine.CheckIPBan(context.Background(), "")
	require.False(t, banned)
}

func TestCommentRestrictionLazyExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "u1", "Chatty")

	require.NoError(t, f.engine.Restrict(ctx, u.ID, 1, "off topic", nil))
	r := f.engine.CheckCommentRestriction(ctx, u.ID)
	require.True(t, r.Banned)
	require.Equal(t, "off topic", r.Reason)

	// Restriction checks are uncached, so an expiry shows up immediately.
	expired := f.clock.Add(-time.Minute)
	require.NoError(t, f.engine.Restrict(ctx, u.ID, 1, "off topic", &expired))
	require.False(t, f.engine.CheckCommentRestriction(ctx, u.ID).Banned)

	// And the expired row is gone.
	_, err := f.bans.GetRestriction(ctx, u.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBanStatusFailsOpenOnMissingUser(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.engine.CheckBanStatus(context.Background(), 9999).Banned)
}
