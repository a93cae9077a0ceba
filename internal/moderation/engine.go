package moderation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
)

// BanStatus is the answer to "is this user blocked right now".
type BanStatus struct {
	Banned    bool
	Reason    string
	ExpiresAt *time.Time
}

type cachedStatus struct {
	status  BanStatus
	fetched time.Time
}

// Engine determines per-user ban/restriction state.
//
// Ban lookups are cached per user for a short TTL to absorb polling bursts
// without hammering the database. The cache is invalidated only by its TTL,
// never on ban/unban writes: an admin action becomes visible to cached
// callers within one TTL. That staleness window is a documented property of
// this engine, not a bug.
//
// On any data-access error the checks fail open (report "not banned") and
// log the cause. Availability is deliberately prioritized over strict
// enforcement here; a stricter deployment would need to revisit this.
type Engine struct {
	Users *repository.UserRepo
	Bans  *repository.BanRepo

	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[int64]cachedStatus
}

// NewEngine constructs an Engine with the given ban-status cache TTL.
func NewEngine(users *repository.UserRepo, bans *repository.BanRepo, cacheTTL time.Duration) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = 3 * time.Second
	}
	return &Engine{
		Users: users,
		Bans:  bans,
		ttl:   cacheTTL,
		now:   func() time.Time { return time.Now().UTC() },
		cache: make(map[int64]cachedStatus),
	}
}

// CheckBanStatus reports whether the user is currently banned. A ban whose
// expiry has passed is treated as inactive and its stored fields are
// cleared opportunistically in the same call (lazy auto-unban; there is no
// background sweep).
func (e *Engine) CheckBanStatus(ctx context.Context, userID int64) BanStatus {
	now := e.now()

	e.mu.Lock()
	if c, ok := e.cache[userID]; ok && now.Sub(c.fetched) < e.ttl {
		e.mu.Unlock()
		return c.status
	}
	e.mu.Unlock()

	status := e.loadBanStatus(ctx, userID, now)

	e.mu.Lock()
	e.cache[userID] = cachedStatus{status: status, fetched: now}
	e.mu.Unlock()
	return status
}

func (e *Engine) loadBanStatus(ctx context.Context, userID int64, now time.Time) BanStatus {
	u, err := e.Users.GetByID(ctx, userID)
	if err != nil {
		if err != repository.ErrNotFound {
			log.Printf("moderation: ban check for user %d failed open: %v", userID, err)
		}
		return BanStatus{}
	}
	if !u.IsBanned {
		return BanStatus{}
	}
	if u.BanExpiresAt != nil && u.BanExpiresAt.Before(now) {
		// Expired: clear the stored ban fields now rather than waiting for
		// an admin or a sweep. Errors fail open; the next check retries.
		if err := e.Users.SetBanFields(ctx, userID, false, nil, nil); err != nil {
			log.Printf("moderation: lazy unban of user %d: %v", userID, err)
		}
		if err := e.Bans.DeleteBan(ctx, userID); err != nil {
			log.Printf("moderation: lazy ban row cleanup for user %d: %v", userID, err)
		}
		return BanStatus{}
	}
	reason := ""
	if u.BanReason != nil {
		reason = *u.BanReason
	}
	return BanStatus{Banned: true, Reason: reason, ExpiresAt: u.BanExpiresAt}
}

// Ban records a ban for the user: one upserted ban row (unique user_id, a
// new ban replaces the old) mirrored onto the user row. expiresAt nil means
// permanent.
func (e *Engine) Ban(ctx context.Context, userID, bannedBy int64, reason string, expiresAt *time.Time, ip string) error {
	err := e.Bans.UpsertBan(ctx, model.Ban{
		UserID:    userID,
		Reason:    reason,
		BannedBy:  bannedBy,
		BannedAt:  e.now(),
		ExpiresAt: expiresAt,
		IPAddress: ip,
	})
	if err != nil {
		return err
	}
	return e.Users.SetBanFields(ctx, userID, true, &reason, expiresAt)
}

// Unban clears the user's ban. Idempotent. The status cache is not touched;
// callers see the unban after the cache TTL lapses.
func (e *Engine) Unban(ctx context.Context, userID int64) error {
	if err := e.Bans.DeleteBan(ctx, userID); err != nil {
		return err
	}
	return e.Users.SetBanFields(ctx, userID, false, nil, nil)
}

// CheckIPBan looks for a currently-banned account associated with the
// address: first a non-expired ban whose own ip_address matches, then a
// join through the signup log for bans recorded without an IP. Only called
// at account-creation time. Fails open.
func (e *Engine) CheckIPBan(ctx context.Context, ip string) (bool, string, int64) {
	if ip == "" {
		return false, "", 0
	}
	now := e.now()
	b, err := e.Bans.ActiveBanByIP(ctx, ip, now)
	if err == repository.ErrNotFound {
		b, err = e.Bans.ActiveBanBySignupIP(ctx, ip, now)
	}
	if err != nil {
		if err != repository.ErrNotFound {
			log.Printf("moderation: ip ban check for %s failed open: %v", ip, err)
		}
		return false, "", 0
	}
	return true, b.Reason, b.UserID
}

// AutoBan bans a brand-new account whose signup IP matches a banned one.
// The reason names the originating account for audit traceability. This is
// heuristic evasion mitigation: shared addresses (NAT, campus networks) can
// produce false positives, which is an accepted trade-off.
func (e *Engine) AutoBan(ctx context.Context, userID, originUserID int64, ip string) error {
	originName := fmt.Sprintf("user %d", originUserID)
	if origin, err := e.Users.GetByID(ctx, originUserID); err == nil && origin.Name != "" {
		originName = origin.Name
	}
	reason := fmt.Sprintf("Ban evasion: signup IP matches banned account %s (ID: %d)", originName, originUserID)

	var expiresAt *time.Time
	if origin, err := e.Bans.GetBan(ctx, originUserID); err == nil {
		expiresAt = origin.ExpiresAt
	}
	return e.Ban(ctx, userID, 0, reason, expiresAt, ip) // banned_by 0 = system
}

// CheckCommentRestriction reports whether the user may not comment.
// Restrictions follow the same lazy-expiry model as bans but are uncached
// (commenting is far less frequent than the polling read path). Fails open.
func (e *Engine) CheckCommentRestriction(ctx context.Context, userID int64) BanStatus {
	cr, err := e.Bans.GetRestriction(ctx, userID)
	if err == repository.ErrNotFound {
		return BanStatus{}
	}
	if err != nil {
		log.Printf("moderation: restriction check for user %d failed open: %v", userID, err)
		return BanStatus{}
	}
	if cr.ExpiresAt != nil && cr.ExpiresAt.Before(e.now()) {
		if err := e.Bans.DeleteRestriction(ctx, userID); err != nil {
			log.Printf("moderation: lazy restriction cleanup for user %d: %v", userID, err)
		}
		return BanStatus{}
	}
	return BanStatus{Banned: true, Reason: cr.Reason, ExpiresAt: cr.ExpiresAt}
}

// Restrict records a comment restriction (upsert, one per user).
func (e *Engine) Restrict(ctx context.Context, userID, restrictedBy int64, reason string, expiresAt *time.Time) error {
	return e.Bans.UpsertRestriction(ctx, model.CommentRestriction{
		UserID:       userID,
		Reason:       reason,
		RestrictedBy: restrictedBy,
		RestrictedAt: e.now(),
		ExpiresAt:    expiresAt,
	})
}

// Unrestrict removes the user's comment restriction. Idempotent.
func (e *Engine) Unrestrict(ctx context.Context, userID int64) error {
	return e.Bans.DeleteRestriction(ctx, userID)
}
