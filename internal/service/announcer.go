package service

import (
	"context"
	"log"
	"time"

	"github.com/versefeed/versefeed/internal/queue"
	"github.com/versefeed/versefeed/internal/repository"
)

// Announcer is the background dispatcher for scheduled announcements. Every
// pass it collects due scheduled rows, flips each to sent, and publishes an
// AnnouncementSentEvent for the ones it won. The status-guarded MarkSent
// makes the flip at most once even with concurrent dispatchers, so an
// announcement is never published twice.
//
// The same loop also enforces the audit retention window, since both jobs
// want the same low-frequency tick.
type Announcer struct {
	Announcements *repository.AnnouncementRepo
	Audit         *repository.AuditRepo
	Settings      *repository.SettingRepo

	Interval time.Duration
}

func NewAnnouncer(a *repository.AnnouncementRepo, audit *repository.AuditRepo, settings *repository.SettingRepo) *Announcer {
	return &Announcer{
		Announcements: a,
		Audit:         audit,
		Settings:      settings,
		Interval:      30 * time.Second,
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (an *Announcer) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(an.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				an.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single dispatcher pass. Exported so tests can drive
// the loop without timers.
func (an *Announcer) RunOnce(ctx context.Context) {
	now := time.Now().UTC()

	due, err := an.Announcements.DueScheduled(ctx, now)
	if err != nil {
		log.Printf("[announcer] list due failed: %v", err)
	}
	for _, a := range due {
		won, err := an.Announcements.MarkSent(ctx, a.ID, now)
		if err != nil {
			log.Printf("[announcer] mark sent id=%d failed: %v", a.ID, err)
			continue
		}
		if !won {
			continue // another dispatcher got there first
		}
		ev := queue.AnnouncementSentEvent{
			AnnouncementID: a.ID,
			Title:          a.Title,
			Body:           a.Body,
			CreatedBy:      a.CreatedBy,
			SentAt:         now.Format(time.RFC3339),
		}
		if err := PublishAnnouncementSent(ctx, ev); err != nil {
			// The row is already sent; the event is best-effort.
			log.Printf("[announcer] publish id=%d failed: %v", a.ID, err)
		}
	}

	an.pruneAudit(ctx, now)
}

func (an *Announcer) pruneAudit(ctx context.Context, now time.Time) {
	days, err := an.Settings.GetInt(ctx, "audit_retention_days", 90)
	if err != nil {
		log.Printf("[announcer] read retention setting failed: %v", err)
		return
	}
	if days < 7 {
		days = 7
	}
	cutoff := now.AddDate(0, 0, -days)
	n, err := an.Audit.PruneOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[announcer] prune audit failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[announcer] pruned %d audit entries older than %s", n, cutoff.Format(time.RFC3339))
	}
}
