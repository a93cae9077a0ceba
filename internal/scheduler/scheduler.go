// Package scheduler runs the background verse-refresh loop: one perpetual
// goroutine counting down a mutable interval, fetching a new verse from
// rotating external sources (with a local fallback list) when the countdown
// expires, and exposing the current verse to the request path through a
// mutex-protected snapshot.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
)

// Interval bounds in seconds.
const (
	MinInterval     = 10
	MaxInterval     = 3600
	DefaultInterval = 60
)

// ErrIntervalOutOfRange is returned by SetInterval for values outside
// [MinInterval, MaxInterval]; the in-memory interval is left unchanged.
var ErrIntervalOutOfRange = fmt.Errorf("interval must be between %d and %d seconds", MinInterval, MaxInterval)

// Snapshot is a point-in-time copy of the scheduler's published state.
// Clients compare SessionToken to detect a new verse without polling a
// timestamp.
type Snapshot struct {
	Verse        model.Verse
	SessionToken string
	TimeLeft     int
	Interval     int
	FetchCount   int64
}

type snapshotEntry struct {
	snap    Snapshot
	fetched time.Time
}

// Scheduler owns the shared verse state. The mutex guards only the brief
// read/update of that state; it is never held across network or database
// calls, so readers always see the last-published verse even while a fetch
// is in flight.
type Scheduler struct {
	Verses   *repository.VerseRepo
	Settings *repository.SettingRepo

	client  *http.Client
	sources []Source

	mu           sync.Mutex
	interval     int
	timeLeft     int
	current      model.Verse
	fetchCount   int64
	sessionToken string
	nextSource   int

	// Per-user snapshot cache in front of the mutex copy. Purely an
	// optimization for request bursts; the bounded TTL keeps interval and
	// verse changes propagating promptly.
	snapMu    sync.Mutex
	snapshots map[int64]snapshotEntry
	snapTTL   time.Duration
}

// New constructs a Scheduler. sources defaults to the public rotation when
// nil; sourceTimeout bounds each external GET.
func New(verses *repository.VerseRepo, settings *repository.SettingRepo, sources []Source, sourceTimeout, snapshotTTL time.Duration) *Scheduler {
	if sources == nil {
		sources = DefaultSources()
	}
	if sourceTimeout <= 0 {
		sourceTimeout = 8 * time.Second
	}
	if snapshotTTL <= 0 {
		snapshotTTL = 2 * time.Second
	}
	return &Scheduler{
		Verses:       verses,
		Settings:     settings,
		client:       &http.Client{Timeout: sourceTimeout},
		sources:      sources,
		interval:     DefaultInterval,
		sessionToken: uuid.NewString(),
		snapshots:    make(map[int64]snapshotEntry),
		snapTTL:      snapshotTTL,
	}
}

// Start loads the persisted interval and launches the loop goroutine. The
// loop has no cancellation mechanism; it runs for the life of the process
// and is simply abandoned at shutdown.
func (s *Scheduler) Start() {
	if s.Settings != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if n, err := s.Settings.GetInt(ctx, "verse_interval", DefaultInterval); err == nil {
			s.mu.Lock()
			s.interval = clampInterval(n)
			s.mu.Unlock()
		}
		cancel()
	}
	go s.run()
}

// run is the perpetual loop: fetch when the countdown hits zero, otherwise
// tick down once a second. Any panic in an iteration is logged and followed
// by a short sleep; the loop must self-heal for the life of the process.
func (s *Scheduler) run() {
	for {
		s.tick()
	}
}

func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: loop recovered from panic: %v", r)
			time.Sleep(5 * time.Second)
		}
	}()

	s.mu.Lock()
	due := s.timeLeft <= 0
	s.mu.Unlock()

	if due {
		s.FetchAndPublish()
		s.mu.Lock()
		s.timeLeft = s.interval
		s.mu.Unlock()
		return
	}

	time.Sleep(time.Second)
	s.mu.Lock()
	s.timeLeft--
	s.mu.Unlock()
}

// FetchAndPublish fetches the next source in rotation, falling back to the
// local list on any failure, persists the verse and publishes it. It never
// returns an error and never leaves the current verse unset.
func (s *Scheduler) FetchAndPublish() {
	s.mu.Lock()
	src := s.sources[s.nextSource%len(s.sources)]
	s.nextSource++
	s.mu.Unlock()

	v, err := s.fetchFrom(src)
	if err != nil {
		log.Printf("scheduler: %s: %v; using fallback verse", src.Name, err)
		v = randomFallback()
	}

	v.ID = s.persist(v)

	s.mu.Lock()
	s.current = v
	s.fetchCount++
	s.sessionToken = uuid.NewString()
	s.mu.Unlock()
}

func (s *Scheduler) fetchFrom(src Source) (model.Verse, error) {
	resp, err := s.client.Get(src.URL)
	if err != nil {
		return model.Verse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Verse{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Verse{}, err
	}
	return src.Parse(body)
}

// persist stores the verse with insert-or-ignore semantics and returns its
// row id. When persistence degrades the in-memory verse must still be
// usable, so a failed lookup yields a random placeholder id.
func (s *Scheduler) persist(v model.Verse) int64 {
	if s.Verses == nil {
		return placeholderID()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := s.Verses.InsertIgnore(ctx, v)
	if err != nil {
		log.Printf("scheduler: persist verse %q: %v", v.Reference, err)
		return placeholderID()
	}
	return id
}

func placeholderID() int64 {
	return 1_000_000_000 + rand.Int63n(1_000_000_000)
}

// Current returns a point-in-time copy of the published state. The live
// struct is never handed out.
func (s *Scheduler) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Verse:        s.current,
		SessionToken: s.sessionToken,
		TimeLeft:     s.timeLeft,
		Interval:     s.interval,
		FetchCount:   s.fetchCount,
	}
}

// TimeLeft returns the seconds remaining until the next refresh.
func (s *Scheduler) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeft
}

// CurrentFor is Current behind a short per-user TTL cache, absorbing
// polling bursts without rebuilding the snapshot on every request.
func (s *Scheduler) CurrentFor(userID int64) Snapshot {
	now := time.Now()

	s.snapMu.Lock()
	if e, ok := s.snapshots[userID]; ok && now.Sub(e.fetched) < s.snapTTL {
		s.snapMu.Unlock()
		return e.snap
	}
	s.snapMu.Unlock()

	snap := s.Current()

	s.snapMu.Lock()
	s.snapshots[userID] = snapshotEntry{snap: snap, fetched: now}
	s.snapMu.Unlock()
	return snap
}

// SetInterval changes the refresh interval at runtime. Values outside
// [MinInterval, MaxInterval] are rejected and the in-memory interval is
// unchanged. When the new interval is shorter than the remaining
// countdown, the countdown is cut down to match.
func (s *Scheduler) SetInterval(seconds int) error {
	if seconds < MinInterval || seconds > MaxInterval {
		return ErrIntervalOutOfRange
	}
	s.mu.Lock()
	s.interval = seconds
	if s.timeLeft > seconds {
		s.timeLeft = seconds
	}
	s.mu.Unlock()
	return nil
}

func clampInterval(n int) int {
	if n < MinInterval {
		return MinInterval
	}
	if n > MaxInterval {
		return MaxInterval
	}
	return n
}
