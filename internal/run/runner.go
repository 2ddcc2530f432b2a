// Package run orchestrates one scheduled invocation: fetch the history
// batch, normalize and dedup-check each candidate, pace accepted plays into
// Last.fm, and sweep expired records from the store.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/llehouerou/ytmscrobble/internal/config"
	"github.com/llehouerou/ytmscrobble/internal/dedup"
	"github.com/llehouerou/ytmscrobble/internal/lastfm"
	"github.com/llehouerou/ytmscrobble/internal/normalize"
	"github.com/llehouerou/ytmscrobble/internal/scheduler"
	"github.com/llehouerou/ytmscrobble/internal/store"
	"github.com/llehouerou/ytmscrobble/internal/ytmusic"
)

// HistorySource provides the batch of candidate plays for a run.
type HistorySource interface {
	History(ctx context.Context) ([]ytmusic.HistoryItem, error)
}

// Submitter sends a single scrobble to the tracking service.
type Submitter interface {
	Scrobble(track lastfm.ScrobbleTrack) error
}

// Summary is the outcome of one run.
type Summary struct {
	Fetched    int
	Scrobbled  int
	Duplicates int
	Malformed  int
	Failed     int
}

// Runner executes one run end to end. A fetch failure is fatal and is
// returned; per-item submission failures only show up in the summary.
type Runner struct {
	Store   *store.Store
	History HistorySource
	Lastfm  Submitter
	Pacing  config.Pacing
	Log     *slog.Logger
	DryRun  bool

	// Now and Sleep default to the real clock; tests override them.
	Now   func() time.Time
	Sleep func(time.Duration)
}

func (r *Runner) Run(ctx context.Context) (Summary, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	log := r.Log.With("run", shortRunID())

	// The sweep runs on every exit path, fatal fetch included, so a bad
	// run never postpones cleanup past the next invocation.
	defer r.sweep(now, log)

	items, err := r.History.History(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch history: %w", err)
	}
	log.Info("history fetched", "items", len(items))

	sum := Summary{Fetched: len(items)}

	engine := dedup.New(r.Store, r.Pacing.DuplicateWindow, now, log)
	var accepted []scheduler.Track

	for _, item := range items {
		if !item.Recent() {
			continue
		}
		candidate, ok := item.Candidate()
		if !ok {
			log.Warn("skipping malformed history item",
				"video_id", item.VideoID, "played", item.Played)
			sum.Malformed++
			continue
		}

		title, artist := normalize.Track(candidate.Title, candidate.Artist)
		play := dedup.Play{Track: title, Artist: artist, VideoID: candidate.VideoID}

		if res := engine.Check(play); res.Duplicate {
			attrs := []any{"check", res.Check, "track", title, "artist", artist}
			if !res.At.IsZero() {
				attrs = append(attrs, "scrobbled", humanize.Time(res.At))
			}
			log.Info("duplicate skipped", attrs...)
			sum.Duplicates++
			continue
		}

		engine.Accept(play)

		album := candidate.Album
		if album == "" {
			album = title
		}
		accepted = append(accepted, scheduler.Track{
			Track:   title,
			Artist:  artist,
			Album:   album,
			VideoID: candidate.VideoID,
		})
		log.Debug("accepted", "track", title, "artist", artist, "video_id", candidate.VideoID)
	}

	sched := scheduler.New(
		r.submitFunc(log), r.recordFunc(),
		r.Pacing.ScrobbleDelay, r.Pacing.TimestampOffset, r.Pacing.APICallDelay,
		log,
	).WithClock(now, sleep)

	out := sched.Run(accepted)
	sum.Scrobbled = out.Scrobbled
	sum.Failed = out.Failed

	log.Info("run complete",
		"scrobbled", sum.Scrobbled,
		"skipped", sum.Duplicates,
		"malformed", sum.Malformed,
		"failed", sum.Failed)
	return sum, nil
}

func (r *Runner) submitFunc(log *slog.Logger) scheduler.SubmitFunc {
	if r.DryRun {
		return func(t scheduler.Track, ts time.Time) error {
			log.Info("dry-run: would scrobble",
				"track", t.Track, "artist", t.Artist, "timestamp", ts)
			return nil
		}
	}
	return func(t scheduler.Track, ts time.Time) error {
		return r.Lastfm.Scrobble(lastfm.ScrobbleTrack{
			Artist:    t.Artist,
			Track:     t.Track,
			Album:     t.Album,
			Timestamp: ts,
		})
	}
}

func (r *Runner) recordFunc() scheduler.RecordFunc {
	if r.DryRun {
		return func(scheduler.Track, time.Time) error { return nil }
	}
	return func(t scheduler.Track, submittedAt time.Time) error {
		return r.Store.Add(store.ScrobbleRecord{
			Track:       t.Track,
			Artist:      t.Artist,
			VideoID:     t.VideoID,
			ScrobbledAt: submittedAt,
		})
	}
}

// sweep deletes records older than the retention window. Best-effort: a
// sweep failure is logged, never escalated.
func (r *Runner) sweep(now func() time.Time, log *slog.Logger) {
	if r.DryRun {
		log.Debug("dry-run: skipping maintenance sweep")
		return
	}

	cutoff := now().Add(-r.Pacing.Retention)
	deleted, err := r.Store.PurgeExpired(cutoff)
	if err != nil {
		log.Warn("maintenance sweep failed", "err", err)
		return
	}
	if deleted > 0 {
		log.Info("maintenance sweep", "deleted", deleted, "retention", r.Pacing.Retention)
	}
	if count, err := r.Store.Count(); err == nil {
		log.Debug("store size", "records", count)
	}
}

func shortRunID() string {
	return uuid.NewString()[:8]
}
