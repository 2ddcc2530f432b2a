// Package scheduler paces accepted plays into the submission API.
//
// Submissions are spaced out so a batch arrives like organically reported
// plays rather than a burst, and each submitted timestamp is backdated a
// little to mimic natural reporting lag. A failed submission is logged and
// skipped; the rest of the batch continues.
package scheduler

import (
	"log/slog"
	"time"
)

// Track is one accepted play queued for submission.
type Track struct {
	Track   string
	Artist  string
	Album   string
	VideoID string
}

// SubmitFunc submits one play with the given (backdated) timestamp.
type SubmitFunc func(t Track, ts time.Time) error

// RecordFunc is called after each successful submission, with the time the
// submission completed. A record failure does not undo the submission.
type RecordFunc func(t Track, submittedAt time.Time) error

// Scheduler drives paced submission of a batch.
type Scheduler struct {
	submit SubmitFunc
	record RecordFunc
	log    *slog.Logger

	delay    time.Duration // pause after each successful submission
	offset   time.Duration // backdate applied to every submitted timestamp
	apiDelay time.Duration // shorter pause after a failed attempt

	now   func() time.Time
	sleep func(time.Duration)
}

// Summary counts the outcomes of one batch.
type Summary struct {
	Scrobbled int
	Failed    int
}

// New creates a scheduler. delay is the pause between consecutive
// successful submissions, offset the timestamp backdate, and apiDelay the
// rate-limit pause applied when no full pacing pause happened.
func New(submit SubmitFunc, record RecordFunc, delay, offset, apiDelay time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		submit:   submit,
		record:   record,
		log:      log,
		delay:    delay,
		offset:   offset,
		apiDelay: apiDelay,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithClock replaces the scheduler's time source and sleep function.
// Tests use this to assert pacing without waiting.
func (s *Scheduler) WithClock(now func() time.Time, sleep func(time.Duration)) *Scheduler {
	s.now = now
	s.sleep = sleep
	return s
}

// Run submits the batch in order and returns the outcome counts. Per-item
// failures never abort the batch.
func (s *Scheduler) Run(tracks []Track) Summary {
	var sum Summary

	for i, t := range tracks {
		ts := s.now().Add(-s.offset)

		if err := s.submit(t, ts); err != nil {
			s.log.Error("scrobble failed",
				"track", t.Track, "artist", t.Artist, "video_id", t.VideoID, "err", err)
			sum.Failed++
			if i < len(tracks)-1 {
				s.sleep(s.apiDelay)
			}
			continue
		}

		sum.Scrobbled++
		s.log.Info("scrobbled", "track", t.Track, "artist", t.Artist, "timestamp", ts)

		if err := s.record(t, s.now()); err != nil {
			// The play went through; the next runs just lose this record
			// for duplicate checks.
			s.log.Warn("record scrobble failed",
				"track", t.Track, "artist", t.Artist, "err", err)
		}

		if i < len(tracks)-1 {
			s.sleep(s.delay)
		}
	}

	return sum
}
