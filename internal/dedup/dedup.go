// Package dedup decides whether a candidate play was already submitted.
//
// Three checks run in order, first match wins: the in-memory session set
// (guards duplicates within the current run before any store write lands),
// the video id window (exact replay of the same source item), and the
// track/artist window (same logical song from a different upload).
package dedup

import (
	"log/slog"
	"strings"
	"time"

	"github.com/llehouerou/ytmscrobble/internal/store"
)

// Check layer names, reported in Result and in skip logs.
const (
	CheckSession     = "session"
	CheckVideoID     = "video-id"
	CheckTrackWindow = "track-window"
)

// Play is a normalized candidate play under duplicate evaluation.
type Play struct {
	Track   string
	Artist  string
	VideoID string // empty when the source item had no video id
}

// Result reports the outcome of a duplicate evaluation.
type Result struct {
	Duplicate bool
	Check     string    // which layer matched, empty when accepted
	At        time.Time // when the matching scrobble was submitted, zero for session hits
}

type check struct {
	name string
	fn   func(p Play, since time.Time) (*store.ScrobbleRecord, bool, error)
}

// Engine evaluates the ordered duplicate checks over a shared store.
// It is scoped to one run: the session set starts empty and is discarded
// with the engine.
type Engine struct {
	store  *store.Store
	window time.Duration
	now    func() time.Time
	log    *slog.Logger

	sessionPairs map[pairKey]struct{}
	sessionIDs   map[string]struct{}
	checks       []check
}

type pairKey struct {
	track  string
	artist string
}

// New creates an engine with an empty session set. window is the duplicate
// lookback applied to the store-backed checks.
func New(st *store.Store, window time.Duration, now func() time.Time, log *slog.Logger) *Engine {
	e := &Engine{
		store:        st,
		window:       window,
		now:          now,
		log:          log,
		sessionPairs: make(map[pairKey]struct{}),
		sessionIDs:   make(map[string]struct{}),
	}
	e.checks = []check{
		{name: CheckSession, fn: e.checkSession},
		{name: CheckVideoID, fn: e.checkVideoID},
		{name: CheckTrackWindow, fn: e.checkTrackWindow},
	}
	return e
}

// Check evaluates the play against every layer in order. A store error in
// one layer is logged and treated as no match, so a degraded store never
// blocks the run.
func (e *Engine) Check(p Play) Result {
	since := e.now().Add(-e.window)

	for _, c := range e.checks {
		rec, matched, err := c.fn(p, since)
		if err != nil {
			e.log.Warn("duplicate check failed",
				"check", c.name, "track", p.Track, "artist", p.Artist, "err", err)
			continue
		}
		if matched {
			res := Result{Duplicate: true, Check: c.name}
			if rec != nil {
				res.At = rec.ScrobbledAt
			}
			return res
		}
	}
	return Result{}
}

// Accept records the play in the session set. Called as soon as a play is
// accepted, before submission is attempted, so later candidates in the same
// batch are caught even when the store write has not landed yet.
func (e *Engine) Accept(p Play) {
	e.sessionPairs[keyFor(p)] = struct{}{}
	if p.VideoID != "" {
		e.sessionIDs[p.VideoID] = struct{}{}
	}
}

func (e *Engine) checkSession(p Play, _ time.Time) (*store.ScrobbleRecord, bool, error) {
	if _, ok := e.sessionPairs[keyFor(p)]; ok {
		return nil, true, nil
	}
	if p.VideoID != "" {
		if _, ok := e.sessionIDs[p.VideoID]; ok {
			return nil, true, nil
		}
	}
	return nil, false, nil
}

func (e *Engine) checkVideoID(p Play, since time.Time) (*store.ScrobbleRecord, bool, error) {
	if p.VideoID == "" {
		return nil, false, nil
	}
	rec, err := e.store.FindRecentVideoID(p.VideoID, since)
	if err != nil {
		return nil, false, err
	}
	return rec, rec != nil, nil
}

func (e *Engine) checkTrackWindow(p Play, since time.Time) (*store.ScrobbleRecord, bool, error) {
	rec, err := e.store.FindRecentTrack(p.Track, p.Artist, since)
	if err != nil {
		return nil, false, err
	}
	return rec, rec != nil, nil
}

func keyFor(p Play) pairKey {
	return pairKey{
		track:  strings.ToLower(p.Track),
		artist: strings.ToLower(p.Artist),
	}
}
