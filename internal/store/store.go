// Package store persists recently submitted scrobbles and the Last.fm
// session in a local SQLite database. One connection is held for the
// duration of a run.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "ytmscrobble"
	dbFileName = "scrobbles.db"
)

// ScrobbleRecord is one successfully submitted play.
type ScrobbleRecord struct {
	Track       string
	Artist      string
	VideoID     string // empty when the source item had no video id
	ScrobbledAt time.Time
}

type Store struct {
	db *sql.DB
}

// DefaultPath returns the XDG data location for the scrobble database.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens the database at path, creating it and its schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a record for a successful submission.
func (s *Store) Add(rec ScrobbleRecord) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO recent_scrobbles (track_name, artist_name, video_id, scrobbled_at)
		VALUES (?, ?, ?, ?)
	`, rec.Track, rec.Artist, nullString(rec.VideoID), rec.ScrobbledAt.Unix())
	return err
}

// FindRecentTrack returns the newest record matching (track, artist)
// submitted after since, or nil when there is none. Matching is
// case-insensitive.
func (s *Store) FindRecentTrack(track, artist string, since time.Time) (*ScrobbleRecord, error) {
	row := s.db.QueryRow(`
		SELECT track_name, artist_name, video_id, scrobbled_at
		FROM recent_scrobbles
		WHERE track_name = ? COLLATE NOCASE
		  AND artist_name = ? COLLATE NOCASE
		  AND scrobbled_at > ?
		ORDER BY scrobbled_at DESC
		LIMIT 1
	`, track, artist, since.Unix())
	return scanRecord(row)
}

// FindRecentVideoID returns the newest record with the given source video
// id submitted after since, or nil when there is none.
func (s *Store) FindRecentVideoID(videoID string, since time.Time) (*ScrobbleRecord, error) {
	row := s.db.QueryRow(`
		SELECT track_name, artist_name, video_id, scrobbled_at
		FROM recent_scrobbles
		WHERE video_id = ?
		  AND scrobbled_at > ?
		ORDER BY scrobbled_at DESC
		LIMIT 1
	`, videoID, since.Unix())
	return scanRecord(row)
}

// PurgeExpired deletes all records submitted before cutoff and reports how
// many were removed.
func (s *Store) PurgeExpired(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM recent_scrobbles WHERE scrobbled_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored scrobble records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM recent_scrobbles`).Scan(&n)
	return n, err
}

func scanRecord(row *sql.Row) (*ScrobbleRecord, error) {
	var rec ScrobbleRecord
	var videoID sql.NullString
	var scrobbledAt int64

	err := row.Scan(&rec.Track, &rec.Artist, &videoID, &scrobbledAt)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // nil record means no match, not an error
	}
	if err != nil {
		return nil, err
	}

	rec.VideoID = videoID.String
	rec.ScrobbledAt = time.Unix(scrobbledAt, 0)
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
